package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/coursebook/internal/session"
	"github.com/me/coursebook/pkg/model"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the course API",
		Long:  "Log in with email and password. Missing values are prompted for. The session is stored for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if u := a.session.CurrentUser(); u != nil {
				return fmt.Errorf("already logged in as %s; run 'coursebook logout' first", u.Email)
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			var err error
			if email == "" {
				if email, err = p.ask("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.ask("Password"); err != nil {
					return err
				}
			}

			dest, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, session.ErrMissingCredentials) {
					return err
				}
				return friendly(err, "login failed")
			}

			u := a.session.CurrentUser()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s (%s)\n", u.FullName(), roleLabel(u.Role))
			fmt.Fprintf(out, "Next: %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var in session.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.IsAuthenticated() {
				return errors.New("already logged in; run 'coursebook logout' first")
			}
			dest, err := a.session.Register(cmd.Context(), in)
			if err != nil {
				return friendly(err, "registration failed")
			}
			u := a.session.CurrentUser()
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Your account has been created.\n", u.FullName())
			fmt.Fprintf(cmd.OutOrStdout(), "Next: %s\n", dest)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVar(&in.Email, "email", "", "Email")
	f.StringVar(&in.Password, "password", "", "Password (at least 6 characters)")
	f.StringVar(&in.ConfirmPassword, "confirm-password", "", "Repeat the password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := a.session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			fmt.Fprintf(cmd.OutOrStdout(), "Next: %s\n", dest)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.session.CurrentUser()
			if u == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", u.FullName(), u.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "  ID:   %s\n", u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Role: %s\n", roleLabel(u.Role))
			fmt.Fprintf(cmd.OutOrStdout(), "  Home: %s\n", model.HomeFor(u))
			return nil
		},
	}
}
