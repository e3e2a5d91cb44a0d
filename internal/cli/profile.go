package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/coursebook/pkg/model"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your profile and courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			p, err := a.api.Users.Profile(cmd.Context())
			if err != nil {
				return friendly(err, "could not load profile")
			}
			printUserWithCourses(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var upd model.ProfileUpdate
	update := &cobra.Command{
		Use:   "update",
		Short: "Change your name or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			u, err := a.api.Users.UpdateProfile(cmd.Context(), upd)
			if err != nil {
				return friendly(err, "could not update profile")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s <%s>\n", u.FullName(), u.Email)
			return nil
		},
	}
	update.Flags().StringVar(&upd.FirstName, "first-name", "", "New first name")
	update.Flags().StringVar(&upd.LastName, "last-name", "", "New last name")
	update.Flags().StringVar(&upd.Email, "email", "", "New email")

	cmd.AddCommand(show, update)
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse user accounts (admin)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireAdmin(); err != nil {
					return err
				}
				users, err := a.api.Users.List(cmd.Context())
				if err != nil {
					return friendly(err, "could not load users")
				}
				printUsers(cmd.OutOrStdout(), users)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <user_id>",
			Short: "Show a user and their courses",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireAdmin(); err != nil {
					return err
				}
				uc, err := a.api.Users.Get(cmd.Context(), args[0])
				if err != nil {
					return friendly(err, "could not load user")
				}
				printUserWithCourses(cmd.OutOrStdout(), uc)
				return nil
			},
		},
	)
	return cmd
}
