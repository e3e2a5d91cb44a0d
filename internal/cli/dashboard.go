package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/me/coursebook/pkg/model"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your current and past courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}

			var current, past []model.Course
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				current, err = a.api.Courses.Mine(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				past, err = a.api.Courses.Past(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return friendly(err, "could not load your courses")
			}

			u := a.session.CurrentUser()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hello, %s\n\n", u.FullName())
			fmt.Fprintln(out, heading("My courses"))
			printCourses(out, current)
			fmt.Fprintln(out)
			fmt.Fprintln(out, heading("Past courses"))
			printCourses(out, past)

			if u.IsAdmin() {
				fmt.Fprintln(out)
				fmt.Fprintln(out, heading("Administration"))
				fmt.Fprintf(out, "  Courses: %s\n", model.DestAdminCourses)
				fmt.Fprintf(out, "  Users:   %s\n", model.DestAdminUsers)
			}
			return nil
		},
	}
}
