package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/coursebook/pkg/model"
)

func newCoursesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse the catalog and manage your enrollments",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all courses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				courses, err := a.api.Public.List(cmd.Context())
				if err != nil {
					return friendly(err, "could not load courses")
				}
				printCourses(cmd.OutOrStdout(), courses)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <course_id>",
			Short: "Show course details",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.api.Public.Get(cmd.Context(), args[0])
				if err != nil {
					return friendly(err, "could not load course")
				}
				printCourse(cmd.OutOrStdout(), c)
				if u := a.session.CurrentUser(); u != nil && c.HasParticipant(u.ID) {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", okBadge("You are enrolled."))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "join <course_id>",
			Short: "Enroll in a course",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireAuth(); err != nil {
					return err
				}
				msg, err := a.api.Courses.Join(cmd.Context(), args[0])
				if err != nil {
					return friendly(err, "could not join course")
				}
				fmt.Fprintln(cmd.OutOrStdout(), messageOr(msg, "Joined course "+args[0]+"."))
				return nil
			},
		},
		&cobra.Command{
			Use:   "leave <course_id>",
			Short: "Withdraw from a course",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireAuth(); err != nil {
					return err
				}
				msg, err := a.api.Courses.Leave(cmd.Context(), args[0])
				if err != nil {
					return friendly(err, "could not leave course")
				}
				fmt.Fprintln(cmd.OutOrStdout(), messageOr(msg, "Left course "+args[0]+"."))
				return nil
			},
		},
		newCoursesMineCmd(a),
	)
	return cmd
}

func newCoursesMineCmd(a *app) *cobra.Command {
	var past bool
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			var (
				courses []model.Course
				err     error
			)
			if past {
				courses, err = a.api.Courses.Past(cmd.Context())
			} else {
				courses, err = a.api.Courses.Mine(cmd.Context())
			}
			if err != nil {
				return friendly(err, "could not load your courses")
			}
			printCourses(cmd.OutOrStdout(), courses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&past, "past", false, "Show finished courses instead")
	return cmd
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
