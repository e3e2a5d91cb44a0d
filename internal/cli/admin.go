package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/coursebook/pkg/model"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Course and user administration",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.requireAdmin()
		},
	}

	courses := &cobra.Command{Use: "courses", Short: "Manage courses"}
	courses.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all courses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.api.Admin.ListCourses(cmd.Context())
				if err != nil {
					return friendly(err, "could not load courses")
				}
				printCourses(cmd.OutOrStdout(), list)
				return nil
			},
		},
		newAdminCreateCourseCmd(a),
		newAdminUpdateCourseCmd(a),
		newAdminDeleteCmd(a, "course", func(cmd *cobra.Command, id string) error {
			return a.api.Admin.DeleteCourse(cmd.Context(), id)
		}),
	)

	users := &cobra.Command{Use: "users", Short: "Manage user roles and accounts"}
	users.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.api.Admin.ListUsers(cmd.Context())
				if err != nil {
					return friendly(err, "could not load users")
				}
				printUsers(cmd.OutOrStdout(), list)
				return nil
			},
		},
		newAdminRoleCmd(a, "promote", model.RoleAdmin),
		newAdminRoleCmd(a, "demote", model.RoleUser),
		newAdminDeleteCmd(a, "user", func(cmd *cobra.Command, id string) error {
			return a.api.Admin.DeleteUser(cmd.Context(), id)
		}),
	)

	cmd.AddCommand(courses, users)
	return cmd
}

type courseFlags struct {
	title, description, category string
	start, end                   string
	max                          int
	status                       string
	topics                       []string
}

func (f *courseFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "Course title")
	fs.StringVar(&f.description, "description", "", "Course description")
	fs.StringVar(&f.category, "category", "", "Category")
	fs.StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "End date (YYYY-MM-DD)")
	fs.IntVar(&f.max, "max", 0, "Maximum participants")
	fs.StringVar(&f.status, "status", "", "Status (default "+model.CourseStatusActive+")")
	fs.StringSliceVar(&f.topics, "topics", nil, "Comma-separated topics")
}

// apply copies the flags the user set onto in.
func (f *courseFlags) apply(cmd *cobra.Command, in *model.CourseInput) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		in.Title = f.title
	}
	if changed("description") {
		in.Description = f.description
	}
	if changed("category") {
		in.Category = f.category
	}
	if changed("start") {
		t, err := time.Parse(dateLayout, f.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		in.StartDate = t
	}
	if changed("end") {
		t, err := time.Parse(dateLayout, f.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		in.EndDate = t
	}
	if changed("max") {
		in.MaxParticipants = f.max
	}
	if changed("status") {
		in.Status = f.status
	}
	if changed("topics") {
		in.Topics = f.topics
	}
	return nil
}

func newAdminCreateCourseCmd(a *app) *cobra.Command {
	var f courseFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in model.CourseInput
			if err := f.apply(cmd, &in); err != nil {
				return err
			}
			c, err := a.api.Admin.CreateCourse(cmd.Context(), in)
			if err != nil {
				return friendly(err, "could not create course")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Course created: %s (%s)\n", c.ID, c.Title)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newAdminUpdateCourseCmd(a *app) *cobra.Command {
	var f courseFlags
	cmd := &cobra.Command{
		Use:   "update <course_id>",
		Short: "Change a course; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := a.api.Public.Get(cmd.Context(), args[0])
			if err != nil {
				return friendly(err, "could not load course")
			}
			in := model.CourseInput{
				Title:           cur.Title,
				Description:     cur.Description,
				StartDate:       cur.StartDate,
				EndDate:         cur.EndDate,
				Category:        cur.Category,
				MaxParticipants: cur.MaxParticipants,
				Status:          cur.Status,
				Topics:          cur.Topics,
			}
			if err := f.apply(cmd, &in); err != nil {
				return err
			}
			c, err := a.api.Admin.UpdateCourse(cmd.Context(), args[0], in)
			if err != nil {
				return friendly(err, "could not update course")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Course updated: %s (%s)\n", c.ID, c.Title)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newAdminRoleCmd(a *app, verb string, role model.UserRole) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <user_id>",
		Short: fmt.Sprintf("Give a user the %s role", role),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.api.Admin.UpdateUserRole(cmd.Context(), args[0], role)
			if err != nil {
				return friendly(err, "could not change role")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, roleLabel(u.Role))
			return nil
		},
	}
}

func newAdminDeleteCmd(a *app, noun string, del func(cmd *cobra.Command, id string) error) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <" + noun + "_id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				if !p.confirm(fmt.Sprintf("Really delete %s %s?", noun, id)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			if err := del(cmd, id); err != nil {
				return friendly(err, "could not delete "+noun)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", noun, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
