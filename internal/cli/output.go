package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/me/coursebook/pkg/model"
)

const dateLayout = "2006-01-02"

var (
	adminBadge = color.New(color.FgMagenta, color.Bold).SprintFunc()
	fullBadge  = color.New(color.FgRed).SprintFunc()
	okBadge    = color.New(color.FgGreen).SprintFunc()
	heading    = color.New(color.Bold).SprintFunc()
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func roleLabel(r model.UserRole) string {
	if r == model.RoleAdmin {
		return adminBadge(string(r))
	}
	return string(r)
}

func seats(c *model.Course) string {
	s := fmt.Sprintf("%d/%d", c.Enrolled(), c.MaxParticipants)
	if c.IsFull() {
		return fullBadge(s + " full")
	}
	return s
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Format(dateLayout), humanize.Time(t))
}

func printCourses(w io.Writer, courses []model.Course) {
	if len(courses) == 0 {
		fmt.Fprintln(w, "No courses found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTART\tSEATS\tSTATUS")
	for i := range courses {
		c := &courses[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Title, c.Category, when(c.StartDate), seats(c), c.Status)
	}
	tw.Flush()
}

func printCourse(w io.Writer, c *model.Course) {
	fmt.Fprintf(w, "%s\n", heading(c.Title))
	fmt.Fprintf(w, "  ID:          %s\n", c.ID)
	fmt.Fprintf(w, "  Category:    %s\n", c.Category)
	fmt.Fprintf(w, "  Status:      %s\n", c.Status)
	fmt.Fprintf(w, "  Start:       %s\n", when(c.StartDate))
	fmt.Fprintf(w, "  End:         %s\n", when(c.EndDate))
	fmt.Fprintf(w, "  Seats:       %s\n", seats(c))
	if len(c.Topics) > 0 {
		fmt.Fprintf(w, "  Topics:      %s\n", strings.Join(c.Topics, ", "))
	}
	if c.Description != "" {
		fmt.Fprintf(w, "\n%s\n", c.Description)
	}
	if len(c.Participants) > 0 {
		fmt.Fprintln(w, "\nParticipants:")
		for _, p := range c.Participants {
			fmt.Fprintf(w, "  - %s <%s>\n", p.FullName(), p.Email)
		}
	}
}

func printUsers(w io.Writer, users []model.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for i := range users {
		u := &users[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, roleLabel(u.Role))
	}
	tw.Flush()
}

func printUserWithCourses(w io.Writer, uc *model.UserWithCourses) {
	u := &uc.User
	fmt.Fprintf(w, "%s\n", heading(u.FullName()))
	fmt.Fprintf(w, "  ID:    %s\n", u.ID)
	fmt.Fprintf(w, "  Email: %s\n", u.Email)
	fmt.Fprintf(w, "  Role:  %s\n", roleLabel(u.Role))
	fmt.Fprintf(w, "\nCourses (%s):\n", humanize.Comma(int64(len(uc.Courses))))
	printCourses(w, uc.Courses)
}

// prompter reads answers line by line from the command's input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; anything but y or yes is no.
func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " [y/N]")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
