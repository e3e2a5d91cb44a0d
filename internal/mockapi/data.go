package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/me/coursebook/pkg/model"
)

type account struct {
	user model.User
	hash []byte
}

type courseRecord struct {
	course       model.Course // Participants and ParticipantCount are derived
	participants []string
}

// database holds all state of the fake API.
type database struct {
	mu      sync.RWMutex
	users   map[string]*account
	byEmail map[string]string
	courses map[string]*courseRecord
}

func newDatabase() *database {
	return &database{
		users:   make(map[string]*account),
		byEmail: make(map[string]string),
		courses: make(map[string]*courseRecord),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *database) user(id string) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.users[id]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

func (d *database) accountByEmail(email string) (account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return account{}, false
	}
	return *d.users[id], true
}

// addUser stores a new account. It returns false if the email is taken.
func (d *database) addUser(u model.User, hash []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := normalizeEmail(u.Email)
	if _, taken := d.byEmail[key]; taken {
		return false
	}
	d.users[u.ID] = &account{user: u, hash: hash}
	d.byEmail[key] = u.ID
	return true
}

func (d *database) listUsers() []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.User, 0, len(d.users))
	for _, acc := range d.users {
		out = append(out, acc.user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].Email < out[j].Email
	})
	return out
}

// updateUser applies fn to the stored user. Email changes are checked for
// collisions.
func (d *database) updateUser(id string, fn func(*model.User)) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.users[id]
	if !ok {
		return model.User{}, errUserNotFound
	}
	updated := acc.user
	fn(&updated)

	oldKey, newKey := normalizeEmail(acc.user.Email), normalizeEmail(updated.Email)
	if newKey != oldKey {
		if _, taken := d.byEmail[newKey]; taken {
			return model.User{}, errEmailTaken
		}
		delete(d.byEmail, oldKey)
		d.byEmail[newKey] = id
	}
	acc.user = updated
	return updated, nil
}

// deleteUser removes the account and its enrollments.
func (d *database) deleteUser(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.users[id]
	if !ok {
		return false
	}
	delete(d.byEmail, normalizeEmail(acc.user.Email))
	delete(d.users, id)
	for _, rec := range d.courses {
		rec.participants = without(rec.participants, id)
	}
	return true
}

func (d *database) putCourse(c model.Course) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.courses[c.ID]; ok {
		rec.course = c
		return
	}
	d.courses[c.ID] = &courseRecord{course: c}
}

func (d *database) deleteCourse(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.courses[id]; !ok {
		return false
	}
	delete(d.courses, id)
	return true
}

func (d *database) course(id string) (model.Course, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.courses[id]
	if !ok {
		return model.Course{}, false
	}
	return d.render(rec), true
}

// listCourses returns courses matching keep, ordered by start date.
func (d *database) listCourses(keep func(*courseRecord) bool) []model.Course {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []model.Course{}
	for _, rec := range d.courses {
		if keep == nil || keep(rec) {
			out = append(out, d.render(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// render fills in the derived participant fields. Callers hold d.mu.
func (d *database) render(rec *courseRecord) model.Course {
	c := rec.course
	c.Participants = make([]model.User, 0, len(rec.participants))
	for _, id := range rec.participants {
		if acc, ok := d.users[id]; ok {
			c.Participants = append(c.Participants, acc.user)
		}
	}
	c.ParticipantCount = len(c.Participants)
	if c.Topics != nil {
		c.Topics = append([]string(nil), c.Topics...)
	}
	return c
}

// join enrolls userID, enforcing capacity and end date.
func (d *database) join(courseID, userID string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.courses[courseID]
	if !ok {
		return errCourseNotFound
	}
	if contains(rec.participants, userID) {
		return errAlreadyEnrolled
	}
	if rec.course.EndDate.Before(now) {
		return errCourseOver
	}
	if rec.course.MaxParticipants > 0 && len(rec.participants) >= rec.course.MaxParticipants {
		return errCourseFull
	}
	rec.participants = append(rec.participants, userID)
	return nil
}

func (d *database) leave(courseID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.courses[courseID]
	if !ok {
		return errCourseNotFound
	}
	if !contains(rec.participants, userID) {
		return errNotEnrolled
	}
	rec.participants = without(rec.participants, userID)
	return nil
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
