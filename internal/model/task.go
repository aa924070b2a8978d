package model

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses lists every valid status in display order
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Label returns the human readable label used by the client views
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendiente"
	case StatusInProgress:
		return "En Progreso"
	case StatusCompleted:
		return "Completada"
	case StatusCancelled:
		return "Cancelada"
	default:
		return string(s)
	}
}

// ParseStatus converts user input such as "in_progress" or "done" to a Status
func ParseStatus(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	switch norm {
	case "DONE":
		return StatusCompleted, nil
	case "TODO":
		return StatusPending, nil
	}
	st := Status(norm)
	if !st.Valid() {
		return "", NewValidationError("status", "unknown status "+s)
	}
	return st, nil
}

// DueDateLayout is the wire format of Task.DueDate
const DueDateLayout = "2006-01-02"

// Task is a single to-do item as exchanged with the API
type Task struct {
	ID            int64      `json:"id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	CreatedBy     int64      `json:"createdBy"`
	AssignedTo    *int64     `json:"assignedTo,omitempty"`
	AssignedUsers []int64    `json:"assignedUsers,omitempty"`
	Category      string     `json:"category,omitempty"`
	DueDate       string     `json:"dueDate,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// IsAssignedTo reports whether userID is an assignee, through either the
// assignedUsers set or the legacy assignedTo field
func (t *Task) IsAssignedTo(userID int64) bool {
	if slices.Contains(t.AssignedUsers, userID) {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// Assignees returns the union of assignedUsers and assignedTo, in order
func (t *Task) Assignees() []int64 {
	out := make([]int64, 0, len(t.AssignedUsers)+1)
	for _, id := range t.AssignedUsers {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if t.AssignedTo != nil && !slices.Contains(out, *t.AssignedTo) {
		out = append(out, *t.AssignedTo)
	}
	return out
}

// IsCompleted reports whether the task is in COMPLETED state
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// CategoryOrDefault returns the grouping label of the task
func (t *Task) CategoryOrDefault() string {
	if strings.TrimSpace(t.Category) == "" {
		return DefaultCategory
	}
	return t.Category
}

// Due parses DueDate. The zero time is returned when unset.
func (t *Task) Due() (time.Time, error) {
	return ParseDueDate(t.DueDate)
}

// IsOverdue returns true if the task is past its due date and still open
func (t *Task) IsOverdue(now time.Time) bool {
	due, err := t.Due()
	if err != nil || due.IsZero() || t.IsCompleted() {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// Clone returns a deep copy so cached tasks can be handed out safely
func (t *Task) Clone() Task {
	c := *t
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		c.AssignedTo = &v
	}
	if t.AssignedUsers != nil {
		c.AssignedUsers = slices.Clone(t.AssignedUsers)
	}
	c.CreatedAt = cloneTime(t.CreatedAt)
	c.UpdatedAt = cloneTime(t.UpdatedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ParseDueDate accepts YYYY-MM-DD or a full RFC3339 timestamp
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(DueDateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, NewValidationError("dueDate", "expected YYYY-MM-DD")
	}
	return d, nil
}

// ValidateNew checks the fields a new task must carry before it is sent
// anywhere. Quick-added tasks only need a title.
func (t *Task) ValidateNew(requireDueDate bool) error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if t.Status != "" && !t.Status.Valid() {
		return NewValidationError("status", "unknown status "+string(t.Status))
	}
	if requireDueDate && strings.TrimSpace(t.DueDate) == "" {
		return NewValidationError("dueDate", "due date is required")
	}
	if _, err := ParseDueDate(t.DueDate); err != nil {
		return err
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left untouched; a pointer
// to the zero value clears the field.
type TaskPatch struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	AssignedTo    *int64     `json:"assignedTo,omitempty"`
	AssignedUsers *[]int64   `json:"assignedUsers,omitempty"`
	Category      *string    `json:"category,omitempty"`
	DueDate       *string    `json:"dueDate,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.AssignedTo == nil && p.AssignedUsers == nil && p.Category == nil &&
		p.DueDate == nil && p.CompletedAt == nil
}

// Validate rejects patches that would leave the task invalid
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if p.Status != nil && !p.Status.Valid() {
		return NewValidationError("status", "unknown status "+string(*p.Status))
	}
	if p.DueDate != nil {
		if _, err := ParseDueDate(*p.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into t, refreshes UpdatedAt and enforces the
// completion rule: CompletedAt is stamped once, on the first transition
// into COMPLETED, and is never cleared afterwards.
func (t *Task) Apply(p TaskPatch, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedTo != nil {
		if *p.AssignedTo == 0 {
			t.AssignedTo = nil
		} else {
			v := *p.AssignedTo
			t.AssignedTo = &v
		}
	}
	if p.AssignedUsers != nil {
		t.AssignedUsers = dedupe(*p.AssignedUsers)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.DueDate != nil {
		t.DueDate = strings.TrimSpace(*p.DueDate)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		stamp := now
		if p.CompletedAt != nil {
			stamp = *p.CompletedAt
		}
		t.CompletedAt = &stamp
	}
	updated := now
	t.UpdatedAt = &updated
}

// StatusPatch builds the patch that moves t to status. CompletedAt is only
// included when the task is being completed for the first time.
func StatusPatch(t Task, status Status, now time.Time) TaskPatch {
	p := TaskPatch{Status: &status}
	if status == StatusCompleted && t.CompletedAt == nil {
		stamp := now
		p.CompletedAt = &stamp
	}
	return p
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
