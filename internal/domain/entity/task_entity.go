package entity

import (
	"errors"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the completion state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// DateLayout is the wire and storage format of a due date.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Task is owned by exactly one user. OwnerID never changes after creation.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	DueDate     time.Time
	Priority    Priority
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParsePriority accepts only the exact enum values.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

// ParseStatus accepts only the exact enum values.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusCompleted:
		return st, true
	}
	return "", false
}

// Toggle flips pending <-> completed.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// ParseDueDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp
// and returns midnight UTC of that calendar day.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TaskPatch names the editable fields to overwrite; nil leaves a field as is.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *Priority
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.Priority == nil
}

// Apply copies the set fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = DateOf(*p.DueDate)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// Clone returns a shallow copy safe to hand out of a store.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
