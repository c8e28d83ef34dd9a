package model

import (
	"strings"
	"time"
)

// DateLayout is the storage and wire format of due dates.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusInbox   Status = "inbox"
	StatusActive  Status = "active"
	StatusSomeday Status = "someday"
	StatusDone    Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusActive, StatusSomeday, StatusDone:
		return true
	}
	return false
}

type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	NextAction    *string    `json:"nextAction"`
	Status        Status     `json:"status"`
	DueDate       *string    `json:"dueDate"`
	CanDoAnytime  bool       `json:"canDoAnytime"`
	ProjectID     *string    `json:"projectId"`
	PostponeCount int        `json:"postponeCount"`
	CompletedAt   *time.Time `json:"completedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HasNextAction reports whether the task has been clarified into a concrete step.
func (t Task) HasNextAction() bool {
	return t.NextAction != nil && strings.TrimSpace(*t.NextAction) != ""
}

// SetStatus changes the status and keeps CompletedAt in step with it.
func (t *Task) SetStatus(status Status, now time.Time) {
	if t.Status != StatusDone && status == StatusDone {
		completed := now
		t.CompletedAt = &completed
	}
	if status != StatusDone {
		t.CompletedAt = nil
	}
	t.Status = status
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"taskId"`
	EventType string    `json:"eventType"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	ID        int64     `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows ListTasks. Tab filtering needs Today in DateLayout form.
type Filter struct {
	Query     string `json:"query"`
	Status    Status `json:"status"`
	ProjectID string `json:"projectId"`
	Tab       string `json:"tab"`
	Today     string `json:"today"`
}

type ChangeKind string

const (
	ChangeTaskUpserted    ChangeKind = "task.upserted"
	ChangeTaskDeleted     ChangeKind = "task.deleted"
	ChangeProjectUpserted ChangeKind = "project.upserted"
	ChangeProjectDeleted  ChangeKind = "project.deleted"
)

// Change is a snapshot of one entity after a mutation. Deletions carry only the ID.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	ID      string     `json:"id"`
	Task    *Task      `json:"task,omitempty"`
	Project *Project   `json:"project,omitempty"`
	At      time.Time  `json:"at"`
}

// StringPtr returns nil for blank values so optional text fields stay unset.
func StringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
