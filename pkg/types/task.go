package types

import "time"

// Task statuses used by the front desk. Status is free text in storage.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task is a unit of work assigned to a staff member
type Task struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	AssignedTo   string    `json:"assigned_to" db:"assigned_to"`
	Status       string    `json:"status" db:"status"`
	Message      string    `json:"message" db:"message"`
	DateAssigned time.Time `json:"date_assigned" db:"date_assigned"`
}

// TaskInput is the body of a task create request
type TaskInput struct {
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// TaskStatusUpdate is the body of a task status update
type TaskStatusUpdate struct {
	Status string `json:"status"`
}

// IsKnownTaskStatus reports whether status is one of the conventional values
func IsKnownTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}
