package interfaces

import (
	"context"

	"github.com/vaidhya/pos-api/pkg/types"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	IsValid(ctx context.Context, token string) (bool, error)
	Create(ctx context.Context, session *types.Session) error
	Update(ctx context.Context, token string, input *types.SessionInput) error
	Logout(ctx context.Context, token string) (userID string, err error)
	Delete(ctx context.Context, token string) error
}

// TokenIssuer mints session tokens for authenticated users
type TokenIssuer interface {
	Issue(user *types.User) (string, error)
}

// PatientRepository defines the interface for patient persistence
type PatientRepository interface {
	Create(ctx context.Context, rec *types.PatientRecord) (*types.Patient, error)
	Search(ctx context.Context, term string) ([]*types.Patient, error)
	SearchByDOB(ctx context.Context, prefix string) ([]*types.Patient, error)
	Get(ctx context.Context, id int64) (*types.Patient, error)
	Update(ctx context.Context, id int64, rec *types.PatientRecord) (*types.Patient, error)
	Delete(ctx context.Context, id int64) error
}

// AppointmentRepository defines the interface for appointment persistence
type AppointmentRepository interface {
	Create(ctx context.Context, appt *types.Appointment) (*types.Appointment, error)
	Past(ctx context.Context, patientID int64) ([]*types.Appointment, error)
	Upcoming(ctx context.Context, patientID int64) ([]*types.Appointment, error)
	Get(ctx context.Context, id int64) (*types.Appointment, error)
	Update(ctx context.Context, id int64, cols []types.Column) (*types.Appointment, error)
	Delete(ctx context.Context, id int64) error
}

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	Create(ctx context.Context, input *types.TaskInput) (*types.Task, error)
	List(ctx context.Context) ([]*types.Task, error)
	ListByAssignee(ctx context.Context, assignee string) ([]*types.Task, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*types.Task, error)
	Delete(ctx context.Context, id int64) (*types.Task, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *types.User) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)
}
