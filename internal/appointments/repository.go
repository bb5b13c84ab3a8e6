package appointments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/types"
)

const table = "appointments"

const appointmentColumns = `id, patient_id, COALESCE(doctor_name, ''), COALESCE(patient_name, ''),
	COALESCE(reason, ''), date, COALESCE(start::text, ''), COALESCE("end"::text, ''),
	COALESCE(symptoms, ''), COALESCE(investigation, ''), COALESCE(prescription, ''),
	COALESCE(suggestions, ''), COALESCE(diagnosis_expected, ''), COALESCE(diagnosis_actual, ''),
	COALESCE(created_at, NOW())`

// Repository handles appointment persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new appointment repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	var (
		a         types.Appointment
		patientID sql.NullInt64
	)

	err := row.Scan(
		&a.ID, &patientID, &a.DoctorName, &a.PatientName, &a.Reason, &a.Date,
		&a.StartTime, &a.EndTime, &a.Symptoms, &a.Investigation, &a.Prescription,
		&a.Suggestions, &a.DiagnosisExpected, &a.DiagnosisActual, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if patientID.Valid {
		a.PatientID = &patientID.Int64
	}
	return &a, nil
}

// Create inserts an appointment and returns the stored row
func (r *Repository) Create(ctx context.Context, appt *types.Appointment) (*types.Appointment, error) {
	query := `
		INSERT INTO appointments (patient_id, doctor_name, patient_name, reason, date, start, "end")
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + appointmentColumns

	var created *types.Appointment
	err := r.db.Track(ctx, "insert", table, func() (int64, error) {
		var err error
		created, err = scanAppointment(r.db.QueryRowContext(ctx, query,
			appt.PatientID,
			appt.DoctorName,
			appt.PatientName,
			appt.Reason,
			appt.Date,
			nullIfEmpty(appt.StartTime),
			nullIfEmpty(appt.EndTime),
		))
		return 1, err
	})
	if err != nil {
		return nil, mapWriteError(err, "failed to create appointment")
	}
	return created, nil
}

// Past returns the patient's appointments before today, most recent first
func (r *Repository) Past(ctx context.Context, patientID int64) ([]*types.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1 AND date < CURRENT_DATE
		ORDER BY date DESC, start DESC NULLS LAST`

	return r.list(ctx, query, patientID)
}

// Upcoming returns the patient's appointments from today on, soonest first
func (r *Repository) Upcoming(ctx context.Context, patientID int64) ([]*types.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1 AND date >= CURRENT_DATE
		ORDER BY date ASC, start ASC NULLS LAST`

	return r.list(ctx, query, patientID)
}

// Get retrieves an appointment by id
func (r *Repository) Get(ctx context.Context, id int64) (*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt *types.Appointment
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		var err error
		appt, err = scanAppointment(r.db.QueryRowContext(ctx, query, id))
		return 1, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get appointment", err)
	}
	return appt, nil
}

// Update applies a partial update and returns the new row
func (r *Repository) Update(ctx context.Context, id int64, cols []types.Column) (*types.Appointment, error) {
	if len(cols) == 0 {
		return nil, types.NewValidationError(types.ErrCodeNoUpdates, "No fields to update", nil)
	}

	setParts := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col.Name, i+1))
		args = append(args, col.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s
		WHERE id = $%d
		RETURNING %s`, strings.Join(setParts, ", "), len(args), appointmentColumns)

	var appt *types.Appointment
	err := r.db.Track(ctx, "update", table, func() (int64, error) {
		var err error
		appt, err = scanAppointment(r.db.QueryRowContext(ctx, query, args...))
		return 1, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, mapWriteError(err, "failed to update appointment")
	}
	return appt, nil
}

// Delete removes an appointment
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := r.db.Track(ctx, "delete", table, func() (int64, error) {
		res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			return 0, err
		}
		affected, err = res.RowsAffected()
		return affected, err
	})
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete appointment", err)
	}
	if affected == 0 {
		return notFound()
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*types.Appointment, error) {
	appts := []*types.Appointment{}
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAppointment(rows)
			if err != nil {
				return 0, err
			}
			appts = append(appts, a)
		}
		return int64(len(appts)), rows.Err()
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list appointments", err)
	}
	return appts, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func mapWriteError(err error, message string) error {
	if database.IsInvalidInput(err) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid appointment data", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return types.NewInternalError(types.ErrCodeInternalError, message, err)
}

func notFound() error {
	return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "Appointment not found")
}
