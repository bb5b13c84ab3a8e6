package types

import (
	"strings"
	"time"
)

// Appointment represents a scheduled visit together with its clinical notes
type Appointment struct {
	ID                int64     `json:"id" db:"id"`
	PatientID         *int64    `json:"patient_id" db:"patient_id"`
	DoctorName        string    `json:"doctor_name" db:"doctor_name"`
	PatientName       string    `json:"patient_name" db:"patient_name"`
	Reason            string    `json:"reason" db:"reason"`
	Date              Date      `json:"date" db:"date"`
	StartTime         string    `json:"start_time" db:"start"`
	EndTime           string    `json:"end_time" db:"end"`
	Symptoms          string    `json:"symptoms" db:"symptoms"`
	Investigation     string    `json:"investigation" db:"investigation"`
	Prescription      string    `json:"prescription" db:"prescription"`
	Suggestions       string    `json:"suggestions" db:"suggestions"`
	DiagnosisExpected string    `json:"diagnosis_expected" db:"diagnosis_expected"`
	DiagnosisActual   string    `json:"diagnosis_actual" db:"diagnosis_actual"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// AppointmentInput is the body of an appointment create request
type AppointmentInput struct {
	PatientID   *int64 `json:"patient_id"`
	DoctorName  string `json:"doctor_name"`
	PatientName string `json:"patient_name"`
	Reason      string `json:"reason"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// NewAppointment validates the input and builds the row to insert
func (in AppointmentInput) NewAppointment() (*Appointment, error) {
	if strings.TrimSpace(in.DoctorName) == "" || strings.TrimSpace(in.PatientName) == "" {
		return nil, NewValidationError(ErrCodeInvalidInput, "Doctor name and patient name are required", nil)
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, NewValidationError(ErrCodeInvalidDate, "Invalid appointment date", map[string]interface{}{
			"date": in.Date,
		})
	}

	start, err := ParseClock(in.StartTime)
	if err != nil {
		return nil, NewValidationError(ErrCodeInvalidTime, "Invalid start time", map[string]interface{}{
			"start_time": in.StartTime,
		})
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return nil, NewValidationError(ErrCodeInvalidTime, "Invalid end time", map[string]interface{}{
			"end_time": in.EndTime,
		})
	}
	if start != "" && end != "" && end <= start {
		return nil, NewValidationError(ErrCodeInvalidTime, "End time must be after start time", nil)
	}

	return &Appointment{
		PatientID:   in.PatientID,
		DoctorName:  in.DoctorName,
		PatientName: in.PatientName,
		Reason:      in.Reason,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
	}, nil
}

// AppointmentUpdates holds the fields of a partial appointment update.
// Scheduling fields and clinical notes can be changed together.
type AppointmentUpdates struct {
	PatientID         *int64  `json:"patient_id,omitempty"`
	DoctorName        *string `json:"doctor_name,omitempty"`
	PatientName       *string `json:"patient_name,omitempty"`
	Reason            *string `json:"reason,omitempty"`
	Date              *string `json:"date,omitempty"`
	StartTime         *string `json:"start_time,omitempty"`
	EndTime           *string `json:"end_time,omitempty"`
	Symptoms          *string `json:"symptoms,omitempty"`
	Investigation     *string `json:"investigation,omitempty"`
	Prescription      *string `json:"prescription,omitempty"`
	Suggestions       *string `json:"suggestions,omitempty"`
	DiagnosisExpected *string `json:"diagnosis_expected,omitempty"`
	DiagnosisActual   *string `json:"diagnosis_actual,omitempty"`
}

// Column is one assignment of a partial update
type Column struct {
	Name  string
	Value interface{}
}

// Columns validates the updates and returns the assignments in a stable order
func (u AppointmentUpdates) Columns() ([]Column, error) {
	var cols []Column

	if u.PatientID != nil {
		cols = append(cols, Column{"patient_id", *u.PatientID})
	}
	if u.DoctorName != nil {
		cols = append(cols, Column{"doctor_name", *u.DoctorName})
	}
	if u.PatientName != nil {
		cols = append(cols, Column{"patient_name", *u.PatientName})
	}
	if u.Reason != nil {
		cols = append(cols, Column{"reason", *u.Reason})
	}
	if u.Date != nil {
		date, err := ParseDate(*u.Date)
		if err != nil {
			return nil, NewValidationError(ErrCodeInvalidDate, "Invalid appointment date", map[string]interface{}{
				"date": *u.Date,
			})
		}
		cols = append(cols, Column{"date", date})
	}
	if u.StartTime != nil {
		start, err := ParseClock(*u.StartTime)
		if err != nil {
			return nil, NewValidationError(ErrCodeInvalidTime, "Invalid start time", nil)
		}
		cols = append(cols, Column{`start`, nullIfEmpty(start)})
	}
	if u.EndTime != nil {
		end, err := ParseClock(*u.EndTime)
		if err != nil {
			return nil, NewValidationError(ErrCodeInvalidTime, "Invalid end time", nil)
		}
		cols = append(cols, Column{`"end"`, nullIfEmpty(end)})
	}

	notes := []struct {
		name  string
		value *string
	}{
		{"symptoms", u.Symptoms},
		{"investigation", u.Investigation},
		{"prescription", u.Prescription},
		{"suggestions", u.Suggestions},
		{"diagnosis_expected", u.DiagnosisExpected},
		{"diagnosis_actual", u.DiagnosisActual},
	}
	for _, n := range notes {
		if n.value != nil {
			cols = append(cols, Column{n.name, *n.value})
		}
	}

	if len(cols) == 0 {
		return nil, NewValidationError(ErrCodeNoUpdates, "No fields to update", nil)
	}
	return cols, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
