package patients

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/types"
)

const table = "Ph_pat_dtls"

// Nullable text columns are coalesced so rows scan into plain strings
const patientColumns = `"Patient_Id", COALESCE(surname, ''), COALESCE(given_name, ''),
	COALESCE(phonenumber, ''), dateofbirth, age, COALESCE(gender, ''), COALESCE(address, ''),
	COALESCE(city, ''), COALESCE(pincode, ''), COALESCE(pt_state, ''),
	COALESCE(allergies, '{}'), COALESCE(createdat, NOW())`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository handles patient persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new patient repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*types.Patient, error) {
	var (
		p         types.Patient
		age       sql.NullInt64
		allergies pq.StringArray
	)

	err := row.Scan(
		&p.ID, &p.Surname, &p.GivenName, &p.PhoneNumber, &p.DateOfBirth, &age,
		&p.Gender, &p.Address, &p.City, &p.PinCode, &p.State, &allergies, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	p.Allergies = types.Allergies(allergies)
	if p.Allergies == nil {
		p.Allergies = types.Allergies{}
	}
	return &p, nil
}

// Create inserts a patient and returns the stored row
func (r *Repository) Create(ctx context.Context, rec *types.PatientRecord) (*types.Patient, error) {
	query := `
		INSERT INTO "Ph_pat_dtls" (
			surname, given_name, phonenumber, dateofbirth, age, gender,
			address, city, pincode, pt_state, allergies, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING ` + patientColumns

	var patient *types.Patient
	err := r.db.Track(ctx, "insert", table, func() (int64, error) {
		var err error
		patient, err = scanPatient(r.db.QueryRowContext(ctx, query, writeArgs(rec)...))
		return 1, err
	})
	if err != nil {
		return nil, mapWriteError(err, "failed to create patient")
	}
	return patient, nil
}

// Search matches term case-insensitively against surname, given name and phone number
func (r *Repository) Search(ctx context.Context, term string) ([]*types.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM "Ph_pat_dtls"
		WHERE LOWER(surname) LIKE $1 OR LOWER(given_name) LIKE $1 OR LOWER(phonenumber) LIKE $1
		ORDER BY "Patient_Id"`

	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	return r.list(ctx, query, pattern)
}

// SearchByDOB returns patients whose date of birth, as YYYY-MM-DD text, starts with prefix
func (r *Repository) SearchByDOB(ctx context.Context, prefix string) ([]*types.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM "Ph_pat_dtls"
		WHERE dateofbirth::text LIKE $1
		ORDER BY dateofbirth, "Patient_Id"`

	return r.list(ctx, query, likeEscaper.Replace(prefix)+"%")
}

// Get retrieves a patient by id
func (r *Repository) Get(ctx context.Context, id int64) (*types.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM "Ph_pat_dtls" WHERE "Patient_Id" = $1`

	var patient *types.Patient
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		var err error
		patient, err = scanPatient(r.db.QueryRowContext(ctx, query, id))
		return 1, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get patient", err)
	}
	return patient, nil
}

// Update replaces the demographic fields of a patient and returns the new row
func (r *Repository) Update(ctx context.Context, id int64, rec *types.PatientRecord) (*types.Patient, error) {
	query := `
		UPDATE "Ph_pat_dtls"
		SET surname = $1, given_name = $2, phonenumber = $3, dateofbirth = $4, age = $5,
		    gender = $6, address = $7, city = $8, pincode = $9, pt_state = $10, allergies = $11
		WHERE "Patient_Id" = $12
		RETURNING ` + patientColumns

	args := append(writeArgs(rec), id)

	var patient *types.Patient
	err := r.db.Track(ctx, "update", table, func() (int64, error) {
		var err error
		patient, err = scanPatient(r.db.QueryRowContext(ctx, query, args...))
		return 1, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, mapWriteError(err, "failed to update patient")
	}
	return patient, nil
}

// Delete removes a patient
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := r.db.Track(ctx, "delete", table, func() (int64, error) {
		res, err := r.db.ExecContext(ctx, `DELETE FROM "Ph_pat_dtls" WHERE "Patient_Id" = $1`, id)
		if err != nil {
			return 0, err
		}
		affected, err = res.RowsAffected()
		return affected, err
	})
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete patient", err)
	}
	if affected == 0 {
		return notFound()
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*types.Patient, error) {
	patients := []*types.Patient{}
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return 0, err
			}
			patients = append(patients, p)
		}
		return int64(len(patients)), rows.Err()
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to search patients", err)
	}
	return patients, nil
}

func writeArgs(rec *types.PatientRecord) []interface{} {
	return []interface{}{
		rec.Surname,
		rec.GivenName,
		rec.PhoneNumber,
		rec.DOB,
		rec.Age,
		rec.Gender,
		rec.Address,
		rec.City,
		rec.PinCode,
		rec.State,
		pq.Array([]string(rec.Allergies)),
	}
}

func mapWriteError(err error, message string) error {
	if database.IsInvalidInput(err) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid patient data", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return types.NewInternalError(types.ErrCodeInternalError, message, err)
}

func notFound() error {
	return types.NewNotFoundError(types.ErrCodePatientNotFound, "Patient not found")
}
