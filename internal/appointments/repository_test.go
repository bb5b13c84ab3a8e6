package appointments

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

var appointmentRowColumns = []string{
	"id", "patient_id", "doctor_name", "patient_name", "reason", "date", "start", "end",
	"symptoms", "investigation", "prescription", "suggestions",
	"diagnosis_expected", "diagnosis_actual", "created_at",
}

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepository(database.Wrap(sqlDB, logger.NewNop())), mock
}

func appointmentRow(rows *sqlmock.Rows, id int64, date time.Time, start string) *sqlmock.Rows {
	return rows.AddRow(
		id, int64(7), "Dr. Iyer", "Meena", "follow-up", date, start, "",
		"", "", "", "", "", "", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := setupTestRepository(t)
	patientID := int64(7)

	appt, err := types.AppointmentInput{
		PatientID:   &patientID,
		DoctorName:  "Dr. Iyer",
		PatientName: "Meena",
		Reason:      "follow-up",
		Date:        "2030-05-01",
		StartTime:   "10:00",
	}.NewAppointment()
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(int64(7), "Dr. Iyer", "Meena", "follow-up", "2030-05-01", "10:00:00", nil).
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), 1,
			time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), "10:00:00"))

	created, err := repo.Create(context.Background(), appt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	require.NotNil(t, created.PatientID)
	assert.Equal(t, int64(7), *created.PatientID)
	assert.Equal(t, "2030-05-01", created.Date.String())
	assert.Equal(t, "10:00:00", created.StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PastAndUpcoming(t *testing.T) {
	repo, mock := setupTestRepository(t)

	past := sqlmock.NewRows(appointmentRowColumns)
	appointmentRow(past, 2, time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC), "09:00:00")
	appointmentRow(past, 1, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), "09:00:00")

	mock.ExpectQuery(`date < CURRENT_DATE\s+ORDER BY date DESC`).
		WithArgs(int64(7)).
		WillReturnRows(past)
	mock.ExpectQuery(`date >= CURRENT_DATE\s+ORDER BY date ASC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns))

	appts, err := repo.Past(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "2023-03-02", appts[0].Date.String())

	appts, err = repo.Upcoming(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, appts)
	assert.Empty(t, appts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("FROM appointments WHERE id = \\$1").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 42)
	posErr, ok := types.AsPosError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeAppointmentMissing, posErr.Code)
}

func TestRepository_Update(t *testing.T) {
	repo, mock := setupTestRepository(t)

	symptoms := "fever"
	diagnosis := "viral"
	cols, err := types.AppointmentUpdates{Symptoms: &symptoms, DiagnosisActual: &diagnosis}.Columns()
	require.NoError(t, err)

	mock.ExpectQuery(`UPDATE appointments\s+SET symptoms = \$1, diagnosis_actual = \$2\s+WHERE id = \$3`).
		WithArgs("fever", "viral", int64(3)).
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), 3,
			time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), ""))
	mock.ExpectQuery("UPDATE appointments").
		WillReturnError(sql.ErrNoRows)

	appt, err := repo.Update(context.Background(), 3, cols)
	require.NoError(t, err)
	assert.Equal(t, int64(3), appt.ID)

	_, err = repo.Update(context.Background(), 4, cols)
	assert.True(t, types.IsType(err, types.ErrorTypeNotFound))

	_, err = repo.Update(context.Background(), 4, nil)
	assert.True(t, types.IsType(err, types.ErrorTypeValidation))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectExec("DELETE FROM appointments").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM appointments").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.True(t, types.IsType(repo.Delete(context.Background(), 2), types.ErrorTypeNotFound))
}
