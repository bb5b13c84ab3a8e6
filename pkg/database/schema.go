package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the POS tables if they do not exist yet. Table and
// column names match the deployed database.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.WithComponent("database").Info("Creating database schema")

	tables := []string{
		createSessionsTable,
		createPatientsTable,
		createAppointmentsTable,
		createTasksTable,
		createUsersTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createPatientsIndexes,
		createAppointmentsIndexes,
		createTasksIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.WithComponent("database").Info("Database schema ready")
	return nil
}

// SQL DDL statements for table creation
const (
	createSessionsTable = `
		CREATE TABLE IF NOT EXISTS sessions (
			session_token TEXT PRIMARY KEY,
			user_id TEXT,
			username TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			drop_time TIMESTAMP WITH TIME ZONE
		);`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS "Ph_pat_dtls" (
			"Patient_Id" SERIAL PRIMARY KEY,
			surname VARCHAR(100),
			given_name VARCHAR(100),
			phonenumber VARCHAR(20),
			dateofbirth DATE,
			age INTEGER,
			gender VARCHAR(20),
			address TEXT,
			city VARCHAR(100),
			pincode VARCHAR(10),
			pt_state VARCHAR(100),
			createdat TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			allergies TEXT[] NOT NULL DEFAULT '{}'
		);`

	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id SERIAL PRIMARY KEY,
			patient_id INTEGER,
			doctor_name VARCHAR(100),
			patient_name VARCHAR(100),
			reason TEXT,
			date DATE NOT NULL,
			start TIME,
			"end" TIME,
			symptoms TEXT,
			investigation TEXT,
			prescription TEXT,
			suggestions TEXT,
			diagnosis_expected TEXT,
			diagnosis_actual TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createTasksTable = `
		CREATE TABLE IF NOT EXISTS tasks (
			id SERIAL PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			assigned_to VARCHAR(100),
			status VARCHAR(50),
			message TEXT,
			date_assigned TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);`

	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			usrnme VARCHAR(100) UNIQUE NOT NULL,
			pswd VARCHAR(100) NOT NULL,
			typ VARCHAR(50),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createPatientsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_pat_dtls_surname ON "Ph_pat_dtls"(LOWER(surname));
		CREATE INDEX IF NOT EXISTS idx_pat_dtls_phone ON "Ph_pat_dtls"(phonenumber);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_date ON appointments(patient_id, date);`

	createTasksIndexes = `
		CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to);`
)
