package types

import "time"

// User types
const (
	UserTypeAdmin      = "admin"
	UserTypePharmacist = "pharmacist"
	UserTypeDoctor     = "doctor"
	UserTypeNurse      = "nurse"
)

// User represents a row of the users table
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"usrnme"`
	PasswordHash string    `json:"-" db:"pswd"`
	UserType     string    `json:"user_type" db:"typ"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreateUserRequest is the body of a user create request
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

// LoginRequest is the body of a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token    string    `json:"token"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	UserType string    `json:"user_type"`
	IssuedAt time.Time `json:"issued_at"`
}

// Session represents a login session row
type Session struct {
	Token     string     `json:"session_id" db:"session_token"`
	UserID    string     `json:"user_id" db:"user_id"`
	Username  string     `json:"username" db:"username"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DropTime  *time.Time `json:"drop_time,omitempty" db:"drop_time"`
}

// SessionInput is the body of session create and update requests
type SessionInput struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	CreatedAt *time.Time `json:"created_at"`
	DropTime  *time.Time `json:"drop_time"`
}
