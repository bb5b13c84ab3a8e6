package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Patient represents a row of the patient details table
type Patient struct {
	ID          int64     `json:"id" db:"Patient_Id"`
	Surname     string    `json:"surname" db:"surname"`
	GivenName   string    `json:"given_name" db:"given_name"`
	PhoneNumber string    `json:"phone_number" db:"phonenumber"`
	DateOfBirth Date      `json:"date_of_birth" db:"dateofbirth"`
	Age         *int      `json:"age" db:"age"`
	Gender      string    `json:"gender" db:"gender"`
	Address     string    `json:"address" db:"address"`
	City        string    `json:"city" db:"city"`
	PinCode     string    `json:"pin_code" db:"pincode"`
	State       string    `json:"state" db:"pt_state"`
	Allergies   Allergies `json:"allergies" db:"allergies"`
	CreatedAt   time.Time `json:"created_at" db:"createdat"`
}

// PatientInput is the body of patient create and update requests
type PatientInput struct {
	Surname     string    `json:"surname"`
	GivenName   string    `json:"given_name"`
	PhoneNumber string    `json:"phone_number"`
	DateOfBirth string    `json:"date_of_birth"`
	Age         *int      `json:"age"`
	Gender      string    `json:"gender"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	PinCode     string    `json:"pin_code"`
	State       string    `json:"state"`
	Allergies   Allergies `json:"allergies"`
}

// PatientRecord is a validated PatientInput ready to be written
type PatientRecord struct {
	PatientInput
	DOB Date
}

// Validate parses the date of birth and normalizes allergies
func (in PatientInput) Validate() (*PatientRecord, error) {
	rec := &PatientRecord{PatientInput: in}

	if strings.TrimSpace(in.DateOfBirth) != "" {
		dob, err := ParseDate(in.DateOfBirth)
		if err != nil {
			return nil, NewValidationError(ErrCodeInvalidDate, "Invalid date of birth", map[string]interface{}{
				"date_of_birth": in.DateOfBirth,
			})
		}
		if dob.After(time.Now()) {
			return nil, NewValidationError(ErrCodeInvalidDate, "Date of birth is in the future", map[string]interface{}{
				"date_of_birth": in.DateOfBirth,
			})
		}
		rec.DOB = dob
	}

	if in.Age != nil && *in.Age < 0 {
		return nil, NewValidationError(ErrCodeInvalidInput, "Age cannot be negative", nil)
	}

	if rec.Allergies == nil {
		rec.Allergies = Allergies{}
	}

	return rec, nil
}

// ValidateUpdate is Validate for a full replacement of an existing row, where
// the date of birth must be present
func (in PatientInput) ValidateUpdate() (*PatientRecord, error) {
	if strings.TrimSpace(in.DateOfBirth) == "" {
		return nil, NewValidationError(ErrCodeInvalidDate, "Date of birth is required", map[string]interface{}{
			"date_of_birth": in.DateOfBirth,
		})
	}
	return in.Validate()
}

// Allergies is a list of allergy names. In JSON it accepts either an array of
// strings, stored unchanged, or a single comma-separated string.
type Allergies []string

// ParseAllergies splits a comma-separated list, trimming entries and dropping blanks
func ParseAllergies(s string) Allergies {
	out := Allergies{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Allergies) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Allergies{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = ParseAllergies(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("allergies must be a string or a list of strings")
	}
	*a = Allergies(list)
	return nil
}

// MarshalJSON renders nil as an empty list
func (a Allergies) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}
