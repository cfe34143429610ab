package model

import (
	"fmt"
	"time"
)

// Employee is a person who can hold articles and sign returns.
type Employee struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Position      string    `json:"position"`
	Department    string    `json:"department"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contact_number"`
	Address       string    `json:"address"`
	Code          *string   `json:"employee_id"`
	HasPhoto      bool      `json:"has_photo"`
	CreatedAt     time.Time `json:"created_at"`

	// Joined from the linked user; defaults to RoleEmployee.
	Role   string `json:"role,omitempty"`
	UserID *int64 `json:"user_id,omitempty"`
}

// EmployeeCode formats the business code assigned to a new employee row.
func EmployeeCode(id int64) string {
	return fmt.Sprintf("EMP%03d", id)
}

// TimestampEmployeeCode is the code given to employees created outside the
// normal add flow.
func TimestampEmployeeCode(t time.Time) string {
	return fmt.Sprintf("EMP%d", t.UnixMilli())
}

// EmployeeInput holds the editable columns of an employee.
type EmployeeInput struct {
	Name          string
	Position      string
	Department    string
	Email         string
	ContactNumber string
	Address       string
}
