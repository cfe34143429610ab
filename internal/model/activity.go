package model

import (
	"encoding/json"
	"time"
)

// Activity is an audit log entry.
type Activity struct {
	ID        int64           `json:"id"`
	Action    string          `json:"action"`
	UserID    *int64          `json:"user_id"`
	UserName  string          `json:"user_name,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}

// Audit actions.
const (
	ActionAddEmployee    = "ADD_EMPLOYEE"
	ActionEditEmployee   = "EDIT_EMPLOYEE"
	ActionDeleteEmployee = "DELETE_EMPLOYEE"
	ActionAddUser        = "ADD_USER"
	ActionEditUser       = "EDIT_USER"
	ActionDeleteUser     = "DELETE_USER"
	ActionAddProduct     = "ADD_PRODUCT"
	ActionEditProduct    = "EDIT_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionAddReceipt     = "ADD_RECEIPT"
	ActionUpdateReturn   = "UPDATE_RETURN"
)
