package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Article is an inventory item assigned to an employee ("product" in the API).
type Article struct {
	ID             int64           `json:"id"`
	Article        string          `json:"article"`
	Description    string          `json:"description"`
	DateAcquired   string          `json:"date_acquired"`
	PropertyNumber string          `json:"property_number"`
	Unit           string          `json:"unit"`
	UnitValue      decimal.Decimal `json:"unit_value"`
	BalancePerCard int             `json:"balance_per_card"`
	OnHandPerCount int             `json:"on_hand_per_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Remarks        string          `json:"remarks"`
	ActualUser     string          `json:"actual_user"`
	EmployeeID     *int64          `json:"employee_id"`
	CreatedAt      time.Time       `json:"created_at"`

	// Joined from the linked employee (not always populated).
	EmployeeName       string `json:"employee_name,omitempty"`
	EmployeeCode       string `json:"employee_code,omitempty"`
	EmployeePosition   string `json:"position,omitempty"`
	EmployeeDepartment string `json:"department,omitempty"`
}

// ArticleInput holds the caller-supplied columns of an article.
type ArticleInput struct {
	Article        string
	Description    string
	DateAcquired   string
	PropertyNumber string
	Unit           string
	UnitValue      decimal.Decimal
	BalancePerCard int
	OnHandPerCount int
	TotalAmount    decimal.Decimal
	Remarks        string
	ActualUser     string
}

// View selects how article lists are shaped.
type View int

// Article list views.
const (
	// ViewAdmin lists every article; unassigned articles show as held by Admin.
	ViewAdmin View = iota
	// ViewSupervisor lists every article; unassigned show "No User Assigned".
	ViewSupervisor
	// ViewEmployee lists the articles of a single employee.
	ViewEmployee
)

// Display defaults for articles without a linked employee.
const (
	UnassignedAdmin      = "Admin"
	UnassignedSupervisor = "No User Assigned"
)

// Page is a single page of a paginated list.
type Page[T any] struct {
	Items   []T  `json:"products"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}
