package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signature is one sign-off block of a return receipt.
type Signature struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Date     string `json:"date"`
	Location string `json:"location"`
}

// MinLocationLength is the shortest accepted signature location.
const MinLocationLength = 2

// Receipt records property returned through a chain of custody.
type Receipt struct {
	ID               int64           `json:"id"`
	RRSPNo           string          `json:"rrsp_no"`
	Date             string          `json:"date"`
	Description      string          `json:"description"`
	Quantity         int             `json:"quantity"`
	ICSNo            string          `json:"ics_no"`
	DateAcquired     string          `json:"date_acquired"`
	Amount           decimal.Decimal `json:"amount"`
	EndUser          string          `json:"end_user"`
	Remarks          string          `json:"remarks"`
	ReturnedBy       Signature       `json:"returned_by"`
	ReceivedBy       Signature       `json:"received_by"`
	SecondReceivedBy *Signature      `json:"second_received_by,omitempty"`
	CreatedBy        *int64          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	CreatorName       string `json:"creator_name,omitempty"`
	CreatorCode       string `json:"creator_employee_id,omitempty"`
	EndUserCode       string `json:"end_user_employee_id,omitempty"`
	EndUserPosition   string `json:"end_user_position,omitempty"`
	EndUserDepartment string `json:"end_user_department,omitempty"`
}

// ReceiptCore is the part of a receipt that can be revised after creation.
type ReceiptCore struct {
	RRSPNo       string
	Date         string
	Description  string
	Quantity     int
	ICSNo        string
	DateAcquired string
	Amount       decimal.Decimal
	EndUser      string
	Remarks      string
}
