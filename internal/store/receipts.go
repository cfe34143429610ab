package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetdesk/internal/model"
)

// receiptSelect joins the creator through users→employees and the end user
// by name. Locations and the second receiver were added later and may be NULL.
const receiptSelect = `SELECT r.id, r.rrsp_no, r.date, r.description, r.quantity, r.ics_no,
	r.date_acquired, r.amount, r.end_user, r.remarks,
	r.returned_by_name, r.returned_by_position, r.returned_by_date, COALESCE(r.returned_by_location, ''),
	r.received_by_name, r.received_by_position, r.received_by_date, COALESCE(r.received_by_location, ''),
	r.second_received_by_name, r.second_received_by_position, r.second_received_by_date,
	COALESCE(r.second_received_by_location, ''),
	r.created_by, r.created_at,
	COALESCE(ce.name, cu.name, ''), COALESCE(ce.employee_id, ''),
	COALESCE((SELECT ee.employee_id FROM employees ee WHERE ee.name = r.end_user ORDER BY ee.id LIMIT 1), ''),
	COALESCE((SELECT ee.position FROM employees ee WHERE ee.name = r.end_user ORDER BY ee.id LIMIT 1), ''),
	COALESCE((SELECT ee.department FROM employees ee WHERE ee.name = r.end_user ORDER BY ee.id LIMIT 1), '')
	FROM returns r
	LEFT JOIN users cu ON cu.id = r.created_by
	LEFT JOIN employees ce ON ce.id = cu.employee_id`

func scanReceipt(row interface{ Scan(...any) error }) (*model.Receipt, error) {
	r := &model.Receipt{}
	var second struct{ name, position, date sql.NullString }
	var secondLocation string
	err := row.Scan(&r.ID, &r.RRSPNo, &r.Date, &r.Description, &r.Quantity, &r.ICSNo,
		&r.DateAcquired, &r.Amount, &r.EndUser, &r.Remarks,
		&r.ReturnedBy.Name, &r.ReturnedBy.Position, &r.ReturnedBy.Date, &r.ReturnedBy.Location,
		&r.ReceivedBy.Name, &r.ReceivedBy.Position, &r.ReceivedBy.Date, &r.ReceivedBy.Location,
		&second.name, &second.position, &second.date, &secondLocation,
		&r.CreatedBy, &r.CreatedAt,
		&r.CreatorName, &r.CreatorCode,
		&r.EndUserCode, &r.EndUserPosition, &r.EndUserDepartment)
	if err != nil {
		return nil, err
	}
	if second.name.String != "" {
		r.SecondReceivedBy = &model.Signature{
			Name:     second.name.String,
			Position: second.position.String,
			Date:     second.date.String,
			Location: secondLocation,
		}
	}
	return r, nil
}

// CreateReceipt inserts a return receipt. The end user must name an existing
// employee, otherwise ErrEmployeeNotFound is returned.
func CreateReceipt(ctx context.Context, db DBTX, r *model.Receipt) (int64, error) {
	if _, err := EmployeeIDByName(ctx, db, r.EndUser); err != nil {
		return 0, err
	}

	second := r.SecondReceivedBy
	if second == nil {
		second = &model.Signature{}
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO returns (rrsp_no, date, description, quantity, ics_no, date_acquired,
		     amount, end_user, remarks,
		     returned_by_name, returned_by_position, returned_by_date, returned_by_location,
		     received_by_name, received_by_position, received_by_date, received_by_location,
		     second_received_by_name, second_received_by_position, second_received_by_date,
		     second_received_by_location, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RRSPNo, r.Date, r.Description, r.Quantity, r.ICSNo, r.DateAcquired,
		r.Amount, r.EndUser, r.Remarks,
		r.ReturnedBy.Name, r.ReturnedBy.Position, r.ReturnedBy.Date, r.ReturnedBy.Location,
		r.ReceivedBy.Name, r.ReceivedBy.Position, r.ReceivedBy.Date, r.ReceivedBy.Location,
		nullIfEmpty(second.Name), nullIfEmpty(second.Position), nullIfEmpty(second.Date),
		nullIfEmpty(second.Location), r.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("creating receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting receipt id: %w", err)
	}
	return id, nil
}

// GetReceipt returns a receipt by ID, or nil if it does not exist.
func GetReceipt(ctx context.Context, db DBTX, id int64) (*model.Receipt, error) {
	r, err := scanReceipt(db.QueryRowContext(ctx, receiptSelect+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return r, nil
}

// UpdateReceipt overwrites the core fields of a receipt. Signature blocks are
// not revisable.
func UpdateReceipt(ctx context.Context, db DBTX, id int64, c model.ReceiptCore) error {
	result, err := db.ExecContext(ctx,
		`UPDATE returns SET rrsp_no = ?, date = ?, description = ?, quantity = ?, ics_no = ?,
		     date_acquired = ?, amount = ?, end_user = ?, remarks = ?
		 WHERE id = ?`,
		c.RRSPNo, c.Date, c.Description, c.Quantity, c.ICSNo,
		c.DateAcquired, c.Amount, c.EndUser, c.Remarks, id,
	)
	if err != nil {
		return fmt.Errorf("updating receipt: %w", err)
	}
	return affected(result)
}

// ReceiptFilter narrows ListReceipts. Empty fields do not filter.
type ReceiptFilter struct {
	EndUser  string
	From, To string
}

// ListReceipts returns receipts, newest first.
func ListReceipts(ctx context.Context, db DBTX, f ReceiptFilter) ([]model.Receipt, error) {
	query := receiptSelect + ` WHERE 1=1`
	var args []any

	if f.EndUser != "" {
		query += ` AND r.end_user = ?`
		args = append(args, f.EndUser)
	}
	if f.From != "" {
		query += ` AND r.date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND r.date <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY r.date DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	defer rows.Close()

	var receipts []model.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		receipts = append(receipts, *r)
	}
	return receipts, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
