package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetdesk/internal/model"
)

// InsertActivity appends an audit log entry. details must be valid JSON.
func InsertActivity(ctx context.Context, db DBTX, action string, userID *int64, requestID string, details []byte) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity_logs (action, user_id, request_id, details) VALUES (?, ?, ?, ?)`,
		action, userID, nullIfEmpty(requestID), string(details),
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// ListActivity returns audit log entries, newest first.
func ListActivity(ctx context.Context, db DBTX, limit, offset int) ([]model.Activity, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.id, l.action, l.user_id, COALESCE(u.name, ''), l.request_id, l.details, l.created_at
		 FROM activity_logs l
		 LEFT JOIN users u ON u.id = l.user_id
		 ORDER BY l.id DESC
		 LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.Activity
	for rows.Next() {
		var (
			a         model.Activity
			requestID sql.NullString
			details   string
		)
		if err := rows.Scan(&a.ID, &a.Action, &a.UserID, &a.UserName, &requestID, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.RequestID = requestID.String
		a.Details = []byte(details)
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
