package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetdesk/internal/model"
)

const userSelect = `SELECT u.id, u.name, u.password_hash, u.role, u.employee_id, u.created_at,
	COALESCE(e.name, ''), COALESCE(e.employee_id, '')
	FROM users u
	LEFT JOIN employees e ON e.id = u.employee_id`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role, &u.EmployeeID, &u.CreatedAt,
		&u.EmployeeName, &u.EmployeeCode)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user and returns its ID.
func CreateUser(ctx context.Context, db DBTX, name, passwordHash, role string, employeeID *int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, password_hash, role, employee_id) VALUES (?, ?, ?, ?)`,
		name, passwordHash, role, employeeID,
	)
	if err != nil {
		return 0, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting user id: %w", err)
	}
	return id, nil
}

// AddUser creates a user. An employee-role user without an employee link
// gets a new employee record (with its EMP### code) in the same transaction.
func AddUser(ctx context.Context, db *sql.DB, name, passwordHash, role string, employeeID *int64) (*model.User, error) {
	var id int64
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if employeeID == nil && role == model.RoleEmployee {
			empID, err := CreateEmployee(ctx, tx, model.EmployeeInput{Name: name})
			if err != nil {
				return err
			}
			if err := SetEmployeeCode(ctx, tx, empID, model.EmployeeCode(empID)); err != nil {
				return err
			}
			employeeID = &empID
		}

		var err error
		id, err = CreateUser(ctx, tx, name, passwordHash, role, employeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, or nil if it does not exist.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, userSelect+` WHERE u.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByName returns a user by name, ignoring case.
func GetUserByName(ctx context.Context, db DBTX, name string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		userSelect+` WHERE LOWER(u.name) = LOWER(?) ORDER BY u.id LIMIT 1`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by name: %w", err)
	}
	return u, nil
}

// GetUserByEmployee returns the first user linked to an employee.
func GetUserByEmployee(ctx context.Context, db DBTX, employeeID int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		userSelect+` WHERE u.employee_id = ? ORDER BY u.id LIMIT 1`, employeeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by employee: %w", err)
	}
	return u, nil
}

// EmployeeUser returns the user linked to the employee, creating an
// employee-role account with an empty password if there is none.
func EmployeeUser(ctx context.Context, db *sql.DB, e *model.Employee) (*model.User, bool, error) {
	var (
		id      int64
		created bool
	)
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		u, err := GetUserByEmployee(ctx, tx, e.ID)
		if err != nil {
			return err
		}
		if u != nil {
			id = u.ID
			return nil
		}

		id, err = CreateUser(ctx, tx, e.Name, "", model.RoleEmployee, &e.ID)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}

	u, err := GetUser(ctx, db, id)
	return u, created, err
}

// ListUsers returns all users with their linked employee.
func ListUsers(ctx context.Context, db DBTX) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, userSelect+` ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsersByRole returns how many users hold the role.
func CountUsersByRole(ctx context.Context, db DBTX, role string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, role,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UserUpdate holds the user columns to change. Nil fields are left as is.
type UserUpdate struct {
	Name         *string
	Role         *string
	PasswordHash *string
	EmployeeID   *int64
}

// UpdateUser applies the non-nil fields of upd.
func UpdateUser(ctx context.Context, db DBTX, id int64, upd UserUpdate) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET
		     name          = COALESCE(?, name),
		     role          = COALESCE(?, role),
		     password_hash = COALESCE(?, password_hash),
		     employee_id   = COALESCE(?, employee_id)
		 WHERE id = ?`,
		upd.Name, upd.Role, upd.PasswordHash, upd.EmployeeID, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return affected(result)
}

// DeleteUser removes a user. The linked employee is kept.
func DeleteUser(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return affected(result)
}
