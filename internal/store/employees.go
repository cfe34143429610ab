package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/assetdesk/internal/model"
)

const employeeColumns = `e.id, e.name, e.position, e.department, e.email, e.contact_number,
	e.address, e.employee_id, e.photo IS NOT NULL, e.created_at`

// employeeWithUser adds the first linked user's id and role.
const employeeWithUser = `SELECT ` + employeeColumns + `,
	(SELECT u.id FROM users u WHERE u.employee_id = e.id ORDER BY u.id LIMIT 1),
	COALESCE((SELECT u.role FROM users u WHERE u.employee_id = e.id ORDER BY u.id LIMIT 1), 'employee')
	FROM employees e`

func scanEmployee(row interface{ Scan(...any) error }) (*model.Employee, error) {
	e := &model.Employee{}
	var code sql.NullString
	if err := row.Scan(&e.ID, &e.Name, &e.Position, &e.Department, &e.Email, &e.ContactNumber,
		&e.Address, &code, &e.HasPhoto, &e.CreatedAt, &e.UserID, &e.Role); err != nil {
		return nil, err
	}
	if code.Valid {
		e.Code = &code.String
	}
	return e, nil
}

// CreateEmployee inserts an employee row without a business code.
func CreateEmployee(ctx context.Context, db DBTX, in model.EmployeeInput) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO employees (name, position, department, email, contact_number, address)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.Position, in.Department, in.Email, in.ContactNumber, in.Address,
	)
	if err != nil {
		return 0, fmt.Errorf("creating employee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting employee id: %w", err)
	}
	return id, nil
}

// SetEmployeeCode assigns the business code of an employee.
func SetEmployeeCode(ctx context.Context, db DBTX, id int64, code string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE employees SET employee_id = ? WHERE id = ?`, code, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("employee code %s: %w", code, ErrDuplicate)
		}
		return fmt.Errorf("setting employee code: %w", err)
	}
	return affected(result)
}

// Account describes the user created together with an employee.
type Account struct {
	Name         string
	PasswordHash string
	Role         string
}

// AddEmployee creates an employee, assigns its EMP### code and, when account
// is non-nil, a linked user. Either every step is applied or none.
func AddEmployee(ctx context.Context, db *sql.DB, in model.EmployeeInput, account *Account) (*model.Employee, error) {
	var id int64
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		id, err = CreateEmployee(ctx, tx, in)
		if err != nil {
			return err
		}

		if err := SetEmployeeCode(ctx, tx, id, model.EmployeeCode(id)); err != nil {
			return err
		}

		if account != nil {
			if _, err := CreateUser(ctx, tx, account.Name, account.PasswordHash, account.Role, &id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetEmployee(ctx, db, id)
}

// GetEmployee returns an employee by ID, or nil if it does not exist.
func GetEmployee(ctx context.Context, db DBTX, id int64) (*model.Employee, error) {
	e, err := scanEmployee(db.QueryRowContext(ctx, employeeWithUser+` WHERE e.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting employee: %w", err)
	}
	return e, nil
}

// GetEmployeeByCode returns the employee with the exact business code.
func GetEmployeeByCode(ctx context.Context, db DBTX, code string) (*model.Employee, error) {
	e, err := scanEmployee(db.QueryRowContext(ctx, employeeWithUser+` WHERE e.employee_id = ?`, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting employee by code: %w", err)
	}
	return e, nil
}

// EmployeeIDByName resolves an exact employee name to its ID. Names are not
// unique; the oldest matching employee wins.
func EmployeeIDByName(ctx context.Context, db DBTX, name string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM employees WHERE name = ? ORDER BY id LIMIT 1`, name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrEmployeeNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolving employee %q: %w", name, err)
	}
	return id, nil
}

// ListEmployees returns all employees with their account role.
func ListEmployees(ctx context.Context, db DBTX) ([]model.Employee, error) {
	rows, err := db.QueryContext(ctx, employeeWithUser+` ORDER BY e.name, e.id`)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// UpdateEmployee overwrites the editable columns of an employee.
func UpdateEmployee(ctx context.Context, db DBTX, id int64, in model.EmployeeInput) error {
	result, err := db.ExecContext(ctx,
		`UPDATE employees SET name = ?, position = ?, department = ?, email = ?,
		        contact_number = ?, address = ?
		 WHERE id = ?`,
		in.Name, in.Position, in.Department, in.Email, in.ContactNumber, in.Address, id,
	)
	if err != nil {
		return fmt.Errorf("updating employee: %w", err)
	}
	return affected(result)
}

// UpdateEmployeeRole changes the role of every user linked to the employee.
func UpdateEmployeeRole(ctx context.Context, db DBTX, id int64, role string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE employee_id = ?`, role, id,
	)
	if err != nil {
		return fmt.Errorf("updating employee role: %w", err)
	}
	return nil
}

// SaveEmployeeProfile updates the employee, creating it with a timestamp code
// when no row with that ID exists. It reports whether a row was created.
func SaveEmployeeProfile(ctx context.Context, db *sql.DB, id int64, in model.EmployeeInput, now time.Time) (*model.Employee, bool, error) {
	created := false
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		err := UpdateEmployee(ctx, tx, id, in)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		id, err = CreateEmployee(ctx, tx, in)
		if err != nil {
			return err
		}
		created = true
		return SetEmployeeCode(ctx, tx, id, model.TimestampEmployeeCode(now))
	})
	if err != nil {
		return nil, false, err
	}

	e, err := GetEmployee(ctx, db, id)
	return e, created, err
}

// DeleteEmployee removes an employee. Users and articles referencing it keep
// their rows with the link set to NULL.
func DeleteEmployee(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting employee: %w", err)
	}
	return affected(result)
}

// SetEmployeePhoto stores an employee's photo.
func SetEmployeePhoto(ctx context.Context, db DBTX, id int64, photo []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE employees SET photo = ?, photo_mime = ? WHERE id = ?`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting employee photo: %w", err)
	}
	return affected(result)
}

// GetEmployeePhoto returns an employee's photo and MIME type. Both are empty
// when the employee has no photo.
func GetEmployeePhoto(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM employees WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting employee photo: %w", err)
	}
	return photo, mime.String, nil
}
