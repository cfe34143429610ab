package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetdesk/internal/db"
	"github.com/erazemk/assetdesk/internal/model"
)

func TestAddEmployeeAssignsCode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	var last *model.Employee
	for _, name := range []string{"Ann", "Ben", "Cid", "Jane Doe"} {
		e, err := AddEmployee(ctx, database, model.EmployeeInput{Name: name}, nil)
		require.NoError(t, err)
		last = e
	}

	require.NotNil(t, last.Code)
	assert.Equal(t, "EMP004", *last.Code)
	assert.Equal(t, model.RoleEmployee, last.Role, "role defaults to employee without a user")
	assert.Nil(t, last.UserID)
}

func TestAddEmployeeWithAccount(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, err := AddEmployee(ctx, database, model.EmployeeInput{Name: "Sam"},
		&Account{Name: "sam", PasswordHash: "hash", Role: model.RoleSupervisor})
	require.NoError(t, err)
	require.NotNil(t, e.UserID)
	assert.Equal(t, model.RoleSupervisor, e.Role)

	u, err := GetUserByEmployee(ctx, database, e.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "sam", u.Name)
}

func TestAddEmployeeRollsBackOnFailure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := AddEmployee(ctx, database, model.EmployeeInput{Name: "Bad"},
		&Account{Name: "bad", PasswordHash: "hash", Role: "owner"})
	require.Error(t, err, "invalid role violates the CHECK constraint")

	employees, err := ListEmployees(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, employees, "the employee insert must be rolled back")
}

func TestSetEmployeeCodeDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _ := CreateEmployee(ctx, database, model.EmployeeInput{Name: "A"})
	b, _ := CreateEmployee(ctx, database, model.EmployeeInput{Name: "B"})
	require.NoError(t, SetEmployeeCode(ctx, database, a, "EMP001"))

	err := SetEmployeeCode(ctx, database, b, "EMP001")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestEmployeeIDByName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane Doe"}, nil)

	id, err := EmployeeIDByName(ctx, database, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, e.ID, id)

	_, err = EmployeeIDByName(ctx, database, "jane doe")
	assert.ErrorIs(t, err, ErrEmployeeNotFound, "name match is exact")
}

func TestSaveEmployeeProfileCreatesMissing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000000000)

	e, created, err := SaveEmployeeProfile(ctx, database, 99, model.EmployeeInput{Name: "New Hire"}, now)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, e.Code)
	assert.Equal(t, "EMP1700000000000", *e.Code)

	e2, created, err := SaveEmployeeProfile(ctx, database, e.ID, model.EmployeeInput{Name: "New Hire", Position: "Clerk"}, now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e.ID, e2.ID)
	assert.Equal(t, "Clerk", e2.Position)
}

func TestDeleteEmployeeNullsReferences(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, err := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane Doe"},
		&Account{Name: "jane", PasswordHash: "hash", Role: model.RoleEmployee})
	require.NoError(t, err)

	articleID, err := CreateArticle(ctx, database, model.ArticleInput{
		Article: "Laptop", UnitValue: decimal.NewFromInt(1000), ActualUser: "Jane Doe",
	})
	require.NoError(t, err)

	require.NoError(t, DeleteEmployee(ctx, database, e.ID))

	u, err := GetUser(ctx, database, *e.UserID)
	require.NoError(t, err)
	require.NotNil(t, u, "user survives employee deletion")
	assert.Nil(t, u.EmployeeID)

	a, err := GetArticle(ctx, database, articleID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Nil(t, a.EmployeeID)

	assert.ErrorIs(t, DeleteEmployee(ctx, database, e.ID), ErrNotFound)
}

func TestEmployeePhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	assert.False(t, e.HasPhoto)

	require.NoError(t, SetEmployeePhoto(ctx, database, e.ID, []byte{0xff, 0xd8}, "image/jpeg"))

	data, mime, err := GetEmployeePhoto(ctx, database, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
	assert.Equal(t, "image/jpeg", mime)

	got, _ := GetEmployee(ctx, database, e.ID)
	assert.True(t, got.HasPhoto)

	assert.ErrorIs(t, SetEmployeePhoto(ctx, database, 404, []byte{1}, "image/jpeg"), ErrNotFound)
}
