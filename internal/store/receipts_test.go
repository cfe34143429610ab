package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetdesk/internal/db"
	"github.com/erazemk/assetdesk/internal/model"
)

func sampleReceipt(endUser string) *model.Receipt {
	return &model.Receipt{
		RRSPNo:      "RRSP-2024-001",
		Date:        "2024-05-02",
		Description: "Desktop computer",
		Quantity:    1,
		ICSNo:       "ICS-77",
		Amount:      decimal.RequireFromString("32000"),
		EndUser:     endUser,
		ReturnedBy:  model.Signature{Name: endUser, Position: "Clerk", Date: "2024-05-02", Location: "Main office"},
		ReceivedBy:  model.Signature{Name: "Supply Officer", Position: "Officer", Date: "2024-05-02", Location: "Warehouse"},
	}
}

func TestCreateAndGetReceipt(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane Doe", Position: "Clerk"},
		&Account{Name: "jane", PasswordHash: "hash", Role: model.RoleEmployee})

	r := sampleReceipt("Jane Doe")
	r.CreatedBy = e.UserID
	id, err := CreateReceipt(ctx, database, r)
	require.NoError(t, err)

	got, err := GetReceipt(ctx, database, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "RRSP-2024-001", got.RRSPNo)
	assert.Equal(t, "Main office", got.ReturnedBy.Location)
	assert.Nil(t, got.SecondReceivedBy)
	assert.Equal(t, "Jane Doe", got.CreatorName)
	assert.Equal(t, "EMP001", got.EndUserCode)
	assert.Equal(t, "Clerk", got.EndUserPosition)
}

func TestCreateReceiptSecondReceiver(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)

	r := sampleReceipt("Jane")
	r.SecondReceivedBy = &model.Signature{Name: "Auditor", Position: "COA", Date: "2024-05-03", Location: "HQ"}
	id, err := CreateReceipt(ctx, database, r)
	require.NoError(t, err)

	got, _ := GetReceipt(ctx, database, id)
	require.NotNil(t, got.SecondReceivedBy)
	assert.Equal(t, "HQ", got.SecondReceivedBy.Location)
}

func TestCreateReceiptUnknownEndUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateReceipt(ctx, database, sampleReceipt("Ghost"))
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	all, _ := ListReceipts(ctx, database, ReceiptFilter{})
	assert.Empty(t, all)
}

func TestReceiptNullLocationsReadAsEmpty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Rows written before the location columns existed.
	_, err := database.ExecContext(ctx, `INSERT INTO returns (rrsp_no, end_user) VALUES ('OLD-1', 'Jane')`)
	require.NoError(t, err)

	all, err := ListReceipts(ctx, database, ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "", all[0].ReturnedBy.Location)
	assert.Equal(t, "", all[0].ReceivedBy.Location)
	assert.Equal(t, "", all[0].CreatorName)
}

func TestUpdateReceiptCoreOnly(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	id, _ := CreateReceipt(ctx, database, sampleReceipt("Jane"))

	err := UpdateReceipt(ctx, database, id, model.ReceiptCore{
		RRSPNo: "RRSP-2024-001A", Date: "2024-05-04", Description: "Desktop", Quantity: 3, EndUser: "Jane",
	})
	require.NoError(t, err)

	got, _ := GetReceipt(ctx, database, id)
	assert.Equal(t, "RRSP-2024-001A", got.RRSPNo)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, "Supply Officer", got.ReceivedBy.Name, "signature blocks are untouched")

	assert.ErrorIs(t, UpdateReceipt(ctx, database, id+1, model.ReceiptCore{RRSPNo: "x"}), ErrNotFound)
}

func TestListReceiptsByEndUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	AddEmployee(ctx, database, model.EmployeeInput{Name: "Bob"}, nil)
	CreateReceipt(ctx, database, sampleReceipt("Jane"))
	CreateReceipt(ctx, database, sampleReceipt("Bob"))
	CreateReceipt(ctx, database, sampleReceipt("Bob"))

	bobs, err := ListReceipts(ctx, database, ReceiptFilter{EndUser: "Bob"})
	require.NoError(t, err)
	assert.Len(t, bobs, 2)

	all, err := ListReceipts(ctx, database, ReceiptFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
