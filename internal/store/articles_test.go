package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetdesk/internal/db"
	"github.com/erazemk/assetdesk/internal/model"
)

func laptop(user string) model.ArticleInput {
	return model.ArticleInput{
		Article:        "Laptop",
		Description:    "Dell Latitude",
		DateAcquired:   "2024-03-01",
		PropertyNumber: "PN-001",
		Unit:           "unit",
		UnitValue:      decimal.RequireFromString("45000.50"),
		BalancePerCard: 2,
		OnHandPerCount: 2,
		TotalAmount:    decimal.RequireFromString("91001"),
		ActualUser:     user,
	}
}

func TestCreateArticleResolvesEmployee(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane Doe", Department: "IT"}, nil)

	id, err := CreateArticle(ctx, database, laptop("Jane Doe"))
	require.NoError(t, err)

	a, err := GetArticle(ctx, database, id)
	require.NoError(t, err)
	require.NotNil(t, a.EmployeeID)
	assert.Equal(t, e.ID, *a.EmployeeID)
	assert.Equal(t, "IT", a.EmployeeDepartment)
	assert.True(t, a.UnitValue.Equal(decimal.RequireFromString("45000.5")))
	assert.True(t, a.TotalAmount.Equal(decimal.NewFromInt(91001)), "total amount is stored as given")
}

func TestCreateArticleUnknownEmployee(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateArticle(ctx, database, laptop("Nobody"))
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	all, err := ListArticles(ctx, database, ArticleFilter{View: model.ViewAdmin})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateArticleReassigns(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	bob, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Bob"}, nil)
	id, _ := CreateArticle(ctx, database, laptop("Jane"))

	require.NoError(t, UpdateArticle(ctx, database, id, laptop("Bob")))
	a, _ := GetArticle(ctx, database, id)
	assert.Equal(t, bob.ID, *a.EmployeeID)

	assert.ErrorIs(t, UpdateArticle(ctx, database, id, laptop("Ghost")), ErrEmployeeNotFound)
	assert.ErrorIs(t, UpdateArticle(ctx, database, id+1, laptop("Bob")), ErrNotFound)
}

func TestDeleteArticle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	id, _ := CreateArticle(ctx, database, laptop("Jane"))

	require.NoError(t, DeleteArticle(ctx, database, id))
	assert.ErrorIs(t, DeleteArticle(ctx, database, id), ErrNotFound)
}

func TestListArticlesViews(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	jane, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	AddEmployee(ctx, database, model.EmployeeInput{Name: "Bob"}, nil)
	CreateArticle(ctx, database, laptop("Jane"))
	CreateArticle(ctx, database, laptop("Bob"))
	CreateArticle(ctx, database, laptop("Bob"))

	// Orphan one article.
	require.NoError(t, DeleteEmployee(ctx, database, jane.ID))

	admin, err := ListArticles(ctx, database, ArticleFilter{View: model.ViewAdmin})
	require.NoError(t, err)
	require.Len(t, admin, 3)

	supervisor, err := ListArticles(ctx, database, ArticleFilter{View: model.ViewSupervisor})
	require.NoError(t, err)

	var adminNames, supervisorNames []string
	for i := range admin {
		adminNames = append(adminNames, admin[i].EmployeeName)
		supervisorNames = append(supervisorNames, supervisor[i].EmployeeName)
	}
	assert.Contains(t, adminNames, model.UnassignedAdmin)
	assert.Contains(t, supervisorNames, model.UnassignedSupervisor)

	bobs, err := ListArticles(ctx, database, ArticleFilter{View: model.ViewEmployee, Employee: "Bob"})
	require.NoError(t, err)
	assert.Len(t, bobs, 2)
}

func TestListArticlesDateRange(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	for _, d := range []string{"2024-01-10", "2024-02-10", "2024-03-10"} {
		in := laptop("Jane")
		in.DateAcquired = d
		CreateArticle(ctx, database, in)
	}

	got, err := ListArticles(ctx, database, ArticleFilter{View: model.ViewAdmin, From: "2024-02-01", To: "2024-03-10"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-10", got[0].DateAcquired)
}

func TestPageArticles(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	for i := 1; i <= 25; i++ {
		in := laptop("Jane")
		in.Article = fmt.Sprintf("Chair %02d", i)
		in.DateAcquired = fmt.Sprintf("2024-01-%02d", i)
		if i == 7 {
			in.Article = "Projector"
			in.Description = "100% brightness"
		}
		_, err := CreateArticle(ctx, database, in)
		require.NoError(t, err)
	}

	page, err := PageArticles(ctx, database, ArticleQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Items, 10)
	assert.True(t, page.HasMore)
	assert.Equal(t, "2024-01-25", page.Items[0].DateAcquired, "default sort is date acquired, newest first")

	last, err := PageArticles(ctx, database, ArticleQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasMore)

	asc, err := PageArticles(ctx, database, ArticleQuery{Limit: 5, Sort: "article", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "Chair 01", asc.Items[0].Article)

	found, err := PageArticles(ctx, database, ArticleQuery{Search: "100%"})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, "Projector", found.Items[0].Article)

	none, err := PageArticles(ctx, database, ArticleQuery{Search: "typewriter"})
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Items)
}

func TestPageArticlesRejectsUnknownSort(t *testing.T) {
	database := db.NewTestDB(t)

	page, err := PageArticles(context.Background(), database, ArticleQuery{Sort: "id; DROP TABLE articles"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestPageArticlesByEmployee(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	jane, _ := AddEmployee(ctx, database, model.EmployeeInput{Name: "Jane"}, nil)
	AddEmployee(ctx, database, model.EmployeeInput{Name: "Bob"}, nil)
	for _, user := range []string{"Jane", "Bob", "Jane"} {
		_, err := CreateArticle(ctx, database, laptop(user))
		require.NoError(t, err)
	}

	page, err := PageArticles(ctx, database, ArticleQuery{EmployeeID: &jane.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, a := range page.Items {
		assert.Equal(t, "Jane", a.EmployeeName)
	}

	page, err = PageArticles(ctx, database, ArticleQuery{EmployeeID: &jane.ID, Search: "latitude"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	var missing int64
	page, err = PageArticles(ctx, database, ArticleQuery{EmployeeID: &missing})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
