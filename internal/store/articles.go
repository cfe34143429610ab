package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/assetdesk/internal/model"
)

const articleSelect = `SELECT a.id, a.article, a.description, a.date_acquired, a.property_number,
	a.unit, a.unit_value, a.balance_per_card, a.on_hand_per_count, a.total_amount, a.remarks,
	a.actual_user, a.employee_id, a.created_at,
	COALESCE(e.name, ''), COALESCE(e.employee_id, ''), COALESCE(e.position, ''), COALESCE(e.department, '')
	FROM articles a
	LEFT JOIN employees e ON e.id = a.employee_id`

func scanArticle(row interface{ Scan(...any) error }) (*model.Article, error) {
	a := &model.Article{}
	err := row.Scan(&a.ID, &a.Article, &a.Description, &a.DateAcquired, &a.PropertyNumber,
		&a.Unit, &a.UnitValue, &a.BalancePerCard, &a.OnHandPerCount, &a.TotalAmount, &a.Remarks,
		&a.ActualUser, &a.EmployeeID, &a.CreatedAt,
		&a.EmployeeName, &a.EmployeeCode, &a.EmployeePosition, &a.EmployeeDepartment)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanArticles(rows *sql.Rows) ([]model.Article, error) {
	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// CreateArticle inserts an article assigned to the employee named by
// in.ActualUser. It returns ErrEmployeeNotFound when no employee has that name.
func CreateArticle(ctx context.Context, db DBTX, in model.ArticleInput) (int64, error) {
	employeeID, err := EmployeeIDByName(ctx, db, in.ActualUser)
	if err != nil {
		return 0, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO articles (article, description, date_acquired, property_number, unit,
		     unit_value, balance_per_card, on_hand_per_count, total_amount, remarks,
		     actual_user, employee_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Article, in.Description, in.DateAcquired, in.PropertyNumber, in.Unit,
		in.UnitValue, in.BalancePerCard, in.OnHandPerCount, in.TotalAmount, in.Remarks,
		in.ActualUser, employeeID,
	)
	if err != nil {
		return 0, fmt.Errorf("creating article: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting article id: %w", err)
	}
	return id, nil
}

// GetArticle returns an article by ID, or nil if it does not exist.
func GetArticle(ctx context.Context, db DBTX, id int64) (*model.Article, error) {
	a, err := scanArticle(db.QueryRowContext(ctx, articleSelect+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting article: %w", err)
	}
	return a, nil
}

// UpdateArticle overwrites an article and re-resolves its employee from
// in.ActualUser.
func UpdateArticle(ctx context.Context, db DBTX, id int64, in model.ArticleInput) error {
	employeeID, err := EmployeeIDByName(ctx, db, in.ActualUser)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE articles SET article = ?, description = ?, date_acquired = ?, property_number = ?,
		     unit = ?, unit_value = ?, balance_per_card = ?, on_hand_per_count = ?,
		     total_amount = ?, remarks = ?, actual_user = ?, employee_id = ?
		 WHERE id = ?`,
		in.Article, in.Description, in.DateAcquired, in.PropertyNumber,
		in.Unit, in.UnitValue, in.BalancePerCard, in.OnHandPerCount,
		in.TotalAmount, in.Remarks, in.ActualUser, employeeID, id,
	)
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	return affected(result)
}

// DeleteArticle removes an article.
func DeleteArticle(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}
	return affected(result)
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	View model.View
	// Employee is the employee name for ViewEmployee.
	Employee string
	// From and To bound date_acquired (YYYY-MM-DD, inclusive) when non-empty.
	From, To string
}

// ListArticles returns all articles shaped for the requested view. Articles
// without an employee carry the view's display default as employee name.
func ListArticles(ctx context.Context, db DBTX, f ArticleFilter) ([]model.Article, error) {
	query := articleSelect + ` WHERE 1=1`
	var args []any

	if f.View == model.ViewEmployee {
		query += ` AND e.name = ?`
		args = append(args, f.Employee)
	}
	if f.From != "" {
		query += ` AND a.date_acquired >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND a.date_acquired <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY a.date_acquired DESC, a.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}

	var fallback string
	switch f.View {
	case model.ViewAdmin:
		fallback = model.UnassignedAdmin
	case model.ViewSupervisor:
		fallback = model.UnassignedSupervisor
	}
	for i := range articles {
		if articles[i].EmployeeName == "" {
			articles[i].EmployeeName = fallback
		}
	}
	return articles, nil
}

// articleSorts maps sortable API fields to SQL expressions.
var articleSorts = map[string]string{
	"id":              "a.id",
	"article":         "a.article",
	"description":     "a.description",
	"date_acquired":   "a.date_acquired",
	"property_number": "a.property_number",
	"unit_value":      "a.unit_value",
	"total_amount":    "a.total_amount",
	"actual_user":     "a.actual_user",
	"created_at":      "a.created_at",
}

// ArticleQuery selects a page of articles.
type ArticleQuery struct {
	Page   int
	Limit  int
	Search string
	Sort   string
	Order  string
	// EmployeeID restricts the page to one employee's articles when set.
	EmployeeID *int64
}

// Pagination defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// normalize fills defaults and clamps out-of-range values.
func (q *ArticleQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if _, ok := articleSorts[q.Sort]; !ok {
		q.Sort = "date_acquired"
		if q.Order == "" {
			q.Order = "desc"
		}
	}
	if strings.EqualFold(q.Order, "asc") {
		q.Order = "ASC"
	} else {
		q.Order = "DESC"
	}
}

// PageArticles returns one page of articles matching q.Search in the article
// name or description, optionally limited to q.EmployeeID.
func PageArticles(ctx context.Context, db DBTX, q ArticleQuery) (*model.Page[model.Article], error) {
	q.normalize()

	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(q.Search); s != "" {
		conds = append(conds, `(a.article LIKE ? ESCAPE '\' OR a.description LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(s) + "%"
		args = append(args, pattern, pattern)
	}
	if q.EmployeeID != nil {
		conds = append(conds, `a.employee_id = ?`)
		args = append(args, *q.EmployeeID)
	}
	where := ``
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a`+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}

	query := articleSelect + where +
		fmt.Sprintf(` ORDER BY %s %s, a.id %s LIMIT ? OFFSET ?`, articleSorts[q.Sort], q.Order, q.Order)
	offset := (q.Page - 1) * q.Limit
	rows, err := db.QueryContext(ctx, query, append(args, q.Limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("paging articles: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []model.Article{}
	}

	return &model.Page[model.Article]{
		Items:   articles,
		Total:   total,
		Page:    q.Page,
		Limit:   q.Limit,
		HasMore: offset+len(articles) < total,
	}, nil
}

// escapeLike escapes LIKE wildcards in s.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
