package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/notify"
	"github.com/erazemk/assetdesk/internal/store"
)

// ProductsHandler handles article endpoints. Articles are called products
// in the API.
type ProductsHandler struct {
	DB     *sql.DB
	Cache  *cache.Cache
	Events Broadcaster
}

type productRequest struct {
	Article        string           `json:"article" label:"Article" validate:"required"`
	Description    string           `json:"description"`
	DateAcquired   string           `json:"date_acquired"`
	PropertyNumber string           `json:"property_number"`
	Unit           string           `json:"unit"`
	UnitValue      *decimal.Decimal `json:"unit_value" label:"Unit Value" validate:"required"`
	BalancePerCard int              `json:"balance_per_card"`
	OnHandPerCount int              `json:"on_hand_per_count"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Remarks        string           `json:"remarks"`
	ActualUser     string           `json:"actual_user" label:"Actual User" validate:"required"`
}

func (req *productRequest) input() model.ArticleInput {
	return model.ArticleInput{
		Article:        strings.TrimSpace(req.Article),
		Description:    req.Description,
		DateAcquired:   req.DateAcquired,
		PropertyNumber: req.PropertyNumber,
		Unit:           req.Unit,
		UnitValue:      *req.UnitValue,
		BalancePerCard: req.BalancePerCard,
		OnHandPerCount: req.OnHandPerCount,
		TotalAmount:    req.TotalAmount,
		Remarks:        req.Remarks,
		ActualUser:     strings.TrimSpace(req.ActualUser),
	}
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (*productRequest, bool) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	missing, err := missingFields(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(missing) > 0 {
		jsonMissing(w, missing)
		return nil, false
	}
	return &req, true
}

// Create handles POST /add-product.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	id, err := store.CreateArticle(r.Context(), h.DB, req.input())
	if errors.Is(err, store.ErrEmployeeNotFound) {
		jsonMessage(w, http.StatusBadRequest, "Employee not found")
		return
	}
	if err != nil {
		dbError(w, "failed to add product", err)
		return
	}

	invalidate(h.Cache, segProducts)

	article, err := store.GetArticle(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to load new product", "id", id, "error", err)
	} else {
		h.Events.Broadcast(notify.ArticleAdded, article)
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"message": "Product added successfully",
		"id":      id,
	})
}

// noEmployee matches no article; used for callers without a linked employee.
var noEmployee int64

// Page handles GET /get-products. Employees only see their own articles.
func (h *ProductsHandler) Page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := store.ArticleQuery{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", store.DefaultPageSize),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	}
	if user := CurrentUser(r.Context()); user != nil && !model.RoleAtLeast(user.Role, model.RoleSupervisor) {
		query.EmployeeID = user.EmployeeID
		if query.EmployeeID == nil {
			query.EmployeeID = &noEmployee
		}
	}

	page, err := store.PageArticles(r.Context(), h.DB, query)
	if err != nil {
		dbError(w, "failed to page products", err)
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// ListAdmin handles GET /get-products/all.
func (h *ProductsHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ArticleFilter{View: model.ViewAdmin})
}

// ListSupervisor handles GET /api/products/all.
func (h *ProductsHandler) ListSupervisor(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ArticleFilter{View: model.ViewSupervisor})
}

// ListByEmployee handles GET /get-products/{user}.
func (h *ProductsHandler) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ArticleFilter{View: model.ViewEmployee, Employee: r.PathValue("user")})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request, f store.ArticleFilter) {
	// Aggregate views are always read fresh.
	if f.View != model.ViewEmployee {
		invalidate(h.Cache, segProducts)
	}

	articles, err := store.ListArticles(r.Context(), h.DB, f)
	if err != nil {
		dbError(w, "failed to list products", err)
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	jsonResponse(w, http.StatusOK, articles)
}

// Update handles PUT /edit-product/{id}.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	req, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	err := store.UpdateArticle(r.Context(), h.DB, id, req.input())
	switch {
	case errors.Is(err, store.ErrEmployeeNotFound):
		jsonMessage(w, http.StatusBadRequest, "Employee not found")
		return
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		dbError(w, "failed to update product", err)
		return
	}

	invalidate(h.Cache, segProducts)
	jsonMessage(w, http.StatusOK, "Product updated successfully")
}

// Delete handles DELETE /delete-product/{id}.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	err := store.DeleteArticle(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		dbError(w, "failed to delete product", err)
		return
	}

	invalidate(h.Cache, segProducts)
	jsonMessage(w, http.StatusOK, "Product deleted successfully")
}
