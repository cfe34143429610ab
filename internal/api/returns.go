package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/notify"
	"github.com/erazemk/assetdesk/internal/store"
)

// ReturnsHandler handles return receipt endpoints.
type ReturnsHandler struct {
	DB     *sql.DB
	Cache  *cache.Cache
	Events Broadcaster
}

type signatureRequest struct {
	Name     string `json:"name" label:"Name" validate:"required"`
	Position string `json:"position" label:"Position" validate:"required"`
	Date     string `json:"date" label:"Date" validate:"required"`
	Location string `json:"location" label:"Location" validate:"required"`
}

func (s *signatureRequest) signature() model.Signature {
	return model.Signature{
		Name:     strings.TrimSpace(s.Name),
		Position: s.Position,
		Date:     s.Date,
		Location: strings.TrimSpace(s.Location),
	}
}

type receiptRequest struct {
	RRSPNo             string            `json:"rrsp_no" label:"RRSP No." validate:"required"`
	Date               string            `json:"date" label:"Date" validate:"required"`
	Description        string            `json:"description" label:"Description" validate:"required"`
	Quantity           *int              `json:"quantity"`
	ICSNo              string            `json:"ics_no"`
	DateAcquired       string            `json:"date_acquired"`
	Amount             decimal.Decimal   `json:"amount"`
	EndUser            string            `json:"end_user" label:"End User" validate:"required"`
	Remarks            string            `json:"remarks"`
	ReturnedBy         signatureRequest  `json:"returned_by" label:"Returned By"`
	ReceivedBy         signatureRequest  `json:"received_by" label:"Received By"`
	ShowSecondReceiver bool              `json:"show_second_receiver"`
	SecondReceivedBy   *signatureRequest `json:"second_received_by" label:"Second Received By"`
}

type updateReturnRequest struct {
	RRSPNo       string          `json:"rrsp_no" label:"RRSP No." validate:"required"`
	Date         string          `json:"date" label:"Date" validate:"required"`
	Description  string          `json:"description" label:"Description" validate:"required"`
	Quantity     int             `json:"quantity" label:"Quantity" validate:"required,gt=0"`
	ICSNo        string          `json:"ics_no"`
	DateAcquired string          `json:"date_acquired"`
	Amount       decimal.Decimal `json:"amount"`
	EndUser      string          `json:"end_user" label:"End User" validate:"required"`
	Remarks      string          `json:"remarks"`
}

// validLocation reports whether a signature location is long enough.
func validLocation(loc string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(loc)) >= model.MinLocationLength
}

// Create handles POST /add-receipt.
func (h *ReturnsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The second receiver block is all or nothing.
	if req.ShowSecondReceiver {
		if req.SecondReceivedBy == nil {
			req.SecondReceivedBy = &signatureRequest{}
		}
	} else {
		req.SecondReceivedBy = nil
	}

	missing, err := missingFields(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(missing) > 0 {
		jsonMissing(w, missing)
		return
	}

	locations := []string{req.ReturnedBy.Location, req.ReceivedBy.Location}
	if req.SecondReceivedBy != nil {
		locations = append(locations, req.SecondReceivedBy.Location)
	}
	for _, loc := range locations {
		if !validLocation(loc) {
			jsonError(w, http.StatusBadRequest, "Invalid location")
			return
		}
	}

	quantity := 1
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			jsonError(w, http.StatusBadRequest, "quantity must be positive")
			return
		}
		quantity = *req.Quantity
	}

	receipt := &model.Receipt{
		RRSPNo:       strings.TrimSpace(req.RRSPNo),
		Date:         req.Date,
		Description:  req.Description,
		Quantity:     quantity,
		ICSNo:        req.ICSNo,
		DateAcquired: req.DateAcquired,
		Amount:       req.Amount,
		EndUser:      strings.TrimSpace(req.EndUser),
		Remarks:      req.Remarks,
		ReturnedBy:   req.ReturnedBy.signature(),
		ReceivedBy:   req.ReceivedBy.signature(),
	}
	if req.SecondReceivedBy != nil {
		second := req.SecondReceivedBy.signature()
		receipt.SecondReceivedBy = &second
	}
	if claims := GetClaims(r.Context()); claims != nil {
		receipt.CreatedBy = &claims.UserID
	}

	id, err := store.CreateReceipt(r.Context(), h.DB, receipt)
	if errors.Is(err, store.ErrEmployeeNotFound) {
		jsonError(w, http.StatusNotFound, "End user not found")
		return
	}
	if err != nil {
		dbError(w, "failed to add receipt", err)
		return
	}

	invalidate(h.Cache, segReceipts, segReturns)

	if saved, err := store.GetReceipt(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to load new receipt", "id", id, "error", err)
	} else {
		h.Events.Broadcast(notify.ReceiptAdded, saved)
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"message": "Receipt added successfully",
		"id":      id,
	})
}

// Update handles PUT /api/returns/{id}. Signature blocks cannot be changed.
func (h *ReturnsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid return id")
		return
	}

	var req updateReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	missing, err := missingFields(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(missing) > 0 {
		jsonMissing(w, missing)
		return
	}

	err = store.UpdateReceipt(r.Context(), h.DB, id, model.ReceiptCore{
		RRSPNo:       strings.TrimSpace(req.RRSPNo),
		Date:         req.Date,
		Description:  req.Description,
		Quantity:     req.Quantity,
		ICSNo:        req.ICSNo,
		DateAcquired: req.DateAcquired,
		Amount:       req.Amount,
		EndUser:      strings.TrimSpace(req.EndUser),
		Remarks:      req.Remarks,
	})
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Return not found")
		return
	}
	if err != nil {
		dbError(w, "failed to update return", err)
		return
	}

	invalidate(h.Cache, segReturns, segReceipts)

	saved, err := store.GetReceipt(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to load updated return", "id", id, "error", err)
	} else {
		h.Events.Broadcast(notify.ReturnUpdated, saved)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Return updated successfully",
		"return":  saved,
	})
}

// ListAll handles GET /api/returns/all.
func (h *ReturnsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	invalidate(h.Cache, segReturns)
	h.list(w, r, store.ReceiptFilter{})
}

// ListByEndUser handles GET /get-receipts/{endUser}.
func (h *ReturnsHandler) ListByEndUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ReceiptFilter{EndUser: r.PathValue("endUser")})
}

func (h *ReturnsHandler) list(w http.ResponseWriter, r *http.Request, f store.ReceiptFilter) {
	q := r.URL.Query()
	f.From, f.To = q.Get("from"), q.Get("to")

	receipts, err := store.ListReceipts(r.Context(), h.DB, f)
	if err != nil {
		dbError(w, "failed to list returns", err)
		return
	}
	if receipts == nil {
		receipts = []model.Receipt{}
	}
	jsonResponse(w, http.StatusOK, receipts)
}

// Get handles GET /api/returns/{id}.
func (h *ReturnsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid return id")
		return
	}

	receipt, err := store.GetReceipt(r.Context(), h.DB, id)
	if err != nil {
		dbError(w, "failed to get return", err)
		return
	}
	if receipt == nil {
		jsonError(w, http.StatusNotFound, "Return not found")
		return
	}
	jsonResponse(w, http.StatusOK, receipt)
}
