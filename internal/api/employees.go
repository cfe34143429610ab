package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/assetdesk/internal/auth"
	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/imaging"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/store"
)

// EmployeesHandler handles employee endpoints.
type EmployeesHandler struct {
	DB    *sql.DB
	Cache *cache.Cache
	// Now is overridden in tests.
	Now func() time.Time
}

type employeeRequest struct {
	Name          string `json:"name" label:"Name" validate:"required"`
	Position      string `json:"position"`
	Department    string `json:"department"`
	Email         string `json:"email" label:"Email" validate:"omitempty,email"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
	Role          string `json:"role"`
	Password      string `json:"password"`
}

func (req *employeeRequest) input() model.EmployeeInput {
	return model.EmployeeInput{
		Name:          strings.TrimSpace(req.Name),
		Position:      req.Position,
		Department:    req.Department,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
	}
}

// decodeEmployee reads and validates an employee body. It writes the error
// response and returns false on failure.
func decodeEmployee(w http.ResponseWriter, r *http.Request) (*employeeRequest, bool) {
	var req employeeRequest
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

	if req.Role != "" && !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return nil, false
	}
	return &req, true
}

type employeeSummary struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Code *string `json:"employee_id"`
}

// List handles GET /get-employees.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := store.ListEmployees(r.Context(), h.DB)
	if err != nil {
		dbError(w, "failed to list employees", err)
		return
	}
	if employees == nil {
		employees = []model.Employee{}
	}
	jsonResponse(w, http.StatusOK, employees)
}

// ListSummaries handles GET /get-all-employees.
func (h *EmployeesHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	employees, err := store.ListEmployees(r.Context(), h.DB)
	if err != nil {
		dbError(w, "failed to list employees", err)
		return
	}

	out := make([]employeeSummary, 0, len(employees))
	for _, e := range employees {
		out = append(out, employeeSummary{ID: e.ID, Name: e.Name, Code: e.Code})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Create handles POST /add-employee. A password also creates a linked user.
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEmployee(w, r)
	if !ok {
		return
	}

	var account *store.Account
	if req.Password != "" {
		if err := model.ValidatePassword(req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		role := req.Role
		if role == "" {
			role = model.RoleEmployee
		}
		account = &store.Account{Name: strings.TrimSpace(req.Name), PasswordHash: hash, Role: role}
	}

	employee, err := store.AddEmployee(r.Context(), h.DB, req.input(), account)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, http.StatusConflict, "employee code already exists")
		return
	}
	if err != nil {
		dbError(w, "failed to add employee", err)
		return
	}

	invalidate(h.Cache, segEmployees, segUsers)
	slog.Info("employee created", "id", employee.ID, "code", *employee.Code)
	jsonResponse(w, http.StatusCreated, map[string]any{
		"message":     "Employee added successfully",
		"id":          employee.ID,
		"employee_id": employee.Code,
	})
}

// Update handles PUT /edit-employee/{id}.
func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	req, ok := decodeEmployee(w, r)
	if !ok {
		return
	}

	err := store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		if err := store.UpdateEmployee(r.Context(), tx, id, req.input()); err != nil {
			return err
		}
		if req.Role == "" {
			return nil
		}
		return store.UpdateEmployeeRole(r.Context(), tx, id, req.Role)
	})
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Employee not found")
		return
	}
	if err != nil {
		dbError(w, "failed to update employee", err)
		return
	}

	// Article and return lists join employee columns.
	invalidate(h.Cache, segEmployees, segUsers, segProducts, segReceipts, segReturns)
	jsonMessage(w, http.StatusOK, "Employee updated successfully")
}

// UpdateProfile handles PUT /edit-employee-profile/{id}. When the employee
// does not exist it is created with a timestamp code. Employees may only edit
// their own profile.
func (h *EmployeesHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	caller, allowed, err := h.authorizeEmployee(r, id)
	if err != nil {
		dbError(w, "failed to check permissions", err)
		return
	}
	if !allowed {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	req, ok := decodeEmployee(w, r)
	if !ok {
		return
	}

	employee, created, err := store.SaveEmployeeProfile(r.Context(), h.DB, id, req.input(), h.now())
	if err != nil {
		dbError(w, "failed to save employee profile", err)
		return
	}

	// Link an unlinked caller to the profile they just created.
	if created && caller != nil && caller.EmployeeID == nil && caller.Role == model.RoleEmployee {
		if err := store.UpdateUser(r.Context(), h.DB, caller.ID, store.UserUpdate{EmployeeID: &employee.ID}); err != nil {
			dbError(w, "failed to link employee profile", err)
			return
		}
	}

	invalidate(h.Cache, segEmployees, segUsers, segProducts, segReceipts, segReturns)

	status, message := http.StatusOK, "Profile updated successfully"
	if created {
		status, message = http.StatusCreated, "Profile created successfully"
	}
	jsonResponse(w, status, map[string]any{"message": message, "employee": employee})
}

// Delete handles DELETE /delete-employee/{id}. Linked users and articles
// keep their rows.
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	err := store.DeleteEmployee(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Employee not found")
		return
	}
	if err != nil {
		dbError(w, "failed to delete employee", err)
		return
	}

	invalidate(h.Cache, segEmployees, segUsers, segProducts, segReceipts, segReturns)
	jsonMessage(w, http.StatusOK, "Employee deleted successfully")
}

// UploadPhoto handles PUT /employee-photo/{id}.
func (h *EmployeesHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	_, allowed, err := h.authorizeEmployee(r, id)
	if err != nil {
		dbError(w, "failed to check permissions", err)
		return
	}
	if !allowed {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUpload+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	data, mime, err := imaging.Photo(file)
	if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
		jsonError(w, http.StatusBadRequest, "photo must be a JPEG or PNG up to 5 MB")
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = store.SetEmployeePhoto(r.Context(), h.DB, id, data, mime)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Employee not found")
		return
	}
	if err != nil {
		dbError(w, "failed to save photo", err)
		return
	}

	invalidate(h.Cache, segEmployees)
	jsonMessage(w, http.StatusOK, "Photo uploaded")
}

// GetPhoto handles GET /employee-photo/{id}.
func (h *EmployeesHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	data, mime, err := store.GetEmployeePhoto(r.Context(), h.DB, id)
	if err != nil {
		dbError(w, "failed to get photo", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

// authorizeEmployee reports whether the caller may change employee id.
// Supervisors and admins may change anyone; employees only their own record,
// or create one when their account has none.
func (h *EmployeesHandler) authorizeEmployee(r *http.Request, id int64) (*model.User, bool, error) {
	claims := GetClaims(r.Context())
	if claims == nil {
		return nil, false, nil
	}
	if model.RoleAtLeast(claims.Role, model.RoleSupervisor) {
		return nil, true, nil
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil || user == nil {
		return nil, false, err
	}
	if user.EmployeeID != nil {
		return user, *user.EmployeeID == id, nil
	}

	existing, err := store.GetEmployee(r.Context(), h.DB, id)
	if err != nil {
		return nil, false, err
	}
	return user, existing == nil, nil
}

func (h *EmployeesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
