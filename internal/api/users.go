package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/assetdesk/internal/auth"
	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/store"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	DB    *sql.DB
	Cache *cache.Cache
}

type createUserRequest struct {
	Name       string `json:"name" label:"Name" validate:"required"`
	Password   string `json:"password" label:"Password" validate:"required"`
	Role       string `json:"role" label:"Role" validate:"required"`
	EmployeeID *int64 `json:"employee_id"`
}

type updateUserRequest struct {
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	Password   *string `json:"password"`
	EmployeeID *int64  `json:"employee_id"`
}

// List handles GET /get-users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		dbError(w, "failed to list users", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /add-user. An employee-role user without an employee
// link gets a new employee record.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
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

	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := store.GetUserByName(r.Context(), h.DB, req.Name)
	if err != nil {
		dbError(w, "failed to look up user", err)
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "user already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.AddUser(r.Context(), h.DB, strings.TrimSpace(req.Name), hash, req.Role, req.EmployeeID)
	if err != nil {
		dbError(w, "failed to add user", err)
		return
	}

	invalidate(h.Cache, segUsers, segEmployees)
	slog.Info("user created", "user", GetClaims(r.Context()).Name, "new_user", user.Name, "role", user.Role)
	jsonResponse(w, http.StatusCreated, map[string]any{
		"message": "User added successfully",
		"id":      user.ID,
		"user":    user,
	})
}

// Update handles PUT /edit-user/{id}. Omitted fields are left unchanged.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := store.UserUpdate{Name: req.Name, Role: req.Role, EmployeeID: req.EmployeeID}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		jsonError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Password != nil && *req.Password != "" {
		if err := model.ValidatePassword(*req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		upd.PasswordHash = &hash
	}

	// Demoting the last admin would lock everyone out of user management.
	if req.Role != nil && *req.Role != model.RoleAdmin {
		if blocked, err := h.lastAdmin(r, id); err != nil {
			dbError(w, "failed to count admins", err)
			return
		} else if blocked {
			jsonError(w, http.StatusBadRequest, "cannot demote the last admin")
			return
		}
	}

	err := store.UpdateUser(r.Context(), h.DB, id, upd)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		dbError(w, "failed to update user", err)
		return
	}

	invalidate(h.Cache, segUsers, segEmployees)
	jsonMessage(w, http.StatusOK, "User updated successfully")
}

// Delete handles DELETE /delete-user/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if claims := GetClaims(r.Context()); claims != nil && claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	blocked, err := h.lastAdmin(r, id)
	if err != nil {
		dbError(w, "failed to count admins", err)
		return
	}
	if blocked {
		jsonError(w, http.StatusBadRequest, "cannot delete the last admin")
		return
	}

	err = store.DeleteUser(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		dbError(w, "failed to delete user", err)
		return
	}

	invalidate(h.Cache, segUsers, segEmployees)
	jsonMessage(w, http.StatusOK, "User deleted successfully")
}

// lastAdmin reports whether user id is the only admin.
func (h *UsersHandler) lastAdmin(r *http.Request, id int64) (bool, error) {
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil || user.Role != model.RoleAdmin {
		return false, err
	}
	n, err := store.CountUsersByRole(r.Context(), h.DB, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}
