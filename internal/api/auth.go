package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/assetdesk/internal/auth"
	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Cache     *cache.Cache
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type employeeLoginRequest struct {
	EmployeeID string `json:"employee_id"`
}

type loginResponse struct {
	Message    string `json:"message"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	UserID     int64  `json:"user_id"`
	EmployeeID string `json:"employee_id,omitempty"`
	Token      string `json:"token"`
}

// Ping handles GET /ping. The desktop shell polls it until the server is up.
func Ping(w http.ResponseWriter, r *http.Request) {
	jsonMessage(w, http.StatusOK, "pong")
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "name and password required")
		return
	}

	user, err := store.GetUserByName(r.Context(), h.DB, req.Name)
	if err != nil {
		dbError(w, "failed to look up user", err)
		return
	}
	if user == nil {
		jsonMessage(w, http.StatusUnauthorized, "User not found")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.Warn("login failed", "user", req.Name, "remote", r.RemoteAddr)
		jsonMessage(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	h.issue(w, user, "")
}

// EmployeeLogin handles POST /employee-login. An employee without an account
// gets an employee-role user on first login.
func (h *AuthHandler) EmployeeLogin(w http.ResponseWriter, r *http.Request) {
	var req employeeLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := strings.TrimSpace(req.EmployeeID)
	if code == "" {
		jsonError(w, http.StatusBadRequest, "employee_id required")
		return
	}

	employee, err := store.GetEmployeeByCode(r.Context(), h.DB, code)
	if err != nil {
		dbError(w, "failed to look up employee", err)
		return
	}
	if employee == nil {
		jsonMessage(w, http.StatusUnauthorized, "Invalid employee ID")
		return
	}

	user, created, err := store.EmployeeUser(r.Context(), h.DB, employee)
	if err != nil {
		dbError(w, "failed to provision employee user", err)
		return
	}
	if created {
		invalidate(h.Cache, segEmployees, segUsers)
		slog.Info("employee account created", "employee", code, "user_id", user.ID)
	}

	h.issue(w, user, code)
}

func (h *AuthHandler) issue(w http.ResponseWriter, user *model.User, code string) {
	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Name, user.Role)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.Name, "role", user.Role)
	jsonResponse(w, http.StatusOK, loginResponse{
		Message:    "Login successful",
		Role:       user.Role,
		Name:       user.Name,
		UserID:     user.ID,
		EmployeeID: code,
		Token:      token,
	})
}

// Logout handles POST /logout. The token stays revoked until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeSession(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		slog.Error("failed to revoke session", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	slog.Info("user logged out", "user", claims.Name)
	jsonMessage(w, http.StatusOK, "Logged out")
}
