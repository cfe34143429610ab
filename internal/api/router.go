package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/assetdesk/internal/audit"
	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/notify"
)

// Broadcaster publishes change events to connected clients.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// Config holds the services the router wires into handlers.
type Config struct {
	DB        *sql.DB
	JWTSecret string
	Cache     *cache.Cache
	Hub       *notify.Hub
	Audit     *audit.Logger
}

// Cache segments. Every cached GET path contains exactly the segments of the
// data it shows.
const (
	segProducts  = "products"
	segEmployees = "employees"
	segUsers     = "users"
	segReceipts  = "receipts"
	segReturns   = "returns"
)

func invalidate(c *cache.Cache, segments ...string) {
	for _, s := range segments {
		c.Invalidate(s)
	}
}

// RequireSelfOrRole lets callers below minimum only read paths whose
// {param} is the name of their linked employee.
func RequireSelfOrRole(param, minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(claims.Role, minimum) && !ownsName(CurrentUser(r.Context()), r.PathValue(param)) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ownsName reports whether name is the employee linked to user.
func ownsName(user *model.User, name string) bool {
	return user != nil && user.EmployeeID != nil && user.EmployeeName != "" && user.EmployeeName == name
}

// NewRouter creates the HTTP handler with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret, Cache: cfg.Cache}
	employeesHandler := &EmployeesHandler{DB: cfg.DB, Cache: cfg.Cache}
	usersHandler := &UsersHandler{DB: cfg.DB, Cache: cfg.Cache}
	productsHandler := &ProductsHandler{DB: cfg.DB, Cache: cfg.Cache, Events: cfg.Hub}
	returnsHandler := &ReturnsHandler{DB: cfg.DB, Cache: cfg.Cache, Events: cfg.Hub}
	logsHandler := &LogsHandler{DB: cfg.DB}
	exportsHandler := &ExportsHandler{DB: cfg.DB}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireSupervisor := RequireRole(model.RoleSupervisor)
	selfOrSupervisor := func(param string) func(http.Handler) http.Handler {
		return RequireSelfOrRole(param, model.RoleSupervisor)
	}
	cached := CacheMiddleware(cfg.Cache)
	audited := func(action string) func(http.Handler) http.Handler {
		return AuditMiddleware(cfg.Audit, action)
	}

	// Public.
	mux.HandleFunc("GET /ping", Ping)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /employee-login", authHandler.EmployeeLogin)

	mux.Handle("POST /logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /ws", authMW(http.HandlerFunc(cfg.Hub.ServeWS)))

	// Employees: manage (supervisor+), pick and edit own profile (all).
	mux.Handle("GET /get-employees", authMW(requireSupervisor(cached(http.HandlerFunc(employeesHandler.List)))))
	mux.Handle("GET /get-all-employees", authMW(cached(http.HandlerFunc(employeesHandler.ListSummaries))))
	mux.Handle("POST /add-employee", authMW(requireSupervisor(audited(model.ActionAddEmployee)(http.HandlerFunc(employeesHandler.Create)))))
	mux.Handle("PUT /edit-employee/{id}", authMW(requireSupervisor(audited(model.ActionEditEmployee)(http.HandlerFunc(employeesHandler.Update)))))
	mux.Handle("PUT /edit-employee-profile/{id}", authMW(audited(model.ActionEditEmployee)(http.HandlerFunc(employeesHandler.UpdateProfile))))
	mux.Handle("DELETE /delete-employee/{id}", authMW(requireSupervisor(audited(model.ActionDeleteEmployee)(http.HandlerFunc(employeesHandler.Delete)))))
	mux.Handle("PUT /employee-photo/{id}", authMW(http.HandlerFunc(employeesHandler.UploadPhoto)))
	mux.Handle("GET /employee-photo/{id}", authMW(http.HandlerFunc(employeesHandler.GetPhoto)))

	// Users: list (supervisor+), write (admin).
	mux.Handle("GET /get-users", authMW(requireSupervisor(cached(http.HandlerFunc(usersHandler.List)))))
	mux.Handle("POST /add-user", authMW(requireAdmin(audited(model.ActionAddUser)(http.HandlerFunc(usersHandler.Create)))))
	mux.Handle("PUT /edit-user/{id}", authMW(requireAdmin(audited(model.ActionEditUser)(http.HandlerFunc(usersHandler.Update)))))
	mux.Handle("DELETE /delete-user/{id}", authMW(requireAdmin(audited(model.ActionDeleteUser)(http.HandlerFunc(usersHandler.Delete)))))

	// Products (all roles).
	mux.Handle("POST /add-product", authMW(audited(model.ActionAddProduct)(http.HandlerFunc(productsHandler.Create))))
	mux.Handle("GET /get-products", authMW(cached(http.HandlerFunc(productsHandler.Page))))
	mux.Handle("GET /get-products/all", authMW(requireSupervisor(http.HandlerFunc(productsHandler.ListAdmin))))
	mux.Handle("GET /api/products/all", authMW(requireSupervisor(http.HandlerFunc(productsHandler.ListSupervisor))))
	mux.Handle("GET /get-products/{user}", authMW(selfOrSupervisor("user")(cached(http.HandlerFunc(productsHandler.ListByEmployee)))))
	mux.Handle("PUT /edit-product/{id}", authMW(audited(model.ActionEditProduct)(http.HandlerFunc(productsHandler.Update))))
	mux.Handle("DELETE /delete-product/{id}", authMW(audited(model.ActionDeleteProduct)(http.HandlerFunc(productsHandler.Delete))))

	// Returns (all roles).
	mux.Handle("POST /add-receipt", authMW(audited(model.ActionAddReceipt)(http.HandlerFunc(returnsHandler.Create))))
	mux.Handle("GET /get-receipts/{endUser}", authMW(selfOrSupervisor("endUser")(cached(http.HandlerFunc(returnsHandler.ListByEndUser)))))
	mux.Handle("GET /api/returns/all", authMW(requireSupervisor(http.HandlerFunc(returnsHandler.ListAll))))
	mux.Handle("GET /api/returns/{id}", authMW(cached(http.HandlerFunc(returnsHandler.Get))))
	mux.Handle("PUT /api/returns/{id}", authMW(audited(model.ActionUpdateReturn)(http.HandlerFunc(returnsHandler.Update))))

	// Logs and reports (supervisor+).
	mux.Handle("GET /api/logs", authMW(requireSupervisor(http.HandlerFunc(logsHandler.List))))
	mux.Handle("GET /export-products/{format}", authMW(requireSupervisor(http.HandlerFunc(exportsHandler.Products))))
	mux.Handle("GET /export-returns/{format}", authMW(requireSupervisor(http.HandlerFunc(exportsHandler.Returns))))

	return RequestIDMiddleware(LoggingMiddleware(RecoverMiddleware(mux)))
}
