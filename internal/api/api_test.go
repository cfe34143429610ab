package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetdesk/internal/audit"
	"github.com/erazemk/assetdesk/internal/auth"
	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/db"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/notify"
	"github.com/erazemk/assetdesk/internal/store"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	DB    *sql.DB
	Cache *cache.Cache
	Hub   *notify.Hub
	// Token belongs to the admin account.
	Token string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	c := cache.New(time.Minute)
	hub := notify.NewHub(16)
	auditLog := audit.New(database, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go hub.Run(ctx)
	go func() {
		auditLog.Run(ctx)
		close(done)
	}()

	server := httptest.NewServer(NewRouter(Config{
		DB:        database,
		JWTSecret: testJWTSecret,
		Cache:     c,
		Hub:       hub,
		Audit:     auditLog,
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})

	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, database, "admin", hash, model.RoleAdmin, nil)
	require.NoError(t, err)

	s := &testServer{Server: server, DB: database, Cache: c, Hub: hub}
	s.Token = s.login(t, "admin", "password")
	return s
}

func (s *testServer) login(t *testing.T, name, password string) string {
	t.Helper()
	status, body := s.do(t, "POST", "/login", "", map[string]string{"name": name, "password": password})
	require.Equal(t, http.StatusOK, status, string(body))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// tokenFor creates a user with the given role and returns a token for it.
func (s *testServer) tokenFor(t *testing.T, name, role string, employeeID *int64) string {
	t.Helper()
	id, err := store.CreateUser(context.Background(), s.DB, name, "", role, employeeID)
	require.NoError(t, err)
	token, err := auth.GenerateToken(testJWTSecret, id, name, role)
	require.NoError(t, err)
	return token
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	resp := s.request(t, method, path, token, body)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func (s *testServer) dialEvents(t *testing.T) *websocket.Conn {
	t.Helper()
	before := s.Hub.Len()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + s.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The server registers the client after the handshake completes.
	require.Eventually(t, func() bool { return s.Hub.Len() > before }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) notify.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg notify.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPing(t *testing.T) {
	s := setupTestServer(t)

	status, body := s.do(t, "GET", "/ping", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"pong"}`, string(body))
}

func TestLogin(t *testing.T) {
	s := setupTestServer(t)

	status, body := s.do(t, "POST", "/login", "", map[string]string{"name": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"Invalid password"}`, string(body))

	status, body = s.do(t, "POST", "/login", "", map[string]string{"name": "nobody", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"User not found"}`, string(body))

	status, body = s.do(t, "POST", "/login", "", map[string]string{"name": "ADMIN", "password": "password"})
	require.Equal(t, http.StatusOK, status)
	resp := decode[map[string]any](t, body)
	assert.Equal(t, model.RoleAdmin, resp["role"])
	assert.Equal(t, "admin", resp["name"])
	assert.NotEmpty(t, resp["token"])
}

func TestEmployeeLoginProvisionsOnce(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	e, err := store.AddEmployee(ctx, s.DB, model.EmployeeInput{Name: "Jane Doe"}, nil)
	require.NoError(t, err)

	for range 2 {
		status, body := s.do(t, "POST", "/employee-login", "", map[string]string{"employee_id": *e.Code})
		require.Equal(t, http.StatusOK, status, string(body))
		resp := decode[map[string]any](t, body)
		assert.Equal(t, model.RoleEmployee, resp["role"])
		assert.Equal(t, "Jane Doe", resp["name"])
	}

	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE employee_id = ?`, e.ID).Scan(&n))
	assert.Equal(t, 1, n)

	u, err := store.GetUserByEmployee(ctx, s.DB, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "", u.PasswordHash)

	status, _ := s.do(t, "POST", "/employee-login", "", map[string]string{"employee_id": "EMP999"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProvisionedEmployeeCannotUsePasswordLogin(t *testing.T) {
	s := setupTestServer(t)
	e, _ := store.AddEmployee(context.Background(), s.DB, model.EmployeeInput{Name: "Jane"}, nil)
	s.do(t, "POST", "/employee-login", "", map[string]string{"employee_id": *e.Code})

	status, _ := s.do(t, "POST", "/login", "", map[string]string{"name": "Jane", "password": "anything"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUnauthenticatedAccess(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/get-products", "/get-employees", "/api/returns/all", "/api/logs"} {
		status, _ := s.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}

	status, _ := s.do(t, "GET", "/get-products", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleBasedAccess(t *testing.T) {
	s := setupTestServer(t)
	employee := s.tokenFor(t, "worker", model.RoleEmployee, nil)
	supervisor := s.tokenFor(t, "boss", model.RoleSupervisor, nil)

	tests := []struct {
		token, method, path string
		want                int
	}{
		{employee, "GET", "/get-users", http.StatusForbidden},
		{employee, "GET", "/get-employees", http.StatusForbidden},
		{employee, "GET", "/api/logs", http.StatusForbidden},
		{employee, "GET", "/export-products/pdf", http.StatusForbidden},
		{employee, "GET", "/get-products", http.StatusOK},
		{employee, "GET", "/api/returns/all", http.StatusForbidden},
		{supervisor, "GET", "/get-users", http.StatusOK},
		{supervisor, "GET", "/get-products/all", http.StatusOK},
		{supervisor, "POST", "/add-user", http.StatusForbidden},
		{supervisor, "DELETE", "/delete-user/1", http.StatusForbidden},
	}
	for _, tt := range tests {
		status, body := s.do(t, tt.method, tt.path, tt.token, map[string]string{})
		assert.Equal(t, tt.want, status, "%s %s: %s", tt.method, tt.path, body)
	}
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	s := setupTestServer(t)
	token := s.tokenFor(t, "sup", model.RoleSupervisor, nil)
	sup, err := store.GetUserByName(context.Background(), s.DB, "sup")
	require.NoError(t, err)

	status, _ := s.do(t, "GET", "/get-employees", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "DELETE", fmt.Sprintf("/delete-user/%d", sup.ID), s.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "GET", "/get-employees", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(t, "DELETE", "/delete-employee/999", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDemotedUserLosesRole(t *testing.T) {
	s := setupTestServer(t)
	token := s.tokenFor(t, "root", model.RoleAdmin, nil)
	root, err := store.GetUserByName(context.Background(), s.DB, "root")
	require.NoError(t, err)

	status, _ := s.do(t, "GET", "/get-users", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "PUT", fmt.Sprintf("/edit-user/%d", root.ID), s.Token, map[string]string{"role": model.RoleEmployee})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "GET", "/get-users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, "POST", "/add-user", token, map[string]string{
		"name": "mallory", "password": "secret1", "role": model.RoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestEmployeeLoginRefreshesEmployeeList(t *testing.T) {
	s := setupTestServer(t)
	e, err := store.AddEmployee(context.Background(), s.DB, model.EmployeeInput{Name: "Jane"}, nil)
	require.NoError(t, err)

	_, body := s.do(t, "GET", "/get-employees", s.Token, nil)
	list := decode[[]model.Employee](t, body)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].UserID)

	status, _ := s.do(t, "POST", "/employee-login", "", map[string]string{"employee_id": *e.Code})
	require.Equal(t, http.StatusOK, status)

	resp := s.request(t, "GET", "/get-employees", s.Token, nil)
	defer resp.Body.Close()
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	var fresh []model.Employee
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fresh))
	require.Len(t, fresh, 1)
	assert.NotNil(t, fresh[0].UserID)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := setupTestServer(t)

	status, _ := s.do(t, "GET", "/get-users", s.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "POST", "/logout", s.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "GET", "/get-users", s.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// A fresh login still works.
	token := s.login(t, "admin", "password")
	status, _ = s.do(t, "GET", "/get-users", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRequestIDEchoed(t *testing.T) {
	s := setupTestServer(t)

	resp := s.request(t, "GET", "/ping", "", nil)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}
