package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-api/internal/auth"
	"user-api/internal/config"
	"user-api/internal/repository/memory"
	"user-api/internal/repository/sqlite"
	"user-api/internal/service"
	"user-api/internal/validation"
)

const strongPassword = "Str0ng!Pass"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *sql.DB
	tokens *auth.TokenIssuer
}

func defaultValidation() config.Validation {
	var v config.Validation
	v.Login.RequireName = true
	v.Login.StrongPassword = true
	v.Login.PasswordMinLength = 8
	v.Login.RequireLower = true
	v.Login.RequireUpper = true
	v.Login.RequireDigit = true
	v.Login.RequireSymbol = true
	v.Register.UsernameMinLength = 3
	v.Register.PasswordMinLength = 4
	return v
}

func newTestEnv(t *testing.T, mutate ...func(v *config.Validation)) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(context.Background()))

	v := defaultValidation()
	for _, m := range mutate {
		m(&v)
	}
	rules, err := validation.NewRules(v)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewTokenIssuer("test-secret", auth.DefaultTokenTTL)

	handler := NewHandler(
		service.NewAuthService(users, hasher, tokens),
		service.NewUserService(users, hasher),
		service.NewProductService(memory.NewProductRepository()),
		rules,
		tokens,
		logger,
	)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	return &testEnv{router: router, db: db, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (e *testEnv) register(t *testing.T, name, username, password string) map[string]any {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/register", map[string]any{
		"Name": name, "Username": username, "Password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestRegister_Created(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", map[string]any{
		"Name": "Ann", "Username": "ann01", "Password": "pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	body := decode(t, rec)
	assert.Equal(t, "User registered successfully", body["msg"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann01", user["username"])
	assert.Equal(t, "Ann", user["name"])
	assert.NotZero(t, user["id"])
}

func TestRegister_NormalizesLikeLogin(t *testing.T) {
	env := newTestEnv(t)

	body := env.register(t, "  Ann ", " ann01  ", "pass")
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann01", user["username"])
	assert.Equal(t, "Ann", user["name"])
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann01", "pass")

	rec := env.do(t, http.MethodPost, "/api/register", map[string]any{
		"Name": "Someone", "Username": "ann01", "Password": "other",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", decode(t, rec)["msg"])

	list := decode(t, env.do(t, http.MethodGet, "/api/users", nil))
	assert.Len(t, list["data"], 1)
}

func TestRegister_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", map[string]any{"Username": "an", "Password": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["msg"])
	assert.Equal(t, map[string]any{
		"Name":     []any{"Name is required"},
		"Username": []any{"Username must be at least 3 characters"},
		"Password": []any{"Password is required"},
	}, body["errors"])
}

func TestPasswordsOverBcryptLimitAreRejected(t *testing.T) {
	env := newTestEnv(t)
	long := strings.Repeat("a", 80)
	wantErrors := map[string]any{"Password": []any{"Password must be at most 72 bytes"}}

	rec := env.do(t, http.MethodPost, "/api/register", map[string]any{
		"Name": "Ann", "Username": "ann01", "Password": long,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, wantErrors, decode(t, rec)["errors"])

	env.register(t, "Ann", "ann01", strings.Repeat("a", 72))

	rec = env.do(t, http.MethodPost, "/api/users/create-user", map[string]any{
		"Name": "Bob", "Username": "bob01", "Password": long,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, wantErrors, decode(t, rec)["errors"])

	rec = env.do(t, http.MethodPut, "/api/users/update-user/1", map[string]any{"Password": long})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, wantErrors, decode(t, rec)["errors"])

	list := decode(t, env.do(t, http.MethodGet, "/api/users", nil))
	assert.Len(t, list["data"], 1)
}

func TestRegister_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	for _, payload := range []string{`{"Name":`, `["not","an","object"]`, ``} {
		rec := env.do(t, http.MethodPost, "/api/register", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %q", payload)
		assert.Equal(t, "Invalid request body", decode(t, rec)["msg"])
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "Ann", "ann01", strongPassword)["user"].(map[string]any)

	rec := env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": strongPassword, "Name": "Ann",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	body := decode(t, rec)
	assert.Equal(t, "Login successful", body["msg"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	user := body["user"].(map[string]any)
	assert.Equal(t, registered["id"], user["id"])
	assert.Equal(t, "ann01", user["username"])
	assert.Equal(t, "Ann", user["name"])

	claim, err := env.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ann01", claim.Username)

	expiresAt, err := time.Parse(time.RFC3339, body["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann01", strongPassword)

	rec := env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": "Wr0ng!Pass", "Name": "x",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid password", decode(t, rec)["msg"])
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ghost", "Password": strongPassword, "Name": "x",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["msg"])
}

func TestLogin_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", map[string]any{"Username": "  ", "Password": "weak"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{
		"Username": []any{"Please enter Username"},
		"Password": []any{"Please enter strong Password"},
		"Name":     []any{"Please enter the Name"},
	}, decode(t, rec)["errors"])
}

// Under the default login rules a weak password is rejected before the user
// is looked up, so "pass" registered via /register cannot be used to log in.
func TestLogin_DefaultPolicyRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann01", "pass")

	for _, password := range []string{"pass", "wrong"} {
		rec := env.do(t, http.MethodPost, "/api/login", map[string]any{
			"Username": "ann01", "Password": password, "Name": "x",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "password %q", password)
	}
}

// With the strong-password check relaxed, any password accepted at
// registration can log in, and a wrong one is a 401.
func TestLogin_RelaxedPolicyRoundTrip(t *testing.T) {
	env := newTestEnv(t, func(v *config.Validation) { v.Login.StrongPassword = false })

	rec := env.do(t, http.MethodPost, "/api/register", map[string]any{
		"Name": "Ann", "Username": "ann01", "Password": "pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ann01", decode(t, rec)["user"].(map[string]any)["username"])

	rec = env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": "pass", "Name": "Ann",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": "wrong", "Name": "x",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Login only needs a Name while validation.login.requirename is on.
func TestLogin_NameOptionalWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(v *config.Validation) { v.Login.RequireName = false })
	env.register(t, "Ann", "ann01", strongPassword)

	rec := env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": strongPassword,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Close())

	rec := env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": strongPassword, "Name": "Ann",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Error logging in", body["msg"])
	assert.NotEmpty(t, body["error"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann01", strongPassword)
	login := decode(t, env.do(t, http.MethodPost, "/api/login", map[string]any{
		"Username": "ann01", "Password": strongPassword, "Name": "Ann",
	}))
	token := login["token"].(string)

	rec := env.do(t, http.MethodGet, "/api/users/me", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann01", decode(t, rec)["data"].(map[string]any)["username"])

	rec = env.do(t, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users/me", nil, "Authorization", "Bearer "+token+"x")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, _, err := other.Issue(auth.Claim{UserID: 1, Username: "ann01"})
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/users/me", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/create-user", map[string]any{
		"Name": "Bob", "Username": "bob01", "Password": "plain",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")
	created := decode(t, rec)["data"].(map[string]any)
	id := int64(created["id"].(float64))

	var stored string
	require.NoError(t, env.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, id).Scan(&stored))
	assert.NotEqual(t, "plain", stored)

	rec = env.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User data fetched successfully", decode(t, rec)["msg"])

	rec = env.do(t, http.MethodGet, "/api/users/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User with ID 1 found", decode(t, rec)["msg"])

	rec = env.do(t, http.MethodPut, "/api/users/update-user/1", map[string]any{"Name": "Robert"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)
	assert.Equal(t, "User updated successfully", updated["msg"])
	assert.Equal(t, "Robert", updated["data"].(map[string]any)["name"])
	assert.Equal(t, "bob01", updated["data"].(map[string]any)["username"])

	rec = env.do(t, http.MethodDelete, "/api/users/delete-user/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User with ID 1 deleted successfully", decode(t, rec)["msg"])

	rec = env.do(t, http.MethodGet, "/api/users/1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User with ID 1 not found", decode(t, rec)["msg"])
}

func TestUsers_StoreErrorsAre500(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/users/update-user/42", map[string]any{"Name": "x"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Error updating user", body["msg"])
	assert.NotEmpty(t, body["error"])

	rec = env.do(t, http.MethodDelete, "/api/users/delete-user/42", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error deleting user", decode(t, rec)["msg"])

	env.do(t, http.MethodPost, "/api/users/create-user", map[string]any{"Name": "A", "Username": "dup", "Password": "p"})
	rec = env.do(t, http.MethodPost, "/api/users/create-user", map[string]any{"Name": "B", "Username": "dup", "Password": "p"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error creating user", decode(t, rec)["msg"])

	require.NoError(t, env.db.Close())
	rec = env.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching users", decode(t, rec)["msg"])
}

func TestUsers_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/users/abc", "/api/users/0"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	rec := env.do(t, http.MethodDelete, "/api/users/delete-user/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Equal(t, "List of products", list["message"])
	assert.NotEmpty(t, list["data"])

	rec = env.do(t, http.MethodGet, "/api/products/product?productId=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	one := decode(t, rec)
	assert.Equal(t, "Product with id 2 found", one["message"])
	assert.Equal(t, float64(2), one["data"].(map[string]any)["id"])

	for _, query := range []string{"?productId=abc", "", "?productId=", "?productId=-"} {
		rec = env.do(t, http.MethodGet, "/api/products/product"+query, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Equal(t, "Invalid or missing productId query parameter", decode(t, rec)["message"])
	}

	// trailing characters after the number are ignored
	rec = env.do(t, http.MethodGet, "/api/products/product?productId=2abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product with id 2 found", decode(t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/api/products/product?productId=999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product with id 999 not found", decode(t, rec)["message"])
}

func TestRequestIDAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = env.do(t, http.MethodGet, "/api/health", nil, requestIDHeader, "req-123")
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = env.do(t, http.MethodOptions, "/api/login", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decode(t, rec)["msg"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/login", map[string]any{})

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "userapi_auth_attempts_total")
	assert.Contains(t, rec.Body.String(), "userapi_http_requests_total")
}
