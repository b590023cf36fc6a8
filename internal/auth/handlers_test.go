package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
)

type recordedEvent struct {
	kind  string
	actor audit.Actor
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeAuditor) add(kind string, actor audit.Actor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind, actor})
	return nil
}

func (f *fakeAuditor) LogSignIn(_ context.Context, a audit.Actor, _ string) error {
	return f.add("SIGN_IN", a)
}

func (f *fakeAuditor) LogSignUp(_ context.Context, a audit.Actor, _ string) error {
	return f.add("SIGN_UP", a)
}

func (f *fakeAuditor) LogSignOut(_ context.Context, a audit.Actor) error {
	return f.add("SIGN_OUT", a)
}

func (f *fakeAuditor) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}

type testEnv struct {
	router  *gin.Engine
	service *Service
	auditor *fakeAuditor
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	cfg := testAuthConfig()
	svc := NewService(db, cfg, testSecret)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	auditor := &fakeAuditor{}
	ctrl, err := NewController(svc, sm, auditor, cfg)
	require.NoError(t, err)
	t.Cleanup(ctrl.Stop)

	mw := NewMiddleware(svc, sm)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), sm.LoadAndSave())
	ctrl.RegisterRoutes(router)

	protected := router.Group("/", mw.Require())
	protected.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": Actor(c)})
	})
	protected.GET("/api/admin/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": Actor(c), "type": GetAuthType(c)})
	})
	protected.POST("/api/admin/things", mw.RequireWrite(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	return &testEnv{router: router, service: svc, auditor: auditor}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func form(method, path string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "sboapp_session" && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestProtectedRoutes_Anonymous(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/admin?q=x", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/admin?q=x"), w.Header().Get("Location"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/admin/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginPage_RedirectsToSetupWhenEmpty(t *testing.T) {
	env := setupTestRouter(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/setup", w.Header().Get("Location"))
}

func TestSetupLoginLogoutFlow(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/setup", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "first administrator")

	w = env.do(form(http.MethodPost, "/setup", url.Values{
		"email": {"owner@example.com"}, "password": {testPassword}, "confirm_password": {"mismatch-password"},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")

	w = env.do(form(http.MethodPost, "/setup", url.Values{
		"display_name": {"Owner"}, "email": {"owner@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
	require.NotNil(t, sessionCookie(w))

	// Setup is closed once an account exists.
	w = env.do(httptest.NewRequest(http.MethodGet, "/setup", nil))
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = env.do(form(http.MethodPost, "/login", url.Values{"email": {"owner@example.com"}, "password": {"wrong-password-123"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	w = env.do(form(http.MethodPost, "/login", url.Values{
		"email": {"owner@example.com"}, "password": {testPassword}, "next": {"/admin/books"},
	}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/books", w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Actor audit.Actor `json:"actor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "owner@example.com", body.Actor.Email)
	assert.Equal(t, "admin_1", body.Actor.ID)

	w = env.do(form(http.MethodPost, "/logout", nil, cookie))
	assert.Equal(t, http.StatusFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	w = env.do(req)
	assert.Equal(t, http.StatusFound, w.Code, "destroyed session no longer authenticates")

	assert.Equal(t, []string{"SIGN_UP", "SIGN_IN", "SIGN_OUT"}, env.auditor.kinds())
}

func TestLogin_OpenRedirectRejected(t *testing.T) {
	env := setupTestRouter(t)
	_, err := env.service.CreateAdmin("a@example.com", "", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)

	for _, next := range []string{"//evil.com", "https://evil.com", `/\evil.com`, "evil"} {
		w := env.do(form(http.MethodPost, "/login", url.Values{
			"email": {"a@example.com"}, "password": {testPassword}, "next": {next},
		}))
		assert.Equal(t, "/admin", w.Header().Get("Location"), next)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := setupTestRouter(t)
	_, err := env.service.CreateAdmin("a@example.com", "", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		env.do(form(http.MethodPost, "/login", url.Values{"email": {"a@example.com"}, "password": {"wrong-password-123"}}))
	}
	w := env.do(form(http.MethodPost, "/login", url.Values{"email": {"a@example.com"}, "password": {testPassword}}))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestIssueTokenAndBearerAccess(t *testing.T) {
	env := setupTestRouter(t)
	_, err := env.service.CreateAdmin("viewer@example.com", "", testPassword, entities.AdminRoleViewer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token",
		strings.NewReader(`{"email":"viewer@example.com","password":"`+testPassword+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	require.NotEmpty(t, tok.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"bearer"`)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/things", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	w = env.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code, "viewers cannot write")

	req = httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(`{"email":"viewer@example.com","password":"nope-nope-nope"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestCSRFMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	svc := NewService(db, testAuthConfig(), testSecret)
	admin, err := svc.CreateAdmin("a@example.com", "", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)
	token, _, err := svc.IssueToken(admin)
	require.NoError(t, err)

	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false, svc))
	router.GET("/form", func(c *gin.Context) { c.String(http.StatusOK, string(CSRFField(c))) })
	router.POST("/api/admin/books", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="gorilla.csrf.Token"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/books", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CSRF")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/books", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}
