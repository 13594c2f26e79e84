package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/leadbox/leadbox/internal/backup"
	"github.com/leadbox/leadbox/internal/model"
	"github.com/leadbox/leadbox/internal/openapi"
	"github.com/leadbox/leadbox/internal/ratelimit"
	"github.com/leadbox/leadbox/internal/service"
	"github.com/leadbox/leadbox/internal/store"
	"github.com/leadbox/leadbox/internal/ui"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testAdminUser = "admin"
	testPassword  = "supersecretpassword"
	testBackupKey = "backup-key-123"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingTrigger struct{ calls atomic.Int32 }

func (c *countingTrigger) TriggerBackup() { c.calls.Add(1) }

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	clock   *clock
	trigger *countingTrigger
}

// newTestEnv creates a fully wired Server over an in-memory store, a limiter
// on a fake clock and the real embedded templates.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, func(*Config, *Deps) {})
}

func newTestEnvWith(t *testing.T, customize func(*Config, *Deps)) *testEnv {
	t.Helper()

	s, err := store.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	auth, err := service.NewAuthService(service.AuthConfig{
		Username:      testAdminUser,
		Password:      testPassword,
		SessionSecret: "test-secret-for-jwt-integration-tests",
		BackupKey:     testBackupKey,
		HashCost:      bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter, err := ratelimit.NewCooldown(5*time.Second, 100, ratelimit.WithClock(c.Now))
	if err != nil {
		t.Fatalf("NewCooldown: %v", err)
	}

	renderer, err := ui.NewRenderer()
	if err != nil {
		t.Fatalf("ui.NewRenderer: %v", err)
	}

	trigger := &countingTrigger{}
	cfg := DefaultConfig()
	cfg.CookieSecure = false
	cfg.CORSOrigins = []string{"https://example.com"}
	deps := Deps{
		Store:    s,
		Auth:     auth,
		Limiter:  limiter,
		Renderer: renderer,
		Backup:   trigger,
		OpenAPI:  openapi.Generate("test", "http://localhost"),
	}
	customize(&cfg, &deps)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		server:  New(cfg, deps, logger),
		store:   s,
		clock:   c,
		trigger: trigger,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) submit(t *testing.T, remoteAddr, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	return e.do(t, req)
}

// login performs a real form login and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {testAdminUser}, "password": {testPassword}}
	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := e.do(t, req)
	assertStatus(t, rr, http.StatusFound)

	for _, c := range rr.Result().Cookies() {
		if c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (e *testEnv) adminGet(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return e.do(t, req)
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	n, err := e.store.CountLeads(context.Background(), "")
	if err != nil {
		t.Fatalf("CountLeads: %v", err)
	}
	return n
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Status
}

const validBody = `{"name":"Alice","phone":"555-1234","message":"Call me"}`

// ---------------------------------------------------------------------------
// Contact submissions
// ---------------------------------------------------------------------------

func TestContactPersistsOneNewLead(t *testing.T) {
	env := newTestEnv(t)

	rr := env.submit(t, "10.0.0.1:1000", validBody)
	assertStatus(t, rr, http.StatusOK)
	if got := decodeStatus(t, rr); got != model.ResultSuccess {
		t.Errorf("status = %q", got)
	}

	leads, _ := env.store.ListLeads(context.Background(), model.LeadFilter{})
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(leads))
	}
	if leads[0].Status != model.StatusNew {
		t.Errorf("status = %q, want new", leads[0].Status)
	}
}

func TestContactInvalidLeavesStoreUnchanged(t *testing.T) {
	env := newTestEnv(t)

	bodies := []string{
		`{"phone":"1","message":"m"}`,
		`{"name":"` + strings.Repeat("n", 101) + `","phone":"1","message":"m"}`,
		`{"name":"a","phone":"` + strings.Repeat("1", 21) + `","message":"m"}`,
		`{"name":"a","phone":"1","message":"` + strings.Repeat("m", 1001) + `"}`,
	}
	for i, body := range bodies {
		// Distinct addresses so the cooldown does not mask validation.
		rr := env.submit(t, fmt.Sprintf("10.0.1.%d:1000", i+1), body)
		assertStatus(t, rr, http.StatusBadRequest)
		if got := decodeStatus(t, rr); got != model.ResultError {
			t.Errorf("status = %q, want error", got)
		}
	}
	if n := env.count(t); n != 0 {
		t.Errorf("store has %d leads, want 0", n)
	}
}

func TestContactCooldown(t *testing.T) {
	env := newTestEnv(t)

	assertStatus(t, env.submit(t, "10.0.0.1:1000", validBody), http.StatusOK)

	env.clock.Advance(2 * time.Second)
	rr := env.submit(t, "10.0.0.1:2000", validBody)
	assertStatus(t, rr, http.StatusTooManyRequests)
	if got := decodeStatus(t, rr); got != model.ResultTooManyRequests {
		t.Errorf("status = %q", got)
	}
	if n := env.count(t); n != 1 {
		t.Errorf("store has %d leads, want 1", n)
	}

	// Another client is unaffected.
	assertStatus(t, env.submit(t, "10.0.0.2:1000", validBody), http.StatusOK)

	env.clock.Advance(4 * time.Second)
	assertStatus(t, env.submit(t, "10.0.0.1:3000", validBody), http.StatusOK)
	if n := env.count(t); n != 3 {
		t.Errorf("store has %d leads, want 3", n)
	}
}

func TestContactCooldownUsesForwardedIPWhenTrusted(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *Config, _ *Deps) { cfg.TrustProxy = true })

	send := func(forwarded string) int {
		req := httptest.NewRequest("POST", "/contact", strings.NewReader(validBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		req.RemoteAddr = "127.0.0.1:9999" // the proxy
		return env.do(t, req).Code
	}

	if send("203.0.113.1") != http.StatusOK || send("203.0.113.2") != http.StatusOK {
		t.Fatal("distinct forwarded clients should both be accepted")
	}
	if send("203.0.113.1") != http.StatusTooManyRequests {
		t.Error("repeat from same forwarded client should be throttled")
	}
}

func TestContactCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/contact", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := env.do(t, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Admin session
// ---------------------------------------------------------------------------

func TestAdminRoutesRedirectWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin", "/admin/mark/1", "/admin/delete/1", "/admin/download", "/admin/logout"} {
		rr := env.adminGet(t, path, nil)
		if rr.Code != http.StatusFound {
			t.Errorf("%s: status = %d, want 302", path, rr.Code)
			continue
		}
		if loc := rr.Header().Get("Location"); loc != "/admin/login" {
			t.Errorf("%s: Location = %q", path, loc)
		}
	}
}

func TestAdminRejectsForgedCookie(t *testing.T) {
	env := newTestEnv(t)
	rr := env.adminGet(t, "/admin", &http.Cookie{Name: "leadbox_session", Value: "not-a-jwt"})
	assertStatus(t, rr, http.StatusFound)
}

func TestLoginFailureRerendersForm(t *testing.T) {
	env := newTestEnv(t)
	form := url.Values{"username": {testAdminUser}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := env.do(t, req)

	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "Invalid credentials") {
		t.Error("login page does not show the error")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("failed login must not set a cookie")
	}
}

func TestAdminFlow(t *testing.T) {
	env := newTestEnv(t)
	assertStatus(t, env.submit(t, "10.0.0.1:1", `{"name":"Alice","phone":"555-1234","message":"Hello, \"friend\""}`), http.StatusOK)
	assertStatus(t, env.submit(t, "10.0.0.2:1", `{"name":"Bob","phone":"000-5551","message":"Hi"}`), http.StatusOK)
	assertStatus(t, env.submit(t, "10.0.0.3:1", `{"name":"Carol","phone":"777","message":"Nothing"}`), http.StatusOK)

	cookie := env.login(t)

	// Dashboard and search.
	rr := env.adminGet(t, "/admin", cookie)
	assertStatus(t, rr, http.StatusOK)
	for _, want := range []string{"Alice", "Bob", "Carol", "Total: 3"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	rr = env.adminGet(t, "/admin?search=555", cookie)
	assertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	if !strings.Contains(body, "Alice") || !strings.Contains(body, "Bob") || strings.Contains(body, "Carol") {
		t.Errorf("search 555 should match Alice and Bob only")
	}

	// Mark contacted, twice.
	leads, _ := env.store.ListLeads(context.Background(), model.LeadFilter{Search: "alice"})
	alice := leads[0]
	for i := 0; i < 2; i++ {
		rr = env.adminGet(t, "/admin/mark/"+itoa(alice.ID), cookie)
		assertStatus(t, rr, http.StatusFound)
	}
	got, _ := env.store.GetLead(context.Background(), alice.ID)
	if got.Status != model.StatusContacted {
		t.Errorf("status = %q, want contacted", got.Status)
	}

	// Download round-trips through a CSV parser.
	rr = env.adminGet(t, "/admin/download", cookie)
	assertStatus(t, rr, http.StatusOK)
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "leads_backup_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d CSV records, want header + 3", len(records))
	}
	var sawQuoted bool
	for _, rec := range records[1:] {
		if rec[3] == `Hello, "friend"` {
			sawQuoted = true
		}
	}
	if !sawQuoted {
		t.Error("message with comma and quote did not round-trip")
	}

	// Delete.
	rr = env.adminGet(t, "/admin/delete/"+itoa(alice.ID), cookie)
	assertStatus(t, rr, http.StatusFound)
	if n := env.count(t); n != 2 {
		t.Errorf("store has %d leads after delete, want 2", n)
	}

	// Logout clears the cookie; a client that honours it is anonymous again.
	rr = env.adminGet(t, "/admin/logout", cookie)
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q", loc)
	}
	cleared := rr.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("logout cookies = %+v", cleared)
	}
	assertStatus(t, env.adminGet(t, "/admin", nil), http.StatusFound)
}

func TestDownloadNoData(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := env.adminGet(t, "/admin/download", cookie)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "no data available" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *Config, _ *Deps) { cfg.LoginPerMinute = 2 })

	form := url.Values{"username": {"x"}, "password": {"y"}}.Encode()
	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "192.0.2.10:5000"
		last = env.do(t, req).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third attempt status = %d, want 429", last)
	}
}

// ---------------------------------------------------------------------------
// Backup trigger
// ---------------------------------------------------------------------------

func TestBackupWrongKey(t *testing.T) {
	env := newTestEnv(t)
	rr := env.adminGet(t, "/admin/backup?key=wrong", nil)
	assertStatus(t, rr, http.StatusForbidden)
	if rr.Body.String() != "Unauthorized" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if env.trigger.calls.Load() != 0 {
		t.Error("dispatch must not be invoked with a wrong key")
	}
}

func TestBackupCorrectKey(t *testing.T) {
	env := newTestEnv(t)
	rr := env.adminGet(t, "/admin/backup?key="+testBackupKey, nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "Backup triggered" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if env.trigger.calls.Load() != 1 {
		t.Errorf("trigger calls = %d, want 1", env.trigger.calls.Load())
	}
}

func TestBackupProviderFailureDoesNotAffectResponse(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer provider.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := backup.NewRunner(logger)

	env := newTestEnvWith(t, func(_ *Config, deps *Deps) {
		mailer := backup.NewHTTPMailer(backup.MailerConfig{APIKey: "k", Endpoint: provider.URL})
		deps.Backup = backup.NewService(deps.Store, backup.NewDispatcher(mailer, "from@x", "to@x"), runner, logger)
	})
	assertStatus(t, env.submit(t, "10.0.0.1:1", validBody), http.StatusOK)

	// The provider is blocked, so a response here proves the trigger did not wait.
	rr := env.adminGet(t, "/admin/backup?key="+testBackupKey, nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "Backup triggered" {
		t.Errorf("body = %q", rr.Body.String())
	}

	close(release)
	runner.Wait()
	if hits.Load() != 1 {
		t.Errorf("provider hits = %d, want 1", hits.Load())
	}
}

// ---------------------------------------------------------------------------
// Probes and misc
// ---------------------------------------------------------------------------

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	assertStatus(t, env.adminGet(t, "/healthz", nil), http.StatusOK)
	assertStatus(t, env.adminGet(t, "/readyz", nil), http.StatusOK)
}

func TestOpenAPIServed(t *testing.T) {
	env := newTestEnv(t)
	rr := env.adminGet(t, "/openapi.json", nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"/contact"`) {
		t.Error("OpenAPI document does not describe /contact")
	}
}

func TestLandingPage(t *testing.T) {
	env := newTestEnv(t)
	rr := env.adminGet(t, "/", nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	rr := env.adminGet(t, "/healthz", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
