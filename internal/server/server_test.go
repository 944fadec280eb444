package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/ajoledger/internal/auth"
	"github.com/mmynk/ajoledger/internal/service"
	"github.com/mmynk/ajoledger/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret-key-that-is-long-enough", time.Hour)
	positions := service.NewPositionService(store)
	distributions, err := service.NewDistributionService(store, positions, service.DefaultPolicy())
	if err != nil {
		t.Fatalf("failed to create distribution service: %v", err)
	}

	srv := New(Options{
		Authenticator: auth.NewPasswordAuthenticator(store),
		JWTManager:    jwtManager,
		Groups:        service.NewGroupService(store, positions),
		Members:       service.NewMembershipService(store, positions),
		Positions:     positions,
		Contributions: service.NewContributionService(store),
		Distributions: distributions,
		Summaries:     service.NewSummaryService(store),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON performs a request and decodes the JSON response into a generic map.
func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	// Middleware rejections are plain text; leave the map nil for those.
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

// doJSONList performs a GET whose response body is a JSON array.
func doJSONList(t *testing.T, method, url, token string) (int, []map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

// registerUser creates an account and returns its token and user ID.
func registerUser(t *testing.T, ts *httptest.Server, email string) (token, userID string) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]string{
		"email":        email,
		"display_name": "Test User",
		"password":     "correct-horse",
	})
	if status != http.StatusCreated {
		t.Fatalf("register returned %d: %v", status, body)
	}
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

// createGroup creates a group over the API and returns its ID and code.
func createGroup(t *testing.T, ts *httptest.Server, token string) (groupID, code string) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/", token, map[string]any{
		"name":                "Market Circle",
		"contribution_amount": 100,
		"frequency":           "weekly",
		"start_date":          time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
		"duration_cycles":     5,
		"max_members":         10,
	})
	if status != http.StatusCreated {
		t.Fatalf("create group returned %d: %v", status, body)
	}
	return body["id"].(string), body["invitation_code"].(string)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz returned %d: %v", status, body)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	token, userID := registerUser(t, ts, "ade@example.com")
	if token == "" || userID == "" {
		t.Fatal("register returned empty token or user ID")
	}

	// Re-registering the same email conflicts.
	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]string{
		"email": "ade@example.com", "display_name": "Imposter", "password": "also-valid-pw",
	})
	if status != http.StatusConflict || body["kind"] != "conflict" {
		t.Errorf("duplicate register returned %d: %v", status, body)
	}

	// A short password is a validation failure, not a conflict.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]string{
		"email": "bola@example.com", "display_name": "Bola", "password": "short",
	})
	if status != http.StatusBadRequest || body["kind"] != "validation" {
		t.Errorf("weak password returned %d: %v", status, body)
	}

	// Wrong password and unknown email look identical to the caller.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "ade@example.com", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("bad login returned %d: %v", status, body)
	}

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "ade@example.com", "password": "correct-horse",
	})
	if status != http.StatusOK || body["token"] == "" {
		t.Errorf("login returned %d: %v", status, body)
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/me", token, nil)
	if status != http.StatusOK || body["user_id"] != userID {
		t.Errorf("auth/me returned %d: %v", status, body)
	}
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/me/summary", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("missing token returned %d, want 401", status)
	}

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/me/summary", "garbage-token", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("garbage token returned %d, want 401", status)
	}
}

func TestCreateGroupAPI(t *testing.T) {
	ts := newTestServer(t)
	token, userID := registerUser(t, ts, "ade@example.com")

	groupID, code := createGroup(t, ts, token)
	if len(code) != 8 {
		t.Errorf("expected 8-character invitation code, got %q", code)
	}

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/groups/"+groupID, token, nil)
	if status != http.StatusOK || body["status"] != "forming" {
		t.Errorf("get group returned %d: %v", status, body)
	}

	// The creator is enrolled as an active admin.
	status, members := doJSONList(t, http.MethodGet, ts.URL+"/api/v1/groups/"+groupID+"/members", token)
	if status != http.StatusOK {
		t.Fatalf("list members returned %d", status)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if members[0]["user_id"] != userID || members[0]["role"] != "admin" {
		t.Errorf("creator membership mismatch: %v", members[0])
	}

	// Validation failures map to 400.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/", token, map[string]any{
		"name":                "x",
		"contribution_amount": 100,
		"frequency":           "weekly",
		"start_date":          time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
		"duration_cycles":     5,
		"max_members":         10,
	})
	if status != http.StatusBadRequest || body["kind"] != "validation" {
		t.Errorf("invalid group returned %d: %v", status, body)
	}
}

func TestJoinAndActivateAPI(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := registerUser(t, ts, "ade@example.com")
	memberToken, memberID := registerUser(t, ts, "bola@example.com")

	groupID, code := createGroup(t, ts, adminToken)

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/join", memberToken, map[string]string{"code": code})
	if status != http.StatusCreated || body["user_id"] != memberID {
		t.Fatalf("join returned %d: %v", status, body)
	}

	// Activation requires assigned positions first.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/"+groupID+"/activate", adminToken, nil)
	if status != http.StatusUnprocessableEntity || body["kind"] != "invalid_state" {
		t.Errorf("premature activate returned %d: %v", status, body)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/"+groupID+"/positions/assign-random", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("assign-random returned %d", status)
	}

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/"+groupID+"/activate", adminToken, nil)
	if status != http.StatusOK || body["status"] != "active" {
		t.Errorf("activate returned %d: %v", status, body)
	}

	// Joining after activation is rejected.
	lateToken, _ := registerUser(t, ts, "chidi@example.com")
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/join", lateToken, map[string]string{"code": code})
	if status != http.StatusUnprocessableEntity || body["kind"] != "invalid_state" {
		t.Errorf("late join returned %d: %v", status, body)
	}
}

func TestAdminGating(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := registerUser(t, ts, "ade@example.com")
	memberToken, _ := registerUser(t, ts, "bola@example.com")
	outsiderToken, _ := registerUser(t, ts, "chidi@example.com")

	groupID, code := createGroup(t, ts, adminToken)
	if status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/join", memberToken, map[string]string{"code": code}); status != http.StatusCreated {
		t.Fatalf("join returned %d: %v", status, body)
	}

	gated := []struct{ method, path string }{
		{http.MethodPost, "/activate"},
		{http.MethodPost, "/positions/assign-random"},
		{http.MethodPost, "/cycles/1/open"},
		{http.MethodPost, "/cycles/1/distribute"},
		{http.MethodPost, "/contributions/overdue"},
		{http.MethodDelete, "/members/bola"},
	}
	callers := map[string]string{"member": memberToken, "outsider": outsiderToken}
	for _, tt := range gated {
		for name, token := range callers {
			status, body := doJSON(t, tt.method, ts.URL+"/api/v1/groups/"+groupID+tt.path, token, nil)
			if status != http.StatusForbidden || body["kind"] != "forbidden" {
				t.Errorf("%s %s as %s returned %d: %v", tt.method, tt.path, name, status, body)
			}
		}
	}

	// Reads stay open to any authenticated caller.
	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/groups/"+groupID+"/summary", memberToken, nil); status != http.StatusOK {
		t.Errorf("member summary read returned %d", status)
	}

	// The group's admin passes the gate.
	if status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/"+groupID+"/positions/assign-random", adminToken, nil); status != http.StatusOK {
		t.Errorf("admin assign-random returned %d", status)
	}
}

func TestErrorKindMapping(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "ade@example.com")

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/groups/no-such-group", token, nil)
	if status != http.StatusNotFound || body["kind"] != "not_found" {
		t.Errorf("unknown group returned %d: %v", status, body)
	}

	groupID, _ := createGroup(t, ts, token)

	// Distributing an unopened cycle of a forming group is a state error.
	status, body = doJSON(t, http.MethodPost, ts.URL+fmt.Sprintf("/api/v1/groups/%s/cycles/1/distribute", groupID), token, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("distribute on forming group returned %d: %v", status, body)
	}

	// Cancel twice: the second is an invalid transition.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/"+groupID+"/cancel", token, nil)
	if status != http.StatusOK {
		t.Fatalf("cancel returned %d", status)
	}
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups/"+groupID+"/cancel", token, nil)
	if status != http.StatusConflict || body["kind"] != "invalid_transition" {
		t.Errorf("re-cancel returned %d: %v", status, body)
	}
}
