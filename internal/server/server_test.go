package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/autoprice/autoprice/internal/auth"
	"github.com/autoprice/autoprice/internal/cache"
	"github.com/autoprice/autoprice/internal/handler"
	"github.com/autoprice/autoprice/internal/predictor"
	"github.com/autoprice/autoprice/internal/store"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "server-test-secret"
)

const testModelArtifact = `{
	"version": "1.0.0-test",
	"intercept": 400000,
	"numeric": {
		"year": {"weight": 100000, "mean": 2015, "scale": 4},
		"km_driven": {"weight": -50000, "mean": 60000, "scale": 50000}
	},
	"categorical": {
		"fuel": {"values": {"Diesel": 20000, "Petrol": -10000}, "default": 0}
	}
}`

const validCarBody = `{
	"company": "Toyota",
	"year": 2019,
	"owner": "First Owner",
	"fuel": "Petrol",
	"seller_type": "Individual",
	"transmission": "Manual",
	"km_driven": 35000,
	"mileage_mpg": 22,
	"engine_cc": 1498,
	"max_power_bhp": 108,
	"torque_nm": 170,
	"seats": 5
}`

// newTestServer wires the whole stack against an in-memory database and a
// temporary model artifact, the same way the serve command does.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	modelPath := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(modelPath, []byte(testModelArtifact), 0644); err != nil {
		t.Fatalf("write model artifact: %v", err)
	}
	pred, err := predictor.Load(modelPath)
	if err != nil {
		t.Fatalf("load predictor: %v", err)
	}

	tokens, err := auth.NewTokenService(testJWTSecret, "HS256")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	hasher := auth.NewHasher()
	gate := auth.NewGate(testAPIKey)
	authn := auth.NewAuthenticator(tokens, st)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.Noop{}

	authHandler := handler.NewAuthHandler(st, hasher, tokens, 30, logger)
	predictHandler := handler.NewPredictHandler(st, c, pred, time.Minute, logger)

	cfg := Config{
		Host:            "127.0.0.1",
		Port:            0,
		ShutdownTimeout: time.Second,
		CORSOrigins:     []string{"*"},
		LoginRatePerMin: 100,
		Version:         "test",
	}
	return New(cfg, st, c, pred, authn, gate, authHandler, predictHandler, logger)
}

func doJSON(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

// registerAndLogin provisions a user over the API and returns a bearer token.
func registerAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()

	body := fmt.Sprintf(`{"username": %q, "email": %q, "password": "secret123"}`, username, username+"@example.com")
	if rr := doJSON(t, srv, "POST", "/api/v1/auth/register", body, nil); rr.Code != http.StatusCreated {
		t.Fatalf("register: got %d (%s)", rr.Code, rr.Body.String())
	}

	body = fmt.Sprintf(`{"username": %q, "password": "secret123"}`, username)
	rr := doJSON(t, srv, "POST", "/api/v1/auth/login", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: got %d (%s)", rr.Code, rr.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	if rr := doJSON(t, srv, "GET", "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Errorf("healthz: got %d", rr.Code)
	}

	rr := doJSON(t, srv, "GET", "/readyz", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("readyz: got %d (%s)", rr.Code, rr.Body.String())
	}
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&ready); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if ready.Status != "ok" || ready.Checks["database"] != "ok" || ready.Checks["model"] != "ok" {
		t.Errorf("readyz: got %+v", ready)
	}

	rr = doJSON(t, srv, "GET", "/status", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d", rr.Code)
	}
	var status struct {
		ModelVersion string `json:"model_version"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.ModelVersion != "1.0.0-test" {
		t.Errorf("model_version: got %q", status.ModelVersion)
	}

	if rr := doJSON(t, srv, "GET", "/metrics", "", nil); rr.Code != http.StatusOK {
		t.Errorf("metrics: got %d", rr.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, "GET", "/healthz", "", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestPredictEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	headers := map[string]string{
		"X-API-Key":     testAPIKey,
		"Authorization": "Bearer " + token,
	}

	rr := doJSON(t, srv, "POST", "/api/v1/predict", validCarBody, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("predict: got %d (%s)", rr.Code, rr.Body.String())
	}

	var predicted struct {
		PredictedPrice float64 `json:"predicted_price"`
		PredictionID   int64   `json:"prediction_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&predicted); err != nil {
		t.Fatalf("decode predict: %v", err)
	}
	if predicted.PredictedPrice <= 0 || predicted.PredictionID == 0 {
		t.Errorf("predict: got %+v", predicted)
	}

	// History returns the row scoped to alice.
	rr = doJSON(t, srv, "GET", "/api/v1/predictions/history", "", headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: got %d (%s)", rr.Code, rr.Body.String())
	}
	var history struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if history.Total != 1 {
		t.Errorf("history total: got %d, want 1", history.Total)
	}

	// Detail fetch of the saved row.
	rr = doJSON(t, srv, "GET", fmt.Sprintf("/api/v1/predictions/%d", predicted.PredictionID), "", headers)
	if rr.Code != http.StatusOK {
		t.Errorf("detail: got %d (%s)", rr.Code, rr.Body.String())
	}

	// Stats reflect the single prediction.
	rr = doJSON(t, srv, "GET", "/api/v1/predictions/stats/summary", "", headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: got %d", rr.Code)
	}
	var stats struct {
		TotalPredictions int64 `json:"total_predictions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalPredictions != 1 {
		t.Errorf("stats total: got %d, want 1", stats.TotalPredictions)
	}
}

func TestPredictRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	// Bearer token alone is not enough; the key gate runs first.
	rr := doJSON(t, srv, "POST", "/api/v1/predict", validCarBody,
		map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusForbidden {
		t.Errorf("missing api key: got %d, want 403", rr.Code)
	}

	// Wrong key plus garbage token still reports the key failure.
	rr = doJSON(t, srv, "POST", "/api/v1/predict", validCarBody,
		map[string]string{"X-API-Key": "wrong", "Authorization": "Bearer junk"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("wrong api key: got %d, want 403", rr.Code)
	}
}

func TestPredictRequiresBearerToken(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/predict", validCarBody,
		map[string]string{"X-API-Key": testAPIKey})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing token: got %d, want 401", rr.Code)
	}
}

func TestHistoryAnonymousWithAPIKey(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, "GET", "/api/v1/predictions/history", "",
		map[string]string{"X-API-Key": testAPIKey})
	if rr.Code != http.StatusOK {
		t.Errorf("anonymous history: got %d (%s)", rr.Code, rr.Body.String())
	}

	// Without the key the gate rejects even the optional-auth route.
	rr = doJSON(t, srv, "GET", "/api/v1/predictions/history", "", nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("keyless history: got %d, want 403", rr.Code)
	}
}

func TestProfileFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")
	headers := map[string]string{"Authorization": "Bearer " + token}

	rr := doJSON(t, srv, "GET", "/api/v1/auth/me", "", headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: got %d (%s)", rr.Code, rr.Body.String())
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Username != "alice" {
		t.Errorf("me: got %q", me.Username)
	}

	rr = doJSON(t, srv, "PUT", "/api/v1/auth/me", `{"email": "renamed@example.com"}`, headers)
	if rr.Code != http.StatusOK {
		t.Errorf("update me: got %d (%s)", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, "POST", "/api/v1/auth/logout", "", headers)
	if rr.Code != http.StatusOK {
		t.Errorf("logout: got %d", rr.Code)
	}

	// Profile routes reject anonymous callers.
	rr = doJSON(t, srv, "GET", "/api/v1/auth/me", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me: got %d, want 401", rr.Code)
	}
}

func TestModelEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, "GET", "/api/v1/model", "",
		map[string]string{"X-API-Key": testAPIKey})
	if rr.Code != http.StatusOK {
		t.Fatalf("model: got %d", rr.Code)
	}
	var info struct {
		Version  string `json:"version"`
		IsLoaded bool   `json:"is_loaded"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("decode model info: %v", err)
	}
	if info.Version != "1.0.0-test" || !info.IsLoaded {
		t.Errorf("model info: got %+v", info)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	if rr := doJSON(t, srv, "GET", "/api/v1/nope", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: got %d, want 404", rr.Code)
	}
}
