package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gmsas95/docuscan/internal/config"
	"github.com/gmsas95/docuscan/internal/credentials"
	"github.com/gmsas95/docuscan/internal/metrics"
	"github.com/gmsas95/docuscan/internal/ocr"
	"github.com/gmsas95/docuscan/internal/pipeline"
	"github.com/gmsas95/docuscan/internal/retry"
	"github.com/gmsas95/docuscan/internal/store"
)

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pages":[{"index":0,"markdown":"# Scanned"}],"model":"m","usage_info":{"pages_processed":1}}`)
	}))
	t.Cleanup(provider.Close)

	logger := zap.NewNop()
	uploader := ocr.NewUploader(provider.URL, 10*time.Second, 10*time.Second, logger)

	sqliteDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	history, err := store.NewWithDB(db)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { history.Close() })

	m := metrics.New()
	orchestrator := pipeline.New(pipeline.Config{
		Preparer:    ocr.NewPreparer(uploader, logger),
		Executor:    ocr.NewExecutor(ocr.ExecutorConfig{BaseURL: provider.URL, Timeout: 10 * time.Second}, logger),
		Credentials: credentials.Static("test-key"),
		Policy:      retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Metrics:     m,
		History:     history,
		Logger:      logger,
	})

	cfg := &config.Config{
		Server: config.ServerConfig{
			Address:       "127.0.0.1",
			Port:          0,
			AdminPassword: "test-password",
			JWTSecret:     "test-secret-for-unit-tests",
			AllowOrigins:  []string{"*"},
		},
	}

	s := New(cfg, orchestrator, history, m, logger)
	orchestrator.SetProgress(s.BroadcastProgress)

	token := loginToken(t, s)
	return s, token
}

func loginToken(t *testing.T, s *Server) string {
	t.Helper()
	body := bytes.NewBufferString(`{"password":"test-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed with status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out.Token
}

func doRequest(t *testing.T, s *Server, method, path, token string, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	resp := doRequest(t, s, http.MethodGet, "/api/health", "", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "healthy" {
		t.Errorf("unexpected health payload %v", out)
	}
	if out["busy"] != false {
		t.Errorf("expected idle server, got %v", out["busy"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupTestServer(t)

	resp := doRequest(t, s, http.MethodGet, "/metrics", "", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "docuscan_submissions_total") {
		t.Errorf("expected prometheus exposition, got %s", body)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s, _ := setupTestServer(t)

	resp := doRequest(t, s, http.MethodPost, "/api/auth/login", "", `{"password":"wrong"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	s, _ := setupTestServer(t)
	s.config.Server.AdminPassword = ""

	resp := doRequest(t, s, http.MethodPost, "/api/auth/login", "", `{"password":""}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 when auth is unconfigured, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := setupTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/scan"},
		{http.MethodDelete, "/api/scan"},
		{http.MethodGet, "/api/history"},
		{http.MethodGet, "/api/stats"},
	} {
		resp := doRequest(t, s, route.method, route.path, "", "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, resp.StatusCode)
		}
	}
}

func TestScan(t *testing.T) {
	s, token := setupTestServer(t)

	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, s, http.MethodPost, "/api/scan", token,
		fmt.Sprintf(`{"path":%q}`, path))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result ocr.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Pages) != 1 || result.Pages[0].Markdown != "# Scanned" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestScanMissingFile(t *testing.T) {
	s, token := setupTestServer(t)

	resp := doRequest(t, s, http.MethodPost, "/api/scan", token,
		fmt.Sprintf(`{"path":%q}`, filepath.Join(t.TempDir(), "missing.pdf")))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing file, got %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["kind"] != "file_read_error" {
		t.Errorf("expected file_read_error kind, got %v", out)
	}
}

func TestScanRequiresPath(t *testing.T) {
	s, token := setupTestServer(t)

	resp := doRequest(t, s, http.MethodPost, "/api/scan", token, `{}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCancelIsAccepted(t *testing.T) {
	s, token := setupTestServer(t)

	resp := doRequest(t, s, http.MethodDelete, "/api/scan", token, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
}

func TestHistoryAfterScan(t *testing.T) {
	s, token := setupTestServer(t)

	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	resp := doRequest(t, s, http.MethodPost, "/api/scan", token, fmt.Sprintf(`{"path":%q}`, path))
	resp.Body.Close()

	resp = doRequest(t, s, http.MethodGet, "/api/history", token, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var records []store.ScanRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != store.StatusCompleted {
		t.Errorf("unexpected history %+v", records)
	}
}

func TestStats(t *testing.T) {
	s, token := setupTestServer(t)

	resp := doRequest(t, s, http.MethodGet, "/api/stats", token, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
}
