package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SnakeSolid/pgrestore-web/internal/config"
	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/pathindex"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
	"github.com/SnakeSolid/pgrestore-web/internal/worker"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	cfg := &config.Config{
		IndexesPath: "",
		Destinations: []types.Destination{
			{Host: "localhost", Port: 5432, Role: "postgres", Password: "secret"},
		},
	}

	jobs := jobmanager.New(t.TempDir(), 10, log)
	index := pathindex.New()
	index.Add("/backups/2026/january/full.backup")

	factory := func(jobid int, destinationIndex int, databaseName string, ignoreErrors bool) (*worker.Worker, error) {
		return worker.New(jobid, jobs, cfg.Destinations[destinationIndex], databaseName, "/bin/true", "/bin/true", "/bin/true", 1, "", ignoreErrors, "", log), nil
	}

	return New(cfg, jobs, index, nil, factory, log)
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer, result any) envelope {
	t.Helper()
	var env envelope

	var wire struct {
		Success bool            `json:"success"`
		Result  json.RawMessage `json:"result"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	env.Success = wire.Success
	env.Message = wire.Message
	if result != nil && len(wire.Result) > 0 {
		if err := json.Unmarshal(wire.Result, result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}
	return env
}

func TestHandleSettings(t *testing.T) {
	s := testServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var result settingsResult
	env := decodeEnvelope(t, rr.Body, &result)
	if !env.Success {
		t.Fatalf("expected success, got message %q", env.Message)
	}
	if len(result.Destinations) != 1 || result.Destinations[0].Name != "postgres@localhost:5432" {
		t.Fatalf("unexpected destinations: %+v", result.Destinations)
	}
}

func TestHandleSearch(t *testing.T) {
	s := testServer(t)
	router := s.Router()

	body := `{"query":"backup"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var result []string
	env := decodeEnvelope(t, rr.Body, &result)
	if !env.Success {
		t.Fatalf("expected success, got message %q", env.Message)
	}
	if len(result) != 1 || result[0] != "/backups/2026/january/full.backup" {
		t.Fatalf("unexpected search result: %+v", result)
	}
}

func TestHandleRestoreMalformedBodyIsBadRequest(t *testing.T) {
	s := testServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandleStatusUnknownJob(t *testing.T) {
	s := testServer(t)
	router := s.Router()

	body := `{"jobid":999}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/status", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	env := decodeEnvelope(t, rr.Body, nil)
	if env.Success {
		t.Fatalf("expected success=false for unknown job")
	}
}
