package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/grid-allocation-service/internal/adapter/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	err error
}

func (p *stubPipeline) CheckReadiness(_ context.Context) error { return p.err }

type statusBody struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// getStatus issues a GET against the server's mux and decodes the JSON body.
func getStatus(t *testing.T, srv *httpadapter.Server, path string) (int, statusBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body statusBody
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func newServer(readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &stubPipeline{err: readyErr}, logger)
}

func TestHealthz(t *testing.T) {
	code, body := getStatus(t, newServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "grid-allocation", body.Service)
	assert.Equal(t, "healthy", body.Status)
	assert.Empty(t, body.Error)
}

func TestReadyz_PipelineReady(t *testing.T) {
	code, body := getStatus(t, newServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "grid-allocation", body.Service)
	assert.Equal(t, "ready", body.Status)
}

func TestReadyz_PipelineNotReady(t *testing.T) {
	srv := newServer(errors.New("pipeline has not processed any requests yet"))
	code, body := getStatus(t, srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "pipeline has not processed any requests yet", body.Error)
}

func TestHealthzStaysUpWhenPipelineIsNot(t *testing.T) {
	// Liveness must not depend on readiness: a starved pipeline is still a
	// live process.
	srv := newServer(errors.New("no requests yet"))
	code, body := getStatus(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
