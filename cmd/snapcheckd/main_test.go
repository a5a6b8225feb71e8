package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/app"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	svc "github.com/joseph-ayodele/snapcheck/internal/server"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	cfg := &common.Config{
		Database: common.DatabaseConfig{Driver: "sqlite"},
		LLM:      common.LLMConfig{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: time.Second},
		Blob:     common.BlobConfig{Root: t.TempDir(), BaseURL: "http://localhost/blobs"},
		Batch:    common.BatchConfig{QueueSize: 4, IdleExpiry: time.Hour},
	}
	a, err := app.Build(context.Background(), cfg, nil, app.Options{InMemory: true, NoEvents: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewGRPCServer_RegisteredServices(t *testing.T) {
	srv, _ := newGRPCServer(testApp(t), nil)
	defer srv.Stop()

	info := srv.GetServiceInfo()
	assert.Contains(t, info, svc.ServiceName)
	assert.Contains(t, info, "grpc.health.v1.Health")
	assert.NotContains(t, info, "grpc.reflection.v1.ServerReflection")
	assert.NotContains(t, info, "grpc.reflection.v1alpha.ServerReflection")
}

func TestNewHTTPHandler_Routes(t *testing.T) {
	h := newHTTPHandler(testApp(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blobs/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no directory listings")
}
