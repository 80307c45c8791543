package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
	"github.com/p-n-ai/pai-catalog/internal/platform/config"
	"github.com/p-n-ai/pai-catalog/internal/platform/metrics"
)

func TestHealthEndpoints(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []healthCheck
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz without checks returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "readyz with healthy checks returns 200",
			checks:     []healthCheck{{"database", ok}, {"cache", ok}},
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "readyz reports failing check",
			checks:     []healthCheck{{"database", ok}, {"cache", down}},
			path:       "/readyz",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable","check":"cache"}`,
		},
		{
			name:       "healthz ignores failing checks",
			checks:     []healthCheck{{"database", down}},
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(tt.checks, prometheus.NewRegistry())
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Topic("JAVA", "created")

	rec := httptest.NewRecorder()
	newMux(nil, reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `catalog_ingest_topics_total{module="JAVA",result="created"} 1`) {
		t.Errorf("metrics output missing topic counter:\n%s", rec.Body.String())
	}
}

func TestPrepare_MemoryBackend(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	dir := filepath.Join(root, "java")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	lesson := "# Variables and Types\nLearn variable declarations.\n#### Q1: What is a variable?\nA named storage location.\n"
	if err := os.WriteFile(filepath.Join(dir, "01-variables.md"), []byte(lesson), 0o644); err != nil {
		t.Fatal(err)
	}
	exportPath := filepath.Join(t.TempDir(), "catalog.xlsx")

	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "memory"},
		Content: config.ContentConfig{
			Roots:         []string{root},
			Extension:     ".md",
			IngestOnStart: true,
			ExportPath:    exportPath,
		},
		Seed: config.SeedConfig{
			Enabled:  true,
			Username: "testuser",
			Email:    "test@example.com",
			Password: "password123",
			FullName: "Test User",
		},
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer b.close()

	if err := prepare(ctx, cfg, b, metrics.New(prometheus.NewRegistry())); err != nil {
		t.Fatalf("prepare() error = %v", err)
	}

	store := b.store.(*catalog.MemoryStore)
	modules, topics, questions := store.Counts()
	if modules != 1 || topics != 1 || questions != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", modules, topics, questions)
	}
	if _, found, _ := store.FindUserByUsername(ctx, "testuser"); !found {
		t.Error("seed user not created")
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("export not written: %v", err)
	}

	// A second start must not duplicate anything.
	if err := prepare(ctx, cfg, b, nil); err != nil {
		t.Fatalf("second prepare() error = %v", err)
	}
	if _, topics2, questions2 := store.Counts(); topics2 != topics || questions2 != questions {
		t.Errorf("second start changed counts to %d/%d", topics2, questions2)
	}
}

func TestPrepare_BadManifest(t *testing.T) {
	ctx := context.Background()
	manifest := filepath.Join(t.TempDir(), "modules.yaml")
	if err := os.WriteFile(manifest, []byte("modules: []"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Store:   config.StoreConfig{Driver: "memory"},
		Content: config.ContentConfig{ManifestPath: manifest, IngestOnStart: true},
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer b.close()

	if err := prepare(ctx, cfg, b, nil); err == nil {
		t.Error("prepare() should reject an invalid manifest")
	}
}
