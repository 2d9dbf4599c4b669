package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.UploadsTotal.WithLabelValues("packed-array", "ok").Inc()
	h := NewServer(0, reg).Handler()

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/metrics", http.StatusOK, `dataset_uploads_total{format="packed-array",outcome="ok"} 1`},
		{"/", http.StatusOK, "<code>dataset_uploads_total</code>"},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body, _ := io.ReadAll(rec.Body)
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, body)
			}
		})
	}
}

func TestServerRunStopsWithContext(t *testing.T) {
	s := NewServer(0, prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
