package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("data_root", DirWritable(t.TempDir()))
	c.Register("redis", Pinger(func(context.Context) error { return errors.New("refused") }, StatusDegraded))

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	if report.Components["data_root"].Status != StatusUp {
		t.Errorf("data_root = %+v", report.Components["data_root"])
	}
	if report.Components["redis"].Message != "refused" {
		t.Errorf("redis = %+v", report.Components["redis"])
	}

	c.Register("postgres", Pinger(func(context.Context) error { return errors.New("down") }, StatusDown))
	if got := c.Run(context.Background()).Status; got != StatusDown {
		t.Errorf("status = %s, want down", got)
	}
}

func TestDirWritableFailsOnFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := DirWritable(filepath.Join(blocker, "sub"))(context.Background())
	if got.Status != StatusDown {
		t.Errorf("status = %s, want down", got.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", Pinger(func(context.Context) error { return errors.New("down") }, StatusDown))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
