package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestChildSpansAttachToParent(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "pipeline", "req-1")
	_, load := StartChildSpan(ctx, "load")
	load.End()
	_, persist := StartChildSpan(ctx, "persist")
	persist.EndErr(errors.New("disk full"))
	root.End()

	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	if load.TraceID != "req-1" {
		t.Errorf("child trace id = %q", load.TraceID)
	}
	if persist.Err == nil {
		t.Error("error not recorded")
	}
	d := root.Durations()
	if _, ok := d["load"]; !ok {
		t.Errorf("durations missing load: %v", d)
	}
	root.Log()
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	if SpanFromContext(ctx) != span {
		t.Error("span not stored in context")
	}
	if span.TraceID != "" {
		t.Errorf("orphan trace id = %q", span.TraceID)
	}
}
