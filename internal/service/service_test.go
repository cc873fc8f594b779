package service_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"rite/internal/service"
)

// ─────────────────────────────────────────────────────────────
// RunningGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("import-a") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("import-a") {
		t.Fatal("expected second TryLock for same process to fail")
	}
	if !g.TryLock("import-b") {
		t.Fatal("expected TryLock for different process to succeed")
	}
	if got := g.Running(); !reflect.DeepEqual(got, []string{"import-a", "import-b"}) {
		t.Fatalf("unexpected running set %v", got)
	}
	g.Unlock("import-a")
	g.Unlock("import-b")

	if !g.TryLock("import-a") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("import-a")
	if got := g.Running(); len(got) != 0 {
		t.Fatalf("expected nothing running, got %v", got)
	}
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("import-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("import-a")
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	events := m.Emitted()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", events[0].Event)
	}
	if events[1].Event != "test:event2" {
		t.Errorf("expected last event 'test:event2', got %q", events[1].Event)
	}
}
