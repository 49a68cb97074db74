package memory

import (
	"testing"

	"quizmentor/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	builds := 0
	build := func() *app.Session {
		builds++
		return nil
	}

	store.GetOrCreate("a1", build)
	if builds != 1 {
		t.Fatalf("expected one build, got %d", builds)
	}
	if _, ok := store.Get("a1"); !ok {
		t.Fatalf("expected session present")
	}

	// A second GetOrCreate reuses the stored session.
	store.GetOrCreate("a1", build)
	if builds != 1 {
		t.Fatalf("expected build skipped on reuse, got %d", builds)
	}

	store.Delete("a1")
	if _, ok := store.Get("a1"); ok {
		t.Fatalf("expected session removed")
	}
}
