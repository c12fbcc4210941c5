package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	_ = store.GetOrCreate("event-1")
	if !mr.Exists("feedback:session:event-1") {
		t.Fatalf("expected redis key to be set")
	}
	live, err := store.Live(context.Background(), "event-1")
	if err != nil || !live {
		t.Fatalf("expected event live, got %v err=%v", live, err)
	}

	store.DeleteIfEmpty("event-1")
	if mr.Exists("feedback:session:event-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("event-1"); ok {
		t.Fatalf("expected session dropped")
	}
}
