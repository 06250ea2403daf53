package memory

import (
	"context"
	"testing"
)

func TestPublisherStoresEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "crawl.completed", map[string]int{"new_channels": 4})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "crawl.failed", "quota")
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	all := pub.Events("")
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	completed := pub.Events("crawl.completed")
	if len(completed) != 1 || completed[0].Name != "crawl.completed" {
		t.Fatalf("filter by name failed: %+v", completed)
	}

	all[0].Name = "modified"
	if pub.Events("")[0].Name == "modified" {
		t.Fatal("expected Events() to return a copy")
	}
}

func TestPublisherHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Publish(ctx, "crawl.completed", nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
