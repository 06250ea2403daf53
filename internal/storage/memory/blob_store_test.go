package memory

import (
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "exports/channels.csv", "text/csv", payload)
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://exports/channels.csv" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	stored, ok := store.Object("exports/channels.csv")
	if !ok || string(stored) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
	stored[0] = 'X'
	again, _ := store.Object("exports/channels.csv")
	if string(again) != "content" {
		t.Fatalf("Object() must return a copy, got %q", again)
	}
}

func TestBlobStoreMissingObject(t *testing.T) {
	t.Parallel()

	if _, ok := NewBlobStore().Object("nope"); ok {
		t.Fatal("expected missing object")
	}
}
