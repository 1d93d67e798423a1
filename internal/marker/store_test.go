package marker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenFileBackendByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	store, closeFn, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	fs, ok := store.(*FileStore)
	if !ok || fs.Path() != path {
		t.Fatalf("expected file store at %s, got %#v", path, store)
	}
}

func TestOpenRejectsBadBackends(t *testing.T) {
	if _, _, err := Open(Config{Backend: "etcd"}); err == nil || !strings.Contains(err.Error(), "unknown marker backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
	if _, _, err := Open(Config{Backend: "redis"}); err == nil {
		t.Fatalf("expected error for redis backend without url")
	}
}

// Runs against a real server when GRINDLOG_TEST_REDIS_URL is set.
func TestRedisStoreRoundTrip(t *testing.T) {
	url := strings.TrimSpace(os.Getenv("GRINDLOG_TEST_REDIS_URL"))
	if url == "" {
		t.Skip("GRINDLOG_TEST_REDIS_URL not set")
	}
	key := "grindlog:test:" + time.Now().Format("150405.000000")
	s, err := NewRedisStore(url, key)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	defer s.Reset(ctx)

	if _, ok, err := s.Read(ctx); err != nil || ok {
		t.Fatalf("fresh key should be absent: ok=%v err=%v", ok, err)
	}
	at := time.Date(2024, 6, 9, 12, 30, 0, 0, time.UTC)
	if err := s.Write(ctx, at); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok, err := s.Read(ctx)
	if err != nil || !ok || !got.Equal(at) {
		t.Fatalf("Read = %s %v %v", got, ok, err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok, _ := s.Read(ctx); ok {
		t.Fatalf("marker should be gone after reset")
	}
}
