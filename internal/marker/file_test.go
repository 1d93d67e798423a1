package marker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"grindlog/internal/digest"
)

var _ digest.MarkerStore = (*FileStore)(nil)
var _ digest.MarkerStore = (*RedisStore)(nil)

func TestFileStoreMissingFileIsAbsent(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, ok, err := s.Read(context.Background())
	if err != nil || ok {
		t.Fatalf("expected absent marker, got ok=%v err=%v", ok, err)
	}
}

func TestFileStoreRoundTripOverwrites(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state", DefaultFileName))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	first := time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 1)
	if err := s.Write(ctx, first); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(ctx, second); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok, err := s.Read(ctx)
	if err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}
	if !got.Equal(second) {
		t.Fatalf("expected %s, got %s", second, got)
	}
	if _, err := os.Stat(s.Path() + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file should be released")
	}
}

func TestFileStoreWriteRecoversFromCrashedLock(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	lock := s.Path() + ".lock"
	if err := os.WriteFile(lock, []byte("2147483000"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	g := digest.NewGuard(digest.GuardOptions{Store: s, Location: time.UTC})
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	if err := g.RecordRan(ctx, now); err != nil {
		t.Fatalf("RecordRan with leftover lock: %v", err)
	}
	if g.ShouldRunAutomatic(ctx, now.Add(time.Hour)) {
		t.Fatalf("marker should have been persisted despite the leftover lock")
	}
	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Fatalf("lock file should be released")
	}
}

func TestFileStoreCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, _ := NewFileStore(path)
	if _, _, err := s.Read(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileStoreReset(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset on missing file: %v", err)
	}
	_ = s.Write(ctx, time.Now())
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok, _ := s.Read(ctx); ok {
		t.Fatalf("marker should be gone after reset")
	}
}

func TestFileStoreDrivesGuard(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	g := digest.NewGuard(digest.GuardOptions{Store: s, Location: time.UTC})
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	if !g.ShouldRunAutomatic(ctx, now) {
		t.Fatalf("fresh store should allow the run")
	}
	if err := g.RecordRan(ctx, now); err != nil {
		t.Fatalf("RecordRan: %v", err)
	}
	if g.ShouldRunAutomatic(ctx, now.Add(2*time.Hour)) {
		t.Fatalf("second check on the same day should be suppressed")
	}
}
