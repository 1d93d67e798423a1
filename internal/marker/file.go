package marker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grindlog/internal/util"
)

const (
	DefaultFileName = ".last_run_daily_digest.json"
	stateVersion    = 1
)

type fileState struct {
	Version int       `json:"version"`
	LastRun time.Time `json:"lastRun"`
}

// FileStore keeps the last automatic run instant in a small JSON file.
type FileStore struct {
	path        string
	lockTimeout time.Duration
}

func NewFileStore(path string) (*FileStore, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("marker path is empty")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: abs, lockTimeout: util.DefaultLockTimeout}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(ctx context.Context) (time.Time, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return time.Time{}, false, nil
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}, false, fmt.Errorf("parse marker %s: %w", s.path, err)
	}
	if st.LastRun.IsZero() {
		return time.Time{}, false, nil
	}
	return st.LastRun, true, nil
}

func (s *FileStore) Write(ctx context.Context, at time.Time) error {
	if at.IsZero() {
		return errors.New("marker time is zero")
	}
	return util.WithFileLock(s.path+".lock", s.lockTimeout, func() error {
		return util.WriteJSONAtomic(s.path, fileState{Version: stateVersion, LastRun: at.UTC()})
	})
}

// Reset removes the marker so the next automatic check runs.
func (s *FileStore) Reset(ctx context.Context) error {
	return util.WithFileLock(s.path+".lock", s.lockTimeout, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}
