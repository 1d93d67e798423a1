package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultLockTimeout bounds how long writers wait on a sibling lock file.
const DefaultLockTimeout = 5 * time.Second

func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "/" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteJSONAtomic writes payload as indented JSON through a temp file and rename.
func WriteJSONAtomic(path string, payload any) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UTC().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// WithFileLock runs fn while holding an O_EXCL lock file. The lock records
// the holder's pid; a lock whose holder is gone, or that is older than twice
// the timeout, is treated as left over from a crash and reclaimed.
func WithFileLock(lockPath string, timeout time.Duration, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return errors.New("lock path is empty")
	}
	if err := EnsureParentDir(lockPath); err != nil {
		return err
	}
	start := time.Now().UTC()
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}
		if timeout > 0 && time.Since(start) > timeout {
			return fmt.Errorf("acquire lock timeout: %s", lockPath)
		}
		if staleLock(lockPath, 2*timeout) {
			_ = os.Remove(lockPath)
			continue
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer os.Remove(lockPath)
	return fn()
}

func staleLock(lockPath string, maxAge time.Duration) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		return true
	}
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return errors.Is(proc.Signal(syscall.Signal(0)), os.ErrProcessDone)
}

// AppendJSONLine appends rec as one JSON line, serialized by path+".lock".
func AppendJSONLine(path string, rec any) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return errors.New("path is empty")
	}
	if err := EnsureParentDir(p); err != nil {
		return err
	}
	return WithFileLock(p+".lock", DefaultLockTimeout, func() error {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = f.Write(append(line, '\n'))
		return err
	})
}
