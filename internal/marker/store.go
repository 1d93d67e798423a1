package marker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is a digest.MarkerStore that can also be cleared from the CLI.
type Store interface {
	Read(ctx context.Context) (time.Time, bool, error)
	Write(ctx context.Context, at time.Time) error
	Reset(ctx context.Context) error
}

type Config struct {
	// Backend is "file" (default) or "redis".
	Backend  string `json:"backend,omitempty"`
	Path     string `json:"path,omitempty"`
	RedisURL string `json:"redis_url,omitempty"`
	RedisKey string `json:"redis_key,omitempty"`
}

func (c Config) WithDefaults() Config {
	out := c
	out.Backend = strings.ToLower(strings.TrimSpace(out.Backend))
	if out.Backend == "" {
		out.Backend = "file"
	}
	if strings.TrimSpace(out.Path) == "" {
		out.Path = DefaultFileName
	}
	if strings.TrimSpace(out.RedisKey) == "" {
		out.RedisKey = DefaultRedisKey
	}
	return out
}

// Open returns the configured store and a close func.
func Open(cfg Config) (Store, func() error, error) {
	c := cfg.WithDefaults()
	switch c.Backend {
	case "file":
		s, err := NewFileStore(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case "redis":
		s, err := NewRedisStore(c.RedisURL, c.RedisKey)
		if err != nil {
			return nil, nil, fmt.Errorf("connect marker redis: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown marker backend %q", c.Backend)
	}
}
