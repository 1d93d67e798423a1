package digest

import (
	"context"
	"errors"
	"strings"
	"time"

	"grindlog/internal/digestlog"
)

// FaultPolicy decides what an unreadable marker means for the automatic run.
type FaultPolicy string

const (
	// FaultPolicyRun treats a storage fault like a missing marker.
	FaultPolicyRun FaultPolicy = "run"
	// FaultPolicySkip holds the automatic run back until the store is readable.
	FaultPolicySkip FaultPolicy = "skip"
)

func ParseFaultPolicy(raw string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(FaultPolicyRun):
		return FaultPolicyRun, nil
	case string(FaultPolicySkip):
		return FaultPolicySkip, nil
	default:
		return "", errors.New("marker fault policy must be \"run\" or \"skip\"")
	}
}

// Guard keeps the automatic digest to one run per calendar day.
type Guard struct {
	store    MarkerStore
	resolver Resolver
	policy   FaultPolicy
	log      *digestlog.Logger
}

type GuardOptions struct {
	Store       MarkerStore
	Location    *time.Location
	FaultPolicy FaultPolicy
	Log         *digestlog.Logger
}

func NewGuard(opts GuardOptions) *Guard {
	policy := opts.FaultPolicy
	if policy == "" {
		policy = FaultPolicyRun
	}
	return &Guard{
		store:    opts.Store,
		resolver: NewResolver(opts.Location),
		policy:   policy,
		log:      opts.Log,
	}
}

func (g *Guard) ShouldRunAutomatic(ctx context.Context, now time.Time) bool {
	if g == nil || g.store == nil {
		return true
	}
	last, ok, err := g.store.Read(ctx)
	if err != nil {
		if g.policy == FaultPolicySkip {
			g.log.Warnf("digest marker unreadable, holding automatic run: %v", err)
			return false
		}
		g.log.Warnf("digest marker unreadable, running anyway: %v", err)
		return true
	}
	if !ok {
		return true
	}
	return !g.resolver.SameDay(last, now)
}

// RecordRan overwrites the marker with now.
func (g *Guard) RecordRan(ctx context.Context, now time.Time) error {
	if g == nil || g.store == nil {
		return nil
	}
	return g.store.Write(ctx, now)
}

func (g *Guard) LastRun(ctx context.Context) (time.Time, bool, error) {
	if g == nil || g.store == nil {
		return time.Time{}, false, nil
	}
	return g.store.Read(ctx)
}
