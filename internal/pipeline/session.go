package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"archloom/loom/internal/store"
	"archloom/loom/internal/track"
)

// Session ties a change tracker to a store for the lifetime of one working
// session. The baseline lives in memory only; a new session starts with an
// empty baseline, so every existing entity reads as added until the first
// capture.
type Session struct {
	store   store.Store
	tracker *track.Tracker
	logger  *zap.Logger
}

// NewSession opens a session over the store with an empty baseline.
func NewSession(st store.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: st, tracker: track.New(), logger: logger}
}

// CaptureBaseline snapshots the store as the new comparison point. Typical
// call sites are session start and the moment after a batch applies.
func (s *Session) CaptureBaseline(ctx context.Context) error {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("capturing baseline: %w", err)
	}
	s.tracker.CaptureBaseline(snap)
	s.logger.Debug("baseline captured", zap.Int("nodes", len(snap.Nodes)))
	return nil
}

// HasBaseline reports whether a capture has happened this session.
func (s *Session) HasBaseline() bool {
	return s.tracker.HasBaseline()
}

// Reset discards the baseline without touching the store.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.logger.Debug("baseline reset")
}

// Status classifies one entity against the session baseline.
func (s *Session) Status(ctx context.Context, persistentID string) (track.Status, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("loading current state: %w", err)
	}
	return s.tracker.Status(persistentID, snap), nil
}

// Changes reports every entity's status against the session baseline.
func (s *Session) Changes(ctx context.Context) ([]track.ChangeRecord, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current state: %w", err)
	}
	return s.tracker.Changes(snap), nil
}
