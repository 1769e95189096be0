package store

import (
	"context"
	"fmt"

	"github.com/roach88/randotrack/internal/tracker"
)

// ReplayResult summarizes a replay.
type ReplayResult struct {
	SessionID string `json:"sessionId"`
	Applied   int    `json:"applied"`
	LastSeq   int64  `json:"lastSeq"`
}

// Replay applies a session's actions in seq order. It stops at the first
// action apply rejects; the result then counts the actions applied before
// it.
func (s *Store) Replay(ctx context.Context, sessionID string, apply func(tracker.Action) error) (ReplayResult, error) {
	res := ReplayResult{SessionID: sessionID}

	entries, err := s.Actions(ctx, sessionID)
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("replay: %w", err)
		}
		if err := apply(e.Action); err != nil {
			return res, fmt.Errorf("replay seq %d: %w", e.Seq, err)
		}
		res.Applied++
		res.LastSeq = e.Seq
	}
	return res, nil
}

// ReplayInto replays a session into tr without journaling the actions again.
func (s *Store) ReplayInto(ctx context.Context, sessionID string, tr *tracker.Tracker) (ReplayResult, error) {
	return s.Replay(ctx, sessionID, func(a tracker.Action) error {
		return tr.ApplyUnjournaled(a)
	})
}
