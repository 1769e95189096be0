package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/randotrack/internal/tracker"
)

// ErrSessionNotFound is returned for operations on an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one tracked run.
type Session struct {
	ID      string `json:"id"`
	Logic   string `json:"logic"`
	Variant string `json:"variant,omitempty"`
	// LogicPath is the logic file or directory the session was played
	// against, if known.
	LogicPath string    `json:"logicPath,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	// Actions is the number of recorded actions. It is filled by reads.
	Actions int `json:"actions"`
}

// CreateSession starts a new session for the named logic.
func (s *Store) CreateSession(ctx context.Context, logic, variant, logicPath string) (Session, error) {
	sess := Session{
		ID:        s.ids.Generate(),
		Logic:     logic,
		Variant:   variant,
		LogicPath: logicPath,
		CreatedAt: s.clock.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, logic, variant, logic_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		sess.ID,
		sess.Logic,
		sess.Variant,
		sess.LogicPath,
		marshalTime(sess.CreatedAt),
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Record appends an action to a session and returns its seq. Seqs start at
// 1 and increase by one per recorded action.
func (s *Store) Record(ctx context.Context, sessionID string, a tracker.Action) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record action: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(a.seq), 0) + 1
		FROM sessions s
		LEFT JOIN actions a ON a.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`, sessionID).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("record action: %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("record action: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actions (session_id, seq, kind, target, value, choice, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		seq,
		string(a.Kind),
		a.Target,
		marshalBool(a.Value),
		a.Choice,
		marshalTime(s.clock.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("record action: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record action: commit: %w", err)
	}
	return seq, nil
}

// DeleteSession removes a session and its actions.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session: %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// SessionJournal records a tracker's actions into one session.
type SessionJournal struct {
	store     *Store
	sessionID string
}

// Journal returns a tracker.Journal writing to the given session.
func (s *Store) Journal(sessionID string) *SessionJournal {
	return &SessionJournal{store: s, sessionID: sessionID}
}

// SessionID returns the session the journal writes to.
func (j *SessionJournal) SessionID() string { return j.sessionID }

// Record implements tracker.Journal.
func (j *SessionJournal) Record(ctx context.Context, a tracker.Action) error {
	_, err := j.store.Record(ctx, j.sessionID, a)
	return err
}

var _ tracker.Journal = (*SessionJournal)(nil)
