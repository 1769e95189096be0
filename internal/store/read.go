package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/randotrack/internal/tracker"
)

// Entry is a recorded action.
type Entry struct {
	Seq        int64          `json:"seq"`
	Action     tracker.Action `json:"action"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const sessionColumns = `
	s.id, s.logic, s.variant, s.logic_path, s.created_at,
	(SELECT COUNT(*) FROM actions a WHERE a.session_id = s.id)
`

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var created string
	if err := row.Scan(&sess.ID, &sess.Logic, &sess.Variant, &sess.LogicPath, &created, &sess.Actions); err != nil {
		return Session{}, err
	}
	t, err := unmarshalTime(created)
	if err != nil {
		return Session{}, err
	}
	sess.CreatedAt = t
	return sess, nil
}

// Session returns one session.
func (s *Store) Session(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// Sessions returns every session, oldest first.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		ORDER BY s.created_at ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Actions returns a session's recorded actions ordered by seq.
//
// Returns an empty slice (not nil) for a session with no actions and
// ErrSessionNotFound for an unknown session.
func (s *Store) Actions(ctx context.Context, sessionID string) ([]Entry, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, target, value, choice, recorded_at
		FROM actions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind, recorded string
		var value int
		if err := rows.Scan(&e.Seq, &kind, &e.Action.Target, &value, &e.Action.Choice, &recorded); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		e.Action.Kind = tracker.ActionKind(kind)
		e.Action.Value = value != 0
		if e.RecordedAt, err = unmarshalTime(recorded); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return entries, nil
}
