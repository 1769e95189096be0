package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/testutil"
	"github.com/roach88/randotrack/internal/tracker"
)

func TestReplayInto_RebuildsState(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess, err := s.CreateSession(ctx, "Mini", "", "")
	require.NoError(t, err)

	live, err := tracker.New(testutil.MiniLogic(t, ""), tracker.WithJournal(s.Journal(sess.ID)))
	require.NoError(t, err)
	require.NoError(t, live.Set(ctx, "glove", true))
	require.NoError(t, live.Set(ctx, "lamp", true))
	require.NoError(t, live.SetMedallion(ctx, "mire", "quake"))
	require.NoError(t, live.SetPrize(ctx, "hera", "pendant"))
	require.NoError(t, live.SetBossDefeated(ctx, "hera", true))
	require.NoError(t, live.Toggle(ctx, "lamp"))

	rebuilt, err := tracker.New(testutil.MiniLogic(t, ""))
	require.NoError(t, err)
	res, err := s.ReplayInto(ctx, sess.ID, rebuilt)
	require.NoError(t, err)
	assert.Equal(t, ReplayResult{SessionID: sess.ID, Applied: 6, LastSeq: 6}, res)

	assert.Equal(t, live.Snapshot(), rebuilt.Snapshot())

	entries, err := s.Actions(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 6, "replaying does not record again")
}

func TestReplay_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess, err := s.CreateSession(ctx, "Mini", "", "")
	require.NoError(t, err)
	for _, target := range []string{"a", "b", "c"} {
		_, err := s.Record(ctx, sess.ID, tracker.Action{Kind: tracker.ActionToggle, Target: target})
		require.NoError(t, err)
	}

	var seen []string
	boom := errors.New("boom")
	res, err := s.Replay(ctx, sess.ID, func(a tracker.Action) error {
		if a.Target == "b" {
			return boom
		}
		seen = append(seen, a.Target)
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "replay seq 2")
	assert.Equal(t, []string{"a"}, seen)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, int64(1), res.LastSeq)
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := createTestStore(t)
	sess, err := s.CreateSession(ctx, "Mini", "", "")
	require.NoError(t, err)
	_, err = s.Record(ctx, sess.ID, tracker.Action{Kind: tracker.ActionReset})
	require.NoError(t, err)

	entries, err := s.Actions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	cancel()
	_, err = s.Replay(ctx, sess.ID, func(tracker.Action) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplay_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Replay(context.Background(), "missing", func(tracker.Action) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
