package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/store"
)

func TestHistory_Empty(t *testing.T) {
	opts := testOptions(t, "text")
	st, err := store.Open(opts.DB)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewHistoryCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "No sessions found in database.\n", out)
}

func TestHistory_MissingDatabase(t *testing.T) {
	_, err := execute(t, NewHistoryCommand(testOptions(t, "text")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestHistory_Sessions(t *testing.T) {
	opts := testOptions(t, "text")
	first := recordSession(t, opts, miniPath(), "glove=true", "lamp=true")
	second := recordSession(t, opts, cavePath, "lamp=true")

	out, err := execute(t, NewHistoryCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, first.Session)
	assert.Contains(t, out, second.Session)

	json := *opts
	json.Format = "json"
	out, err = execute(t, NewHistoryCommand(&json))
	require.NoError(t, err)

	var result HistoryResult
	assert.Equal(t, "ok", decodeData(t, out, &result))
	require.Len(t, result.Sessions, 2)

	byID := map[string]SessionSummary{}
	for _, s := range result.Sessions {
		byID[s.ID] = s
	}
	assert.Equal(t, "Mini", byID[first.Session].Logic)
	assert.Equal(t, 2, byID[first.Session].Actions)
	assert.Equal(t, "Cave", byID[second.Session].Logic)
	assert.Equal(t, 1, byID[second.Session].Actions)
	assert.NotEmpty(t, byID[second.Session].LogicPath)
}

func TestHistory_Session(t *testing.T) {
	opts := testOptions(t, "text")
	recorded := recordSession(t, opts, miniPath(), "glove=true", "--boss", "hera", "--medallion", "mire=ether")

	out, err := execute(t, NewHistoryCommand(opts), "--session", recorded.Session)
	require.NoError(t, err)
	assert.Contains(t, out, "Session "+recorded.Session+" (Mini): 3 action(s)")
	assert.Contains(t, out, "set glove=true")
	assert.Contains(t, out, "medallion mire=ether")

	json := *opts
	json.Format = "json"
	out, err = execute(t, NewHistoryCommand(&json), "--session", recorded.Session)
	require.NoError(t, err)

	var result HistoryResult
	decodeData(t, out, &result)
	require.NotNil(t, result.Session)
	assert.Equal(t, recorded.Session, result.Session.ID)

	var actions []string
	var seqs []int64
	for _, a := range result.Actions {
		actions = append(actions, a.Action)
		seqs = append(seqs, a.Seq)
	}
	assert.Equal(t, recorded.Actions, actions)
	assert.Equal(t, []int64{1, 2, 3}, seqs)
}

func TestHistory_UnknownSession(t *testing.T) {
	opts := testOptions(t, "text")
	recordSession(t, opts, cavePath, "lamp=true")

	_, err := execute(t, NewHistoryCommand(opts), "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
