package testutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/compiler"
	"github.com/roach88/randotrack/internal/logic"
)

// MiniLogicPath is the path of the shared test logic, testdata/logic/mini.cue
// at the repository root.
func MiniLogicPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata", "logic", "mini.cue")
}

// MiniLogic compiles a fresh copy of the shared test logic. Entities carry
// bindings, so every tracker needs its own copy.
func MiniLogic(t testing.TB, variant string) *logic.Database {
	t.Helper()
	res, err := compiler.LoadFile(MiniLogicPath(), variant)
	require.NoError(t, err)
	require.NotNil(t, res.Database)
	return res.Database
}
