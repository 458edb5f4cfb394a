package audit_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-dev/lifeline/internal/service/audit"
)

func TestRecordAppendsLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := audit.New(dir, zerolog.Nop())
	require.NoError(t, err)

	logger.Record("session-1", "SESSION_STARTED")
	logger.Record("session-1", "LOC: 10, 10 | BAT: OK")
	logger.Record("session-2", "SESSION_STARTED")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "session-1.txt"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "["), "line should start with a timestamp: %q", lines[0])
	require.Contains(t, lines[0], "] SESSION_STARTED")
	require.Contains(t, lines[1], "] LOC: 10, 10 | BAT: OK")

	_, err = os.Stat(filepath.Join(dir, "session-2.txt"))
	require.NoError(t, err)
}

func TestRecordSanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	logger, err := audit.New(dir, zerolog.Nop())
	require.NoError(t, err)

	logger.Record("../escape", "TIMER_START: 5 mins")
	logger.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotContains(t, entries[0].Name(), "..")
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	dir := t.TempDir()
	logger, err := audit.New(dir, zerolog.Nop())
	require.NoError(t, err)

	logger.Close()
	logger.Record("late", "DISCONNECTED")

	_, err = os.Stat(filepath.Join(dir, "late.txt"))
	require.True(t, os.IsNotExist(err))
}
