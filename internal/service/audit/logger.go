// Package audit implements the per-session black-box recorder: one
// append-only text file per session id, written by a background goroutine
// so the realtime path never waits on disk.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const queueSize = 256

type entry struct {
	sessionID string
	line      string
}

// Logger appends timestamped lines to <dir>/<sessionID>.txt. Writes are
// best-effort: a full queue drops the entry and a failed append is reported
// to the operational log, never to the caller.
type Logger struct {
	dir     string
	entries chan entry
	log     zerolog.Logger

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// New creates the log directory if needed and starts the writer goroutine.
func New(dir string, log zerolog.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	l := &Logger{
		dir:     dir,
		entries: make(chan entry, queueSize),
		log:     log.With().Str("component", "audit").Logger(),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Record enqueues `[<timestamp>] <message>` for the session's log file.
// It never blocks: if the queue is full the entry is dropped and counted
// against the operational log only.
func (l *Logger) Record(sessionID, message string) {
	select {
	case <-l.quit:
		return
	default:
	}

	line := fmt.Sprintf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), message)
	select {
	case l.entries <- entry{sessionID: sessionID, line: line}:
	default:
		l.log.Warn().Str("session", sessionID).Msg("audit queue full, entry dropped")
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
		<-l.done
	})
}

func (l *Logger) run() {
	defer close(l.done)
	for {
		select {
		case e := <-l.entries:
			l.append(e)
		case <-l.quit:
			for {
				select {
				case e := <-l.entries:
					l.append(e)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) append(e entry) {
	path := filepath.Join(l.dir, sanitizeID(e.sessionID)+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Error().Err(err).Str("session", e.sessionID).Msg("open audit file")
		return
	}
	if _, err := f.WriteString(e.line); err != nil {
		l.log.Error().Err(err).Str("session", e.sessionID).Msg("append audit line")
	}
	if err := f.Close(); err != nil {
		l.log.Error().Err(err).Str("session", e.sessionID).Msg("close audit file")
	}
}

// sanitizeID keeps session-supplied ids path-safe. REST callers send the
// id as free text, so separators and dot-dot segments must not escape dir.
func sanitizeID(id string) string {
	id = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
	if id == "" {
		return "unknown"
	}
	return id
}
