// Package logging sets up the daemon's log output: stdout plus a rolling
// on-disk text log capped at a fixed number of lines, mirroring the
// upstream bot's plain log.Printf idiom rather than introducing a
// structured logging framework the rest of the codebase doesn't use.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/state"
)

// rollingWriter adapts a state.RollingLog to io.Writer, trimming the file
// to its line cap on every write.
type rollingWriter struct {
	log *state.RollingLog
}

func (w *rollingWriter) Write(p []byte) (int, error) {
	line := string(p)
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	if err := w.log.Write(line); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Setup directs the standard logger to stdout and the store's rolling
// daemon.log, and returns a restore function for tests.
func Setup(store *state.Store, maxLines int) func() {
	rl := store.NewRollingLog(maxLines)
	out := io.MultiWriter(os.Stdout, &rollingWriter{log: rl})
	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime)

	return func() { log.SetOutput(os.Stderr) }
}
