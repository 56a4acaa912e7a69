package reliability

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

// PIDFile tracks the running server process's PID on disk so an operator
// (or a supervising process) can signal the right instance, and so
// graceful shutdown has something concrete to clean up (§4.11: "captures
// terminate signals, removes its PID file, finishes the in-flight tick,
// then exits"). Grounded on the teacher's deployment lock
// (trader/internal/deployment/lock.go): write-PID-on-start,
// remove-on-release, collapsed to this engine's single always-one-process
// deployment (no stale-lock/timeout reconciliation needed).
type PIDFile struct {
	path string
	log  zerolog.Logger
}

// NewPIDFile returns a PIDFile rooted at dir/autotrader.pid.
func NewPIDFile(dir string, log zerolog.Logger) *PIDFile {
	return &PIDFile{path: filepath.Join(dir, "autotrader.pid"), log: log}
}

// Write records this process's PID, creating dir if needed.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	p.log.Debug().Str("path", p.path).Int("pid", os.Getpid()).Msg("pid file written")
	return nil
}

// Remove deletes the PID file. Missing is not an error — shutdown must
// never fail because cleanup already happened once.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	p.log.Debug().Str("path", p.path).Msg("pid file removed")
	return nil
}
