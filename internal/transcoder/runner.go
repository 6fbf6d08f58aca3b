package transcoder

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// DefaultDiagnosticsLimit is the number of trailing stderr bytes kept per process.
const DefaultDiagnosticsLimit = 4096

// ProcessResult is the outcome of one external process.
type ProcessResult struct {
	ExitCode int
	Stdout   []byte
	// Stderr holds at most the last DiagnosticsLimit bytes of standard error.
	Stderr   string
	Duration time.Duration
}

// Runner starts an external process and waits for it.
// A process that ran and exited non-zero is reported through ExitCode with a
// nil error; the error is reserved for processes that could not be run.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (ProcessResult, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	DiagnosticsLimit int
}

var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (ProcessResult, error) {
	limit := r.DiagnosticsLimit
	if limit <= 0 {
		limit = DefaultDiagnosticsLimit
	}

	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	result := ProcessResult{
		Stdout:   stdout.Bytes(),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= b.limit {
		b.buf = append(b.buf[:0], p[len(p)-b.limit:]...)
		return n, nil
	}
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
