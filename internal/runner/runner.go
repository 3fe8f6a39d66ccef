package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single external invocation when the caller
	// does not configure one.
	DefaultTimeout = 10 * time.Minute
	// maxCapturedOutput bounds the stderr/stdout kept per invocation.
	// ffmpeg in particular logs every frame on some inputs.
	maxCapturedOutput = 64 * 1024
	// stderrTailLength is how much stderr travels inside an ExitError.
	stderrTailLength = 1000
)

// Command is a fully built argument vector for one external binary. Builders
// are pure functions, never shell strings, so there is nothing to inject and
// every invocation can be asserted in tests.
type Command struct {
	Bin  string
	Args []string
}

func (c Command) String() string {
	return c.Bin + " " + strings.Join(c.Args, " ")
}

type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError is the uniform failure surface: non-zero exit and timeout both
// land here, carrying a truncated stderr tail.
type ExitError struct {
	Cmd      string
	Err      error
	Stderr   string
	TimedOut bool
}

func (e *ExitError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s timed out: %s", e.Cmd, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Cmd, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// boundedBuffer keeps the tail of what was written so the interesting part
// of an encoder log (the actual error, printed last) survives truncation.
type boundedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.buf.Len()+n > b.max {
		overflow := b.buf.Len() + n - b.max
		if overflow >= b.buf.Len() {
			b.buf.Reset()
			if n > b.max {
				p = p[n-b.max:]
			}
		} else {
			b.buf.Next(overflow)
		}
	}
	b.buf.Write(p)
	return n, nil
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}

// Runner invokes external binaries with a wall-clock deadline. It never
// retries; retry policy belongs to the calling pipeline's fallback ladder.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

type execRunner struct {
	timeout time.Duration
}

func New(timeout time.Duration) Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &execRunner{timeout: timeout}
}

func (r *execRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stdout := &boundedBuffer{max: maxCapturedOutput}
	stderr := &boundedBuffer{max: maxCapturedOutput}

	execCmd := exec.CommandContext(runCtx, cmd.Bin, cmd.Args...)
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr

	start := time.Now()
	err := execCmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		return nil, &ExitError{
			Cmd:      cmd.Bin,
			Err:      err,
			Stderr:   tail(stderr.String(), stderrTailLength),
			TimedOut: runCtx.Err() == context.DeadlineExceeded,
		}
	}

	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
