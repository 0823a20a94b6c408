// Package runner executes shell command sequences with a wall-clock limit.
//
// Each spawned process gets its own stdout and stderr pipes drained by two
// goroutines, so a child writing more than a pipe buffer never blocks while
// the parent waits for it to exit.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"decent-ci/src/logger"
)

const (
	// DefaultTimeout bounds general build steps.
	DefaultTimeout = 6 * time.Hour

	// defaultDrainGrace is how long the readers may keep draining after the
	// process is gone. Grandchildren that inherited the pipes would
	// otherwise hold them open indefinitely.
	defaultDrainGrace = 5 * time.Second

	readChunk = 32 * 1024
)

// Options controls one Run invocation.
type Options struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is overlaid on the process environment.
	Env map[string]string
	// Timeout bounds each command. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Result is the captured output of a command sequence.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Success reports whether every executed command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes command sequences.
type Runner interface {
	Run(ctx context.Context, commands []string, opts Options) (Result, error)
}

// ShellRunner runs each command through the platform shell.
type ShellRunner struct {
	log        logger.Logger
	drainGrace time.Duration
}

// NewShellRunner creates a ShellRunner logging to log.
func NewShellRunner(log logger.Logger) *ShellRunner {
	return &ShellRunner{
		log:        logger.OrDefault(log),
		drainGrace: defaultDrainGrace,
	}
}

// Run executes commands in order. A failing command that is not the last
// one stops the sequence and its stderr becomes the result's stderr.
// Exit codes of all executed commands are summed. The returned error is
// only set when a process could not be started.
func (r *ShellRunner) Run(ctx context.Context, commands []string, opts Options) (Result, error) {
	var stdout, stderr strings.Builder
	total := Result{}

	for i, command := range commands {
		res, err := r.runOne(ctx, command, opts)
		stdout.WriteString(res.Stdout)
		stderr.WriteString(res.Stderr)
		total.ExitCode += res.ExitCode
		total.TimedOut = total.TimedOut || res.TimedOut
		if err != nil {
			total.Stdout = stdout.String()
			total.Stderr = stderr.String()
			if total.ExitCode == 0 {
				total.ExitCode = 1
			}
			return total, fmt.Errorf("failed to run %q: %w", command, err)
		}

		if res.ExitCode != 0 && i < len(commands)-1 {
			r.log.Debug("[Runner] Command %q failed with %d, skipping %d remaining", command, res.ExitCode, len(commands)-i-1)
			total.Stdout = stdout.String()
			total.Stderr = res.Stderr
			return total, nil
		}
	}

	total.Stdout = stdout.String()
	total.Stderr = stderr.String()
	return total, nil
}

func (r *ShellRunner) runOne(ctx context.Context, command string, opts Options) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.log.Debug("[Runner] Running: %s", command)

	name, args := shellCommand(command)
	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = mergeEnv(os.Environ(), opts.Env)
	setProcessGroup(cmd)

	outR, outW, err := os.Pipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return Result{}, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return Result{}, err
	}
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	var stdout, stderr bytes.Buffer
	var readers errgroup.Group
	readers.Go(func() error {
		return drain(outR, &stdout, nil)
	})
	readers.Go(func() error {
		return drain(errR, &stderr, func(line string) {
			r.log.Debug("[Runner] stderr: %s", line)
		})
	})

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	timedOut := false
	var waitErr error
	select {
	case waitErr = <-exited:
	case <-ctx.Done():
		timedOut = true
		r.log.Warn("[Runner] Command exceeded %s, terminating: %s", timeout, command)
		killProcessGroup(cmd)
		waitErr = <-exited
	}

	drained := make(chan error, 1)
	go func() {
		drained <- readers.Wait()
	}()
	select {
	case <-drained:
	case <-time.After(r.drainGrace):
		r.log.Debug("[Runner] Output still open after exit, closing pipes: %s", command)
		outR.Close()
		errR.Close()
		<-drained
	}
	outR.Close()
	errR.Close()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(waitErr),
		TimedOut: timedOut,
	}
	if timedOut && res.ExitCode == 0 {
		res.ExitCode = 1
	}
	return res, nil
}

// drain copies r into buf until EOF or until the pipe is closed under it.
// Complete lines are handed to onLine when it is set.
func drain(r io.Reader, buf *bytes.Buffer, onLine func(string)) error {
	chunk := make([]byte, readChunk)
	var pending []byte
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if onLine != nil {
				pending = append(pending, chunk[:n]...)
				for {
					idx := bytes.IndexByte(pending, '\n')
					if idx < 0 {
						break
					}
					onLine(strings.TrimRight(string(pending[:idx]), "\r"))
					pending = pending[idx+1:]
				}
			}
		}
		if err != nil {
			if onLine != nil && len(pending) > 0 {
				onLine(string(pending))
			}
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	// Killed by a signal or otherwise unaccounted for.
	return 1
}

// mergeEnv overlays extra on base. Keys are applied in sorted order so the
// resulting environment is deterministic.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := extra[key]; overridden {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
