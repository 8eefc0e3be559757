package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Result holds the output of executing an external command.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Opts configures command execution.
type Opts struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
	Env     map[string]string
	Stdin   []byte
}

// Runner executes external commands. Exec is the production implementation;
// tests substitute scripted fakes.
type Runner interface {
	Run(ctx context.Context, opts Opts) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, opts Opts) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, opts Opts) (*Result, error) { return f(ctx, opts) }

// Default runs commands with Exec.
var Default Runner = RunnerFunc(Exec)

// Exec runs a command and captures its output.
// Non-zero exit codes are captured (not treated as errors).
// Timeouts are treated as errors.
func Exec(ctx context.Context, opts Opts) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = buildEnv(opts.Env)

	if len(opts.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.ExitCode = -1
			return result, fmt.Errorf("%s timed out after %s", opts.Name, opts.Timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("executing %s: %w", opts.Name, err)
	}

	return result, nil
}

// Available reports whether name resolves to an executable on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// buildEnv inherits the process environment; nmcli, ip and node all need PATH
// and locale settings.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}
