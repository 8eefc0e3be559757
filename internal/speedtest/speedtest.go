package speedtest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/sznuper/linkguard/internal/command"
)

// DefaultPrimaryCommand runs the Ookla CLI with JSON output.
var DefaultPrimaryCommand = []string{"speedtest", "--accept-license", "--accept-gdpr", "-f", "json"}

// Tester runs the Ookla CLI (primary) and a node speed-test script (secondary).
type Tester struct {
	PrimaryCommand []string
	Node           string
	Timeout        time.Duration

	runner command.Runner
	logger *slog.Logger
}

// New creates a Tester with the default commands.
func New(logger *slog.Logger) *Tester {
	return &Tester{
		PrimaryCommand: DefaultPrimaryCommand,
		Node:           "node",
		Timeout:        5 * time.Minute,
		runner:         command.Default,
		logger:         logger,
	}
}

// WithRunner replaces the command runner.
func (t *Tester) WithRunner(r command.Runner) *Tester {
	t.runner = r
	return t
}

// RunPrimary runs the Ookla CLI and saves the indented document to outputPath
// on success.
func (t *Tester) RunPrimary(ctx context.Context, outputPath string) Result {
	if len(t.PrimaryCommand) == 0 {
		return ExitError(-1, "no primary speed-test command configured")
	}
	log := t.logger.With("mechanism", "ookla")
	log.Info("running speed test", "command", strings.Join(t.PrimaryCommand, " "))

	res, err := t.runner.Run(ctx, command.Opts{
		Name:    t.PrimaryCommand[0],
		Args:    t.PrimaryCommand[1:],
		Timeout: t.Timeout,
	})
	if r, failed := exitFailure(res, err); failed {
		log.Warn("speed test failed", "error", err, "rc", exitCode(res))
		return r
	}

	out := strings.TrimSpace(res.Stdout)
	if !gjson.Valid(out) {
		log.Warn("speed test output is not JSON", "bytes", len(out))
		return ParseError(fmt.Errorf("parse json: invalid document"), out)
	}

	if outputPath != "" {
		if err := writeFile(outputPath, pretty.Pretty([]byte(out))); err != nil {
			log.Warn("saving speed test result", "path", outputPath, "error", err)
		}
	}
	log.Debug("speed test finished", "duration", res.Duration)
	return Result(out)
}

// RunSecondary runs scriptPath with node from the script's directory, then
// reads the document the script wrote to resultPath.
func (t *Tester) RunSecondary(ctx context.Context, scriptPath, resultPath string) Result {
	log := t.logger.With("mechanism", "js", "script", scriptPath)
	log.Info("running speed test")

	res, err := t.runner.Run(ctx, command.Opts{
		Name:    t.Node,
		Args:    []string{scriptPath},
		Dir:     filepath.Dir(scriptPath),
		Timeout: t.Timeout,
	})
	if r, failed := exitFailure(res, err); failed {
		log.Warn("speed test failed", "error", err, "rc", exitCode(res))
		return r
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		log.Warn("reading speed test result", "path", resultPath, "error", err)
		return ParseError(fmt.Errorf("read %s: %w", filepath.Base(resultPath), err), "")
	}
	if !gjson.ValidBytes(data) {
		return ParseError(fmt.Errorf("read %s: invalid json", filepath.Base(resultPath)), string(data))
	}
	log.Debug("speed test finished", "duration", res.Duration)
	return Result(strings.TrimSpace(string(data)))
}

func exitFailure(res *command.Result, err error) (Result, bool) {
	switch {
	case err != nil:
		stderr := err.Error()
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			stderr = strings.TrimSpace(res.Stderr)
		}
		return ExitError(exitCode(res), stderr), true
	case res.ExitCode != 0:
		return ExitError(res.ExitCode, strings.TrimSpace(res.Stderr)), true
	}
	return nil, false
}

func exitCode(res *command.Result) int {
	if res == nil {
		return -1
	}
	return res.ExitCode
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
