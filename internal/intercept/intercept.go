// Package intercept runs a build under observation.  It starts a
// loopback collector, runs the build with an environment that makes
// the preload library or the compiler wrappers report every compiler
// call to that collector, and writes the reported calls to the events
// file.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gobear/config"
	gerrors "gobear/internal/errors"
	"gobear/internal/metrics"
	"gobear/util"
)

const (
	stage       = "intercept"
	exitFailure = 1
	// collectorAddress binds an ephemeral loopback port.
	collectorAddress = "127.0.0.1:0"
)

// Command is a constructed intercept stage.
type Command struct {
	Executable string   // resolved build executable
	Args       []string // full argv, Args[0] included
	Output     string   // events file
	Session    *Session
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// Stdin/Stdout/Stderr default to the process's own when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New validates cfg and resolves the build executable.  Nothing is
// started until Execute.
func New(cfg config.Intercept, logger *util.Logger) (*Command, error) {
	if len(cfg.Command) == 0 {
		return nil, gerrors.Stage(stage, "construct", gerrors.ErrNoCommand)
	}
	if cfg.Output == "" {
		return nil, gerrors.Stage(stage, "construct", errors.New("events file path is empty"))
	}

	executable, err := exec.LookPath(cfg.Command[0])
	if err != nil {
		return nil, gerrors.Stage(stage, "construct",
			fmt.Errorf("%w: %s: %v", gerrors.ErrExecutableNotFound, cfg.Command[0], err))
	}

	session, err := NewSession(cfg)
	if err != nil {
		return nil, gerrors.Stage(stage, "construct", err)
	}

	return &Command{
		Executable: executable,
		Args:       append([]string(nil), cfg.Command...),
		Output:     cfg.Output,
		Session:    session,
		Logger:     logger.With(zap.String("stage", stage)),
		Metrics:    metrics.New(),
	}, nil
}

// Execute runs the build under the collector and returns the build's
// exit code.  An error means the build could not be run or its
// compiler calls could not be collected.
func (c *Command) Execute(ctx context.Context) (int, error) {
	if err := util.RemoveIfExists(c.Output); err != nil {
		return exitFailure, gerrors.Stage(stage, "execute", fmt.Errorf("remove stale events file: %w", err))
	}

	reporter := NewReporter(c.Output, c.Metrics)
	collector, err := Listen(collectorAddress, reporter, c.Logger, c.Metrics)
	if err != nil {
		return exitFailure, gerrors.Stage(stage, "execute", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return collector.Serve(gctx) })

	c.Logger.Verbose("running %v (%s session, collector %s)", c.Args, c.Session.Kind, collector.Addr())
	code, runErr := c.run(ctx, collector.Addr())

	collector.Close() //nolint:errcheck
	serveErr := g.Wait()
	closeErr := reporter.Close()

	c.Logger.Debug("metrics: %s", c.Metrics.JSON())
	c.Logger.Verbose("build exited with %d, %d compiler call(s) recorded", code, c.Metrics.EventsWritten())

	if runErr != nil {
		return exitFailure, gerrors.Stage(stage, "execute", runErr)
	}
	if err := errors.Join(serveErr, closeErr); err != nil {
		return code, gerrors.Stage(stage, "collect", err)
	}
	return code, nil
}

// run starts the build and waits for it.  A non-zero exit is a result,
// not an error.
func (c *Command) run(ctx context.Context, addr string) (int, error) {
	cmd := exec.CommandContext(ctx, c.Executable)
	cmd.Args = c.Args
	cmd.Env = c.Session.Environ(os.Environ(), addr)
	cmd.Stdin = orReader(c.Stdin, os.Stdin)
	cmd.Stdout = orWriter(c.Stdout, os.Stdout)
	cmd.Stderr = orWriter(c.Stderr, os.Stderr)

	c.Logger.Debug("exec: %s", cmd.String())

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Killed by a signal.
		return exitFailure, nil
	}
	if err != nil {
		return exitFailure, fmt.Errorf("run %s: %w", c.Executable, err)
	}
	return 0, nil
}

func orReader(r, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
