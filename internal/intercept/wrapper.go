package intercept

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	gerrors "gobear/internal/errors"
	"gobear/internal/event"
	"gobear/util"
)

// reportTimeout bounds how long a wrapper waits for the collector.
const reportTimeout = 10 * time.Second

// FindCompiler looks name up on the PATH list, skipping skipDir so a
// wrapper never resolves to itself.
func FindCompiler(name, pathList, skipDir string) (string, error) {
	skip := filepath.Clean(skipDir)
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" || (skipDir != "" && filepath.Clean(dir) == skip) {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %s", gerrors.ErrExecutableNotFound, name)
}

// Wrap is the body of a compiler wrapper: argv is the wrapper's own
// command line, invoked under the name of the compiler it stands in
// for.  It reports the call, runs the real compiler and returns its
// exit code.  A failed report is logged and does not fail the build.
func Wrap(ctx context.Context, argv []string, logger *util.Logger) (int, error) {
	if len(argv) == 0 {
		return exitFailure, gerrors.ErrNoCommand
	}

	skipDir := os.Getenv(EnvWrapperDir)
	if skipDir == "" {
		if self, err := os.Executable(); err == nil {
			skipDir = filepath.Dir(self)
		}
	}
	compiler, err := FindCompiler(filepath.Base(argv[0]), os.Getenv("PATH"), skipDir)
	if err != nil {
		return exitFailure, err
	}

	if addr := os.Getenv(EnvReportAddr); addr != "" {
		if err := report(ctx, addr, compiler, argv); err != nil {
			logger.Warn("gobear: report %s: %v", compiler, err)
		}
	} else {
		logger.Debug("%s not set, not reporting", EnvReportAddr)
	}

	cmd := exec.CommandContext(ctx, compiler, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return exitFailure, nil
	}
	if err != nil {
		return exitFailure, err
	}
	return 0, nil
}

func report(ctx context.Context, addr, compiler string, argv []string) error {
	ev, err := event.FromProcess(compiler, append([]string(nil), argv...))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()
	return Report(ctx, addr, ev)
}
