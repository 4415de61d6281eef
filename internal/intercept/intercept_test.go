package intercept

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobear/config"
	gerrors "gobear/internal/errors"
	"gobear/internal/event"
	"gobear/util"
)

// TestHelperProcess is not a real test: it is the fake build that
// Execute runs.  It reports HELPER_CALLS compiler calls to the
// collector and exits with HELPER_EXIT.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GOBEAR_WANT_HELPER_PROCESS") != "1" {
		return
	}
	calls, _ := strconv.Atoi(os.Getenv("HELPER_CALLS"))
	for i := 0; i < calls; i++ {
		ev, err := event.FromProcess("/usr/bin/cc", []string{"cc", "-c", fmt.Sprintf("src%d.c", i)})
		if err == nil {
			err = Report(context.Background(), os.Getenv(EnvReportAddr), ev)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(99)
		}
	}
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT"))
	os.Exit(code)
}

func helperConfig(t *testing.T, calls, exit int) config.Intercept {
	t.Helper()
	t.Setenv("GOBEAR_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_CALLS", strconv.Itoa(calls))
	t.Setenv("HELPER_EXIT", strconv.Itoa(exit))

	dir := t.TempDir()
	return config.Intercept{
		Output:       filepath.Join(dir, "events.json"),
		Command:      []string{os.Args[0], "-test.run=TestHelperProcess"},
		WrapperDir:   dir,
		ForceWrapper: true,
	}
}

func newHelperCommand(t *testing.T, cfg config.Intercept) *Command {
	t.Helper()
	cmd, err := New(cfg, quietLogger())
	require.NoError(t, err)
	cmd.Stdout = &bytes.Buffer{}
	cmd.Stderr = &bytes.Buffer{}
	return cmd
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		cfg    config.Intercept
		target error
	}{
		{"no command", config.Intercept{Output: "e.json", WrapperDir: dir}, gerrors.ErrNoCommand},
		{"unknown executable", config.Intercept{Output: "e.json", WrapperDir: dir, Command: []string{"gobear-no-such-build-tool"}}, gerrors.ErrExecutableNotFound},
		{"no session", config.Intercept{Output: "e.json", WrapperDir: filepath.Join(dir, "missing"), Command: []string{os.Args[0]}}, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, quietLogger())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			var se *gerrors.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "intercept", se.Stage)
		})
	}

	_, err := New(config.Intercept{Command: []string{os.Args[0]}, WrapperDir: dir}, quietLogger())
	assert.ErrorContains(t, err, "events file path is empty")
}

func TestExecute_RecordsCompilerCalls(t *testing.T) {
	cfg := helperConfig(t, 3, 0)
	cmd := newHelperCommand(t, cfg)

	code, err := cmd.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	events, err := event.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.EqualValues(t, 3, cmd.Metrics.EventsWritten())
}

// TestExecute_PropagatesExitCode verifies the build's exit code is the
// result, not an error.
func TestExecute_PropagatesExitCode(t *testing.T) {
	cfg := helperConfig(t, 1, 7)
	cmd := newHelperCommand(t, cfg)

	code, err := cmd.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, code)
	assert.True(t, util.Exists(cfg.Output), "calls made before failing are kept")
}

// TestExecute_NoCallsNoFile verifies a build without compiler calls
// leaves no events file, and a stale one from an earlier run is gone.
func TestExecute_NoCallsNoFile(t *testing.T) {
	cfg := helperConfig(t, 0, 0)
	require.NoError(t, os.WriteFile(cfg.Output, []byte("stale\n"), 0o644))
	cmd := newHelperCommand(t, cfg)

	code, err := cmd.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.False(t, util.Exists(cfg.Output))
}

func TestExecute_StartFailure(t *testing.T) {
	cfg := helperConfig(t, 0, 0)
	cmd := newHelperCommand(t, cfg)
	cmd.Executable = filepath.Join(t.TempDir(), "vanished")

	code, err := cmd.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, exitFailure, code)
}
