package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gerrors "gobear/internal/errors"
	"gobear/util"
)

// fakeCommand records executions and optionally runs a side effect.
type fakeCommand struct {
	code   int
	err    error
	calls  int
	effect func()
}

func (f *fakeCommand) Execute(ctx context.Context) (int, error) {
	f.calls++
	if f.effect != nil {
		f.effect()
	}
	return f.code, f.err
}

func writeEvents(t *testing.T, path string) func() {
	return func() {
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newPipeline(t *testing.T, ic, cc Handle) *Pipeline {
	t.Helper()
	return &Pipeline{
		Intercept: ic,
		Citnames:  cc,
		Events:    filepath.Join(t.TempDir(), "compile_commands.events.json"),
		Logger:    util.NewLogger(0),
	}
}

// TestPipeline_InterceptConstructionFailure verifies the intercept
// construction error is returned verbatim and nothing runs.
func TestPipeline_InterceptConstructionFailure(t *testing.T) {
	cc := &fakeCommand{}
	want := gerrors.Stage("intercept", "construct", gerrors.ErrNoCommand)
	p := newPipeline(t, NewHandle(nil, want), NewHandle(cc, nil))

	_, err := p.Execute(context.Background())
	if err != want {
		t.Fatalf("err = %v, want the construction error itself", err)
	}
	if cc.calls != 0 {
		t.Errorf("citnames ran %d times, want 0", cc.calls)
	}
	if util.Exists(p.Events) {
		t.Error("events file should not exist")
	}
}

// TestPipeline_CitnamesConstructionFailure verifies intercept never
// runs when citnames could not be built.
func TestPipeline_CitnamesConstructionFailure(t *testing.T) {
	ic := &fakeCommand{}
	want := fmt.Errorf("bad citnames config")
	p := newPipeline(t, NewHandle(ic, nil), NewHandle(nil, want))
	ic.effect = writeEvents(t, p.Events)

	_, err := p.Execute(context.Background())
	if err != want {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if ic.calls != 0 {
		t.Errorf("intercept ran %d times, want 0", ic.calls)
	}
	if util.Exists(p.Events) {
		t.Error("no events file should have been written")
	}
}

// TestPipeline_RunsCitnamesAndCleansUp covers the happy path and the
// citnames-failure path: citnames runs once, the events file is gone
// afterwards and intercept's result is returned in both cases.
func TestPipeline_RunsCitnamesAndCleansUp(t *testing.T) {
	tests := []struct {
		name        string
		citnamesErr error
		citnamesRC  int
	}{
		{"citnames succeeds", nil, 0},
		{"citnames fails", fmt.Errorf("cannot write database"), ExitFailure},
		{"citnames non-zero", nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic := &fakeCommand{code: 2}
			cc := &fakeCommand{code: tt.citnamesRC, err: tt.citnamesErr}
			p := newPipeline(t, NewHandle(ic, nil), NewHandle(cc, nil))
			ic.effect = writeEvents(t, p.Events)
			cc.effect = func() {
				if !util.Exists(p.Events) {
					t.Error("events file missing while citnames runs")
				}
			}

			code, err := p.Execute(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != 2 {
				t.Errorf("code = %d, want intercept's 2", code)
			}
			if ic.calls != 1 || cc.calls != 1 {
				t.Errorf("calls intercept=%d citnames=%d, want 1 and 1", ic.calls, cc.calls)
			}
			if util.Exists(p.Events) {
				t.Error("events file should be removed")
			}
		})
	}
}

// TestPipeline_NoEventsSkipsCitnames verifies that a build with no
// recorded compiler calls never invokes citnames and returns
// intercept's result unchanged.
func TestPipeline_NoEventsSkipsCitnames(t *testing.T) {
	tests := []struct {
		name string
		code int
		err  error
	}{
		{"success", 0, nil},
		{"build failed", 4, nil},
		{"intercept error", ExitFailure, fmt.Errorf("session broke")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic := &fakeCommand{code: tt.code, err: tt.err}
			cc := &fakeCommand{}
			p := newPipeline(t, NewHandle(ic, nil), NewHandle(cc, nil))

			code, err := p.Execute(context.Background())
			if code != tt.code || err != tt.err {
				t.Errorf("got (%d, %v), want (%d, %v)", code, err, tt.code, tt.err)
			}
			if cc.calls != 0 {
				t.Errorf("citnames ran %d times, want 0", cc.calls)
			}
		})
	}
}

// TestPipeline_InterceptErrorWithEvents verifies an intercept execution
// error is returned even though citnames still post-processes the
// partial events file.
func TestPipeline_InterceptErrorWithEvents(t *testing.T) {
	want := fmt.Errorf("collector failed")
	ic := &fakeCommand{code: ExitFailure, err: want}
	cc := &fakeCommand{err: fmt.Errorf("ignored")}
	p := newPipeline(t, NewHandle(ic, nil), NewHandle(cc, nil))
	ic.effect = writeEvents(t, p.Events)

	code, err := p.Execute(context.Background())
	if err != want || code != ExitFailure {
		t.Errorf("got (%d, %v), want (%d, %v)", code, err, ExitFailure, want)
	}
	if cc.calls != 1 {
		t.Errorf("citnames ran %d times, want 1", cc.calls)
	}
	if util.Exists(p.Events) {
		t.Error("events file should be removed")
	}
}

// TestPipeline_LogsCitnamesFailure verifies a citnames failure is
// reported as a warning rather than returned.
func TestPipeline_LogsCitnamesFailure(t *testing.T) {
	ic := &fakeCommand{}
	cc := &fakeCommand{code: ExitFailure, err: fmt.Errorf("cannot write database")}
	p := newPipeline(t, NewHandle(ic, nil), NewHandle(cc, nil))
	ic.effect = writeEvents(t, p.Events)

	var buf bytes.Buffer
	p.Logger = util.NewLogger(1)
	p.Logger.SetOutput(&buf)

	if code, err := p.Execute(context.Background()); code != 0 || err != nil {
		t.Fatalf("got (%d, %v), want (0, nil)", code, err)
	}
	out := buf.String()
	if !strings.Contains(out, "[WRN]") || !strings.Contains(out, "cannot write database") {
		t.Errorf("expected a warning about citnames, got:\n%s", out)
	}
}

// TestPipeline_UnreachableEventsSkipsCitnames verifies an events path
// that cannot be stat'ed counts as absent.
func TestPipeline_UnreachableEventsSkipsCitnames(t *testing.T) {
	ic := &fakeCommand{code: 2}
	cc := &fakeCommand{}
	p := newPipeline(t, NewHandle(ic, nil), NewHandle(cc, nil))

	notDir := filepath.Join(t.TempDir(), "build")
	if err := os.WriteFile(notDir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	p.Events = filepath.Join(notDir, "compile_commands.events.json")

	code, err := p.Execute(context.Background())
	if code != 2 || err != nil {
		t.Errorf("got (%d, %v), want (2, nil)", code, err)
	}
	if cc.calls != 0 {
		t.Errorf("citnames ran %d times, want 0", cc.calls)
	}
}

// TestPipeline_CleanupIdempotent verifies repeated cleanup of an
// already removed file is silent.
func TestPipeline_CleanupIdempotent(t *testing.T) {
	p := newPipeline(t, NewHandle(&fakeCommand{}, nil), NewHandle(&fakeCommand{}, nil))
	writeEvents(t, p.Events)()

	p.cleanup()
	p.cleanup()

	if util.Exists(p.Events) {
		t.Error("events file should be removed")
	}
}

func TestHandle(t *testing.T) {
	want := fmt.Errorf("boom")
	cmd := &fakeCommand{code: 5}

	failed := NewHandle(cmd, want)
	if failed.Err() != want {
		t.Errorf("Err() = %v, want %v", failed.Err(), want)
	}
	if code, err := failed.Execute(context.Background()); err != want || code != ExitFailure {
		t.Errorf("failed handle Execute = (%d, %v)", code, err)
	}
	if cmd.calls != 0 {
		t.Error("failed handle must not run its command")
	}

	ok := NewHandle(cmd, nil)
	if code, err := ok.Execute(context.Background()); err != nil || code != 5 {
		t.Errorf("Execute = (%d, %v), want (5, nil)", code, err)
	}
}
