// Package core is the orchestration layer.  It composes the intercept
// and citnames stages into complete operational modes and provides a
// builder that selects the right mode from the parsed arguments.
//
// Architecture layers (bottom → top):
//
//	event  →  intercept / citnames  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between the
// command line and the stages.
package core

import "context"

// ExitFailure is the exit code reported alongside any error.
const ExitFailure = 1

// Command is one runnable unit of work: a single stage or the composed
// pipeline.  Execute runs it once and returns the process exit code,
// or an error when it could not run at all.
type Command interface {
	Execute(ctx context.Context) (int, error)
}

// Handle is the construction result of one stage: a runnable Command
// or the error that prevented building it.  It is immutable and lets a
// composite inspect every stage before deciding to run anything.
type Handle struct {
	cmd Command
	err error
}

// NewHandle captures a factory's result.  A non-nil err wins over cmd.
func NewHandle(cmd Command, err error) Handle {
	if err != nil {
		return Handle{err: err}
	}
	return Handle{cmd: cmd}
}

// Err returns the construction error, if any.
func (h Handle) Err() error { return h.err }

// Execute runs the wrapped command.  Calling it on a failed handle
// returns the construction error without running anything.
func (h Handle) Execute(ctx context.Context) (int, error) {
	if h.err != nil {
		return ExitFailure, h.err
	}
	return h.cmd.Execute(ctx)
}
