// Package citnames turns the events recorded by intercept into a JSON
// compilation database.
package citnames

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gobear/config"
	gerrors "gobear/internal/errors"
	"gobear/internal/event"
	"gobear/util"
)

const (
	stage       = "citnames"
	exitFailure = 1
)

// Command is a constructed citnames stage.
type Command struct {
	Input      string
	Output     string
	Append     bool
	Format     config.Format
	Recognizer *Recognizer
	Filter     *Filter
	Logger     *util.Logger
}

// New validates cfg and prepares the compiler matcher and filters.
func New(cfg config.Citnames, logger *util.Logger) (*Command, error) {
	if cfg.Input == "" {
		return nil, gerrors.Stage(stage, "construct", errors.New("events file path is empty"))
	}
	if cfg.Output == "" {
		return nil, gerrors.Stage(stage, "construct", errors.New("output path is empty"))
	}
	for i, c := range cfg.Compilation.CompilersToRecognize {
		if c.Executable == "" {
			return nil, gerrors.Stage(stage, "construct",
				fmt.Errorf("compilers_to_recognize[%d]: executable is empty", i))
		}
	}

	return &Command{
		Input:      cfg.Input,
		Output:     cfg.Output,
		Append:     cfg.Append,
		Format:     cfg.Format,
		Recognizer: NewRecognizer(cfg.Compilation),
		Filter:     NewFilter(cfg.Content, cfg.RunChecks),
		Logger:     logger.With(zap.String("stage", stage)),
	}, nil
}

// Execute reads the events file and writes the database.
func (c *Command) Execute(ctx context.Context) (int, error) {
	events, err := event.ReadFile(c.Input)
	if err != nil {
		return exitFailure, gerrors.Stage(stage, "read", err)
	}

	entries, err := c.translate(ctx, events)
	if err != nil {
		return exitFailure, gerrors.Stage(stage, "translate", err)
	}

	if c.Append {
		previous, err := ReadDatabase(c.Output)
		if err != nil {
			return exitFailure, gerrors.Stage(stage, "append", err)
		}
		c.Logger.Verbose("appending to %d existing entries", len(previous))
		// Fresh entries win over stale duplicates.
		entries = append(entries, previous...)
	}

	kept := c.Filter.Apply(entries)
	c.Logger.Debug("%d of %d entries kept after filtering", len(kept), len(entries))

	data, err := Encode(kept, c.Format)
	if err != nil {
		return exitFailure, gerrors.Stage(stage, "encode", err)
	}
	if err := util.WriteFileAtomic(c.Output, data, 0o644); err != nil {
		return exitFailure, gerrors.Stage(stage, "write", err)
	}

	c.Logger.Verbose("%d entries written to %s", len(kept), c.Output)
	return 0, nil
}

// translate maps every recognised compiler call to its entries.
func (c *Command) translate(ctx context.Context, events []event.Event) ([]Entry, error) {
	var entries []Entry
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		compiler, ok := c.Recognizer.Recognize(ev)
		if !ok {
			c.Logger.Debug("not a compiler call: %s", ev.Executable)
			continue
		}
		parsed := Parse(ev, compiler)
		if len(parsed) == 0 {
			c.Logger.Debug("no sources compiled by %v", ev.Arguments)
		}
		entries = append(entries, parsed...)
	}
	c.Logger.Verbose("%d entries from %d events", len(entries), len(events))
	return entries, nil
}
