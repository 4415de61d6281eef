package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"gobear/config"
	"gobear/internal/citnames"
	gerrors "gobear/internal/errors"
	"gobear/internal/intercept"
	"gobear/util"
)

// InterceptFactory constructs the intercept stage.
type InterceptFactory func(cfg config.Intercept, logger *util.Logger) (Command, error)

// CitnamesFactory constructs the citnames stage.
type CitnamesFactory func(cfg config.Citnames, logger *util.Logger) (Command, error)

// Builder selects and constructs the Command for one invocation.
type Builder struct {
	NewIntercept InterceptFactory
	NewCitnames  CitnamesFactory
	Logger       *util.Logger
}

// NewBuilder returns a Builder wired to the real stages.
func NewBuilder(logger *util.Logger) *Builder {
	return &Builder{
		NewIntercept: newIntercept,
		NewCitnames:  newCitnames,
		Logger:       logger,
	}
}

// Build constructs the appropriate Command from the parsed arguments
// and loaded configuration.
func Build(args *config.Arguments, cfg *config.Configuration, logger *util.Logger) (Command, error) {
	return NewBuilder(logger).Build(args, cfg)
}

// Build picks the mode; the first match wins:
//
//	citnames subcommand   → citnames only
//	intercept subcommand  → intercept only
//	any other subcommand  → ErrInvalidSubcommand
//	no subcommand         → intercept and citnames as a Pipeline
func (b *Builder) Build(args *config.Arguments, cfg *config.Configuration) (Command, error) {
	switch args.Subcommand {
	case config.SubcommandCitnames:
		return b.NewCitnames(cfg.Citnames, b.Logger)
	case config.SubcommandIntercept:
		return b.NewIntercept(cfg.Intercept, b.Logger)
	case "":
		return b.buildPipeline(cfg), nil
	default:
		return nil, fmt.Errorf("%w %q", gerrors.ErrInvalidSubcommand, args.Subcommand)
	}
}

// buildPipeline wires the derived events path into both stage configs
// and keeps construction failures inside the handles, where the
// pipeline reports them before running anything.
func (b *Builder) buildPipeline(cfg *config.Configuration) *Pipeline {
	output := cfg.Citnames.Output
	if output == "" {
		output = config.DefaultOutput
	}
	events := EventsPath(output)

	ic := cfg.Intercept
	ic.Output = events
	cc := cfg.Citnames
	cc.Output = output
	cc.Input = events

	b.Logger.Debug("pipeline: events=%s output=%s", events, output)

	return &Pipeline{
		Intercept: NewHandle(b.NewIntercept(ic, b.Logger)),
		Citnames:  NewHandle(b.NewCitnames(cc, b.Logger)),
		Events:    events,
		Logger:    b.Logger,
	}
}

// EventsPath derives the intermediate events file from the database
// path by swapping its extension for config.EventsExtension:
// build/compile_commands.json → build/compile_commands.events.json.
func EventsPath(output string) string {
	ext := filepath.Ext(output)
	if ext == filepath.Base(output) {
		// ".db" is a stem, not an extension.
		ext = ""
	}
	return strings.TrimSuffix(output, ext) + config.EventsExtension
}

// ── stage adapters ───────────────────────────────────────────────────

func newIntercept(cfg config.Intercept, logger *util.Logger) (Command, error) {
	cmd, err := intercept.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func newCitnames(cfg config.Citnames, logger *util.Logger) (Command, error) {
	cmd, err := citnames.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}
