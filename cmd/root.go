// Package cmd wires up the CLI flags and dispatches to the mode
// selector.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"gobear/config"
	"gobear/internal/core"
	"gobear/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gobear/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args, builds the requested mode and runs it.  The
// returned code is the process exit status when err is nil.
func Execute(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		printUsage("", newFlagSet("", &config.Arguments{}, new(bool), new(bool)))
		return 0, nil
	}

	parsed, exit, err := Parse(args)
	if err != nil {
		return core.ExitFailure, err
	}
	if exit {
		return 0, nil
	}

	logger := util.NewLogger(parsed.Verbose + 1)
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(parsed)
	if err != nil {
		return core.ExitFailure, err
	}

	command, err := core.Build(parsed, cfg, logger)
	if err != nil {
		return core.ExitFailure, err
	}
	return command.Execute(ctx)
}

// Parse turns the command line into Arguments.  exit is true when a
// flag such as --help or --version was handled and nothing should run.
func Parse(args []string) (parsed *config.Arguments, exit bool, err error) {
	a := &config.Arguments{Changed: map[string]bool{}}
	if len(args) > 0 {
		switch args[0] {
		case config.SubcommandIntercept, config.SubcommandCitnames:
			a.Subcommand = args[0]
			args = args[1:]
		}
	}

	var showVersion, showHelp bool
	fs := newFlagSet(a.Subcommand, a, &showVersion, &showHelp)

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if showHelp {
		printUsage(a.Subcommand, fs)
		return nil, true, nil
	}
	if showVersion {
		fmt.Printf("gobear %s\n", version)
		return nil, true, nil
	}
	fs.Visit(func(f *flag.Flag) { a.Changed[f.Name] = true })

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(a, fs.Args(), fs.ArgsLenAtDash()); err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// ── helpers ──────────────────────────────────────────────────────────

func newFlagSet(sub string, a *config.Arguments, showVersion, showHelp *bool) *flag.FlagSet {
	name := "gobear"
	if sub != "" {
		name += " " + sub
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	switch sub {
	case config.SubcommandCitnames:
		fs.StringVarP(&a.Input, "input", "i", config.DefaultEventsOutput, "Events file to read")
		fs.StringVarP(&a.Output, "output", "o", config.DefaultOutput, "Compilation database to write")
		fs.StringVarP(&a.ConfigFile, "config", "c", "", "Config file")
		fs.BoolVarP(&a.Append, "append", "a", false, "Merge with the existing database")
		fs.BoolVar(&a.RunChecks, "run-checks", false, "Drop entries whose source file is missing")

	case config.SubcommandIntercept:
		fs.StringVarP(&a.Output, "output", "o", config.DefaultEventsOutput, "Events file to write")
		addSessionFlags(fs, a)

	default:
		fs.StringVarP(&a.Output, "output", "o", config.DefaultOutput, "Compilation database to write")
		fs.BoolVarP(&a.Append, "append", "a", false, "Merge with the existing database")
		fs.StringVarP(&a.ConfigFile, "config", "c", "", "Config file")
		addSessionFlags(fs, a)
	}

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&a.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(sub, fs) }
	return fs
}

// addSessionFlags declares the interception session flags.  The path
// overrides are meant for development builds.
func addSessionFlags(fs *flag.FlagSet, a *config.Arguments) {
	fs.BoolVar(&a.ForcePreload, "force-preload", false, "Intercept with the preload library")
	fs.BoolVar(&a.ForceWrapper, "force-wrapper", false, "Intercept with compiler wrappers")
	fs.StringVar(&a.Library, "library", config.DefaultLibrary, "Preload library path (developer)")
	fs.StringVar(&a.Wrapper, "wrapper", config.DefaultWrapper, "Wrapper executable path (developer)")
	fs.StringVar(&a.WrapperDir, "wrapper-dir", config.DefaultWrapperDir, "Wrapper directory (developer)")
}

// parsePositional splits what is left after the flags.  Words before
// "--" in the combined form name a subcommand; the build command
// follows "--".
func parsePositional(a *config.Arguments, remaining []string, dash int) error {
	before, after := remaining, []string(nil)
	if dash >= 0 {
		before, after = remaining[:dash], remaining[dash:]
	}

	switch a.Subcommand {
	case config.SubcommandCitnames:
		if len(remaining) > 0 {
			return fmt.Errorf("citnames takes no arguments, got %q", remaining[0])
		}
	case config.SubcommandIntercept:
		if dash < 0 {
			// gobear intercept make: no flags to confuse with the build's.
			after = before
		} else if len(before) > 0 {
			return fmt.Errorf("unexpected argument %q before --", before[0])
		}
		a.Command = after
	default:
		if len(before) > 0 {
			a.Subcommand = before[0]
		}
		a.Command = after
	}
	return nil
}

func printUsage(sub string, fs *flag.FlagSet) {
	switch sub {
	case config.SubcommandIntercept:
		fmt.Fprintf(os.Stderr, `Usage:
  gobear intercept [options] -- <build command...>

Runs the build and records every compiler call to the events file.

Options:
`)
	case config.SubcommandCitnames:
		fmt.Fprintf(os.Stderr, `Usage:
  gobear citnames [options]

Turns an events file into a compilation database.

Options:
`)
	default:
		fmt.Fprintf(os.Stderr, `GoBear – compilation database generator v%s

Usage:
  gobear [options] -- <build command...>              Record and translate
  gobear intercept [options] -- <build command...>    Record only
  gobear citnames [options]                           Translate only

Options:
`, version)
	}
	fs.PrintDefaults()
	if sub == "" {
		fmt.Fprintf(os.Stderr, `
Examples:
  gobear -- make -j8                                  compile_commands.json
  gobear -o build/cc.json -- ninja -C build           Custom output
  gobear --append -- make tests                       Merge into existing
  gobear intercept -o ev.json -- make                 Events only
  gobear citnames -i ev.json -o cc.json               Translate later
`)
	}
}
