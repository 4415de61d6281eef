// Package config defines the runtime configuration for gobear: the
// intercept and citnames stage settings, their defaults, and the
// loaders that layer a config file, the environment and CLI flags on
// top of each other.
package config

import (
	"slices"

	gerrors "gobear/internal/errors"
)

// Configuration holds every tuneable for a single gobear invocation.
type Configuration struct {
	Intercept Intercept
	Citnames  Citnames
}

// Intercept configures the stage that observes the build.
type Intercept struct {
	// Output is the events file.  The mode selector overwrites it in
	// combined mode.
	Output  string
	Command []string

	// ── session selection ────────────────────────────────────────────
	Library      string // preload library path
	Wrapper      string // wrapper executable path
	WrapperDir   string // directory of per-compiler wrapper links
	ForcePreload bool
	ForceWrapper bool
}

// Citnames configures the stage that turns events into a compilation
// database.
type Citnames struct {
	// Input is the events file.  The mode selector overwrites it in
	// combined mode.
	Input     string
	Output    string
	Append    bool
	RunChecks bool

	Compilation Compilation
	Format      Format
	Content     Content
}

// Compilation controls which executions count as compiler calls.
type Compilation struct {
	CompilersToRecognize []Compiler `yaml:"compilers_to_recognize"`
	CompilersToExclude   []string   `yaml:"compilers_to_exclude"`
}

// Compiler names an extra compiler and per-compiler flag edits.
type Compiler struct {
	Executable    string   `yaml:"executable"`
	FlagsToAdd    []string `yaml:"flags_to_add"`
	FlagsToRemove []string `yaml:"flags_to_remove"`
}

// Format controls the shape of each database entry.
type Format struct {
	CommandAsArray  bool `yaml:"command_as_array"`
	DropOutputField bool `yaml:"drop_output_field"`
}

// Content controls which entries end up in the database.
type Content struct {
	IncludeOnlyExistingSource bool     `yaml:"include_only_existing_source"`
	PathsToInclude            []string `yaml:"paths_to_include"`
	PathsToExclude            []string `yaml:"paths_to_exclude"`
	DuplicateFilterFields     string   `yaml:"duplicate_filter_fields"`
}

// Default returns a Configuration populated from defaults.go.
func Default() *Configuration {
	return &Configuration{
		Intercept: Intercept{
			Output:     DefaultEventsOutput,
			Library:    DefaultLibrary,
			Wrapper:    DefaultWrapper,
			WrapperDir: DefaultWrapperDir,
		},
		Citnames: Citnames{
			Input:  DefaultEventsOutput,
			Output: DefaultOutput,
			Format: Format{CommandAsArray: true},
			Content: Content{
				DuplicateFilterFields: DefaultDuplicateFilterFields,
			},
		},
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Configuration) Validate() error {
	if c.Intercept.ForcePreload && c.Intercept.ForceWrapper {
		return &gerrors.ConfigError{
			Field:   "force-preload",
			Message: "cannot be combined with --force-wrapper",
			Hint:    "pick one session type or neither to auto-detect",
		}
	}
	if c.Intercept.Output == "" {
		return &gerrors.ConfigError{Field: "output", Message: "events file path must not be empty"}
	}
	if c.Citnames.Input == "" {
		return &gerrors.ConfigError{Field: "input", Message: "must not be empty"}
	}
	if c.Citnames.Output == "" {
		return &gerrors.ConfigError{Field: "output", Message: "must not be empty"}
	}
	if f := c.Citnames.Content.DuplicateFilterFields; f != "" && !slices.Contains(DuplicateFilterFields, f) {
		return &gerrors.ConfigError{
			Field:   "duplicate-filter-fields",
			Value:   f,
			Message: "unknown field set",
			Hint:    "use one of all, file, file_output",
		}
	}
	for i, cc := range c.Citnames.Compilation.CompilersToRecognize {
		if cc.Executable == "" {
			return &gerrors.ConfigError{
				Field:   "compilers-to-recognize",
				Value:   i,
				Message: "entry has no executable",
			}
		}
	}
	return nil
}
