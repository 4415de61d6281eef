package config

// loader.go - configuration loading from a file, the environment and
// the parsed command line.
//
// Precedence order (highest wins):
//   1. CLI flags  (ApplyArguments)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load builds the Configuration for one invocation.
func Load(args *Arguments) (*Configuration, error) {
	if args == nil {
		args = &Arguments{}
	}
	cfg := Default()

	path := args.ConfigFile
	if path == "" {
		path = os.Getenv("GOBEAR_CONFIG")
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	LoadFromEnv(cfg)
	ApplyArguments(cfg, args)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ── Config file ──────────────────────────────────────────────────────

// fileConfig mirrors the on-disk layout.  Pointers distinguish "absent"
// from "false" so a file only overrides what it names.  JSON files are
// accepted as well since JSON is valid YAML.
type fileConfig struct {
	Intercept struct {
		Library    string `yaml:"library"`
		Wrapper    string `yaml:"wrapper"`
		WrapperDir string `yaml:"wrapper_directory"`
	} `yaml:"intercept"`

	Compilation *Compilation `yaml:"compilation"`

	Output struct {
		Format struct {
			CommandAsArray  *bool `yaml:"command_as_array"`
			DropOutputField *bool `yaml:"drop_output_field"`
		} `yaml:"format"`
		Content struct {
			IncludeOnlyExistingSource *bool    `yaml:"include_only_existing_source"`
			PathsToInclude            []string `yaml:"paths_to_include"`
			PathsToExclude            []string `yaml:"paths_to_exclude"`
			DuplicateFilterFields     string   `yaml:"duplicate_filter_fields"`
		} `yaml:"content"`
	} `yaml:"output"`
}

// LoadFile overlays the config file at path onto cfg.
func LoadFile(cfg *Configuration, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if v := fc.Intercept.Library; v != "" {
		cfg.Intercept.Library = v
	}
	if v := fc.Intercept.Wrapper; v != "" {
		cfg.Intercept.Wrapper = v
	}
	if v := fc.Intercept.WrapperDir; v != "" {
		cfg.Intercept.WrapperDir = v
	}

	if fc.Compilation != nil {
		cfg.Citnames.Compilation = *fc.Compilation
	}

	f := fc.Output.Format
	if f.CommandAsArray != nil {
		cfg.Citnames.Format.CommandAsArray = *f.CommandAsArray
	}
	if f.DropOutputField != nil {
		cfg.Citnames.Format.DropOutputField = *f.DropOutputField
	}

	c := fc.Output.Content
	if c.IncludeOnlyExistingSource != nil {
		cfg.Citnames.Content.IncludeOnlyExistingSource = *c.IncludeOnlyExistingSource
	}
	if c.PathsToInclude != nil {
		cfg.Citnames.Content.PathsToInclude = c.PathsToInclude
	}
	if c.PathsToExclude != nil {
		cfg.Citnames.Content.PathsToExclude = c.PathsToExclude
	}
	if c.DuplicateFilterFields != "" {
		cfg.Citnames.Content.DuplicateFilterFields = c.DuplicateFilterFields
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOBEAR_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Configuration) {
	if v := os.Getenv("GOBEAR_LIBRARY"); v != "" {
		cfg.Intercept.Library = v
	}
	if v := os.Getenv("GOBEAR_WRAPPER"); v != "" {
		cfg.Intercept.Wrapper = v
	}
	if v := os.Getenv("GOBEAR_WRAPPER_DIR"); v != "" {
		cfg.Intercept.WrapperDir = v
	}
	if envBool("GOBEAR_FORCE_PRELOAD") {
		cfg.Intercept.ForcePreload = true
	}
	if envBool("GOBEAR_FORCE_WRAPPER") {
		cfg.Intercept.ForceWrapper = true
	}

	if envBool("GOBEAR_APPEND") {
		cfg.Citnames.Append = true
	}
	if envBool("GOBEAR_RUN_CHECKS") {
		cfg.Citnames.RunChecks = true
	}
}

// ── Command line ─────────────────────────────────────────────────────

// ApplyArguments copies explicitly given flags onto cfg.  --output
// names the events file for the intercept subcommand and the database
// otherwise.
func ApplyArguments(cfg *Configuration, args *Arguments) {
	if args == nil {
		return
	}

	if args.IsSet("output") {
		if args.Subcommand == SubcommandIntercept {
			cfg.Intercept.Output = args.Output
		} else {
			cfg.Citnames.Output = args.Output
		}
	}
	if args.IsSet("input") {
		cfg.Citnames.Input = args.Input
	}
	if args.IsSet("append") {
		cfg.Citnames.Append = args.Append
	}
	if args.IsSet("run-checks") {
		cfg.Citnames.RunChecks = args.RunChecks
	}

	if args.IsSet("force-preload") {
		cfg.Intercept.ForcePreload = args.ForcePreload
	}
	if args.IsSet("force-wrapper") {
		cfg.Intercept.ForceWrapper = args.ForceWrapper
	}
	if args.IsSet("library") {
		cfg.Intercept.Library = args.Library
	}
	if args.IsSet("wrapper") {
		cfg.Intercept.Wrapper = args.Wrapper
	}
	if args.IsSet("wrapper-dir") {
		cfg.Intercept.WrapperDir = args.WrapperDir
	}
	if len(args.Command) > 0 {
		cfg.Intercept.Command = append([]string(nil), args.Command...)
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
