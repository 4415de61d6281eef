package config

import (
	"strings"
	"testing"

	gerrors "gobear/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Intercept.Output != DefaultEventsOutput {
		t.Errorf("Intercept.Output = %q, want %q", cfg.Intercept.Output, DefaultEventsOutput)
	}
	if cfg.Citnames.Input != DefaultEventsOutput {
		t.Errorf("Citnames.Input = %q, want %q", cfg.Citnames.Input, DefaultEventsOutput)
	}
	if cfg.Citnames.Output != DefaultOutput {
		t.Errorf("Citnames.Output = %q, want %q", cfg.Citnames.Output, DefaultOutput)
	}
	if !cfg.Citnames.Format.CommandAsArray {
		t.Error("CommandAsArray should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		wantSub string
	}{
		{
			name: "both session types forced",
			mutate: func(c *Configuration) {
				c.Intercept.ForcePreload = true
				c.Intercept.ForceWrapper = true
			},
			wantSub: "hint:",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Configuration) { c.Citnames.Output = "" },
			wantSub: "--output: must not be empty",
		},
		{
			name:    "empty events path",
			mutate:  func(c *Configuration) { c.Citnames.Input = "" },
			wantSub: "--input",
		},
		{
			name:    "unknown duplicate filter",
			mutate:  func(c *Configuration) { c.Citnames.Content.DuplicateFilterFields = "everything" },
			wantSub: "duplicate-filter-fields=everything",
		},
		{
			name: "compiler without executable",
			mutate: func(c *Configuration) {
				c.Citnames.Compilation.CompilersToRecognize = []Compiler{{FlagsToAdd: []string{"-Wall"}}}
			},
			wantSub: "no executable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *gerrors.ConfigError
			if !gerrors.As(err, &ce) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestArguments_IsSet(t *testing.T) {
	var nilArgs *Arguments
	if nilArgs.IsSet("output") {
		t.Error("nil Arguments should report nothing set")
	}

	args := &Arguments{Output: "db.json", Changed: map[string]bool{"output": true}}
	if got := args.OutputOr(DefaultOutput); got != "db.json" {
		t.Errorf("OutputOr = %q, want db.json", got)
	}

	args = &Arguments{Output: "ignored"}
	if got := args.OutputOr(DefaultOutput); got != DefaultOutput {
		t.Errorf("OutputOr = %q, want %q", got, DefaultOutput)
	}
}
