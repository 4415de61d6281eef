package citnames

import (
	"path/filepath"
	"regexp"
	"slices"

	"gobear/config"
	"gobear/internal/event"
)

// knownCompiler matches the basenames of the usual C family drivers,
// including cross prefixes: cc, clang++, x86_64-linux-gnu-gcc-12.
// Only the gcc and clang drivers take a version suffix, so gcc's
// internal cc1 never matches.  cpp only preprocesses and is left out.
var knownCompiler = regexp.MustCompile(`^([\w.]+-)*(cc|c\+\+|(mcc|gcc|g\+\+|clang|clang\+\+)(-?[0-9]+(\.[0-9]+)*)?)$`)

// Recognizer decides which events are compiler calls.
type Recognizer struct {
	configured []config.Compiler
	excluded   []string
}

// NewRecognizer builds a Recognizer from the compilation settings.
func NewRecognizer(cfg config.Compilation) *Recognizer {
	return &Recognizer{
		configured: cfg.CompilersToRecognize,
		excluded:   cfg.CompilersToExclude,
	}
}

// Recognize reports whether ev ran a compiler and returns the matching
// configured compiler, if any, for its flag edits.  Exclusions win over
// everything else.
func (r *Recognizer) Recognize(ev event.Event) (config.Compiler, bool) {
	exe := ev.Executable
	if sameExecutable(r.excluded, exe) {
		return config.Compiler{}, false
	}
	for _, c := range r.configured {
		if sameExecutable([]string{c.Executable}, exe) {
			return c, true
		}
	}
	if knownCompiler.MatchString(filepath.Base(exe)) {
		return config.Compiler{Executable: exe}, true
	}
	return config.Compiler{}, false
}

// sameExecutable matches by full path, or by basename for entries
// given without a directory.
func sameExecutable(list []string, exe string) bool {
	base := filepath.Base(exe)
	return slices.ContainsFunc(list, func(s string) bool {
		if s == exe {
			return true
		}
		return !containsSeparator(s) && s == base
	})
}

func containsSeparator(s string) bool {
	return filepath.Base(s) != s
}
