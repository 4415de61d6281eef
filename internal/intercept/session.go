package intercept

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gobear/config"
	gerrors "gobear/internal/errors"
	"gobear/util"
)

// Environment variables understood by the preload library and the
// wrapper executable.
const (
	EnvReportAddr = "GOBEAR_REPORT_ADDR"
	EnvWrapperDir = "GOBEAR_WRAPPER_DIR"
)

// SessionKind selects how compiler calls are observed.
type SessionKind int

const (
	// Preload injects a shared library that reports every exec call.
	Preload SessionKind = iota
	// Wrapper puts reporting wrappers in front of the compilers on PATH.
	Wrapper
)

func (k SessionKind) String() string {
	if k == Preload {
		return "preload"
	}
	return "wrapper"
}

// wrappedCompilers are pointed at by CC/CXX in wrapper sessions when
// the wrapper directory provides them.
var wrappedCompilers = map[string]string{ //nolint:gochecknoglobals
	"CC":  "cc",
	"CXX": "c++",
}

// Session decides the interception method and prepares the build
// environment for it.
type Session struct {
	Kind       SessionKind
	Library    string
	Wrapper    string
	WrapperDir string
}

// NewSession picks the session kind: a forced flag wins, otherwise the
// preload library is used when it is installed, else wrappers.
func NewSession(cfg config.Intercept) (*Session, error) {
	s := &Session{
		Library:    cfg.Library,
		Wrapper:    cfg.Wrapper,
		WrapperDir: cfg.WrapperDir,
	}

	switch {
	case cfg.ForcePreload && cfg.ForceWrapper:
		return nil, &gerrors.ConfigError{
			Field:   "force-preload",
			Message: "cannot be combined with --force-wrapper",
		}
	case cfg.ForcePreload:
		s.Kind = Preload
	case cfg.ForceWrapper:
		s.Kind = Wrapper
	case s.Library != "" && util.Exists(s.Library):
		s.Kind = Preload
	default:
		s.Kind = Wrapper
	}

	switch s.Kind {
	case Preload:
		if !util.Exists(s.Library) {
			return nil, fmt.Errorf("preload library %s: %w", s.Library, os.ErrNotExist)
		}
	case Wrapper:
		info, err := os.Stat(s.WrapperDir)
		if err != nil {
			return nil, fmt.Errorf("wrapper directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("wrapper directory %s: not a directory", s.WrapperDir)
		}
	}
	return s, nil
}

// Environ returns base extended with what the session needs to report
// to the collector at addr.
func (s *Session) Environ(base []string, addr string) []string {
	env := append([]string(nil), base...)
	env = setenv(env, EnvReportAddr, addr)

	switch s.Kind {
	case Preload:
		key := "LD_PRELOAD"
		if runtime.GOOS == "darwin" {
			key = "DYLD_INSERT_LIBRARIES"
			env = setenv(env, "DYLD_FORCE_FLAT_NAMESPACE", "1")
		}
		env = setenv(env, key, prependList(getenv(env, key), s.Library, ":"))
	case Wrapper:
		env = setenv(env, EnvWrapperDir, s.WrapperDir)
		env = setenv(env, "PATH", prependList(getenv(env, "PATH"), s.WrapperDir, string(os.PathListSeparator)))
		for key, name := range wrappedCompilers {
			if path := filepath.Join(s.WrapperDir, name); util.Exists(path) {
				env = setenv(env, key, path)
			}
		}
	}
	return env
}

// ── env helpers ──────────────────────────────────────────────────────

func getenv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v
		}
	}
	return ""
}

func setenv(env []string, key, value string) []string {
	out := env[:0]
	for _, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok && k == key {
			continue
		}
		out = append(out, kv)
	}
	return append(out, key+"="+value)
}

// prependList puts item first in a separator-delimited list, dropping
// any later copy of it.
func prependList(list, item, sep string) string {
	parts := []string{item}
	for _, p := range strings.Split(list, sep) {
		if p != "" && p != item {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, sep)
}
