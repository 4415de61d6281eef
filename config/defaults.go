package config

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultOutput is the compilation database written by citnames and
	// by the combined pipeline.
	DefaultOutput = "compile_commands.json"

	// DefaultEventsOutput is the events file written by intercept and
	// read by citnames when they run as separate subcommands.
	DefaultEventsOutput = "events.json"

	// EventsExtension replaces the output's extension to name the
	// intermediate events file in combined mode.
	EventsExtension = ".events.json"

	// DefaultLibrary is the preload library injected via LD_PRELOAD.
	DefaultLibrary = "/usr/local/lib/gobear/libexec.so"

	// DefaultWrapper is the compiler wrapper executable.
	DefaultWrapper = "/usr/local/lib/gobear/wrapper"

	// DefaultWrapperDir holds the per-compiler wrapper links that are
	// put in front of PATH in wrapper mode.
	DefaultWrapperDir = "/usr/local/lib/gobear/wrapper.d"

	// DefaultDuplicateFilterFields keys the duplicate filter on the
	// source file and the output file.
	DefaultDuplicateFilterFields = "file_output"
)

// DuplicateFilterFields lists the accepted duplicate filter keys.
var DuplicateFilterFields = []string{"all", "file", "file_output"} //nolint:gochecknoglobals
