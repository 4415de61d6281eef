package config

// Subcommand names.
const (
	SubcommandIntercept = "intercept"
	SubcommandCitnames  = "citnames"
)

// Arguments is the parsed command line.  Subcommand is empty for the
// combined form; any other unrecognised value is an invalid subcommand
// that the mode selector rejects.
type Arguments struct {
	Subcommand string

	Output     string
	Input      string
	ConfigFile string
	Append     bool
	RunChecks  bool

	ForcePreload bool
	ForceWrapper bool
	Library      string
	Wrapper      string
	WrapperDir   string

	// Command is the build command given after "--".
	Command []string

	Verbose int

	// Changed records the flags set explicitly on the command line.
	Changed map[string]bool
}

// IsSet reports whether the named flag was given explicitly.
func (a *Arguments) IsSet(name string) bool {
	return a != nil && a.Changed[name]
}

// OutputOr returns the --output value, or def when it was not given.
func (a *Arguments) OutputOr(def string) string {
	if a.IsSet("output") {
		return a.Output
	}
	return def
}
