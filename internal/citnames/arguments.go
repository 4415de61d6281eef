package citnames

import (
	"path/filepath"
	"slices"
	"strings"

	"gobear/config"
	"gobear/internal/event"
)

// sourceExtensions are the file suffixes compiled as a translation
// unit.  ".C" is C++ and stays case sensitive.
var sourceExtensions = map[string]bool{ //nolint:gochecknoglobals
	".c": true, ".cc": true, ".cp": true, ".cpp": true, ".cxx": true,
	".c++": true, ".C": true, ".m": true, ".mm": true, ".s": true, ".S": true,
}

// valueFlags consume the following argument when given on their own.
var valueFlags = map[string]bool{ //nolint:gochecknoglobals
	"-I": true, "-D": true, "-U": true, "-include": true, "-imacros": true,
	"-isystem": true, "-iquote": true, "-idirafter": true, "-isysroot": true,
	"-MF": true, "-MT": true, "-MQ": true, "-x": true, "-arch": true,
	"-target": true, "-Xlinker": true, "-Xpreprocessor": true,
	"-Xassembler": true, "-Xclang": true, "-L": true, "-l": true,
	"-aux-info": true, "--param": true,
	"-dumpbase": true, "-dumpbase-ext": true, "-dumpdir": true, "-auxbase": true,
	"-auxbase-strip": true,
}

// noCompileFlags stop the driver before compilation.
var noCompileFlags = map[string]bool{ //nolint:gochecknoglobals
	"-E": true, "-M": true, "-MM": true,
}

// IsSource reports whether name has a recognised source extension.
func IsSource(name string) bool {
	return sourceExtensions[filepath.Ext(name)]
}

// Parse turns one compiler call into an entry per source file.  Calls
// that only preprocess or only link produce none.
func Parse(ev event.Event, compiler config.Compiler) []Entry {
	args := editFlags(ev.Arguments, compiler)
	if len(args) == 0 {
		return nil
	}

	var (
		flags   []string
		sources []string
		output  string
		compile bool
	)
	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch {
		case noCompileFlags[arg]:
			return nil
		case arg == "-c":
			compile = true
			flags = append(flags, arg)
		case arg == "-o" && i+1 < len(args):
			output = args[i+1]
			i++
		case strings.HasPrefix(arg, "-o") && len(arg) > 2:
			output = arg[2:]
		case valueFlags[arg] && i+1 < len(args):
			flags = append(flags, arg, args[i+1])
			i++
		case !strings.HasPrefix(arg, "-") && IsSource(arg):
			sources = append(sources, arg)
		default:
			flags = append(flags, arg)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	if !compile {
		// Compile and link in one go: describe the compile step only.
		flags = append(flags, "-c")
		output = ""
	}
	if len(sources) > 1 {
		output = ""
	}

	executable := ev.Executable
	if executable == "" {
		executable = args[0]
	}

	entries := make([]Entry, 0, len(sources))
	for _, src := range sources {
		out := output
		if out == "" {
			out = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".o"
		}
		arguments := append([]string{executable}, flags...)
		arguments = append(arguments, src, "-o", out)
		entries = append(entries, Entry{
			Directory: ev.WorkingDir,
			File:      resolve(ev.WorkingDir, src),
			Arguments: arguments,
			Output:    resolve(ev.WorkingDir, out),
		})
	}
	return entries
}

// editFlags applies the configured flags_to_remove and flags_to_add.
func editFlags(args []string, compiler config.Compiler) []string {
	if len(compiler.FlagsToRemove) == 0 && len(compiler.FlagsToAdd) == 0 {
		return args
	}
	out := make([]string, 0, len(args)+len(compiler.FlagsToAdd))
	for i, arg := range args {
		if i > 0 && slices.Contains(compiler.FlagsToRemove, arg) {
			continue
		}
		out = append(out, arg)
	}
	return append(out, compiler.FlagsToAdd...)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}
