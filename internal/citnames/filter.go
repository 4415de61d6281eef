package citnames

import (
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"gobear/config"
	"gobear/util"
)

// Filter drops entries the content settings exclude.
type Filter struct {
	existingOnly bool
	include      []string
	exclude      []string
	fields       string
}

// NewFilter compiles the content settings.  checkFiles forces the
// existing-source check on.
func NewFilter(cfg config.Content, checkFiles bool) *Filter {
	fields := cfg.DuplicateFilterFields
	if fields == "" {
		fields = config.DefaultDuplicateFilterFields
	}
	return &Filter{
		existingOnly: cfg.IncludeOnlyExistingSource || checkFiles,
		include:      cleanAll(cfg.PathsToInclude),
		exclude:      cleanAll(cfg.PathsToExclude),
		fields:       fields,
	}
}

// Apply returns the entries that pass every filter, in order.  Of a
// set of duplicates the first one is kept.
func (f *Filter) Apply(entries []Entry) []Entry {
	seen := make(map[[blake2b.Size256]byte]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !f.keep(e) {
			continue
		}
		key := f.key(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func (f *Filter) keep(e Entry) bool {
	if f.existingOnly && !util.Exists(e.File) {
		return false
	}
	if len(f.include) > 0 && !underAny(f.include, e.File) {
		return false
	}
	return !underAny(f.exclude, e.File)
}

// key digests the fields that make two entries duplicates.
func (f *Filter) key(e Entry) [blake2b.Size256]byte {
	parts := []string{e.File}
	switch f.fields {
	case "all":
		parts = append(parts, e.Directory, e.Output)
		parts = append(parts, e.Arguments...)
	case "file_output":
		parts = append(parts, e.Output)
	}
	return blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
}

func underAny(dirs []string, path string) bool {
	sep := string(filepath.Separator)
	for _, d := range dirs {
		if path == d || strings.HasPrefix(path, strings.TrimSuffix(d, sep)+sep) {
			return true
		}
	}
	return false
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}
