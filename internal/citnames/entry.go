package citnames

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kballard/go-shellquote"

	"gobear/config"
)

// Entry is one compilation database record.
type Entry struct {
	Directory string
	File      string
	Arguments []string
	Output    string
}

// record is the on-disk form of an Entry.  Exactly one of Arguments
// and Command is written.
type record struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments,omitempty"`
	Command   string   `json:"command,omitempty"`
	Output    string   `json:"output,omitempty"`
}

// Encode renders entries as an indented JSON array in the given format.
func Encode(entries []Entry, format config.Format) ([]byte, error) {
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		r := record{Directory: e.Directory, File: e.File}
		if format.CommandAsArray {
			r.Arguments = e.Arguments
		} else {
			r.Command = shellquote.Join(e.Arguments...)
		}
		if !format.DropOutputField {
			r.Output = e.Output
		}
		records = append(records, r)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a compilation database in either the "arguments" or
// the "command" form.
func Decode(data []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for i, r := range records {
		args := r.Arguments
		if len(args) == 0 && r.Command != "" {
			var err error
			if args, err = shellquote.Split(r.Command); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		if r.File == "" || len(args) == 0 {
			return nil, fmt.Errorf("entry %d: missing file or arguments", i)
		}
		entries = append(entries, Entry{
			Directory: r.Directory,
			File:      r.File,
			Arguments: args,
			Output:    r.Output,
		})
	}
	return entries, nil
}

// ReadDatabase loads the database at path.  A missing file is an empty
// database.
func ReadDatabase(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entries, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}
