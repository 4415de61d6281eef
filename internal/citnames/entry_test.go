package citnames

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobear/config"
)

var sample = []Entry{{
	Directory: "/src",
	File:      "/src/my file.c",
	Arguments: []string{"/usr/bin/cc", "-c", "-DNAME=\"x y\"", "my file.c", "-o", "my file.o"},
	Output:    "/src/my file.o",
}}

func TestEncode_ArgumentsForm(t *testing.T) {
	data, err := Encode(sample, config.Format{CommandAsArray: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"arguments": [`)
	assert.NotContains(t, string(data), `"command"`)
	assert.Contains(t, string(data), `"output": "/src/my file.o"`)

	back, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(sample, back); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_CommandForm(t *testing.T) {
	data, err := Encode(sample, config.Format{DropOutputField: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"command": `)
	assert.NotContains(t, string(data), `"arguments"`)
	assert.NotContains(t, string(data), `"output"`)

	back, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, sample[0].Arguments, back[0].Arguments)
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil, config.Format{CommandAsArray: true})
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`[{"directory": "/src", "file": "a.c"}]`))
	assert.ErrorContains(t, err, "entry 0")

	_, err = Decode([]byte(`{`))
	assert.Error(t, err)
}

func TestReadDatabase_Missing(t *testing.T) {
	entries, err := ReadDatabase(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadDatabase_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compile_commands.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	entries, err := ReadDatabase(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestDecode_CommandForm verifies command strings are split the way a
// POSIX shell would split them.
func TestDecode_CommandForm(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"plain", "cc -c a.c", []string{"cc", "-c", "a.c"}},
		{"single quotes", "cc  -c\t'my file.c'", []string{"cc", "-c", "my file.c"}},
		{"escapes", `cc -DX="a b" -DY=it\'s`, []string{"cc", "-DX=a b", "-DY=it's"}},
		{"backslash in double quotes", `cc "-DDIR=C:\build" -c x.c`, []string{"cc", `-DDIR=C:\build`, "-c", "x.c"}},
		{"escaped quote in double quotes", `cc "-DMSG=\"hi\"" -c x.c`, []string{"cc", `-DMSG="hi"`, "-c", "x.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal([]record{{Directory: "/src", File: "/src/x.c", Command: tt.command}})
			require.NoError(t, err)

			entries, err := Decode(data)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Arguments)
		})
	}

	_, err := Decode([]byte(`[{"directory": "/src", "file": "x.c", "command": "cc \"unterminated"}]`))
	assert.Error(t, err)
}

// TestEncode_CommandRoundTrip verifies awkward arguments survive the
// command form.
func TestEncode_CommandRoundTrip(t *testing.T) {
	args := []string{"cc", "-c", "it's here.c", "-DA=$B", `-DDIR=C:\build`, `-DMSG="hi"`, "-o", "out dir/x.o"}
	in := []Entry{{Directory: "/src", File: "/src/it's here.c", Arguments: args, Output: "/src/out dir/x.o"}}

	data, err := Encode(in, config.Format{})
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(in, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
