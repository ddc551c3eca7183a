package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pyerrors "github.com/aledsdavies/pyfog/pkgs/errors"
)

func TestParseTOML(t *testing.T) {
	doc := `
version = "1.2.0"
use_hex_strings = true
obfuscate_builtins = true
remove_comments = false
reserved_var = "__X"
name_filler = "O"
extra_reserved = ["match"]
extra_builtins = ["breakpoint"]

[replacements]
None = "(()==[])"
`
	opts, err := Parse([]byte(doc), FormatTOML, Default())
	require.NoError(t, err)

	assert.True(t, opts.UseHexStrings)
	assert.True(t, opts.ObfuscateBuiltins)
	assert.False(t, opts.RemoveComments)
	assert.False(t, opts.ForceNoHeader)
	assert.Equal(t, "__X", opts.ReservedVar)
	assert.Equal(t, "__B", opts.BuiltinsConst)
	assert.Equal(t, "O", opts.NameFiller)
	assert.Equal(t, []string{"match"}, opts.ExtraReserved)
	assert.Equal(t, []string{"breakpoint"}, opts.ExtraBuiltins)
	assert.Equal(t, map[string]string{
		"True":  "(()==())",
		"False": "(()==[])",
		"None":  "(()==[])",
	}, opts.Replacements)
}

func TestParseJSON(t *testing.T) {
	opts, err := Parse([]byte(`{"force_no_header": true, "version": "v1"}`), FormatJSON, Default())
	require.NoError(t, err)
	assert.True(t, opts.ForceNoHeader)
	assert.True(t, opts.RemoveComments)
}

func TestParseEmptyDocumentKeepsBase(t *testing.T) {
	base := Default()
	base.UseHexStrings = true
	opts, err := Parse([]byte(""), FormatTOML, base)
	require.NoError(t, err)
	assert.Equal(t, base, opts)
}

func TestParseDoesNotMutateBase(t *testing.T) {
	base := Default()
	_, err := Parse([]byte("[replacements]\nNone = \"x\"\n"), FormatTOML, base)
	require.NoError(t, err)
	_, ok := base.Replacements["None"]
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		format   Format
		wantType string
		wantMsg  string
	}{
		{"malformed toml", "use_hex_strings = ", FormatTOML, pyerrors.ErrConfigParse, "not well-formed"},
		{"malformed json", "{", FormatJSON, pyerrors.ErrConfigParse, "not well-formed"},
		{"unknown key with suggestion", "remove_coments = true", FormatTOML, pyerrors.ErrConfigInvalid, `did you mean "remove_comments"`},
		{"wrong type", `use_hex_strings = "yes"`, FormatTOML, pyerrors.ErrConfigInvalid, "does not match schema"},
		{"bad filler", `name_filler = "ab"`, FormatTOML, pyerrors.ErrConfigInvalid, "does not match schema"},
		{"bad version", `version = "one"`, FormatTOML, pyerrors.ErrConfigInvalid, "does not match schema"},
		{"future major", `version = "2.0.0"`, FormatTOML, pyerrors.ErrConfigInvalid, "not supported"},
		{"top level array", `[1, 2]`, FormatJSON, pyerrors.ErrConfigInvalid, "does not match schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.format, Default())
			require.Error(t, err)
			assert.True(t, pyerrors.IsErrorType(err, tt.wantType), "got %v", err)
			assert.True(t, pyerrors.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSuggestKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"hex", "use_hex_strings"},
		{"REMOVE_COMMENTS", "remove_comments"},
		{"vresion", "version"},
		{"completely_unrelated_setting", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestKey(tt.key))
		})
	}
}

func TestLoadFileAndFindFile(t *testing.T) {
	dir := t.TempDir()

	_, ok := FindFile(dir)
	assert.False(t, ok)

	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("use_hex_strings = true\n"), 0o644))

	found, ok := FindFile(dir)
	require.True(t, ok)
	assert.Equal(t, path, found)

	opts, err := LoadFile(found, Default())
	require.NoError(t, err)
	assert.True(t, opts.UseHexStrings)

	jsonPath := filepath.Join(dir, "settings.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"obfuscate_builtins": true}`), 0o644))
	opts, err = LoadFile(jsonPath, Default())
	require.NoError(t, err)
	assert.True(t, opts.ObfuscateBuiltins)
}

func TestLoadFileErrorsCarryPath(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.toml"), Default())
	require.Error(t, err)
	assert.True(t, pyerrors.IsErrorType(err, pyerrors.ErrInputRead))

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("nope = 1\n"), 0o644))
	_, err = LoadFile(bad, Default())
	require.Error(t, err)

	var pe *pyerrors.PyfogError
	require.ErrorAs(t, err, &pe)
	path, ok := pe.GetContext("path")
	require.True(t, ok)
	assert.Equal(t, bad, path)
}
