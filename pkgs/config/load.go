package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"

	pyerrors "github.com/aledsdavies/pyfog/pkgs/errors"
)

// SupportedMajor is the config file major version this build reads.
const SupportedMajor = "v1"

// DefaultFileName is looked up when no --config is given.
const DefaultFileName = "pyfog.toml"

// fileConfig mirrors the schema. Pointers tell "absent" from "false".
type fileConfig struct {
	Version           string            `json:"version"`
	UseHexStrings     *bool             `json:"use_hex_strings"`
	ObfuscateBuiltins *bool             `json:"obfuscate_builtins"`
	RemoveComments    *bool             `json:"remove_comments"`
	ForceNoHeader     *bool             `json:"force_no_header"`
	ReservedVar       string            `json:"reserved_var"`
	BuiltinsConst     string            `json:"builtins_const"`
	NameFiller        string            `json:"name_filler"`
	Replacements      map[string]string `json:"replacements"`
	ExtraReserved     []string          `json:"extra_reserved"`
	ExtraBuiltins     []string          `json:"extra_builtins"`
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// compileSchema compiles the embedded schema once per process
func compileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if compiler.Formats == nil {
			compiler.Formats = make(map[string]func(interface{}) bool)
		}
		compiler.Formats["semver"] = func(v interface{}) bool {
			s, ok := v.(string)
			if !ok {
				return true // Type validation happens separately
			}
			return semver.IsValid(normalizeVersion(s))
		}

		url := "schema://pyfog.json"
		if err := compiler.AddResource(url, strings.NewReader(fileSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(url)
	})
	return compiledSchema, schemaErr
}

// LoadFile reads a TOML or JSON config file and applies it on top of base.
func LoadFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, pyerrors.NewInputError(fmt.Sprintf("cannot read config %s", path), err).
			WithContext("path", path)
	}
	opts, err := Parse(data, formatFor(path), base)
	if err != nil {
		if pe, ok := err.(*pyerrors.PyfogError); ok {
			return base, pe.WithContext("path", path)
		}
		return base, err
	}
	return opts, nil
}

// FindFile returns DefaultFileName in dir if it exists.
func FindFile(dir string) (string, bool) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Format is the syntax of a config document.
type Format int

const (
	FormatTOML Format = iota
	FormatJSON
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatTOML
}

// Parse decodes a config document, validates it and applies it on top of base.
func Parse(data []byte, format Format, base Options) (Options, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return base, pyerrors.Wrap(pyerrors.ErrConfigParse, "config is not well-formed", err)
	}

	// Unknown keys get a suggestion before the schema reports them generically.
	if obj, ok := raw.(map[string]interface{}); ok {
		if err := checkKeys(obj); err != nil {
			return base, err
		}
	}

	schema, err := compileSchema()
	if err != nil {
		return base, pyerrors.Wrap(pyerrors.ErrConfigInvalid, "config schema failed to compile", err)
	}
	if err := schema.Validate(raw); err != nil {
		return base, pyerrors.Wrap(pyerrors.ErrConfigInvalid, "config does not match schema", err)
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return base, pyerrors.Wrap(pyerrors.ErrConfigParse, "config re-encoding failed", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(normalized, &fc); err != nil {
		return base, pyerrors.Wrap(pyerrors.ErrConfigParse, "config decoding failed", err)
	}

	if fc.Version != "" {
		if major := semver.Major(normalizeVersion(fc.Version)); major != SupportedMajor {
			return base, pyerrors.New(pyerrors.ErrConfigInvalid,
				fmt.Sprintf("config version %s is not supported (want %s.x)", fc.Version, SupportedMajor)).
				WithContext("version", fc.Version)
		}
	}

	opts := fc.apply(base.Clone())
	if err := opts.Validate(); err != nil {
		return base, pyerrors.Wrap(pyerrors.ErrConfigInvalid, "config values are invalid", err)
	}
	return opts, nil
}

// decodeRaw turns the document into plain JSON values, which is what the
// schema validator expects regardless of the source syntax.
func decodeRaw(data []byte, format Format) (interface{}, error) {
	var jsonData []byte
	switch format {
	case FormatTOML:
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		jsonData = b
	case FormatJSON:
		jsonData = data
	default:
		return nil, fmt.Errorf("unknown config format %d", format)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func checkKeys(obj map[string]interface{}) error {
	var unknown []string
	for key := range obj {
		if !slices.Contains(fileKeys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)

	key := unknown[0]
	msg := fmt.Sprintf("unknown config key %q", key)
	if hint := SuggestKey(key); hint != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", hint)
	}
	return pyerrors.New(pyerrors.ErrConfigInvalid, msg).
		WithContext("key", key).
		WithContext("unknown_keys", unknown)
}

// SuggestKey returns the known config key closest to key, or "".
func SuggestKey(key string) string {
	return findClosestMatch(key, fileKeys)
}

// findClosestMatch finds the closest string match using fuzzy matching
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	// Typos that drop or swap characters are not subsequences; fall back to edit distance.
	best, bestDist := "", 4
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func (fc fileConfig) apply(opts Options) Options {
	if fc.UseHexStrings != nil {
		opts.UseHexStrings = *fc.UseHexStrings
	}
	if fc.ObfuscateBuiltins != nil {
		opts.ObfuscateBuiltins = *fc.ObfuscateBuiltins
	}
	if fc.RemoveComments != nil {
		opts.RemoveComments = *fc.RemoveComments
	}
	if fc.ForceNoHeader != nil {
		opts.ForceNoHeader = *fc.ForceNoHeader
	}
	if fc.ReservedVar != "" {
		opts.ReservedVar = fc.ReservedVar
	}
	if fc.BuiltinsConst != "" {
		opts.BuiltinsConst = fc.BuiltinsConst
	}
	if fc.NameFiller != "" {
		opts.NameFiller = fc.NameFiller
	}
	if opts.Replacements == nil {
		opts.Replacements = map[string]string{}
	}
	for k, v := range fc.Replacements {
		opts.Replacements[k] = v
	}
	opts.ExtraReserved = append(opts.ExtraReserved, fc.ExtraReserved...)
	opts.ExtraBuiltins = append(opts.ExtraBuiltins, fc.ExtraBuiltins...)
	return opts
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
