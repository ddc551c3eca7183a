package config

// fileSchema describes pyfog.toml / pyfog.json after decoding to JSON values.
const fileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string", "format": "semver"},
    "use_hex_strings": {"type": "boolean"},
    "obfuscate_builtins": {"type": "boolean"},
    "remove_comments": {"type": "boolean"},
    "force_no_header": {"type": "boolean"},
    "reserved_var": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
    "builtins_const": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
    "name_filler": {"type": "string", "pattern": "^[A-Za-z_]$"},
    "replacements": {
      "type": "object",
      "propertyNames": {"pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
      "additionalProperties": {"type": "string", "minLength": 1}
    },
    "extra_reserved": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"}
    },
    "extra_builtins": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"}
    }
  }
}`

// fileKeys are the top-level keys the schema accepts, used for suggestions.
var fileKeys = []string{
	"version",
	"use_hex_strings",
	"obfuscate_builtins",
	"remove_comments",
	"force_no_header",
	"reserved_var",
	"builtins_const",
	"name_filler",
	"replacements",
	"extra_reserved",
	"extra_builtins",
}
