// Package symmap records what an obfuscation run renamed and hoisted, so a
// stack trace from obfuscated code can be traced back to the source.
//
// Binary format: MAGIC(4) | VERSION(2) | BODY_LEN(4) | BODY
//
// BODY is the Map in canonical CBOR, so the same run always produces the
// same bytes.
package symmap

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/pyfog/pkgs/invariant"
	"github.com/aledsdavies/pyfog/pkgs/naming"
	"github.com/aledsdavies/pyfog/pkgs/obfuscator"
	"github.com/aledsdavies/pyfog/pkgs/pool"
)

const (
	// Magic opens every map file.
	Magic = "PYFM"
	// Version is the current format version.
	Version uint16 = 1

	preambleLen = 10
	maxBodyLen  = 64 << 20
)

// Map is the persisted record of one run.
type Map struct {
	// Fingerprint is the hex BLAKE2b-256 of the obfuscated output the map
	// belongs to.
	Fingerprint string `cbor:"fingerprint"`

	// BuiltinsConst labels the builtins module entry in debug output.
	BuiltinsConst string `cbor:"builtins_const"`
	// NameFiller is the filler the generated names are made of.
	NameFiller string     `cbor:"name_filler"`
	Renames    []Rename   `cbor:"renames"`
	Constants  []Constant `cbor:"constants"`
}

// Rename is one identifier of the rename table.
type Rename struct {
	Original  string `cbor:"original"`
	Generated string `cbor:"generated"`
}

// Constant is one pooled header entry.
type Constant struct {
	Kind       string `cbor:"kind"`
	Literal    string `cbor:"literal"`
	Name       string `cbor:"name"`
	Expression string `cbor:"expr"`
}

// Label is how the constant is shown in debug output. The builtins module
// string is shown under its configured constant name.
func (c Constant) Label(builtinsConst string) string {
	switch c.Kind {
	case pool.KindBuiltins.String():
		return builtinsConst
	case pool.KindString.String():
		return fmt.Sprintf("%q", c.Literal)
	}
	return c.Literal
}

// Fingerprint returns the hex BLAKE2b-256 digest of output.
func Fingerprint(output string) string {
	sum := blake2b.Sum256([]byte(output))
	return hex.EncodeToString(sum[:])
}

// Build snapshots the tables of ctx after it produced output.
func Build(ctx *obfuscator.Context, output string) *Map {
	m := &Map{
		Fingerprint:   Fingerprint(output),
		BuiltinsConst: ctx.Options().BuiltinsConst,
		NameFiller:    ctx.Options().NameFiller,
	}
	for _, e := range ctx.Renames().Entries() {
		m.Renames = append(m.Renames, Rename{Original: e.Original, Generated: e.Generated})
	}
	for _, e := range ctx.Pool().Entries() {
		m.Constants = append(m.Constants, Constant{
			Kind:       e.Key.Kind.String(),
			Literal:    e.Key.Literal,
			Name:       e.Name,
			Expression: e.Expression,
		})
	}
	invariant.Postcondition(len(m.Renames)+len(m.Constants) == ctx.NamesIssued(),
		"map holds %d renames and %d constants but %d names were issued",
		len(m.Renames), len(m.Constants), ctx.NamesIssued())
	return m
}

// Matches reports whether m was built for output.
func (m *Map) Matches(output string) bool {
	return m.Fingerprint == Fingerprint(output)
}

// Lookup returns the original identifier behind a generated name.
func (m *Map) Lookup(generated string) (string, bool) {
	if !naming.New(m.NameFiller).IsGenerated(generated) {
		return "", false
	}
	for _, r := range m.Renames {
		if r.Generated == generated {
			return r.Original, true
		}
	}
	return "", false
}

// WriteDebug prints the rename table and the header entries, the latter in
// header order.
func WriteDebug(w io.Writer, m *Map) error {
	var buf bytes.Buffer
	buf.WriteString("CONVERTED VARIABLES\n")
	for _, r := range m.Renames {
		fmt.Fprintf(&buf, "%s\t=> %s\n", r.Original, r.Generated)
	}
	buf.WriteString("\nVARIABLES IN HEADER\n")
	for _, c := range m.Constants {
		fmt.Fprintf(&buf, "%s\t=> %s\n", c.Label(m.BuiltinsConst), c.Name)
	}
	buf.WriteString("\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// Encode serializes m with its preamble.
func Encode(m *Map) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	body, err := encMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}

	out := make([]byte, preambleLen, preambleLen+len(body))
	copy(out[0:4], Magic)
	binary.LittleEndian.PutUint16(out[4:6], Version)
	binary.LittleEndian.PutUint32(out[6:10], uint32(len(body)))
	return append(out, body...), nil
}

// Write encodes m to w.
func Write(w io.Writer, m *Map) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode parses a map file produced by Encode.
func Decode(data []byte) (*Map, error) {
	return Read(bytes.NewReader(data))
}

// Read parses a map file from r.
func Read(r io.Reader) (*Map, error) {
	var preamble [preambleLen]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, fmt.Errorf("read preamble: %w", err)
	}

	if magic := string(preamble[0:4]); magic != Magic {
		return nil, fmt.Errorf("invalid magic: got %q, expected %q", magic, Magic)
	}
	if version := binary.LittleEndian.Uint16(preamble[4:6]); version != Version {
		return nil, fmt.Errorf("unsupported version: got 0x%04x, expected 0x%04x", version, Version)
	}

	bodyLen := binary.LittleEndian.Uint32(preamble[6:10])
	if bodyLen > maxBodyLen {
		return nil, fmt.Errorf("body too large: %d bytes", bodyLen)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var m Map
	if err := cbor.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return &m, nil
}
