// Package json is the SDK's JSON codec. It keeps the encoding/json call
// shapes but runs on bytedance/sonic, configured to behave like the standard
// library (sorted map keys, HTML escaping, strict UTF-8).
package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// RawMessage is a raw encoded JSON value.
type RawMessage = stdjson.RawMessage

// Number represents a JSON number literal.
type Number = stdjson.Number

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}

// Decode reads a single JSON value from r into v.
func Decode(r io.Reader, v any) error {
	return api.NewDecoder(r).Decode(v)
}
