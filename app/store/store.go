// Package store provides persistence backends for job records.
// Each backend keeps the full collection and implements jobs.Store with load and replace-all save.
// File backends keep a single serialized array (JSON or YAML), the SQLite backend keeps one row per record
// ordered by an insertion sequence.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformed returned by Load when the stored collection can't be decoded
var ErrMalformed = errors.New("malformed storage")

// Codec encodes and decodes the record collection
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON codec writes two-space indented arrays
type JSON struct{}

// Marshal implements Codec
func (JSON) Marshal(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Unmarshal implements Codec
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// YAML codec
type YAML struct{}

// Marshal implements Codec
func (YAML) Marshal(v any) ([]byte, error) { return yaml.Marshal(v) }

// Unmarshal implements Codec
func (YAML) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// CodecFor returns codec by storage type name, "json" or "yaml"
func CodecFor(typ string) (Codec, error) {
	switch strings.ToLower(typ) {
	case "json", "":
		return JSON{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	}
	return nil, fmt.Errorf("unsupported file codec %q", typ)
}
