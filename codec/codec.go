// Package codec centralizes report encoding.
//
// Every built-in codec produces standard JSON, so a report written with one
// decodes with any other. Non-finite floats are rejected on encode; traces
// that can hold NaN must be filtered before they are stored.
package codec

import (
	"encoding/json"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Codec encodes and decodes reports. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default writes compact reports with go-json.
var Default Codec = GoJSON{}

// GoJSON encodes with github.com/goccy/go-json.
type GoJSON struct {
	// Indent, when set, pretty-prints with this per-level indent.
	Indent string
}

func (c GoJSON) Marshal(v any) ([]byte, error) {
	if c.Indent != "" {
		return gojson.MarshalIndent(v, "", c.Indent)
	}
	return gojson.Marshal(v)
}

func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

func (c GoJSON) Name() string {
	if c.Indent != "" {
		return "go-json-indent"
	}
	return "go-json"
}

// JSON encodes with encoding/json. It exists as a reference for
// cross-checking GoJSON output.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }

// ByName returns a built-in codec. The empty name selects Default.
func ByName(name string) (Codec, bool) {
	switch name {
	case "":
		return Default, true
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "go-json-indent":
		return GoJSON{Indent: "  "}, true
	default:
		return nil, false
	}
}

// MustMarshal encodes v with c, or Default if c is nil, and panics on error.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s: marshal: %w", c.Name(), err))
	}
	return b
}
