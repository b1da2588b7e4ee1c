package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SourceKind tags how an article's source was supplied.
type SourceKind int

const (
	// SourceUnknown means no source was supplied.
	SourceUnknown SourceKind = iota
	// SourceNamed is a structured source object carrying a name.
	SourceNamed
	// SourceRaw is a plain source string.
	SourceRaw
)

// Source is the publisher of an article. Feeds supply it either as a plain
// string or as an object with a "name" field; both collapse to Name().
type Source struct {
	Kind  SourceKind
	Value string
}

// NamedSource builds a Source from a structured source's name.
func NamedSource(name string) Source {
	return Source{Kind: SourceNamed, Value: strings.TrimSpace(name)}
}

// RawSource builds a Source from a plain string.
func RawSource(s string) Source {
	return Source{Kind: SourceRaw, Value: strings.TrimSpace(s)}
}

// Name returns the resolved source name, empty when unknown.
func (s Source) Name() string {
	return s.Value
}

// UnmarshalJSON accepts a string, an object with a "name" field, or null.
func (s *Source) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Source{}
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode source string: %w", err)
		}
		*s = RawSource(raw)
		return nil
	case '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode source object: %w", err)
		}
		*s = NamedSource(obj.Name)
		return nil
	default:
		return fmt.Errorf("source must be a string or object, got %s", data)
	}
}

// MarshalJSON writes named sources as {"name": ...} and raw sources as strings.
func (s Source) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SourceNamed:
		return json.Marshal(map[string]string{"name": s.Value})
	case SourceRaw:
		return json.Marshal(s.Value)
	default:
		return []byte("null"), nil
	}
}
