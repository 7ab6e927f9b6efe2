package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cdmschema/cdmschema/internal/typemap"
	"github.com/cdmschema/cdmschema/internal/vocabulary"
)

// DraftURI is the $schema value of every generated document.
const DraftURI = "http://json-schema.org/draft-07/schema#"

// Document is the JSON Schema of one CDM table. Field order is the key
// order of the written file.
type Document struct {
	Schema      string       `json:"$schema"`
	Title       string       `json:"title"`
	Type        string       `json:"type"`
	Properties  Properties   `json:"properties"`
	Required    []string     `json:"required,omitempty"`
	PrimaryKey  []string     `json:"x-primaryKey,omitempty"`
	ForeignKeys []ForeignKey `json:"x-foreignKeys,omitempty"`
}

// Property is the schema of one field.
type Property struct {
	typemap.Fragment
	Description string              `json:"description,omitempty"`
	OneOf       []vocabulary.Choice `json:"oneOf,omitempty"`
}

// ForeignKey describes a field referencing another CDM table.
type ForeignKey struct {
	Field        string `json:"field"`
	Table        string `json:"table"`
	FieldInTable string `json:"fieldInTable"`
	Domain       string `json:"domain,omitempty"`
}

// Properties is a name -> Property mapping that keeps insertion order.
// Re-setting an existing name replaces the value in place.
type Properties struct {
	names  []string
	values map[string]Property
}

// Set stores p under name and reports whether it replaced an earlier value.
func (ps *Properties) Set(name string, p Property) bool {
	if ps.values == nil {
		ps.values = make(map[string]Property)
	}
	_, replaced := ps.values[name]
	if !replaced {
		ps.names = append(ps.names, name)
	}
	ps.values[name] = p
	return replaced
}

// Get returns the property stored under name.
func (ps Properties) Get(name string) (Property, bool) {
	p, ok := ps.values[name]
	return p, ok
}

// Names returns property names in insertion order.
func (ps Properties) Names() []string {
	return append([]string(nil), ps.names...)
}

// Len returns the number of properties.
func (ps Properties) Len() int { return len(ps.names) }

// MarshalJSON writes the properties as an object in insertion order.
func (ps Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range ps.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRaw(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeRaw(&buf, ps.values[name]); err != nil {
			return nil, fmt.Errorf("encoding property %q: %w", name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping its key order.
func (ps *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	*ps = Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("properties: expected key, got %v", tok)
		}
		var p Property
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("properties: decoding %q: %w", name, err)
		}
		ps.Set(name, p)
	}
	_, err = dec.Token()
	return err
}

// encodeRaw appends the JSON encoding of v without HTML escaping or the
// encoder's trailing newline.
func encodeRaw(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
