package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldType is the declared type of a custom field.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldSelect FieldType = "select"
	FieldDate   FieldType = "date"
)

// Valid reports whether t is one of the recognized field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldSelect, FieldDate:
		return true
	}
	return false
}

// FieldDescriptor describes one custom field of a template.
// Name is the key in the schema object and is not repeated in its JSON body.
type FieldDescriptor struct {
	Name     string    `json:"-"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label,omitempty"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// DisplayLabel returns the label, falling back to the title-cased field name.
func (d FieldDescriptor) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(d.Name, "_", " "))
}

// FieldSchema is an ordered mapping from field name to descriptor. It is
// serialized as a JSON object whose key order follows the slice order.
type FieldSchema []FieldDescriptor

// Lookup returns the descriptor for name.
func (s FieldSchema) Lookup(name string) (FieldDescriptor, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}

// Names returns the field names in schema order.
func (s FieldSchema) Names() []string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return names
}

// Check validates the schema structure: non-empty unique names, recognized
// types, and a non-empty option list for every select field.
func (s FieldSchema) Check() error {
	seen := make(map[string]bool, len(s))
	for _, d := range s {
		if strings.TrimSpace(d.Name) == "" {
			return &SchemaError{Reason: "field name is empty"}
		}
		if seen[d.Name] {
			return &SchemaError{Field: d.Name, Reason: "duplicate field name"}
		}
		seen[d.Name] = true

		if !d.Type.Valid() {
			return &SchemaError{Field: d.Name, Reason: fmt.Sprintf("unrecognized type %q", d.Type)}
		}
		if d.Type == FieldSelect {
			if len(d.Options) == 0 {
				return &SchemaError{Field: d.Name, Reason: "select field requires at least one option"}
			}
			for _, o := range d.Options {
				if o == "" {
					return &SchemaError{Field: d.Name, Reason: "select option is empty"}
				}
			}
		}
	}
	return nil
}

// MarshalJSON writes the schema as a JSON object preserving field order.
func (s FieldSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object into the schema, keeping document order.
func (s *FieldSchema) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("FieldSchema: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("FieldSchema: expected JSON object")
	}

	out := FieldSchema{}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("FieldSchema: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("FieldSchema: expected field name")
		}
		if seen[name] {
			return &SchemaError{Field: name, Reason: "duplicate field name"}
		}
		seen[name] = true

		var d FieldDescriptor
		if err := dec.Decode(&d); err != nil {
			return fmt.Errorf("FieldSchema: field %q: %w", name, err)
		}
		d.Name = name
		out = append(out, d)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("FieldSchema: %w", err)
	}

	*s = out
	return nil
}

// CustomFields is the open, string-keyed payload attached to a transaction.
type CustomFields map[string]any

// Clone returns a shallow copy; nil stays nil.
func (c CustomFields) Clone() CustomFields {
	if c == nil {
		return nil
	}
	out := make(CustomFields, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the payload keys in sorted order.
func (c CustomFields) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge applies changes on top of c. A nil value in changes removes the key.
func (c CustomFields) Merge(changes CustomFields) CustomFields {
	out := c.Clone()
	if out == nil {
		out = CustomFields{}
	}
	for k, v := range changes {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// String renders the payload as compact JSON, used in logs and exports.
func (c CustomFields) String() string {
	if len(c) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		return "{}"
	}
	return string(b)
}
