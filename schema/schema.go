package schema

import (
	"bytes"
	"encoding/json"
)

// FormSchema is an object schema with ordered properties. Order is
// irrelevant to validation but keeps serialized output reproducible.
type FormSchema struct {
	props    []property
	required []string
}

type property struct {
	name  string
	value any
}

func (s *FormSchema) add(name string, value any, required bool) {
	s.props = append(s.props, property{name, value})
	if required {
		s.required = append(s.required, name)
	}
}

func (s *FormSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":{`)
	for i, p := range s.props {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteString(`},"required":`)
	required, err := json.Marshal(s.required)
	if err != nil {
		return nil, err
	}
	if s.required == nil {
		required = []byte("[]")
	}
	buf.Write(required)
	buf.WriteString(`,"additionalProperties":false}`)
	return buf.Bytes(), nil
}

type stringSchema struct {
	Type      string `json:"type"`
	Pattern   string `json:"pattern,omitempty"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
}

type integerSchema struct {
	Type    string `json:"type"`
	Minimum *int   `json:"minimum,omitempty"`
	Maximum *int   `json:"maximum,omitempty"`
}

type enumSchema struct {
	Enum []string `json:"enum"`
}

type arraySchema struct {
	Type        string     `json:"type"`
	Items       enumSchema `json:"items"`
	MinItems    int        `json:"minItems"`
	MaxItems    int        `json:"maxItems"`
	UniqueItems bool       `json:"uniqueItems"`
}

type oneOfSchema struct {
	OneOf []any `json:"oneOf"`
}
