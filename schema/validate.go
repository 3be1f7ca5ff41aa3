package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Issue is one structured validation failure, surfaced to the client.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Field + ": " + issue.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validator evaluates submitted form data against a derived schema.
type Validator struct {
	compiled *jsonschema.Schema
	integers map[string]bool
}

// Compile turns a derived FormSchema into a Validator.
func Compile(fs *FormSchema) (*Validator, error) {
	raw, err := json.Marshal(fs)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("form.schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("form.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	integers := make(map[string]bool)
	for _, p := range fs.props {
		if _, ok := p.value.(integerSchema); ok {
			integers[p.name] = true
		}
	}
	return &Validator{compiled: compiled, integers: integers}, nil
}

// Validate decodes form-encoded values and evaluates them against the
// schema. On success it returns the decoded payload, ready to persist.
func (v *Validator) Validate(form url.Values) (map[string]any, error) {
	payload := v.Decode(form)

	// normalize to a plain JSON value tree for the validator
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	if err := v.compiled.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ValidationError{Issues: flatten(ve)}
		}
		return nil, err
	}
	return payload, nil
}

// Decode maps url.Values to a JSON-shaped payload: repeated keys become
// arrays, and values are coerced to integers where the schema expects
// them (the validator itself does not coerce).
func (v *Validator) Decode(form url.Values) map[string]any {
	payload := make(map[string]any, len(form))
	for key, values := range form {
		if len(values) > 1 {
			arr := make([]any, len(values))
			for i, s := range values {
				arr[i] = v.coerce(key, s)
			}
			payload[key] = arr
		} else {
			payload[key] = v.coerce(key, values[0])
		}
	}
	return payload
}

func (v *Validator) coerce(key, value string) any {
	if v.integers[key] {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}

func flatten(ve *jsonschema.ValidationError) (issues []Issue) {
	if len(ve.Causes) == 0 {
		issues = append(issues, Issue{
			Field:   strings.TrimPrefix(ve.InstanceLocation, "/"),
			Message: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		issues = append(issues, flatten(cause)...)
	}
	return
}
