/*
Package tools provides the wallet tools the agent can call.

Tool inputs arrive as JSON text produced by the model. Before any tool
touches the chain its input is checked against a declared Schema: the
schema is data (field names, descriptions, constraints) and the same value
renders the description the model sees.
*/
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Field declares one required string argument.
type Field struct {
	Name        string
	Description string
	NonEmpty    bool
}

// Schema is a strict object schema: exactly the declared fields, all
// required, all strings.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

// Violation is one reason an input failed validation.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// ValidationError lists every violation found in an input.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Reasons(), ", ")
}

// Reasons returns the human readable reason for each violation.
func (e *ValidationError) Reasons() []string {
	reasons := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		reasons[i] = v.String()
	}
	return reasons
}

// Fields returns the names of the violating fields.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fields
}

// Validate checks raw against the schema and returns the normalised string
// values keyed by field name. It never stops at the first problem.
func (s Schema) Validate(raw map[string]any) (map[string]string, error) {
	var violations []Violation
	values := make(map[string]string, len(s.Fields))
	declared := make(map[string]bool, len(s.Fields))

	for _, f := range s.Fields {
		declared[f.Name] = true

		v, ok := raw[f.Name]
		if !ok {
			violations = append(violations, Violation{Field: f.Name, Reason: "required"})
			continue
		}
		str, ok := stringValue(v)
		if !ok {
			violations = append(violations, Violation{Field: f.Name, Reason: fmt.Sprintf("expected string, received %s", typeName(v))})
			continue
		}
		if f.NonEmpty && str == "" {
			violations = append(violations, Violation{Field: f.Name, Reason: "must not be empty"})
			continue
		}
		values[f.Name] = str
	}

	for key := range raw {
		if !declared[key] {
			violations = append(violations, Violation{Field: key, Reason: "unrecognized key"})
		}
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			return violations[i].Field < violations[j].Field
		})
		return nil, &ValidationError{Violations: violations}
	}
	return values, nil
}

// Parse decodes a JSON object and validates it.
func (s Schema) Parse(input string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(input)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, &ValidationError{Violations: []Violation{{Field: "input", Reason: "expected a JSON object"}}}
	}
	return s.Validate(raw)
}

// Describe renders the tool description for the model.
func (s Schema) Describe() string {
	var b bytes.Buffer
	b.WriteString(s.Description)
	b.WriteString("\n\nIt takes the following inputs:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Description)
	}
	b.WriteString("\nThe input must be a JSON object with exactly these keys, all strings.")
	return b.String()
}

// stringValue accepts strings and JSON numbers. Numbers keep their literal
// text so large token ids survive unchanged.
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
