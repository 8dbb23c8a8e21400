package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind is the closed set of value kinds a form field can hold.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldList   FieldKind = "list"
)

// Valid reports whether k is a known kind.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldString, FieldNumber, FieldList:
		return true
	}
	return false
}

// FormField describes one question on an event's registration form.
type FormField struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
}

// FormValue is a single typed answer. Exactly one of Str, Num, List is meaningful, selected by Kind.
// On the wire it is a plain JSON string, number, or array of strings.
type FormValue struct {
	Kind FieldKind
	Str  string
	Num  float64
	List []string
}

// StringValue, NumberValue and ListValue build typed answers.
func StringValue(s string) FormValue  { return FormValue{Kind: FieldString, Str: s} }
func NumberValue(n float64) FormValue { return FormValue{Kind: FieldNumber, Num: n} }
func ListValue(l ...string) FormValue { return FormValue{Kind: FieldList, List: l} }

// IsEmpty reports whether the value carries no answer.
func (v FormValue) IsEmpty() bool {
	switch v.Kind {
	case FieldString:
		return strings.TrimSpace(v.Str) == ""
	case FieldList:
		return len(v.List) == 0
	case FieldNumber:
		return false
	}
	return true
}

func (v FormValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FieldString:
		return json.Marshal(v.Str)
	case FieldNumber:
		return json.Marshal(v.Num)
	case FieldList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return []byte("null"), nil
}

func (v *FormValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = FormValue{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var l []string
		if err := json.Unmarshal(b, &l); err != nil {
			return fmt.Errorf("list answers must contain only strings: %w", err)
		}
		*v = ListValue(l...)
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("answer must be a string, number, or list of strings")
		}
		*v = NumberValue(n)
	}
	return nil
}

// FormResponses maps a form field key to its answer.
type FormResponses map[string]FormValue

// Validate checks the responses against the event's form definition.
// Unknown keys, kind mismatches and missing required answers fail with ErrInvalidFormResponse.
func (r FormResponses) Validate(fields []FormField) error {
	byKey := make(map[string]FormField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}
	for key, val := range r {
		f, ok := byKey[key]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidFormResponse, key)
		}
		if val.Kind != "" && val.Kind != f.Kind {
			return fmt.Errorf("%w: field %q expects a %s", ErrInvalidFormResponse, key, f.Kind)
		}
	}
	for _, f := range fields {
		if !f.Required {
			continue
		}
		val, ok := r[f.Key]
		if !ok || val.IsEmpty() {
			name := f.Label
			if name == "" {
				name = f.Key
			}
			return fmt.Errorf("%w: %q is required", ErrInvalidFormResponse, name)
		}
	}
	return nil
}
