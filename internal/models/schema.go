package models

import (
	"encoding/json"
	"fmt"
)

// Bucket names accepted by FieldSchema.AddField.
const (
	BucketString   = "stringFields"
	BucketNumber   = "numberFields"
	BucketBoolean  = "booleanFields"
	BucketDropdown = "dropdownFields"
)

// FieldSchema declares the custom fields of a single inventory. Each bucket
// is an append-only sequence: fields are added at the end and are never
// renamed, reordered or removed. The boolean bucket carries canonicalized
// true/false values rather than names, mirroring how the schema is edited.
//
// A field name is unique across the three name-carrying buckets of one
// schema, so resolving a value by name is never ambiguous.
type FieldSchema struct {
	StringFields   []string `json:"stringFields" yaml:"string_fields"`
	NumberFields   []string `json:"numberFields" yaml:"number_fields"`
	BooleanFields  []bool   `json:"booleanFields" yaml:"boolean_fields"`
	DropdownFields []string `json:"dropdownFields" yaml:"dropdown_fields"`
}

// AddField appends value to the named bucket. Empty values, unknown buckets
// and duplicate field names are silently ignored: the "Add" control treats
// an empty selection as "no value supplied", not as an error. Boolean input
// is one of "", "true", "false" and is canonicalized to a bool.
func (s *FieldSchema) AddField(bucket, value string) {
	if value == "" {
		return
	}

	switch bucket {
	case BucketBoolean:
		switch value {
		case "true":
			s.BooleanFields = append(s.BooleanFields, true)
		case "false":
			s.BooleanFields = append(s.BooleanFields, false)
		}
	case BucketString:
		if !s.hasFieldName(value) {
			s.StringFields = append(s.StringFields, value)
		}
	case BucketNumber:
		if !s.hasFieldName(value) {
			s.NumberFields = append(s.NumberFields, value)
		}
	case BucketDropdown:
		if !s.hasFieldName(value) {
			s.DropdownFields = append(s.DropdownFields, value)
		}
	}
}

func (s *FieldSchema) hasFieldName(name string) bool {
	for _, f := range s.StringFields {
		if f == name {
			return true
		}
	}
	for _, f := range s.NumberFields {
		if f == name {
			return true
		}
	}
	for _, f := range s.DropdownFields {
		if f == name {
			return true
		}
	}
	return false
}

// FieldNames returns all named fields in bucket order: strings, numbers,
// dropdowns. Boolean entries carry no name and are not included.
func (s *FieldSchema) FieldNames() []string {
	names := make([]string, 0, len(s.StringFields)+len(s.NumberFields)+len(s.DropdownFields))
	names = append(names, s.StringFields...)
	names = append(names, s.NumberFields...)
	names = append(names, s.DropdownFields...)
	return names
}

// FieldType resolves a field name to its bucket.
func (s *FieldSchema) FieldType(name string) (string, bool) {
	for _, f := range s.StringFields {
		if f == name {
			return BucketString, true
		}
	}
	for _, f := range s.NumberFields {
		if f == name {
			return BucketNumber, true
		}
	}
	for _, f := range s.DropdownFields {
		if f == name {
			return BucketDropdown, true
		}
	}
	return "", false
}

// Extends reports whether s grows old without touching existing fields:
// every bucket of old must be a prefix of the corresponding bucket of s.
func (s *FieldSchema) Extends(old *FieldSchema) bool {
	if old == nil {
		return true
	}
	if !isPrefix(old.StringFields, s.StringFields) ||
		!isPrefix(old.NumberFields, s.NumberFields) ||
		!isPrefix(old.DropdownFields, s.DropdownFields) {
		return false
	}
	if len(old.BooleanFields) > len(s.BooleanFields) {
		return false
	}
	for i, v := range old.BooleanFields {
		if s.BooleanFields[i] != v {
			return false
		}
	}
	return true
}

func isPrefix(old, cur []string) bool {
	if len(old) > len(cur) {
		return false
	}
	for i, v := range old {
		if cur[i] != v {
			return false
		}
	}
	return true
}

// Normalize rebuilds a schema received from a client through AddField, so
// that empty entries and cross-bucket duplicates are dropped while order is
// kept.
func (s *FieldSchema) Normalize() FieldSchema {
	var out FieldSchema
	for _, f := range s.StringFields {
		out.AddField(BucketString, f)
	}
	for _, f := range s.NumberFields {
		out.AddField(BucketNumber, f)
	}
	for _, v := range s.BooleanFields {
		if v {
			out.AddField(BucketBoolean, "true")
		} else {
			out.AddField(BucketBoolean, "false")
		}
	}
	for _, f := range s.DropdownFields {
		out.AddField(BucketDropdown, f)
	}
	return out
}

// NormalizeValues filters a raw item value bag against the schema. Keys that
// do not name a declared field are dropped; absent keys stay absent ("unset"
// is valid and is never defaulted). Values for number fields must be
// numeric, values for string and dropdown fields must be strings.
func (s *FieldSchema) NormalizeValues(raw map[string]any) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(raw))
	for key, val := range raw {
		bucket, ok := s.FieldType(key)
		if !ok {
			continue
		}
		switch bucket {
		case BucketNumber:
			n, err := toNumber(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			out[key] = n
		default:
			str, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: expected a string, got %T", key, val)
			}
			out[key] = str
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func toNumber(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", val)
	}
}
