package redfish

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Kind is the JSON type a schema node accepts.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindBool
	KindNumber
	KindInteger
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "any"
}

// Schema declares the accepted shape of a request payload. Objects with
// Fields reject unknown keys; Required applies to a node as a field of its
// parent object.
type Schema struct {
	Kind     Kind
	Required bool
	Nullable bool
	Fields   map[string]Schema
	Elements *Schema
}

// ValidateSchema checks payload against schema before anything is sent.
func ValidateSchema(schema Schema, payload any) error {
	normalized, err := normalize(payload)
	if err != nil {
		return typederrors.NewSchemaValidationError("payload is not JSON encodable", err)
	}
	if err := validation.Validate(normalized, schema.rule()); err != nil {
		return typederrors.NewSchemaValidationError("payload does not match schema", err)
	}
	return nil
}

func normalize(payload any) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s Schema) rule() validation.Rule {
	return validation.By(func(value any) error {
		if value == nil {
			if s.Nullable || s.Kind == KindAny {
				return nil
			}
			return errors.New("must not be null")
		}
		if err := s.checkKind(value); err != nil {
			return err
		}
		switch {
		case s.Kind == KindObject && s.Fields != nil:
			return validation.Validate(value, validation.Map(s.keys()...))
		case s.Kind == KindArray && s.Elements != nil:
			return validation.Validate(value, validation.Each(s.Elements.rule()))
		}
		return nil
	})
}

func (s Schema) keys() []*validation.KeyRules {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	keys := make([]*validation.KeyRules, 0, len(names))
	for _, name := range names {
		field := s.Fields[name]
		k := validation.Key(name, field.rule())
		if !field.Required {
			k = k.Optional()
		}
		keys = append(keys, k)
	}
	return keys
}

func (s Schema) checkKind(value any) error {
	ok := true
	switch s.Kind {
	case KindString:
		_, ok = value.(string)
	case KindBool:
		_, ok = value.(bool)
	case KindNumber:
		_, ok = value.(float64)
	case KindInteger:
		f, isNum := value.(float64)
		ok = isNum && f == math.Trunc(f)
	case KindObject:
		_, ok = value.(map[string]any)
	case KindArray:
		_, ok = value.([]any)
	}
	if !ok {
		return fmt.Errorf("must be %s, got %T", s.Kind, value)
	}
	return nil
}

// Shorthands for building schemas.

func str() Schema              { return Schema{Kind: KindString} }
func boolean() Schema          { return Schema{Kind: KindBool} }
func required(s Schema) Schema { s.Required = true; return s }
func object(fields map[string]Schema) Schema {
	return Schema{Kind: KindObject, Fields: fields}
}
func arrayOf(elem Schema) Schema {
	return Schema{Kind: KindArray, Elements: &elem}
}
