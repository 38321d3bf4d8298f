package generation

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Shape is the response contract of a generation call: a JSON object that
// carries the listed top-level keys. Value types are not checked.
type Shape struct {
	name   string
	keys   []string
	schema *jsonschema.Schema
}

func NewShape(name string, keys ...string) (Shape, error) {
	doc := map[string]any{"type": "object"}
	if len(keys) > 0 {
		doc["required"] = keys
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Shape{}, err
	}
	sch, err := jsonschema.CompileString(name+".schema.json", string(raw))
	if err != nil {
		return Shape{}, fmt.Errorf("compile shape %s: %w", name, err)
	}
	return Shape{name: name, keys: keys, schema: sch}, nil
}

func MustShape(name string, keys ...string) Shape {
	s, err := NewShape(name, keys...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Shape) Name() string   { return s.name }
func (s Shape) Keys() []string { return s.keys }

func (s Shape) validate(v any) error {
	if s.schema == nil {
		return nil
	}
	return s.schema.Validate(v)
}
