package tools

import (
	"fmt"
	"math"
	"sort"

	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/google/jsonschema-go/jsonschema"
)

type ArgType string

const (
	ArgString  ArgType = "string"
	ArgInteger ArgType = "integer"
	ArgNumber  ArgType = "number"
	ArgBoolean ArgType = "boolean"
	ArgArray   ArgType = "array"
	ArgObject  ArgType = "object"
)

type Arg struct {
	Name        string
	Type        ArgType
	Description string
	Required    bool
	// Items is the element type of an array argument.
	Items ArgType
	Enum  []string
}

// Descriptor declares a tool: its name, what it does and the arguments it takes.
type Descriptor struct {
	Name        string
	Description string
	Args        []Arg
}

func (d Descriptor) Arg(name string) (Arg, bool) {
	for _, a := range d.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// Schema renders the descriptor as a JSON Schema object.
func (d Descriptor) Schema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:       string(ArgObject),
		Properties: make(map[string]*jsonschema.Schema, len(d.Args)),
	}
	for _, a := range d.Args {
		p := &jsonschema.Schema{Type: string(a.Type), Description: a.Description}
		if a.Type == ArgArray && a.Items != "" {
			p.Items = &jsonschema.Schema{Type: string(a.Items)}
		}
		for _, e := range a.Enum {
			p.Enum = append(p.Enum, e)
		}
		s.Properties[a.Name] = p
		if a.Required {
			s.Required = append(s.Required, a.Name)
		}
	}
	return s
}

// FromSchema converts a discovered tool schema into a descriptor. Args are ordered by
// name. Properties without a usable type are treated as strings.
func FromSchema(name, description string, schema *jsonschema.Schema) Descriptor {
	d := Descriptor{Name: name, Description: description}
	if schema == nil {
		return d
	}

	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for n := range schema.Properties {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		p := schema.Properties[n]
		a := Arg{Name: n, Type: ArgString, Required: required[n]}
		if p != nil {
			a.Type = schemaType(p)
			a.Description = p.Description
			if a.Type == ArgArray && p.Items != nil {
				a.Items = schemaType(p.Items)
			}
			for _, e := range p.Enum {
				if s, ok := e.(string); ok {
					a.Enum = append(a.Enum, s)
				}
			}
		}
		d.Args = append(d.Args, a)
	}
	return d
}

func schemaType(s *jsonschema.Schema) ArgType {
	t := s.Type
	if t == "" {
		for _, candidate := range s.Types {
			if candidate != "null" {
				t = candidate
				break
			}
		}
	}
	switch ArgType(t) {
	case ArgString, ArgInteger, ArgNumber, ArgBoolean, ArgArray, ArgObject:
		return ArgType(t)
	default:
		return ArgString
	}
}

// Validate checks that every required argument is present and that each known
// argument has its declared JSON type. Unknown arguments are ignored.
func (d Descriptor) Validate(args map[string]any) error {
	for _, a := range d.Args {
		v, ok := args[a.Name]
		if !ok || v == nil {
			if a.Required {
				return fmt.Errorf("%w: %s: missing required argument %q", domain.ErrInvalidArgument, d.Name, a.Name)
			}
			continue
		}
		if !matches(a.Type, v) {
			return fmt.Errorf("%w: %s: argument %q must be of type %s", domain.ErrInvalidArgument, d.Name, a.Name, a.Type)
		}
		if len(a.Enum) > 0 {
			s, _ := v.(string)
			if !contains(a.Enum, s) {
				return fmt.Errorf("%w: %s: argument %q must be one of %v", domain.ErrInvalidArgument, d.Name, a.Name, a.Enum)
			}
		}
		if a.Type == ArgArray && a.Items != "" {
			for i, item := range v.([]any) {
				if !matches(a.Items, item) {
					return fmt.Errorf("%w: %s: element %d of %q must be of type %s",
						domain.ErrInvalidArgument, d.Name, i, a.Name, a.Items)
				}
			}
		}
	}
	return nil
}

// matches checks v as decoded by encoding/json into an any.
func matches(t ArgType, v any) bool {
	switch t {
	case ArgString:
		_, ok := v.(string)
		return ok
	case ArgNumber:
		_, ok := v.(float64)
		return ok
	case ArgInteger:
		f, ok := v.(float64)
		return ok && f == math.Trunc(f)
	case ArgBoolean:
		_, ok := v.(bool)
		return ok
	case ArgArray:
		_, ok := v.([]any)
		return ok
	case ArgObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
