package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	// KindUndefined marks an absent value; the zero Value is undefined.
	KindUndefined Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

// String returns the kind name for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	default:
		return "undefined"
	}
}

// Value is a tagged scalar-or-mapping variant: string, number, bool, or a
// nested mapping of string keys to Values. It replaces dynamically typed
// context payloads with an explicit, total representation: every lookup and
// comparison is defined for every kind, so evaluation never panics.
//
// The zero Value is Undefined, the result of resolving a missing field path.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// Undefined is the absent value. Lookups on missing paths return it.
var Undefined = Value{}

// String wraps a string as a Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a float64 as a Value. Integer context data uses the same
// representation; rendering trims the fraction when it is zero.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps a bool as a Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map wraps a nested mapping as a Value. The mapping is not copied; callers
// must treat it as immutable once handed to the engine.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether the value is absent.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// AsString returns the string payload when the value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload when the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the bool payload when the value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsMap returns the mapping payload when the value is a mapping.
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Equal reports strict equality: same kind and same payload. Mappings
// compare recursively. Undefined equals only Undefined.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, val := range v.m {
			other, ok := o.m[k]
			if !ok || !val.Equal(other) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the value for template interpolation and logs. Numbers
// render without a trailing ".0" when integral; mappings render as a
// deterministic key-sorted inline form; Undefined renders empty.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", k, v.m[k].String())
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		return ""
	}
}

// Interface converts the value to its plain Go form (string, float64, bool,
// map[string]any, or nil for Undefined), primarily for YAML round-trips.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, val := range v.m {
			out[k] = val.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts plain Go data (as produced by yaml.Unmarshal into any)
// into a Value. Unsupported shapes such as sequences yield an error.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Undefined, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, raw := range t {
			v, err := FromAny(raw)
			if err != nil {
				return Undefined, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = v
		}
		return Map(m), nil
	default:
		return Undefined, fmt.Errorf("unsupported value type %T", x)
	}
}

// UnmarshalYAML decodes a YAML scalar or mapping into a Value. Sequences
// are rejected: context and parameter data is scalars and nested mappings
// only.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			*v = Undefined
			return nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			*v = Bool(b)
			return nil
		case "!!int", "!!float":
			var n float64
			if err := node.Decode(&n); err != nil {
				return err
			}
			*v = Number(n)
			return nil
		default:
			var s string
			if err := node.Decode(&s); err != nil {
				return err
			}
			*v = String(s)
			return nil
		}

	case yaml.MappingNode:
		var m map[string]Value
		if err := node.Decode(&m); err != nil {
			return err
		}
		*v = Map(m)
		return nil

	default:
		return fmt.Errorf("line %d: unsupported YAML node for value (scalar or mapping expected)", node.Line)
	}
}

// MarshalYAML encodes the value in its plain form.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// Context is the structured payload of one event, built by the caller and
// read-only to the engine. The engine never mutates it; it only derives
// values from dotted paths.
type Context map[string]Value

// Lookup resolves a dotted path ("task.priority" descends task, then
// priority) against the context. A missing key at any depth, or descent
// into a non-mapping value, short-circuits to Undefined.
func (c Context) Lookup(path string) Value {
	current := Map(map[string]Value(c))
	for _, part := range strings.Split(path, ".") {
		m, ok := current.AsMap()
		if !ok {
			return Undefined
		}
		next, ok := m[part]
		if !ok {
			return Undefined
		}
		current = next
	}
	return current
}
