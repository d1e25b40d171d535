package debug

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// VariableType classifies a context value for display purposes.
type VariableType string

const (
	TypeString    VariableType = "string"
	TypeNumber    VariableType = "number"
	TypeBoolean   VariableType = "boolean"
	TypeObject    VariableType = "object"
	TypeArray     VariableType = "array"
	TypeNull      VariableType = "null"
	TypeUndefined VariableType = "undefined"
	TypeFunction  VariableType = "function"
	TypeDate      VariableType = "date"
	TypeUnknown   VariableType = "unknown"
)

// undefinedValue marks a value that is absent from the context, as opposed
// to one that is present with a nil value. Path lookups that run off the
// data return Undefined rather than nil so the two cases stay
// distinguishable.
type undefinedValue struct{}

// Undefined is the sentinel returned for missing values.
var Undefined = undefinedValue{}

func (undefinedValue) String() string { return "undefined" }

// MarshalJSON renders the sentinel as JSON null so API responses stay plain.
func (undefinedValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Variable is a read-only node in the lazily-expanded view over a context
// value. Children are never stored; Children computes them on demand.
type Variable struct {
	Name       string       `json:"name"`
	Value      any          `json:"value"`
	Type       VariableType `json:"type"`
	Expandable bool         `json:"expandable"`
	Path       string       `json:"path"`
}

// VariableScope groups variables under a display label.
type VariableScope struct {
	Name      string      `json:"name"`
	Variables []*Variable `json:"variables"`
}

// TypeOf classifies a value into the fixed display type set.
func TypeOf(value any) VariableType {
	switch v := value.(type) {
	case nil:
		return TypeNull
	case undefinedValue:
		return TypeUndefined
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return TypeNumber
	case time.Time, *time.Time:
		return TypeDate
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		_ = v
		return typeOfReflect(value)
	}
}

// typeOfReflect handles values outside the canonical JSON/YAML shapes.
func typeOfReflect(value any) VariableType {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Func:
		return TypeFunction
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map, reflect.Struct:
		return TypeObject
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return TypeNull
		}
		return TypeOf(rv.Elem().Interface())
	default:
		return TypeUnknown
	}
}

// IsExpandable reports whether a value has children worth rendering:
// non-empty arrays and non-empty plain objects only.
func IsExpandable(value any) bool {
	switch v := value.(type) {
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}

const defaultFormatLength = 100

// FormatValue produces a bounded human-readable rendering of a value.
// Strings are quoted and truncated with an ellipsis beyond maxLength,
// arrays render as Array(n), and objects as up to three key names.
func FormatValue(value any, maxLength int) string {
	if maxLength <= 0 {
		maxLength = defaultFormatLength
	}
	switch v := value.(type) {
	case nil:
		return "null"
	case undefinedValue:
		return "undefined"
	case string:
		return strconv.Quote(truncate(v, maxLength))
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return "null"
		}
		return v.Format(time.RFC3339)
	case []any:
		return fmt.Sprintf("Array(%d)", len(v))
	case map[string]any:
		return formatObject(v)
	default:
		return truncate(fmt.Sprintf("%v", v), maxLength)
	}
}

func truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength]) + "..."
}

func formatObject(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	shown := keys
	more := false
	if len(shown) > 3 {
		shown = shown[:3]
		more = true
	}
	var b strings.Builder
	b.WriteString("{")
	b.WriteString(strings.Join(shown, ", "))
	if more {
		b.WriteString(", ...")
	}
	b.WriteString("}")
	return b.String()
}

// NewVariable builds one node of the variable tree. Path is the dotted or
// bracketed address the value can be re-looked-up by.
func NewVariable(name string, value any, path string) *Variable {
	return &Variable{
		Name:       name,
		Value:      value,
		Type:       TypeOf(value),
		Expandable: IsExpandable(value),
		Path:       path,
	}
}

// Children computes the immediate children of an expandable variable.
// Arrays yield indexed children with bracket paths, objects keyed children
// with dotted paths. Non-expandable variables yield nil.
func Children(v *Variable) []*Variable {
	switch val := v.Value.(type) {
	case []any:
		children := make([]*Variable, 0, len(val))
		for i, item := range val {
			idx := strconv.Itoa(i)
			children = append(children, NewVariable(idx, item, v.Path+"["+idx+"]"))
		}
		return children
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		children := make([]*Variable, 0, len(keys))
		for _, k := range keys {
			children = append(children, NewVariable(k, val[k], v.Path+"."+k))
		}
		return children
	default:
		return nil
	}
}

// BuildScopes derives the display scopes for a context map. Scopes are
// recomputed on every context change and never persisted.
func BuildScopes(context map[string]any) []*VariableScope {
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]*Variable, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, NewVariable(k, context[k], k))
	}
	return []*VariableScope{{Name: "Context", Variables: vars}}
}
