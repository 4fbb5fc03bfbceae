package content

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"time"
)

// Metadata holds decoded front-matter values. Supported value types are
// string, bool, int, float64, time.Time and []string.
type Metadata map[string]any

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for key, value := range m {
		if list, ok := value.([]string); ok {
			value = slices.Clone(list)
		}
		out[key] = value
	}
	return out
}

// Keys returns the field names in sorted order.
func (m Metadata) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Has reports whether field is set.
func (m Metadata) Has(field string) bool {
	_, ok := m[field]
	return ok
}

// String formats a scalar field as text. Missing fields yield "".
func (m Metadata) String(field string) string {
	switch v := m[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case []string:
		return ""
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Time returns a date field.
func (m Metadata) Time(field string) (time.Time, bool) {
	t, ok := m[field].(time.Time)
	return t, ok
}

// Strings returns a list field.
func (m Metadata) Strings(field string) []string {
	switch v := m[field].(type) {
	case []string:
		return slices.Clone(v)
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Equal compares two metadata maps value by value.
func (m Metadata) Equal(other Metadata) bool {
	if len(m) != len(other) {
		return false
	}
	for key, value := range m {
		otherValue, ok := other[key]
		if !ok || !valuesEqual(value, otherValue) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []string:
		bv, ok := b.([]string)
		return ok && slices.Equal(av, bv)
	default:
		return reflect.DeepEqual(a, b)
	}
}
