package common

import (
	"reflect"
	"strings"

	jinja "github.com/AlexanderGrooff/jinja-go"
)

// IsTemplated reports whether a string contains Jinja template expressions.
// Such values cannot be resolved statically and are surfaced to the operator
// as skipped inclusions instead of being followed.
func IsTemplated(s string) bool {
	vars, err := jinja.ParseVariables(s)
	if err != nil {
		// Unparseable template syntax is still template syntax.
		return true
	}
	// Control tags ({% if %}, {% for %}) carry no variables but are just
	// as dynamic.
	return len(vars) > 0 || strings.Contains(s, "{%")
}

// InterfaceToSlice attempts to convert an interface{} to a []interface{}.
// It handles cases where the underlying type is already []interface{}
// or a slice of a specific type (e.g., []string, []int).
func InterfaceToSlice(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Slice {
		return nil, false
	}

	length := val.Len()
	slice := make([]interface{}, length)
	for i := 0; i < length; i++ {
		slice[i] = val.Index(i).Interface()
	}
	return slice, true
}

// ToStringSlice normalizes a YAML value that may be a scalar string or a
// list into a string slice. Non-string list entries are dropped.
func ToStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	default:
		items, ok := InterfaceToSlice(value)
		if !ok {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
}
