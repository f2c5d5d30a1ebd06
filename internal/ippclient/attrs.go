package ippclient

import (
	"fmt"

	"github.com/OpenPrinting/goipp"
)

// FindAttr returns the values of the named attribute within a group, if
// present.
func FindAttr(attrs goipp.Attributes, name string) (goipp.Values, bool) {
	for _, attr := range attrs {
		if attr.Name == name && len(attr.Values) > 0 {
			return attr.Values, true
		}
	}
	return nil, false
}

// ExtractValue returns the single value of the named attribute, typed
// as T. It fails if the attribute is absent, multi-valued, or of the
// wrong underlying type.
func ExtractValue[T any](attrs goipp.Attributes, name string) (T, error) {
	var zero T
	vv, ok := FindAttr(attrs, name)
	if !ok {
		return zero, fmt.Errorf("attribute %q not found", name)
	}
	if len(vv) > 1 {
		return zero, fmt.Errorf("attribute %q has multiple values: %d", name, len(vv))
	}
	v := vv[0].V
	if val, ok := v.(T); ok {
		return val, nil
	}
	return zero, fmt.Errorf("attribute %q is not of type %T: %T", name, zero, v)
}

// GetString returns the first string-typed value of the named
// attribute.
func GetString(attrs goipp.Attributes, name string) (string, bool) {
	vv, ok := FindAttr(attrs, name)
	if !ok {
		return "", false
	}
	if s, ok := vv[0].V.(goipp.String); ok {
		return string(s), true
	}
	return "", false
}

// GetStrings returns every string-typed value of the named attribute.
func GetStrings(attrs goipp.Attributes, name string) []string {
	vv, ok := FindAttr(attrs, name)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vv))
	for _, v := range vv {
		if s, ok := v.V.(goipp.String); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// GetInt returns the first integer-typed (or enum-typed) value of the
// named attribute.
func GetInt(attrs goipp.Attributes, name string) (int, bool) {
	vv, ok := FindAttr(attrs, name)
	if !ok {
		return 0, false
	}
	if i, ok := vv[0].V.(goipp.Integer); ok {
		return int(i), true
	}
	return 0, false
}

// GetInts returns every integer-typed value of the named attribute.
func GetInts(attrs goipp.Attributes, name string) []int {
	vv, ok := FindAttr(attrs, name)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(vv))
	for _, v := range vv {
		if i, ok := v.V.(goipp.Integer); ok {
			out = append(out, int(i))
		}
	}
	return out
}

// GetBool returns the boolean value of the named attribute.
func GetBool(attrs goipp.Attributes, name string) (bool, bool) {
	vv, ok := FindAttr(attrs, name)
	if !ok {
		return false, false
	}
	if b, ok := vv[0].V.(goipp.Boolean); ok {
		return bool(b), true
	}
	return false, false
}

// ContainsInt reports whether the named attribute contains the given
// integer among its values. Used to probe operations-supported for a
// specific operation code, mirroring ippContainsInteger in the
// reference implementation.
func ContainsInt(attrs goipp.Attributes, name string, want int) bool {
	for _, v := range GetInts(attrs, name) {
		if v == want {
			return true
		}
	}
	return false
}

// ContainsString reports whether the named attribute contains the
// given keyword/string among its values.
func ContainsString(attrs goipp.Attributes, name, want string) bool {
	for _, v := range GetStrings(attrs, name) {
		if v == want {
			return true
		}
	}
	return false
}

// AttributesEqual reports whether two attribute groups carry the same
// set of attribute names and values, independent of ordering. Used to
// decide whether a device-attributes update needs to be sent at all.
func AttributesEqual(a, b goipp.Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	idx := make(map[string]goipp.Values, len(a))
	for _, attr := range a {
		idx[attr.Name] = attr.Values
	}
	for _, attr := range b {
		want, ok := idx[attr.Name]
		if !ok || len(want) != len(attr.Values) {
			return false
		}
		for i := range want {
			if fmt.Sprint(want[i].V) != fmt.Sprint(attr.Values[i].V) {
				return false
			}
		}
	}
	return true
}
