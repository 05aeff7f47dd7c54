package outcome

import "reflect"

// reflectIsNil reports whether v holds a nilable kind (pointer, interface,
// map, slice, chan, func) whose dynamic value is nil. Non-nilable kinds
// (structs, numerics, strings, arrays, bools) always report false: a plain
// struct value is never "nil" even if it's the zero value.
func reflectIsNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
