package treectx

import "reflect"

// sameValue is the change test for prop values, inputs and memo deps.
// Functions never compare equal.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Slice, reflect.Map:
		return reflect.DeepEqual(a, b)
	}
	if ta.Comparable() {
		return comparableEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// comparableEqual falls back to DeepEqual when an interface field holds an
// uncomparable value.
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

func sameValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

func allDefined(values []any) bool {
	for _, v := range values {
		if v == nil {
			return false
		}
	}
	return true
}

func validKey(k any) bool {
	if k == nil {
		return false
	}
	t := reflect.TypeOf(k)
	return t.Kind() != reflect.Func && t.Comparable()
}
