package templates

import (
	"strconv"
	"strings"
)

func prefixedStrings(prefix string, count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		sb.WriteString(prefix)
		sb.WriteString(strconv.Itoa(i))
		if i < count-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}

// typeParams is the type parameter list of an adapter, with an optional
// leading parameter for the parent value.
func typeParams(lead string, count int) string {
	names := prefixedStrings("D", count)
	switch {
	case lead != "" && names != "":
		return "[" + lead + ", " + names + " any]"
	case lead != "":
		return "[" + lead + " any]"
	case names != "":
		return "[" + names + " any]"
	default:
		return ""
	}
}

// typedParams renders ", d0 D0, d1 D1".
func typedParams(count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		n := strconv.Itoa(i)
		sb.WriteString(", d" + n + " D" + n)
	}
	return sb.String()
}

// depArgs renders ", deps[0].(D0), deps[1].(D1)".
func depArgs(count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		n := strconv.Itoa(i)
		sb.WriteString(", deps[" + n + "].(D" + n + ")")
	}
	return sb.String()
}
