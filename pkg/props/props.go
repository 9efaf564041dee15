// Package props holds the standard properties shared by every component
// that renders or plays media.
package props

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/delaneyj/treectx/pkg/treectx"
)

type LoadingMode string

const (
	LoadingAuto   LoadingMode = "auto"
	LoadingLazy   LoadingMode = "lazy"
	LoadingEager  LoadingMode = "eager"
	LoadingUnload LoadingMode = "unload"
)

var loadingRank = map[LoadingMode]int{
	LoadingAuto:   0,
	LoadingLazy:   1,
	LoadingEager:  2,
	LoadingUnload: 3,
}

// ReduceLoading keeps the stronger of two loading instructions. Unknown
// values rank below auto.
func ReduceLoading(a, b LoadingMode) LoadingMode {
	ra, okA := loadingRank[a]
	rb, okB := loadingRank[b]
	switch {
	case !okA:
		return b
	case !okB:
		return a
	case rb > ra:
		return b
	default:
		return a
	}
}

func ParseLoading(s string) (LoadingMode, error) {
	l := LoadingMode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := loadingRank[l]; !ok {
		return "", fmt.Errorf("props: unknown loading %q", s)
	}
	return l, nil
}

func andInputs(inputs []any) bool {
	for _, in := range inputs {
		if b, ok := in.(bool); ok && !b {
			return false
		}
	}
	return true
}

func hasFalse(inputs []any) bool { return !andInputs(inputs) }

var (
	// CanRender is false below any node that sets it to false.
	CanRender = treectx.NewProp("CanRender",
		treectx.Default(true),
		treectx.RecursiveIf(func(inputs []any) bool { return !hasFalse(inputs) }),
		treectx.ComputeRecursive(treectx.ComputeRecursive0(func(_ *treectx.Node, inputs []any, parent bool) any {
			if hasFalse(inputs) {
				return false
			}
			return parent
		})),
	)

	// CanPlay additionally requires CanRender on the same node.
	CanPlay = treectx.NewProp("CanPlay",
		treectx.Default(true),
		treectx.Deps(CanRender),
		treectx.RecursiveIf(func(inputs []any) bool { return !hasFalse(inputs) }),
		treectx.ComputeRecursive(treectx.ComputeRecursive1(func(_ *treectx.Node, inputs []any, parent bool, canRender bool) any {
			if !canRender || hasFalse(inputs) {
				return false
			}
			return parent
		})),
	)

	// Loading is the strongest loading instruction on the path from the
	// root, forced to at least lazy where rendering is off.
	Loading = treectx.NewProp("Loading",
		treectx.Default(LoadingAuto),
		treectx.Deps(CanRender),
		treectx.ComputeRecursive(treectx.ComputeRecursive1(func(_ *treectx.Node, inputs []any, parent LoadingMode, canRender bool) any {
			l := parent
			for _, in := range inputs {
				if v, ok := in.(LoadingMode); ok {
					l = ReduceLoading(l, v)
				}
			}
			if !canRender {
				l = ReduceLoading(l, LoadingLazy)
			}
			return l
		})),
	)
)

// All lists the standard props.
func All() []*treectx.Prop {
	return []*treectx.Prop{CanRender, CanPlay, Loading}
}

// ParseValue turns a textual value, such as an html attribute, into the
// type the prop expects.
func ParseValue(prop *treectx.Prop, raw string) (any, error) {
	switch prop {
	case CanRender, CanPlay:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("props: %s: %w", prop.Key(), err)
		}
		return b, nil
	case Loading:
		return ParseLoading(raw)
	default:
		return nil, fmt.Errorf("props: no parser for %s", prop.Key())
	}
}
