package treectx

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ComputeFunc derives a value from a node's inputs and the values of the
// prop's dependencies on the same node. The slices are only valid for the
// duration of the call.
type ComputeFunc func(node *Node, inputs []any, deps []any) any

// RecursiveComputeFunc is a ComputeFunc that also receives the value
// resolved for the nearest ancestor.
type RecursiveComputeFunc func(node *Node, inputs []any, parent any, deps []any) any

// Recursion decides from a node's inputs whether its value needs the parent
// value.
type Recursion func(inputs []any) bool

type propKind uint8

const (
	kindPlain propKind = iota
	kindRecursive
	kindComputed
	kindRecursiveComputed
)

func (k propKind) String() string {
	switch k {
	case kindPlain:
		return "plain"
	case kindRecursive:
		return "recursive"
	case kindComputed:
		return "computed"
	default:
		return "recursive-computed"
	}
}

// Prop describes a named value that flows through the context tree.
// Props are immutable once created.
type Prop struct {
	key          string
	id           uint64
	kind         propKind
	deps         []*Prop
	recursiveIf  Recursion
	compute      ComputeFunc
	computeRec   RecursiveComputeFunc
	defaultValue any
}

type propConfig struct {
	deps        []*Prop
	recursive   bool
	recursiveIf Recursion
	compute     ComputeFunc
	computeRec  RecursiveComputeFunc
	def         any
}

type PropOption func(*propConfig)

func Deps(deps ...*Prop) PropOption {
	return func(s *propConfig) { s.deps = append(s.deps, deps...) }
}

func Recursive() PropOption {
	return func(s *propConfig) { s.recursive = true }
}

// RecursiveIf makes recursion depend on the inputs, so nodes whose inputs
// settle the value never look up their ancestors.
func RecursiveIf(pred Recursion) PropOption {
	return func(s *propConfig) { s.recursiveIf = pred }
}

func Compute(fn ComputeFunc) PropOption {
	return func(s *propConfig) { s.compute = fn }
}

// ComputeRecursive implies Recursive unless RecursiveIf is also given.
func ComputeRecursive(fn RecursiveComputeFunc) PropOption {
	return func(s *propConfig) { s.computeRec = fn }
}

// Default is the parent value used by a recursive prop when no ancestor
// provides an input.
func Default(v any) PropOption {
	return func(s *propConfig) { s.def = v }
}

// NewProp creates a prop in the default registry. It panics on an invalid
// combination of options or a duplicate key.
func NewProp(key string, opts ...PropOption) *Prop {
	return DefaultRegistry.NewProp(key, opts...)
}

func buildProp(key string, opts []PropOption) (*Prop, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidProp)
	}
	s := &propConfig{}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.compute != nil && s.computeRec != nil:
		return nil, fmt.Errorf("%w: %q has both Compute and ComputeRecursive", ErrInvalidProp, key)
	case len(s.deps) > 0 && s.compute == nil && s.computeRec == nil:
		return nil, fmt.Errorf("%w: %q has deps but no compute", ErrInvalidProp, key)
	case s.compute != nil && (s.recursive || s.recursiveIf != nil):
		return nil, fmt.Errorf("%w: %q is recursive, use ComputeRecursive", ErrInvalidProp, key)
	}
	for _, dep := range s.deps {
		if dep == nil {
			return nil, fmt.Errorf("%w: %q has a nil dep", ErrInvalidProp, key)
		}
	}

	p := &Prop{
		key:          key,
		id:           xxhash.Sum64String(key),
		deps:         s.deps,
		recursiveIf:  s.recursiveIf,
		compute:      s.compute,
		computeRec:   s.computeRec,
		defaultValue: s.def,
	}
	switch {
	case s.computeRec != nil:
		p.kind = kindRecursiveComputed
	case s.compute != nil:
		p.kind = kindComputed
	case s.recursive || s.recursiveIf != nil:
		p.kind = kindRecursive
	default:
		p.kind = kindPlain
	}
	return p, nil
}

func (p *Prop) Key() string       { return p.key }
func (p *Prop) ID() uint64        { return p.id }
func (p *Prop) DefaultValue() any { return p.defaultValue }
func (p *Prop) String() string    { return p.key }

func (p *Prop) Deps() []*Prop {
	out := make([]*Prop, len(p.deps))
	copy(out, p.deps)
	return out
}

// IsRecursive reports whether the prop can ever need a parent value.
func (p *Prop) IsRecursive() bool {
	return p.kind == kindRecursive || p.kind == kindRecursiveComputed
}

func (p *Prop) needsParent(inputs []any) bool {
	if !p.IsRecursive() {
		return false
	}
	if p.recursiveIf != nil {
		return p.recursiveIf(inputs)
	}
	return true
}

// Registry keeps prop keys unique.
type Registry struct {
	mu   sync.RWMutex
	byID map[uint64]*Prop
}

var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{byID: map[uint64]*Prop{}}
}

func (r *Registry) NewProp(key string, opts ...PropOption) *Prop {
	p, err := r.Register(key, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (r *Registry) Register(key string, opts ...PropOption) (*Prop, error) {
	p, err := buildProp(key, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byID[p.id]; ok {
		if prev.key == key {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidProp, key)
		}
		return nil, fmt.Errorf("%w: %q collides with %q", ErrInvalidProp, key, prev.key)
	}
	r.byID[p.id] = p
	return p, nil
}

func (r *Registry) Lookup(key string) (*Prop, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[xxhash.Sum64String(key)]
	if !ok || p.key != key {
		return nil, false
	}
	return p, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
