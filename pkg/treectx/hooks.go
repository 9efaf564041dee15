package treectx

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

type hookKind uint8

const (
	hookRef hookKind = iota
	hookMemo
	hookDisposableMemo
	hookSyncEffect
	hookSetProp
	hookRemoveProp
	hookMountComponent
	hookUnmountComponent
	hookSubscribe
	hookUnsubscribe
)

var hookNames = [...]string{
	hookRef:              "UseRef",
	hookMemo:             "UseMemo",
	hookDisposableMemo:   "UseDisposableMemo",
	hookSyncEffect:       "UseSyncEffect",
	hookSetProp:          "UseSetProp",
	hookRemoveProp:       "UseRemoveProp",
	hookMountComponent:   "UseMountComponent",
	hookUnmountComponent: "UseUnmountComponent",
	hookSubscribe:        "UseSubscribe",
	hookUnsubscribe:      "UseUnsubscribe",
}

func (k hookKind) String() string { return hookNames[k] }

type hookSlot struct {
	kind    hookKind
	state   any
	dispose func()
}

// installKey identifies something a component installed on a node.
type installKey struct {
	target Host
	key    any
}

// ownedKey keys props and components installed by a component so that
// different owners never replace each other's installs.
type ownedKey struct {
	owner *component
	key   any
}

// Render is the hook state of a running component. Hooks must be called in
// the same order on every run.
type Render struct {
	c        *component
	slots    []*hookSlot
	index    int
	active   bool
	sealed   bool
	installs mapset.Set[installKey]
}

func (r *Render) Node() *Node { return r.c.node }
func (r *Render) Host() Host  { return r.c.node.host }

func (r *Render) begin() {
	r.index = 0
	r.active = true
}

// end closes a run. Only a run that returned normally fixes the hook layout.
func (r *Render) end(completed bool) {
	r.active = false
	if !completed {
		return
	}
	if r.sealed && r.index != len(r.slots) {
		r.c.node.engine.reportAsync(fmt.Errorf("%w: %d hooks called, previous run called %d", ErrHookOrder, r.index, len(r.slots)))
	}
	r.sealed = true
}

func (r *Render) next(kind hookKind) *hookSlot {
	if !r.active {
		panic(fmt.Errorf("%w: %s called outside of a component run", ErrHookOrder, kind))
	}
	i := r.index
	r.index++
	if i < len(r.slots) {
		s := r.slots[i]
		if s.kind != kind {
			panic(fmt.Errorf("%w: slot %d was %s, now %s", ErrHookOrder, i, s.kind, kind))
		}
		return s
	}
	if r.sealed {
		panic(fmt.Errorf("%w: %s added at slot %d after the first run", ErrHookOrder, kind, i))
	}
	s := &hookSlot{kind: kind}
	r.slots = append(r.slots, s)
	return s
}

func (r *Render) dispose() {
	e := r.c.node.engine
	for _, s := range slices.Backward(r.slots) {
		if s.dispose != nil {
			e.protect(s.dispose)
		}
	}
	if r.installs != nil {
		for _, k := range r.installs.ToSlice() {
			if n, ok := e.Lookup(k.target); ok {
				n.removeComponent(k.key)
			}
		}
		r.installs.Clear()
	}
	r.slots = nil
	r.sealed = false
}

func (r *Render) install(target Host, key any, def *Component, input any) {
	if !r.c.running {
		return
	}
	if r.installs == nil {
		r.installs = mapset.NewThreadUnsafeSet[installKey]()
	}
	r.installs.Add(installKey{target: target, key: key})
	r.c.node.engine.Get(target).setComponent(key, def, input)
}

func (r *Render) uninstall(target Host, key any) {
	if r.installs != nil {
		r.installs.Remove(installKey{target: target, key: key})
	}
	if n, ok := r.c.node.engine.Lookup(target); ok {
		n.removeComponent(key)
	}
}

func (r *Render) target(targets []Host) Host {
	if len(targets) > 0 && targets[0] != nil {
		return targets[0]
	}
	return r.c.node.host
}

type Ref[T any] struct {
	Current T
}

// UseRef returns a value that persists across runs.
func UseRef[T any](r *Render, initial T) *Ref[T] {
	s := r.next(hookRef)
	if s.state == nil {
		s.state = &Ref[T]{Current: initial}
	}
	return s.state.(*Ref[T])
}

type memo[T any] struct {
	deps  []any
	value T
}

// UseMemo recomputes fn when deps change. Nil deps compute once.
func UseMemo[T any](r *Render, deps []any, fn func() T) T {
	s := r.next(hookMemo)
	m, ok := s.state.(*memo[T])
	if !ok || !sameValues(m.deps, deps) {
		m = &memo[T]{deps: slices.Clone(deps), value: fn()}
		s.state = m
	}
	return m.value
}

// UseDisposableMemo is UseMemo for values that must be released. The
// previous value is disposed before a new one is created, and the current
// one when the component stops.
func UseDisposableMemo[T any](r *Render, deps []any, fn func() (T, Cleanup)) T {
	s := r.next(hookDisposableMemo)
	m, ok := s.state.(*memo[T])
	if ok && sameValues(m.deps, deps) {
		return m.value
	}
	if s.dispose != nil {
		dispose := s.dispose
		s.dispose = nil
		r.c.node.engine.protect(dispose)
	}
	value, cleanup := fn()
	s.state = &memo[T]{deps: slices.Clone(deps), value: value}
	if cleanup != nil {
		s.dispose = func() { cleanup() }
	}
	return value
}

type effect struct {
	deps []any
}

// UseSyncEffect runs fn during the run when deps change, cleaning up the
// previous effect first. Nil deps run fn on mount and its cleanup on
// unmount.
func UseSyncEffect(r *Render, deps []any, fn func() Cleanup) {
	s := r.next(hookSyncEffect)
	if ef, ok := s.state.(*effect); ok && sameValues(ef.deps, deps) {
		return
	}
	if s.dispose != nil {
		dispose := s.dispose
		s.dispose = nil
		r.c.node.engine.protect(dispose)
	}
	s.state = &effect{deps: slices.Clone(deps)}
	if cleanup := fn(); cleanup != nil {
		s.dispose = func() { cleanup() }
	}
}

// UseSetProp returns a setter of props owned by the component. A prop stays
// set on its target node until it is removed, the component stops, or the
// target disconnects.
func UseSetProp(r *Render) func(prop *Prop, value any, target ...Host) {
	r.next(hookSetProp)
	owner := r.c
	return func(prop *Prop, value any, target ...Host) {
		host := r.target(target)
		r.install(host, ownedKey{owner: owner, key: prop}, propHolder(owner, prop), value)
	}
}

func UseRemoveProp(r *Render) func(prop *Prop, target ...Host) {
	r.next(hookRemoveProp)
	owner := r.c
	return func(prop *Prop, target ...Host) {
		r.uninstall(r.target(target), ownedKey{owner: owner, key: prop})
	}
}

// propHolder sets the owner's input for prop while the holder runs on the
// target node.
func propHolder(owner *component, prop *Prop) *Component {
	return &Component{
		fn: func(hr *Render, host Host, input any, _ []any) Cleanup {
			e := hr.c.node.engine
			UseSyncEffect(hr, nil, func() Cleanup {
				return func() { e.RemoveProp(host, prop, owner) }
			})
			e.SetProp(host, prop, owner, input)
			return nil
		},
	}
}

// UseMountComponent returns a function mounting components owned by this
// component, on its own node or on target.
func UseMountComponent(r *Render) func(def *Component, input any, target ...Host) {
	r.next(hookMountComponent)
	owner := r.c
	return func(def *Component, input any, target ...Host) {
		r.install(r.target(target), ownedKey{owner: owner, key: def.Key()}, def, input)
	}
}

func UseUnmountComponent(r *Render) func(def *Component, target ...Host) {
	r.next(hookUnmountComponent)
	owner := r.c
	return func(def *Component, target ...Host) {
		r.uninstall(r.target(target), ownedKey{owner: owner, key: def.Key()})
	}
}

func UseSubscribe(r *Render) func(sub *Subscriber, target ...Host) {
	r.next(hookSubscribe)
	owner := r.c
	return func(sub *Subscriber, target ...Host) {
		r.install(r.target(target), ownedKey{owner: owner, key: sub}, sub.comp, nil)
	}
}

func UseUnsubscribe(r *Render) func(sub *Subscriber, target ...Host) {
	r.next(hookUnsubscribe)
	owner := r.c
	return func(sub *Subscriber, target ...Host) {
		r.uninstall(r.target(target), ownedKey{owner: owner, key: sub})
	}
}
