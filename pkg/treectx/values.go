package treectx

import (
	"fmt"
	"slices"

	"github.com/delaneyj/treectx/pkg/schedule"
)

// Handler receives the values of a prop on one node. External handlers are
// called on a later task; the cleanup a call returns runs before the next
// call and on unsubscribe.
type Handler struct {
	fn   func(value any) Cleanup
	edge func(value any)
}

func NewHandler(fn func(value any) Cleanup) *Handler {
	return &Handler{fn: fn}
}

// newEdge is a handler called synchronously within the update pass. Edges
// link a prop to its dependents on the same node and to child nodes.
func newEdge(fn func(value any)) *Handler {
	return &Handler{edge: fn}
}

type pendingState uint8

const (
	notPending pendingState = iota
	pending
	pendingRefreshParent
)

type subscription struct {
	h         *Handler
	cleanup   Cleanup
	last      any
	delivered bool
	removed   bool
}

type used struct {
	prop    *Prop
	subs    []*subscription
	value   any
	pending pendingState
	counter int

	depValues   []any
	depHandlers []*Handler

	parent        *Node
	parentValue   any
	parentHandler *Handler
	resolving     bool
}

type inputs struct {
	setters []any
	values  []any
}

// Values holds the inputs set on a node and the props resolved for it.
type Values struct {
	node     *Node
	inputs   map[*Prop]*inputs
	used     map[*Prop]*used
	order    []*used
	checking bool
	check    func()
}

func newValues(n *Node) *Values {
	v := &Values{
		node:   n,
		inputs: map[*Prop]*inputs{},
		used:   map[*Prop]*used{},
	}
	v.check = schedule.ThrottleTail(v.checkUpdates, n.engine.scheduler)
	return v
}

// Set records value as setter's input for prop. Each setter contributes a
// single input; inputs keep the order setters first appeared in.
func (v *Values) Set(prop *Prop, setter, value any) {
	v.node.engine.checkProp(prop)
	if !validKey(setter) {
		panic(fmt.Errorf("%w: prop %q", ErrNilSetter, prop.key))
	}
	if value == nil {
		panic(fmt.Errorf("%w: prop %q", ErrNilValue, prop.key))
	}

	in, ok := v.inputs[prop]
	if !ok {
		in = &inputs{}
		v.inputs[prop] = in
	}
	i := slices.IndexFunc(in.setters, func(s any) bool { return s == setter })
	switch {
	case i < 0:
		in.setters = append(in.setters, setter)
		in.values = append(in.values, value)
	case sameValue(in.values[i], value):
		return
	default:
		in.values[i] = value
	}
	v.inputsChanged(prop, !ok)
}

func (v *Values) Remove(prop *Prop, setter any) {
	v.node.engine.checkProp(prop)
	if !validKey(setter) {
		panic(fmt.Errorf("%w: prop %q", ErrNilSetter, prop.key))
	}
	in, ok := v.inputs[prop]
	if !ok {
		return
	}
	i := slices.IndexFunc(in.setters, func(s any) bool { return s == setter })
	if i < 0 {
		return
	}
	in.setters = slices.Delete(in.setters, i, i+1)
	in.values = slices.Delete(in.values, i, i+1)
	emptied := len(in.setters) == 0
	if emptied {
		delete(v.inputs, prop)
	}
	v.inputsChanged(prop, emptied)
}

// inputsChanged pings prop here and, when this node started or stopped
// providing a recursive prop, makes the descendants reading through it look
// for their parent again.
func (v *Values) inputsChanged(prop *Prop, providerChanged bool) {
	v.Ping(prop, false)
	if !providerChanged || !prop.IsRecursive() {
		return
	}
	DeepScan(v.node, func(n *Node) bool {
		n.values.Ping(prop, true)
		return !n.values.Has(prop)
	}, false)
}

func (v *Values) Has(prop *Prop) bool {
	_, ok := v.inputs[prop]
	return ok
}

func (v *Values) Inputs(prop *Prop) []any {
	in, ok := v.inputs[prop]
	if !ok {
		return nil
	}
	return slices.Clone(in.values)
}

// Get returns the resolved value of prop. Only subscribed props are
// resolved; anything else is nil.
func (v *Values) Get(prop *Prop) any {
	if u, ok := v.used[prop]; ok {
		return u.value
	}
	return nil
}

// Subscribe starts resolving prop on this node. A value that is already
// resolved is delivered to h on the next task.
func (v *Values) Subscribe(prop *Prop, h *Handler) {
	v.node.engine.checkProp(prop)
	u := v.startUsed(prop)
	if slices.ContainsFunc(u.subs, func(s *subscription) bool { return s.h == h }) {
		return
	}
	sub := &subscription{h: h}
	u.subs = append(u.subs, sub)
	if h.edge == nil && u.value != nil {
		value := u.value
		v.node.engine.schedule(func() {
			if !sub.removed && sameValue(u.value, value) {
				v.deliver(sub, value)
			}
		})
	}
}

func (v *Values) Unsubscribe(prop *Prop, h *Handler) {
	u, ok := v.used[prop]
	if !ok {
		return
	}
	i := slices.IndexFunc(u.subs, func(s *subscription) bool { return s.h == h })
	if i < 0 {
		return
	}
	sub := u.subs[i]
	sub.removed = true
	u.subs = slices.Delete(u.subs, i, i+1)
	if sub.cleanup != nil {
		cleanup := sub.cleanup
		sub.cleanup = nil
		v.node.engine.protect(cleanup)
	}
	if len(u.subs) == 0 {
		v.stopUsed(u)
	}
}

func (v *Values) startUsed(prop *Prop) *used {
	if u, ok := v.used[prop]; ok {
		return u
	}
	u := &used{
		prop:        prop,
		depValues:   make([]any, len(prop.deps)),
		depHandlers: make([]*Handler, len(prop.deps)),
	}
	// Deps are started first so they come earlier in every pass.
	for i, dep := range prop.deps {
		i := i
		h := newEdge(func(value any) {
			if sameValue(u.depValues[i], value) {
				return
			}
			u.depValues[i] = value
			v.pingUsed(u, false)
		})
		u.depHandlers[i] = h
		v.Subscribe(dep, h)
		u.depValues[i] = v.Get(dep)
	}
	v.used[prop] = u
	v.order = append(v.order, u)
	v.pingUsed(u, true)
	return u
}

func (v *Values) stopUsed(u *used) {
	delete(v.used, u.prop)
	if i := slices.Index(v.order, u); i >= 0 {
		v.order = slices.Delete(v.order, i, i+1)
	}
	for i, dep := range u.prop.deps {
		v.Unsubscribe(dep, u.depHandlers[i])
	}
	v.setParent(u, nil)
	u.pending = notPending
}

func (v *Values) live(u *used) bool {
	cur, ok := v.used[u.prop]
	return ok && cur == u
}

func (v *Values) Ping(prop *Prop, refreshParent bool) {
	if u, ok := v.used[prop]; ok {
		v.pingUsed(u, refreshParent)
	}
}

func (v *Values) pingAll(refreshParent bool) {
	for _, u := range v.order {
		v.pingUsed(u, refreshParent)
	}
}

func (v *Values) pingRecursive() {
	for _, u := range v.order {
		if u.prop.IsRecursive() {
			v.pingUsed(u, true)
		}
	}
}

func (v *Values) pingUsed(u *used, refreshParent bool) {
	state := pending
	if refreshParent {
		state = pendingRefreshParent
	}
	if state > u.pending {
		u.pending = state
	}
	if !v.checking {
		v.check()
	}
}

func (v *Values) rootUpdated() {
	if v.node.IsConnected() {
		v.pingAll(true)
	}
}

// checkUpdates recomputes pending entries until none is left. An entry that
// keeps coming back more than the cycle limit is dropped and reported.
func (v *Values) checkUpdates() {
	if !v.node.IsConnected() || v.checking {
		return
	}
	v.checking = true
	defer func() {
		v.checking = false
		for _, u := range v.order {
			u.counter = 0
		}
	}()

	limit := v.node.engine.cycleLimit
	for {
		updated := 0
		for _, u := range slices.Clone(v.order) {
			if u.pending == notPending || !v.live(u) {
				continue
			}
			u.counter++
			if u.counter > limit {
				u.pending = notPending
				v.node.engine.reportAsync(&CycleError{Key: u.prop.key, Node: v.node, Limit: limit})
				continue
			}
			refresh := u.pending == pendingRefreshParent
			u.pending = notPending
			updated++
			v.tryUpdate(u, refresh)
		}
		if updated == 0 || !v.node.IsConnected() {
			return
		}
	}
}

// resolveNow settles a pending entry, and its deps, outside of a pass.
// It lets a child read a parent value that was never tracked before.
func (v *Values) resolveNow(u *used) {
	if !v.node.IsConnected() || v.checking {
		return
	}
	for _, dep := range u.prop.deps {
		if du, ok := v.used[dep]; ok {
			v.resolveNow(du)
		}
	}
	if u.pending == notPending {
		return
	}
	refresh := u.pending == pendingRefreshParent
	u.pending = notPending
	v.tryUpdate(u, refresh)
}

func (v *Values) tryUpdate(u *used, refreshParent bool) {
	var value any
	if !v.node.engine.protect(func() { value = v.calc(u, refreshParent) }) {
		return
	}
	v.maybeUpdated(u, value)
}

func (v *Values) calc(u *used, refreshParent bool) any {
	v.node.engine.metrics.Calcs.Inc()
	prop := u.prop

	var ins []any
	if in, ok := v.inputs[prop]; ok {
		ins = in.values
	}

	recursive := prop.needsParent(ins)
	if refreshParent || recursive != (u.parent != nil) {
		var parent *Node
		if recursive {
			parent = FindParent(v.node, func(n *Node) bool { return n.values.Has(prop) }, false)
		}
		v.setParent(u, parent)
	}

	var parentValue any
	if recursive {
		parentValue = u.parentValue
		if u.parent == nil {
			parentValue = prop.defaultValue
		}
		if parentValue == nil {
			return nil
		}
	}
	if !allDefined(u.depValues) {
		return nil
	}

	switch prop.kind {
	case kindPlain, kindRecursive:
		if len(ins) > 0 {
			return ins[0]
		}
		return parentValue
	case kindComputed:
		return prop.compute(v.node, ins, u.depValues)
	default:
		if len(ins) == 0 && len(u.depValues) == 0 {
			return parentValue
		}
		return prop.computeRec(v.node, ins, parentValue, u.depValues)
	}
}

func (v *Values) setParent(u *used, parent *Node) {
	if u.parent == parent {
		return
	}
	if u.parent != nil {
		u.parent.values.Unsubscribe(u.prop, u.parentHandler)
	}
	u.parent = parent
	u.parentValue = nil
	if parent == nil {
		return
	}
	if u.parentHandler == nil {
		u.parentHandler = newEdge(func(value any) {
			if sameValue(u.parentValue, value) {
				return
			}
			u.parentValue = value
			if !u.resolving {
				v.pingUsed(u, false)
			}
		})
	}

	u.resolving = true
	pv := parent.values
	pv.Subscribe(u.prop, u.parentHandler)
	if pu, ok := pv.used[u.prop]; ok && pu.value == nil {
		pv.resolveNow(pu)
	}
	u.parentValue = pv.Get(u.prop)
	u.resolving = false
}

func (v *Values) maybeUpdated(u *used, value any) {
	if sameValue(u.value, value) {
		return
	}
	u.value = value

	external := false
	for _, sub := range slices.Clone(u.subs) {
		if sub.removed {
			continue
		}
		if sub.h.edge == nil {
			external = true
			continue
		}
		edge := sub.h.edge
		v.node.engine.protect(func() { edge(value) })
	}
	if !external {
		return
	}
	v.node.engine.schedule(func() {
		for _, sub := range slices.Clone(u.subs) {
			if sub.h.edge == nil && !sub.removed {
				v.deliver(sub, value)
			}
		}
	})
}

func (v *Values) deliver(sub *subscription, value any) {
	if sub.delivered && sameValue(sub.last, value) {
		return
	}
	sub.delivered = true
	sub.last = value
	if sub.cleanup != nil {
		cleanup := sub.cleanup
		sub.cleanup = nil
		v.node.engine.protect(cleanup)
	}
	v.node.engine.protect(func() { sub.cleanup = sub.h.fn(value) })
}
