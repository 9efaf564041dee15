package treectx

import (
	"slices"

	"github.com/delaneyj/treectx/pkg/schedule"
)

// Cleanup undoes the effects of a component run or a handler call.
type Cleanup func()

// ComponentFunc runs whenever its node is connected and every dep is
// resolved. deps is only valid during the call.
type ComponentFunc func(r *Render, host Host, input any, deps []any) Cleanup

// Component is a reactive unit mounted on nodes. A node holds at most one
// instance per component key.
type Component struct {
	key  any
	fn   ComponentFunc
	deps []*Prop
}

func NewComponent(fn ComponentFunc, deps ...*Prop) *Component {
	return &Component{fn: fn, deps: deps}
}

// WithKey returns a copy of the component identified by key instead of by
// its own pointer.
func (c *Component) WithKey(key any) *Component {
	if !validKey(key) {
		panic(ErrNilSetter)
	}
	cp := *c
	cp.key = key
	return &cp
}

func (c *Component) Key() any {
	if c.key != nil {
		return c.key
	}
	return c
}

type SubscriberFunc func(deps []any) Cleanup

// Subscriber is a component without input or hooks.
type Subscriber struct {
	comp *Component
}

func NewSubscriber(fn SubscriberFunc, deps ...*Prop) *Subscriber {
	s := &Subscriber{}
	s.comp = &Component{
		key:  s,
		deps: deps,
		fn: func(_ *Render, _ Host, _ any, deps []any) Cleanup {
			return fn(deps)
		},
	}
	return s
}

type component struct {
	def   *Component
	node  *Node
	input any

	depValues   []any
	depHandlers []*Handler

	running  bool
	disposed bool
	cleanup  Cleanup
	render   *Render
	update   func()
}

func newComponent(def *Component, n *Node, input any) *component {
	c := &component{
		def:         def,
		node:        n,
		input:       input,
		depValues:   make([]any, len(def.deps)),
		depHandlers: make([]*Handler, len(def.deps)),
	}
	c.render = &Render{c: c}
	c.update = schedule.ThrottleTail(c.doUpdate, n.engine.scheduler)
	return c
}

func (c *component) start() {
	values := c.node.values
	for i, dep := range c.def.deps {
		i := i
		h := NewHandler(func(value any) Cleanup {
			if !sameValue(c.depValues[i], value) {
				c.depValues[i] = value
				c.update()
			}
			return nil
		})
		c.depHandlers[i] = h
		values.Subscribe(dep, h)
		c.depValues[i] = values.Get(dep)
	}
	c.update()
}

func (c *component) setInput(input any) {
	if sameValue(c.input, input) {
		return
	}
	c.input = input
	c.update()
}

func (c *component) rootUpdated() {
	c.update()
}

func (c *component) doUpdate() {
	if c.disposed {
		return
	}
	if c.node.IsConnected() && allDefined(c.depValues) {
		c.running = true
		c.run()
		return
	}
	if c.running {
		c.running = false
		c.stop()
	}
}

func (c *component) run() {
	c.runCleanup()
	e := c.node.engine
	e.metrics.ComponentRuns.Inc()

	deps := slices.Clone(c.depValues)
	c.render.begin()
	ok := e.protect(func() {
		c.cleanup = c.def.fn(c.render, c.node.host, c.input, deps)
	})
	c.render.end(ok)
}

func (c *component) runCleanup() {
	if c.cleanup == nil {
		return
	}
	cleanup := c.cleanup
	c.cleanup = nil
	c.node.engine.protect(cleanup)
}

func (c *component) stop() {
	c.runCleanup()
	c.render.dispose()
}

func (c *component) dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	for i, dep := range c.def.deps {
		c.node.values.Unsubscribe(dep, c.depHandlers[i])
	}
	if c.running {
		c.running = false
		c.stop()
	}
}
