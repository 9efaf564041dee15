package treectx

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/delaneyj/treectx/pkg/schedule"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const DefaultCycleLimit = 5

var engineSeq atomic.Uint64

// ErrorHandler receives errors raised outside the caller's flow: recovered
// panics from user callbacks and cycle reports.
type ErrorHandler func(err error)

// Engine owns a context tree. All methods must be called from the goroutine
// that drains the engine's scheduler, or from tasks it runs.
type Engine struct {
	name       string
	scheduler  schedule.Scheduler
	queue      *schedule.Queue
	registry   *Registry
	logger     *zap.Logger
	onError    ErrorHandler
	cycleLimit int
	metrics    *Metrics
	promReg    prometheus.Registerer

	nodes  map[Host]*Node
	slots  map[Host]Host
	nextID uint64
}

type Option func(*Engine)

// WithScheduler replaces the engine's own queue.
func WithScheduler(s schedule.Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

func WithCycleLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cycleLimit = n
		}
	}
}

func WithErrorHandler(fn ErrorHandler) Option {
	return func(e *Engine) { e.onError = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRegistry replaces DefaultRegistry. Only props registered there can be
// set, subscribed to or used as component deps.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithName sets the engine label of its metrics. Engines default to a
// process-unique "engine-<n>".
func WithName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.name = name
		}
	}
}

// WithMetrics registers the engine's counters with reg. Several engines can
// share reg as long as their names differ.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.promReg = reg }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		name:       "engine-" + strconv.FormatUint(engineSeq.Add(1), 10),
		registry:   DefaultRegistry,
		logger:     zap.NewNop(),
		cycleLimit: DefaultCycleLimit,
		nodes:      map[Host]*Node{},
		slots:      map[Host]Host{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.queue = schedule.NewQueue(schedule.DefaultMaxTasks)
		e.scheduler = e.queue
	}
	if e.onError == nil {
		e.onError = e.logError
	}
	e.metrics = newMetrics(prometheus.Labels{"engine": e.name})
	if e.promReg != nil {
		if err := e.metrics.register(e.promReg); err != nil {
			e.logger.Error("metrics not registered", zap.String("engine", e.name), zap.Error(err))
		}
	}
	return e
}

func (e *Engine) Name() string                 { return e.name }
func (e *Engine) Scheduler() schedule.Scheduler { return e.scheduler }
func (e *Engine) Registry() *Registry           { return e.registry }
func (e *Engine) Metrics() *Metrics             { return e.metrics }
func (e *Engine) CycleLimit() int               { return e.cycleLimit }

// Flush drains the engine's own queue. It returns 0 when the engine was
// built with an external scheduler.
func (e *Engine) Flush() (int, error) {
	if e.queue == nil {
		return 0, nil
	}
	return e.queue.RunAll()
}

func (e *Engine) logError(err error) {
	var cycle *CycleError
	var p *schedule.PanicError
	switch {
	case errors.As(err, &cycle):
		e.logger.Warn("cyclical prop", zap.String("key", cycle.Key), zap.Stringer("node", cycle.Node), zap.Int("limit", cycle.Limit))
	case errors.As(err, &p):
		e.logger.Error("callback panicked", zap.Error(err), zap.ByteString("stack", p.Stack))
	default:
		e.logger.Error("async error", zap.Error(err))
	}
}

// checkProp panics unless prop is the one registered under its key in the
// engine's registry.
func (e *Engine) checkProp(prop *Prop) {
	if prop == nil {
		panic(fmt.Errorf("%w: nil prop", ErrInvalidProp))
	}
	if p, ok := e.registry.Lookup(prop.key); !ok || p != prop {
		panic(fmt.Errorf("%w: %q is not registered with this engine", ErrInvalidProp, prop.key))
	}
}

func (e *Engine) schedule(task func()) {
	e.scheduler.Schedule(task)
}

func (e *Engine) protect(fn func()) bool {
	return schedule.Protected(e.scheduler, schedule.ReportFunc(e.onError), fn)
}

func (e *Engine) reportAsync(err error) {
	var cycle *CycleError
	if errors.As(err, &cycle) {
		e.metrics.CycleErrors.Inc()
	}
	schedule.ReportAsync(e.scheduler, schedule.ReportFunc(e.onError), err)
}

// Lookup returns the node for host without creating one.
func (e *Engine) Lookup(host Host) (*Node, bool) {
	n, ok := e.nodes[host]
	return n, ok
}

// Get returns the node for host, creating it on first use. A new
// discoverable node schedules its own discovery.
func (e *Engine) Get(host Host) *Node {
	if n, ok := e.nodes[host]; ok {
		return n
	}
	n := newNode(e, host, "")
	e.nodes[host] = n
	n.Discover()
	return n
}

// Closest walks the discovery path from host and returns the first node
// found, creating nodes for documents, fragments and auto-context hosts on
// the way.
func (e *Engine) Closest(host Host, includeSelf bool) *Node {
	for h := host; h != nil; h = e.nextHost(h) {
		if h == host && !includeSelf {
			continue
		}
		if n, ok := e.nodes[h]; ok {
			return n
		}
		switch h.HostKind() {
		case HostDocument, HostFragment:
			return e.Get(h)
		}
		if h.AutoContext() {
			return e.Get(h)
		}
	}
	return nil
}

func (e *Engine) nextHost(h Host) Host {
	if slot, ok := e.slots[h]; ok {
		return slot
	}
	if slot := h.AssignedSlot(); slot != nil {
		return slot
	}
	return h.ParentHost()
}

// contains reports whether ancestor is on the discovery path above host.
func (e *Engine) contains(ancestor, host Host) bool {
	for h := e.nextHost(host); h != nil; h = e.nextHost(h) {
		if h == ancestor {
			return true
		}
	}
	return false
}

// AssignSlot makes discovery go from host to slot instead of the host's
// structural parent.
func (e *Engine) AssignSlot(host, slot Host) {
	if slot == nil {
		panic(errors.New("treectx: nil slot"))
	}
	if cur, ok := e.slots[host]; ok && cur == slot {
		return
	}
	e.slots[host] = slot
	e.discoverContained(host)
}

func (e *Engine) UnassignSlot(host, slot Host) {
	if cur, ok := e.slots[host]; !ok || cur != slot {
		return
	}
	delete(e.slots, host)
	e.discoverContained(host)
}

// discoverContained rediscovers the node of host or, when host has none,
// every discoverable node whose path runs through host.
func (e *Engine) discoverContained(host Host) {
	if n, ok := e.nodes[host]; ok {
		n.Discover()
		return
	}
	for _, n := range e.sortedNodes() {
		if n.IsDiscoverable() && e.contains(host, n.host) {
			n.Discover()
		}
	}
}

func (e *Engine) sortedNodes() []*Node {
	nodes := make([]*Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		nodes = append(nodes, n)
	}
	sortNodes(nodes)
	return nodes
}

func (e *Engine) SetProp(host Host, prop *Prop, setter, value any) {
	e.Get(host).values.Set(prop, setter, value)
}

func (e *Engine) RemoveProp(host Host, prop *Prop, setter any) {
	e.Get(host).values.Remove(prop, setter)
}

// SetComponent mounts def on host or, when already mounted, updates its
// input.
func (e *Engine) SetComponent(host Host, def *Component, input any) {
	e.Get(host).setComponent(def.Key(), def, input)
}

func (e *Engine) RemoveComponent(host Host, def *Component) {
	e.Get(host).removeComponent(def.Key())
}

func (e *Engine) Subscribe(host Host, sub *Subscriber) {
	e.Get(host).setComponent(sub, sub.comp, nil)
}

func (e *Engine) Unsubscribe(host Host, sub *Subscriber) {
	e.Get(host).removeComponent(sub)
}
