package treectx_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/delaneyj/treectx/pkg/hosttree"
	"github.com/delaneyj/treectx/pkg/schedule"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var testProps = treectx.NewRegistry()

var (
	// Str is a plain prop: the first input, never inherited.
	Str = testProps.NewProp("Str")

	// Inherited passes the nearest input down the tree.
	Inherited = testProps.NewProp("Inherited", treectx.Recursive(), treectx.Default("DEF"))

	// Concat appends a node's inputs to its parent's value.
	Concat = testProps.NewProp("Concat",
		treectx.Default(""),
		treectx.ComputeRecursive(treectx.ComputeRecursive0(func(_ *treectx.Node, inputs []any, parent string) any {
			return parent + joinInputs(inputs, "")
		})),
	)

	// Computed combines its inputs with Inherited on the same node.
	Computed = testProps.NewProp("Computed",
		treectx.Deps(Inherited),
		treectx.Compute(treectx.Compute1(func(_ *treectx.Node, inputs []any, inherited string) any {
			return orNoInput(inputs) + "/" + inherited
		})),
	)

	// ConcatWithDeps reads both its parent and Inherited.
	ConcatWithDeps = testProps.NewProp("ConcatWithDeps",
		treectx.Default("ROOT"),
		treectx.Deps(Inherited),
		treectx.ComputeRecursive(treectx.ComputeRecursive1(func(_ *treectx.Node, inputs []any, parent string, inherited string) any {
			return fmt.Sprintf("%s/%s/%s", orNoInput(inputs), parent, inherited)
		})),
	)

	// Restless pings itself on every compute.
	Restless *treectx.Prop

	// Broken panics with errBoom on every compute.
	Broken = testProps.NewProp("Broken", treectx.Compute(func(*treectx.Node, []any, []any) any {
		panic(errBoom)
	}))
)

var errBoom = errors.New("boom")

func init() {
	Restless = testProps.NewProp("Restless", treectx.Compute(func(n *treectx.Node, _ []any, _ []any) any {
		n.Ping(false, Restless)
		return 1
	}))
}

func joinInputs(inputs []any, sep string) string {
	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		parts = append(parts, fmt.Sprint(in))
	}
	return strings.Join(parts, sep)
}

func orNoInput(inputs []any) string {
	if len(inputs) == 0 {
		return "no-input"
	}
	return joinInputs(inputs, "|")
}

// fixture builds
//
//	#document
//	└ div#T
//	  ├ div#T-1            grandparent
//	  │ ├ div#T-1-1        parent
//	  │ │ ├ div#T-1-1-1    sibling1
//	  │ │ ├ div#T-1-1-2    sibling2
//	  │ │ └ div#T-1-1-3
//	  │ └ div#T-1-2        parent2
//	  │   └ div#T-1-2-1    cousin1
//	  └ div#T-2
type fixture struct {
	t      *testing.T
	forest *hosttree.Forest
	doc    *hosttree.Node
	tree   *hosttree.Node
	queue  *schedule.Queue
	engine *treectx.Engine
	errs   []error
}

func newFixture(t *testing.T, connected bool, opts ...treectx.Option) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		forest: hosttree.NewForest(),
		queue:  schedule.NewQueue(100_000),
	}
	base := []treectx.Option{
		treectx.WithScheduler(f.queue),
		treectx.WithRegistry(testProps),
		treectx.WithErrorHandler(func(err error) { f.errs = append(f.errs, err) }),
	}
	f.engine = treectx.New(append(base, opts...)...)

	f.doc = f.forest.NewDocument()
	f.tree = f.div("T",
		f.div("T-1",
			f.div("T-1-1",
				f.div("T-1-1-1"),
				f.div("T-1-1-2"),
				f.div("T-1-1-3"),
			),
			f.div("T-1-2",
				f.div("T-1-2-1"),
			),
		),
		f.div("T-2"),
	)
	if connected {
		f.doc.AppendChild(f.tree)
	}
	return f
}

func (f *fixture) div(id string, children ...*hosttree.Node) *hosttree.Node {
	el := f.forest.NewElement("div", "id", id)
	for _, c := range children {
		el.AppendChild(c)
	}
	return el
}

func (f *fixture) el(id string) *hosttree.Node {
	f.t.Helper()
	el := f.tree.ByID(id)
	require.NotNil(f.t, el, "no element %s", id)
	return el
}

func (f *fixture) node(id string) *treectx.Node {
	return f.engine.Get(f.el(id))
}

func (f *fixture) docNode() *treectx.Node {
	return f.engine.Get(f.doc)
}

func (f *fixture) flush() {
	f.t.Helper()
	_, err := f.queue.RunAll()
	require.NoError(f.t, err)
}

func (f *fixture) calcs() int {
	return int(testutil.ToFloat64(f.engine.Metrics().Calcs))
}

// rediscover detaches or reattaches hosts and lets the nodes find their
// place again.
func (f *fixture) rediscover(nodes ...*treectx.Node) {
	f.t.Helper()
	for _, n := range nodes {
		n.Discover()
	}
	f.flush()
}

// recorder collects the values a handler receives.
type recorder struct {
	values   []any
	cleanups int
}

func (r *recorder) handler() *treectx.Handler {
	return treectx.NewHandler(func(value any) treectx.Cleanup {
		r.values = append(r.values, value)
		return func() { r.cleanups++ }
	})
}

func (r *recorder) last() any {
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

func panicErr(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		err = e
	}()
	fn()
	return nil
}

func hasErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (f *fixture) componentRuns() float64 {
	return testutil.ToFloat64(f.engine.Metrics().ComponentRuns)
}
