package treectx_test

import (
	"testing"

	"github.com/delaneyj/treectx/pkg/hosttree"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEngineOwnQueue(t *testing.T) {
	reg := treectx.NewRegistry()
	or := reg.NewProp("Or",
		treectx.Default(false),
		treectx.ComputeRecursive(treectx.ComputeRecursive0(func(_ *treectx.Node, inputs []any, parent bool) any {
			for _, in := range inputs {
				if in == true {
					return true
				}
			}
			return parent
		})),
	)

	e := treectx.New(treectx.WithRegistry(reg))
	forest := hosttree.NewForest()
	a := forest.NewDocument()
	b := forest.NewElement("div")
	a.AppendChild(b)

	var got recorder
	nb := e.Get(b)
	nb.Values().Subscribe(or, got.handler())
	n, err := e.Flush()
	require.NoError(t, err)
	assert.Positive(t, n)
	require.Same(t, e.Get(a), nb.Parent())

	e.SetProp(a, or, "x", true)
	_, err = e.Flush()
	require.NoError(t, err)

	e.RemoveProp(a, or, "x")
	_, err = e.Flush()
	require.NoError(t, err)

	assert.Equal(t, []any{false, true, false}, got.values)
	assert.Equal(t, 2, got.cleanups)
}

func TestEngineExternalSchedulerFlush(t *testing.T) {
	f := newFixture(t, true)
	f.node("T-1")
	n, err := f.engine.Flush()
	require.NoError(t, err)
	assert.Zero(t, n, "the fixture drains its own queue")
	assert.Positive(t, f.queue.Len())
}

func TestEngineMetrics(t *testing.T) {
	prom := prometheus.NewRegistry()
	f := newFixture(t, true, treectx.WithMetrics(prom))
	_, _, sibling1, _, _ := f.discoverAll()

	var got recorder
	sibling1.Values().Subscribe(Inherited, got.handler())
	f.flush()

	count, err := testutil.GatherAndCount(prom,
		"treectx_calc_total",
		"treectx_discover_total",
		"treectx_component_runs_total",
		"treectx_cycle_errors_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Positive(t, testutil.ToFloat64(f.engine.Metrics().Discoveries))
	assert.Equal(t, float64(f.calcs()), testutil.ToFloat64(f.engine.Metrics().Calcs))

	second := treectx.New(treectx.WithMetrics(prom))
	assert.NotEqual(t, f.engine.Name(), second.Name())
	count, err = testutil.GatherAndCount(prom, "treectx_calc_total", "treectx_discover_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "one series per engine")
}

func TestEngineMetricsNameClash(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	prom := prometheus.NewRegistry()
	treectx.New(treectx.WithName("main"), treectx.WithMetrics(prom))

	var e *treectx.Engine
	assert.NotPanics(t, func() {
		e = treectx.New(treectx.WithName("main"), treectx.WithMetrics(prom), treectx.WithLogger(zap.New(core)))
	})
	assert.Equal(t, "main", e.Name())
	assert.Equal(t, 1, logs.FilterMessage("metrics not registered").Len())
}

func TestEngineCycleLimitOption(t *testing.T) {
	assert.Equal(t, treectx.DefaultCycleLimit, treectx.New().CycleLimit())
	assert.Equal(t, 3, treectx.New(treectx.WithCycleLimit(3)).CycleLimit())
	assert.Equal(t, treectx.DefaultCycleLimit, treectx.New(treectx.WithCycleLimit(0)).CycleLimit())
}

func TestEngineLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reg := treectx.NewRegistry()
	broken := reg.NewProp("Broken", treectx.Compute(treectx.Compute0(func(*treectx.Node, []any) any {
		panic("boom")
	})))

	e := treectx.New(treectx.WithRegistry(reg), treectx.WithLogger(zap.New(core)))
	forest := hosttree.NewForest()
	doc := forest.NewDocument()

	var got recorder
	e.Get(doc).Values().Subscribe(broken, got.handler())
	_, err := e.Flush()
	require.NoError(t, err)

	entries := logs.FilterMessage("callback panicked").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Empty(t, got.values)
}

func TestRegistry(t *testing.T) {
	reg := treectx.NewRegistry()
	a, err := reg.Register("A")
	require.NoError(t, err)
	assert.Equal(t, "A", a.Key())
	assert.Equal(t, 1, reg.Len())

	got, ok := reg.Lookup("A")
	assert.True(t, ok)
	assert.Same(t, a, got)
	_, ok = reg.Lookup("B")
	assert.False(t, ok)

	_, err = reg.Register("A")
	assert.ErrorIs(t, err, treectx.ErrInvalidProp, "duplicate key")

	err = panicErr(t, func() { reg.NewProp("A") })
	assert.ErrorIs(t, err, treectx.ErrInvalidProp)
}

func TestRegistryRejectsInvalidProps(t *testing.T) {
	reg := treectx.NewRegistry()
	base := reg.NewProp("Base")
	compute := treectx.Compute0(func(*treectx.Node, []any) any { return nil })
	computeRec := treectx.ComputeRecursive0(func(*treectx.Node, []any, any) any { return nil })

	cases := map[string][]treectx.PropOption{
		"deps without compute":  {treectx.Deps(base)},
		"compute and recursive": {treectx.Compute(compute), treectx.Recursive()},
		"compute and recursiveIf": {
			treectx.Compute(compute),
			treectx.RecursiveIf(func([]any) bool { return true }),
		},
		"both computes": {treectx.Compute(compute), treectx.ComputeRecursive(computeRec)},
		"nil dep":       {treectx.Deps(nil), treectx.Compute(compute)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Register("P "+name, opts...)
			assert.ErrorIs(t, err, treectx.ErrInvalidProp)
		})
	}

	_, err := reg.Register("")
	assert.ErrorIs(t, err, treectx.ErrInvalidProp)
	assert.Equal(t, 1, reg.Len())
}

func TestPropDescriptor(t *testing.T) {
	reg := treectx.NewRegistry()
	plain := reg.NewProp("Plain")
	rec := reg.NewProp("Rec", treectx.Recursive(), treectx.Default(1))
	comp := reg.NewProp("Comp", treectx.Deps(plain, rec), treectx.Compute(treectx.Compute0(func(*treectx.Node, []any) any { return 0 })))

	assert.False(t, plain.IsRecursive())
	assert.True(t, rec.IsRecursive())
	assert.False(t, comp.IsRecursive())
	assert.Equal(t, 1, rec.DefaultValue())
	assert.Equal(t, []*treectx.Prop{plain, rec}, comp.Deps())
	assert.NotEqual(t, plain.ID(), rec.ID())
	assert.Equal(t, "Comp", comp.String())
}
