package treectx_test

import (
	"testing"

	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type run struct {
	host  treectx.Host
	input any
	deps  []any
}

// spy records component runs and cleanups.
type spy struct {
	runs     []run
	cleanups int
}

func (s *spy) component(deps ...*treectx.Prop) *treectx.Component {
	return treectx.NewComponent(func(_ *treectx.Render, host treectx.Host, input any, values []any) treectx.Cleanup {
		s.runs = append(s.runs, run{host: host, input: input, deps: append([]any(nil), values...)})
		return func() { s.cleanups++ }
	}, deps...)
}

func TestComponentWithoutDeps(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var s spy
	comp := s.component()
	f.engine.SetComponent(sibling1.Host(), comp, nil)
	assert.Empty(t, s.runs, "runs on a later task")
	f.flush()
	require.Len(t, s.runs, 1)
	assert.Same(t, sibling1.Host(), s.runs[0].host)
	assert.True(t, sibling1.HasComponent(comp))

	// should only call component once w/o input
	f.engine.SetComponent(sibling1.Host(), comp, nil)
	f.flush()
	assert.Len(t, s.runs, 1)
}

func TestComponentInput(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var s spy
	comp := s.component()
	f.engine.SetComponent(sibling1.Host(), comp, 1)
	f.flush()
	f.engine.SetComponent(sibling1.Host(), comp, 1)
	f.flush()
	require.Len(t, s.runs, 1)
	assert.Zero(t, s.cleanups)

	f.engine.SetComponent(sibling1.Host(), comp, 2)
	f.engine.SetComponent(sibling1.Host(), comp, 3)
	f.flush()
	require.Len(t, s.runs, 2, "runs at most once per task")
	assert.Equal(t, 3, s.runs[1].input)
	assert.Equal(t, 1, s.cleanups)
}

func TestComponentWaitsForDeps(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var s spy
	comp := s.component(Str, Inherited)
	f.engine.SetComponent(sibling1.Host(), comp, "in")
	f.flush()
	assert.Empty(t, s.runs, "Str is undefined")

	f.engine.SetProp(sibling1.Host(), Str, "s", "A")
	f.flush()
	require.Len(t, s.runs, 1)
	assert.Equal(t, "in", s.runs[0].input)
	assert.Equal(t, []any{"A", "DEF"}, s.runs[0].deps)

	f.engine.SetProp(sibling1.Host(), Str, "s", "B")
	f.flush()
	require.Len(t, s.runs, 2)
	assert.Equal(t, []any{"B", "DEF"}, s.runs[1].deps)
	assert.Equal(t, 1, s.cleanups)

	f.engine.RemoveProp(sibling1.Host(), Str, "s")
	f.flush()
	assert.Len(t, s.runs, 2)
	assert.Equal(t, 2, s.cleanups, "stops when a dep becomes undefined")
}

func TestComponentDisconnectReconnect(t *testing.T) {
	f := newFixture(t, true)
	gp, _, sibling1, _, _ := f.discoverAll()

	var s spy
	comp := s.component()
	f.engine.SetComponent(sibling1.Host(), comp, 1)
	f.flush()
	require.Len(t, s.runs, 1)

	gpEl := f.el("T-1")
	gpEl.Remove()
	f.rediscover(gp)
	require.False(t, sibling1.IsConnected())
	assert.Equal(t, 1, s.cleanups)

	f.engine.SetComponent(sibling1.Host(), comp, 2)
	f.flush()
	assert.Len(t, s.runs, 1, "disconnected components do not run")

	f.tree.AppendChild(gpEl)
	f.rediscover(gp)
	require.Len(t, s.runs, 2)
	assert.Equal(t, 2, s.runs[1].input)
}

func TestRemoveComponent(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var s spy
	comp := s.component(Str)
	f.engine.SetProp(sibling1.Host(), Str, "s", "A")
	f.engine.SetComponent(sibling1.Host(), comp, nil)
	f.flush()
	require.Len(t, s.runs, 1)

	f.engine.RemoveComponent(sibling1.Host(), comp)
	assert.Equal(t, 1, s.cleanups)
	assert.False(t, sibling1.HasComponent(comp))
	assert.Nil(t, sibling1.Values().Get(Str), "deps are released")

	f.engine.SetProp(sibling1.Host(), Str, "s", "B")
	f.flush()
	assert.Len(t, s.runs, 1)
}

func TestComponentKey(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var s, other spy
	a := s.component().WithKey("media")
	b := other.component().WithKey("media")
	assert.Equal(t, "media", a.Key())

	f.engine.SetComponent(sibling1.Host(), a, 1)
	f.engine.SetComponent(sibling1.Host(), b, 2)
	f.flush()
	require.Len(t, s.runs, 1, "the first mount owns the key")
	assert.Equal(t, 2, s.runs[0].input)
	assert.Empty(t, other.runs)
	assert.True(t, sibling1.HasComponent(b))
}

func TestSubscriber(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var seen [][]any
	cleanups := 0
	sub := treectx.NewSubscriber(func(deps []any) treectx.Cleanup {
		seen = append(seen, append([]any(nil), deps...))
		return func() { cleanups++ }
	}, Str)

	f.engine.Subscribe(sibling1.Host(), sub)
	f.engine.SetProp(sibling1.Host(), Str, "s", "A")
	f.flush()
	assert.Equal(t, [][]any{{"A"}}, seen)

	f.engine.Subscribe(sibling1.Host(), sub)
	f.flush()
	assert.Len(t, seen, 1)

	f.engine.Unsubscribe(sibling1.Host(), sub)
	assert.Equal(t, 1, cleanups)
}

func TestComponentPanicIsReported(t *testing.T) {
	f := newFixture(t, true)
	_, _, sibling1, _, _ := f.discoverAll()

	var s spy
	broken := treectx.NewComponent(func(*treectx.Render, treectx.Host, any, []any) treectx.Cleanup {
		panic("broken")
	})
	f.engine.SetComponent(sibling1.Host(), broken, nil)
	f.engine.SetComponent(sibling1.Host(), s.component(), nil)
	f.flush()

	assert.Len(t, s.runs, 1)
	require.Len(t, f.errs, 1)
	assert.Contains(t, f.errs[0].Error(), "broken")
	assert.Equal(t, 2, int(f.componentRuns()))
}
