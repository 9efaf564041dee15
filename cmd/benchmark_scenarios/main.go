package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/treectx/internal/config"
	"github.com/delaneyj/treectx/internal/logging"
	"github.com/delaneyj/treectx/pkg/hosttree"
	"github.com/delaneyj/treectx/pkg/schedule"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadOrDefault()
	log, err := logging.New(cfg.Logging.Logger())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting scenario benchmark, please wait")
	defer log.Info("finished scenario benchmark")

	scenarios := []scenario{
		{
			name:            "simple page",
			width:           10,
			depth:           5,
			readFraction:    1,
			dynamicFraction: 0,
			iterations:      20_000,
		},
		{
			name:            "moving components",
			width:           10,
			depth:           10,
			readFraction:    1,
			dynamicFraction: 0.25,
			iterations:      5_000,
		},
		{
			name:            "large page",
			width:           1000,
			depth:           12,
			readFraction:    0.2,
			dynamicFraction: 0.05,
			iterations:      500,
		},
		{
			name:            "wide",
			width:           5000,
			depth:           2,
			readFraction:    1,
			dynamicFraction: 0,
			iterations:      200,
		},
		{
			name:            "deep",
			width:           5,
			depth:           500,
			readFraction:    1,
			dynamicFraction: 0,
			iterations:      500,
		},
		{
			name:            "very dynamic",
			width:           100,
			depth:           15,
			readFraction:    1,
			dynamicFraction: 0.5,
			iterations:      1_000,
		},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"size", "read%", "dynamic%", "nTimes", "test", "time", "calcs", "updateRate", "title",
	})

	const repeats = 5
	for _, sc := range scenarios {
		log.Info("running scenario", zap.String("name", sc.name))

		// warm up
		if _, err := sc.run(cfg, log); err != nil {
			log.Fatal("scenario failed", zap.String("name", sc.name), zap.Error(err))
		}

		best := result{duration: time.Hour}
		for i := 0; i < repeats; i++ {
			log.Debug("repeat", zap.String("name", sc.name), zap.Int("run", i+1), zap.Int("of", repeats))
			res, err := sc.run(cfg, log)
			if err != nil {
				log.Fatal("scenario failed", zap.String("name", sc.name), zap.Error(err))
			}
			if res.duration < best.duration {
				best = res
			}
		}

		updateRate := float64(best.updates) / (float64(best.duration) / float64(time.Millisecond))
		table.Append([]string{
			fmt.Sprintf("%dx%d", sc.width, sc.depth),
			fmt.Sprint(sc.readFraction),
			fmt.Sprint(sc.dynamicFraction),
			humanize.Comma(int64(sc.iterations)),
			sc.name,
			fmt.Sprint(best.duration),
			humanize.Comma(int64(best.calcs)),
			humanize.Comma(int64(updateRate)),
			sc.title(),
		})
	}
	table.Render()
}

type scenario struct {
	name            string  // friendly name, should be unique
	width           int     // branches under the document
	depth           int     // auto-context elements per branch
	readFraction    float64 // fraction of leaves subscribed to the prop
	dynamicFraction float64 // fraction of iterations that move a leaf instead of setting a prop
	iterations      int
}

func (sc scenario) title() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d", sc.width, sc.depth))
	if sc.dynamicFraction > 0 {
		sb.WriteString(" dynamic")
	}
	if sc.readFraction < 1 {
		sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*sc.readFraction))
	}
	return sb.String()
}

type result struct {
	duration time.Duration
	updates  int64
	calcs    float64
}

type graph struct {
	engine   *treectx.Engine
	queue    *schedule.Queue
	sum      *treectx.Prop
	sources  []*hosttree.Node
	leaves   []*hosttree.Node
	parents  []*hosttree.Node
	updates  *int64
	calcs    func() float64
	readable []*treectx.Node
}

// run sets a prop on the top of one branch per iteration, or moves a leaf
// to another branch, and drains the queue each time.
func (sc scenario) run(cfg *config.Config, log *zap.Logger) (result, error) {
	g := sc.build(cfg, log)
	if _, err := g.queue.RunAll(); err != nil {
		return result{}, err
	}
	*g.updates = 0
	calcsBefore := g.calcs()

	random := rand.New(rand.NewSource(0))
	start := time.Now()
	for i := 0; i < sc.iterations; i++ {
		if random.Float64() < sc.dynamicFraction {
			leaf := random.Intn(len(g.leaves))
			to := g.parents[random.Intn(len(g.parents))]
			to.AppendChild(g.leaves[leaf])
			g.engine.Get(g.leaves[leaf]).Discover()
		} else {
			src := g.sources[i%len(g.sources)]
			g.engine.SetProp(src, g.sum, "bench", i)
		}
		if _, err := g.queue.RunAll(); err != nil {
			return result{}, err
		}
	}
	duration := time.Since(start)

	total := 0
	for _, n := range g.readable {
		if v, ok := n.Values().Get(g.sum).(int); ok {
			total += v
		}
	}
	log.Debug("scenario run", zap.String("name", sc.name), zap.Int("sum", total), zap.Duration("took", duration))

	return result{
		duration: duration,
		updates:  *g.updates,
		calcs:    g.calcs() - calcsBefore,
	}, nil
}

func (sc scenario) build(cfg *config.Config, log *zap.Logger) *graph {
	reg := treectx.NewRegistry()
	sum := reg.NewProp("Sum",
		treectx.Default(0),
		treectx.ComputeRecursive(treectx.ComputeRecursive0(func(_ *treectx.Node, inputs []any, parent int) any {
			for _, in := range inputs {
				parent += in.(int)
			}
			return parent
		})),
	)

	queue := cfg.Engine.Queue()
	e := treectx.New(append(cfg.Engine.Options(),
		treectx.WithScheduler(queue),
		treectx.WithRegistry(reg),
		treectx.WithLogger(log),
	)...)

	g := &graph{
		engine:  e,
		queue:   queue,
		sum:     sum,
		updates: new(int64),
		calcs:   func() float64 { return calcCount(e.Metrics()) },
	}

	forest := hosttree.NewForest()
	doc := forest.NewDocument()
	for i := 0; i < sc.width; i++ {
		top := forest.NewElement(hosttree.AutoContextPrefix + "branch")
		doc.AppendChild(top)
		g.sources = append(g.sources, top)

		last := top
		for j := 1; j < sc.depth; j++ {
			el := forest.NewElement(hosttree.AutoContextPrefix + "layer")
			last.AppendChild(el)
			last = el
		}
		g.parents = append(g.parents, last)
		leaf := forest.NewElement("div")
		last.AppendChild(leaf)
		g.leaves = append(g.leaves, leaf)
	}

	random := rand.New(rand.NewSource(0))
	skip := int(math.Round(float64(len(g.leaves)) * (1 - sc.readFraction)))
	for _, leaf := range removeElems(g.leaves, skip, random) {
		n := e.Get(leaf)
		n.Values().Subscribe(sum, treectx.NewHandler(func(any) treectx.Cleanup {
			*g.updates++
			return nil
		}))
		g.readable = append(g.readable, n)
	}
	return g
}

func removeElems[T any](src []T, rmCount int, rand *rand.Rand) []T {
	out := make([]T, len(src))
	copy(out, src)
	for i := 0; i < rmCount; i++ {
		rmDex := rand.Intn(len(out))
		out[rmDex] = out[len(out)-1]
		out = out[:len(out)-1]
	}
	return out
}

func calcCount(m *treectx.Metrics) float64 {
	var out dto.Metric
	if err := m.Calcs.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
