package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/treectx/internal/config"
	"github.com/delaneyj/treectx/internal/logging"
	"github.com/delaneyj/treectx/pkg/hosttree"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	itersKey    = "iters"
	maxWidthKey = "max-width"
	maxDepthKey = "max-depth"
	profileKey  = "profile"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure how long a prop change takes to reach every subscribed leaf",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: itersKey, Usage: "Changes per tree shape", Value: 100},
			&cli.IntFlag{Name: maxWidthKey, Usage: "Largest number of branches", Value: 1_000},
			&cli.IntFlag{Name: maxDepthKey, Usage: "Largest branch depth", Value: 100},
			&cli.StringFlag{Name: profileKey, Usage: "Write a CPU profile here", Value: "default.pgo"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Logger())
	if err != nil {
		return err
	}
	defer log.Sync()

	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	b := &bench{
		cfg:   cfg,
		log:   log,
		iters: int(cmd.Int(itersKey)),
	}

	log.Info("warming up")
	if _, err := b.propagate(false, 10, 10); err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetTitle("treectx propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "nodes", "avg", "min", "p75", "p99", "max"})
	for w := 1; w <= int(cmd.Int(maxWidthKey)); w *= 10 {
		for h := 1; h <= int(cmd.Int(maxDepthKey)); h *= 10 {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := b.propagate(true, w, h)
			if err != nil {
				return err
			}
			tbl.AppendRow(row)
		}
	}
	tbl.Render()
	return nil
}

type bench struct {
	cfg   *config.Config
	log   *zap.Logger
	iters int
}

// propagate builds w branches of h auto-context elements under a document,
// subscribes every leaf to a recursive prop and times each change set on
// the document until all leaves have seen it.
func (b *bench) propagate(record bool, w, h int) (table.Row, error) {
	reg := treectx.NewRegistry()
	depth := reg.NewProp("Depth",
		treectx.Default(0),
		treectx.ComputeRecursive(treectx.ComputeRecursive0(func(_ *treectx.Node, inputs []any, parent int) any {
			for _, in := range inputs {
				parent += in.(int)
			}
			return parent
		})),
	)

	queue := b.cfg.Engine.Queue()
	opts := append(b.cfg.Engine.Options(),
		treectx.WithScheduler(queue),
		treectx.WithRegistry(reg),
		treectx.WithLogger(b.log),
	)
	e := treectx.New(opts...)

	forest := hosttree.NewForest()
	doc := forest.NewDocument()
	seen := 0
	for i := 0; i < w; i++ {
		last := doc
		for j := 0; j < h; j++ {
			el := forest.NewElement(hosttree.AutoContextPrefix + "layer")
			last.AppendChild(el)
			last = el
		}
		e.Get(last).Values().Subscribe(depth, treectx.NewHandler(func(any) treectx.Cleanup {
			seen++
			return nil
		}))
	}
	if _, err := queue.RunAll(); err != nil {
		return nil, err
	}

	tach := tachymeter.New(&tachymeter.Config{Size: b.iters})
	for i := 1; i <= b.iters; i++ {
		seen = 0
		start := time.Now()
		e.SetProp(doc, depth, "bench", i)
		if _, err := queue.RunAll(); err != nil {
			return nil, err
		}
		tach.AddTime(time.Since(start))
		if seen != w {
			return nil, fmt.Errorf("propagate %d * %d: %d of %d leaves updated", w, h, seen, w)
		}
	}

	calc := tach.Calc()
	if record {
		b.log.Debug("shape done",
			zap.Int("width", w),
			zap.Int("depth", h),
			zap.Duration("avg", calc.Time.Avg),
		)
	}
	return table.Row{
		fmt.Sprintf("propagate: %d * %d", w, h),
		w*h + 1,
		calc.Time.Avg,
		calc.Time.Min,
		calc.Time.P75,
		calc.Time.P99,
		calc.Time.Max,
	}, nil
}
