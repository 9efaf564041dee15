package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/delaneyj/treectx/internal/config"
	"github.com/delaneyj/treectx/internal/logging"
	"github.com/delaneyj/treectx/pkg/hosttree"
	"github.com/delaneyj/treectx/pkg/props"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	selectorKey = "selector"
	attrPrefix  = "data-ctx-"
)

func main() {
	cmd := &cli.Command{
		Name:      "inspect",
		Usage:     "Resolve the standard props for the elements of an html page",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  selectorKey,
				Usage: "CSS selector of the elements to report",
				Value: "body *",
			},
		},
		Action: inspect,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Logger())
	if err != nil {
		return err
	}
	defer log.Sync()

	var in io.Reader = os.Stdin
	if path := cmd.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	forest := hosttree.NewForest()
	doc, err := forest.Parse(in)
	if err != nil {
		return err
	}

	queue := cfg.Engine.Queue()
	opts := append(cfg.Engine.Options(),
		treectx.WithScheduler(queue),
		treectx.WithLogger(log),
	)
	var reg *prometheus.Registry
	if cfg.Engine.Metrics {
		reg = prometheus.NewRegistry()
		opts = append(opts, treectx.WithMetrics(reg))
	}
	e := treectx.New(opts...)

	set, err := applyAttrs(e, doc)
	if err != nil {
		return err
	}
	log.Debug("props applied", zap.Int("inputs", set))

	selected := doc.Find(cmd.String(selectorKey))
	nodes := make([]*treectx.Node, len(selected))
	for i, el := range selected {
		n := e.Get(el)
		for _, p := range props.All() {
			n.Values().Subscribe(p, treectx.NewHandler(func(any) treectx.Cleanup { return nil }))
		}
		nodes[i] = n
	}
	if _, err := queue.RunAll(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	header := table.Row{"element", "context parent"}
	for _, p := range props.All() {
		header = append(header, p.Key())
	}
	tbl.AppendHeader(header)
	for i, n := range nodes {
		parent := "-"
		if p := n.Parent(); p != nil {
			parent = describe(p)
		}
		row := table.Row{selected[i].Path(), parent}
		for _, p := range props.All() {
			row = append(row, n.Values().Get(p))
		}
		tbl.AppendRow(row)
	}
	tbl.Render()

	if reg != nil {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				log.Info("metric", zap.String("name", mf.GetName()), zap.Float64("value", m.GetCounter().GetValue()))
			}
		}
	}
	return nil
}

// applyAttrs sets every data-ctx-<prop> attribute in the page as an input of
// the matching prop on its element.
func applyAttrs(e *treectx.Engine, doc *hosttree.Node) (int, error) {
	byAttr := map[string]*treectx.Prop{}
	for _, p := range props.All() {
		byAttr[attrPrefix+strings.ToLower(p.Key())] = p
	}

	set := 0
	for _, el := range doc.Find("*") {
		for _, a := range el.Attrs() {
			p, ok := byAttr[a.Key]
			if !ok {
				continue
			}
			v, err := props.ParseValue(p, a.Val)
			if err != nil {
				return set, fmt.Errorf("%s: %w", el.Path(), err)
			}
			e.SetProp(el, p, attrPrefix, v)
			set++
		}
	}
	return set, nil
}

func describe(n *treectx.Node) string {
	if el, ok := n.Host().(*hosttree.Node); ok {
		return el.Path()
	}
	return n.String()
}
