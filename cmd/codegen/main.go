package main

import (
	"context"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"time"

	"github.com/delaneyj/treectx/cmd/codegen/templates"
	"github.com/delaneyj/treectx/internal/logging"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	maxDepsKey = "deps"
	outKey     = "out"
)

func main() {
	cmd := &cli.Command{
		Name:  "generate",
		Usage: "Generate typed compute adapters for treectx props",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  maxDepsKey,
				Usage: "Largest number of typed deps to generate adapters for",
				Value: 3,
			},
			&cli.StringFlag{
				Name:  outKey,
				Usage: "Output file",
				Value: "pkg/treectx/compute_gen.go",
			},
		},
		Action: generate,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(ctx context.Context, cmd *cli.Command) error {
	log := logging.NewDefault().Named("codegen")
	defer log.Sync()

	start := time.Now()
	out := cmd.String(outKey)
	maxDeps := int(cmd.Uint(maxDepsKey))
	log.Info("codegen started", zap.String("out", out), zap.Int("max_deps", maxDeps))

	src, err := format.Source([]byte(templates.ComputeGen(maxDeps)))
	if err != nil {
		return fmt.Errorf("formatting generated adapters: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return err
	}

	log.Info("codegen finished", zap.Duration("took", time.Since(start)))
	return nil
}
