// Package main provides a one-shot importer that applies a TAC export file to
// the configured world store and prints the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/app"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/importer"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty uses defaults")
	batchPath := flag.String("batch", "", "path to a TAC export (.json, .yaml or .yml)")
	worldPath := flag.String("world", "", "world snapshot to load and save; overrides store.snapshot_path")
	dump := flag.Bool("dump", false, "print every character and its attributes after importing")
	flag.Parse()

	if *batchPath == "" && !*dump {
		fmt.Fprintln(os.Stderr, "usage: tac-import [-config <file>] [-world <snapshot>] -batch <file> [-dump]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *worldPath != "" {
		cfg.Store.Driver = app.DriverMemory
		cfg.Store.SnapshotPath = *worldPath
	}

	logger, err := observability.NewLogger(cfg.Logging, "tac-import")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}

	code := run(context.Background(), cfg, logger, *batchPath, *dump)
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, batchPath string, dump bool) int {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("building importer", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("closing importer", zap.Error(err))
		}
	}()

	code := 0
	if batchPath != "" {
		batch, err := readBatch(batchPath)
		if err != nil {
			logger.Error("reading batch", zap.String("path", batchPath), zap.Error(err))
			return 1
		}

		start := time.Now()
		report := a.Importer.Process(ctx, batch)
		fmt.Println(report.String())
		for _, f := range report.Failures {
			fmt.Println("  " + f.String())
		}
		logger.Info("import finished",
			zap.Int("items", batch.Len()),
			zap.Int("failed", report.Failed()),
			zap.Duration("elapsed", time.Since(start)),
		)

		text, err := a.Hooks.AfterImport(ctx, report)
		if err != nil {
			logger.Warn("import hook failed", zap.Error(err))
		} else if text != "" {
			fmt.Println(text)
		}
		if report.Failed() > 0 {
			code = 2
		}
	}

	if dump {
		chars, err := a.Importer.DumpCharacters(ctx)
		if err != nil {
			logger.Error("dumping characters", zap.Error(err))
			return 1
		}
		for _, c := range chars {
			fmt.Printf("%s (%s)\n", c.Name, c.ID)
			if c.Err != nil {
				fmt.Printf("  error: %v\n", c.Err)
				continue
			}
			for _, attr := range c.Attributes {
				fmt.Printf("  %s = %q (max %q)\n", attr.Name, attr.Current, attr.Max)
			}
		}
	}
	return code
}

// readBatch decodes path as YAML when its extension says so and as JSON
// otherwise.
func readBatch(path string) (importer.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return importer.Batch{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return importer.DecodeBatchYAML(data)
	default:
		return importer.DecodeBatch(data)
	}
}
