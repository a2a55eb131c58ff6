package main

import (
	"context"
	"fmt"
	"io"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/catalog"
	"github.com/kalambet/labeler/internal/config"
	"github.com/kalambet/labeler/internal/engine"
	"github.com/kalambet/labeler/internal/hierarchy"
	"github.com/kalambet/labeler/internal/logging"
	"github.com/kalambet/labeler/internal/textgen"
)

// labelingStack holds everything a labeling run needs.
type labelingStack struct {
	engine  engine.Engine
	catalog *catalog.Catalog
	driver  *batch.Driver
	mapper  *hierarchy.Mapper
}

func initLogging(cfg config.Config) {
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.Pipeline.TablesPath)
	if err != nil {
		return nil, fmt.Errorf("loading reference tables: %w", err)
	}
	return cat, nil
}

// buildStack connects to the configured backend, makes sure the model is
// available and wires the labeling pipeline around it.
func buildStack(ctx context.Context, cfg config.Config, progress io.Writer) (*labelingStack, error) {
	eng, err := engine.Detect(ctx, engine.DetectConfig{
		Backend: cfg.Engine.Backend,
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting text-generation backend: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.Engine.Model, progress); err != nil {
		return nil, err
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	gen := textgen.New(eng, cfg.Engine.Model)
	driver, err := batch.New(gen, batch.Options{
		MaxParallelism: cfg.Pipeline.MaxParallelism,
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		Catalog:        cat,
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	return &labelingStack{
		engine:  eng,
		catalog: cat,
		driver:  driver,
		mapper:  hierarchy.NewMapper(gen, cat),
	}, nil
}
