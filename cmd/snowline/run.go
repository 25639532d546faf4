package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/bmordue/snowline/internal/adapter/geojsonout"
	"github.com/bmordue/snowline/internal/adapter/ssgb"
	"github.com/bmordue/snowline/internal/adapter/svgmap"
	"github.com/bmordue/snowline/internal/config"
	"github.com/bmordue/snowline/internal/isoline"
	"github.com/bmordue/snowline/internal/observability"
	"github.com/bmordue/snowline/internal/pipeline"
)

func runCmd() *cobra.Command {
	var configPath string

	c := &cobra.Command{
		Use:   "run",
		Short: "Process every date in the configured window and write outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	return c
}

func run(parent context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "detail", w)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(reg)

	p, err := build(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		done <- err
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
		select {
		case err = <-done:
		case <-time.After(cfg.ShutdownTimeout):
			err = errors.New("pipeline did not stop within the shutdown timeout")
		}
	}

	if cfg.Output.MetricsFile != "" {
		if werr := observability.WriteTextfile(cfg.Output.MetricsFile, reg); werr != nil {
			logger.Error("metrics textfile write error", "error", werr, "path", cfg.Output.MetricsFile)
		}
	}

	if err != nil {
		logger.Error("pipeline error", "error", err)
		return err
	}
	logger.Info("run complete", "output", cfg.Output.Directory)
	return nil
}

// build wires the source, extractor and sinks described by cfg.
func build(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, error) {
	start, end, err := cfg.Time.Range()
	if err != nil {
		return nil, err
	}
	bbox := cfg.Region.BoundingBox

	grid, err := isoline.NewGrid(bbox, cfg.Processing.GridResolution)
	if err != nil {
		return nil, err
	}
	extractor, err := pipeline.NewSnowlineExtractor(grid, pipeline.ExtractorConfig{
		Method:         cfg.Processing.Method(),
		SmoothingSigma: cfg.Processing.SmoothingSigma,
		ContourLevel:   cfg.Processing.ContourLevel,
		PostProcess:    cfg.Processing.PostProcess(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("grid ready", "cols", grid.Cols(), "rows", grid.Rows(), "resolution", grid.Resolution())

	var sinks []pipeline.ResultSink
	if cfg.Output.GeoJSON {
		sinks = append(sinks, geojsonout.NewWriter(cfg.Output.Directory, cfg.Output.FilenamePrefix, logger, metrics))
	}
	if cfg.Output.SVG {
		renderer, err := newRenderer(cfg, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, svgmap.NewMapGenerator(cfg.Output.Directory, cfg.Output.FilenamePrefix, renderer, logger, metrics))
	}
	if len(sinks) == 0 {
		logger.Warn("no outputs enabled; results will only be logged")
	}

	source := ssgb.NewLoader(cfg.Input.SnowCoverData, logger)
	window := pipeline.Window{Start: start, End: end, BoundingBox: bbox}

	return pipeline.New(source, extractor, sinks, window, logger, metrics,
		pipeline.WithWorkers(cfg.Processing.Workers),
		pipeline.WithDateTimeout(cfg.Processing.DateTimeout),
		pipeline.WithProgress(pipeline.NewLogProgress(logger)),
	), nil
}

func newRenderer(cfg *config.Config, logger *slog.Logger) (*svgmap.SVGRenderer, error) {
	style := svgmap.Style{
		SnowlineColor: cfg.Output.Style.SnowlineColor,
		SnowlineWidth: cfg.Output.Style.SnowlineWidth,
		GridlineColor: cfg.Output.Style.GridlineColor,
		GridlineDash:  cfg.Output.Style.GridlineDashArray(),
	}
	if cfg.Input.BasemapData == "" {
		return svgmap.NewSVGRenderer(cfg.Region.BoundingBox, nil, style), nil
	}
	basemap, err := svgmap.LoadBasemap(cfg.Input.BasemapData)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("basemap not found, drawing without it", "path", cfg.Input.BasemapData)
		return svgmap.NewSVGRenderer(cfg.Region.BoundingBox, nil, style), nil
	case err != nil:
		return nil, fmt.Errorf("basemap: %w", err)
	}
	logger.Info("basemap loaded", "path", cfg.Input.BasemapData, "features", len(basemap))
	return svgmap.NewSVGRenderer(cfg.Region.BoundingBox, basemap, style), nil
}
