package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/geometry"
	"github.com/bmordue/snowline/internal/isoline"
)

// ExtractorConfig holds the tunables of SnowlineExtractor.
type ExtractorConfig struct {
	Method         isoline.Method
	SmoothingSigma float64
	ContourLevel   float64
	PostProcess    geometry.Options
}

// SnowlineExtractor implements Extractor: interpolate presence onto the
// lattice, smooth it, trace the contour, map it to coordinates and clean
// the geometry up.
type SnowlineExtractor struct {
	grid *isoline.Grid
	cfg  ExtractorConfig
}

// NewSnowlineExtractor binds the extractor to a lattice shared by every date.
func NewSnowlineExtractor(grid *isoline.Grid, cfg ExtractorConfig) (*SnowlineExtractor, error) {
	if _, err := isoline.ParseMethod(string(cfg.Method)); err != nil {
		return nil, err
	}
	if !(cfg.ContourLevel > 0 && cfg.ContourLevel < 1) {
		return nil, &domain.ConfigurationError{
			Param: "processing.contour_level", Value: cfg.ContourLevel,
			Reason: "must be strictly between 0 and 1",
		}
	}
	return &SnowlineExtractor{grid: grid, cfg: cfg}, nil
}

func (e *SnowlineExtractor) Extract(ctx context.Context, day time.Time, obs []domain.Observation) (orb.MultiLineString, error) {
	field, err := isoline.Interpolate(e.cfg.Method, isoline.SamplesFromObservations(obs), e.grid)
	if err != nil {
		var insufficient *domain.InsufficientDataError
		if errors.As(err, &insufficient) {
			insufficient.Date = day
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	field = isoline.Smooth(field, e.cfg.SmoothingSigma)
	lines := isoline.Contours(field, e.cfg.ContourLevel)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mls, err := geometry.PostProcess(isoline.Assemble(e.grid, lines), e.cfg.PostProcess)
	if err != nil {
		var geomErr *domain.GeometryError
		if errors.As(err, &geomErr) {
			geomErr.Date = day
		}
		return nil, err
	}
	return mls, nil
}
