package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/observability"
)

// ObservationSource reads the full observation dataset.
type ObservationSource interface {
	Load(ctx context.Context) ([]domain.Observation, error)
}

// Extractor derives the snowline geometry for one day's observations.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, day time.Time, obs []domain.Observation) (orb.MultiLineString, error)
}

// ResultSink persists the results of a run.
type ResultSink interface {
	Write(ctx context.Context, results domain.Results) error
}

// Window is the temporal and spatial extent of a run.
type Window struct {
	Start       time.Time
	End         time.Time
	BoundingBox domain.BoundingBox
}

// Pipeline orchestrates load, per-date extraction and output for a date range.
type Pipeline struct {
	source    ObservationSource
	extractor Extractor
	sinks     []ResultSink
	window    Window
	logger    *slog.Logger
	metrics   *observability.Metrics

	clock       clockwork.Clock
	progress    Progress
	workers     int
	dateTimeout time.Duration
}

// Option configures optional Pipeline behaviour.
type Option func(*Pipeline)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithProgress reports each finished date to pr.
func WithProgress(pr Progress) Option {
	return func(p *Pipeline) { p.progress = pr }
}

// WithWorkers processes up to n dates concurrently. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = max(n, 1) }
}

// WithDateTimeout bounds extraction time per date. A date that runs over is
// reported as insufficient_data. Zero disables the limit.
func WithDateTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.dateTimeout = d }
}

// New creates a Pipeline with the given stages and observability.
func New(src ObservationSource, ext Extractor, sinks []ResultSink, window Window, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    src,
		extractor: ext,
		sinks:     sinks,
		window:    window,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		progress:  NopProgress{},
		workers:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads the observations, processes every date in the window and hands
// the results to each sink. Per-date problems are recorded in the results;
// only load, sink and unexpected extraction failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (domain.Results, error) {
	started := p.clock.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("pipeline started",
		"start", p.window.Start.Format(domain.DateLayout),
		"end", p.window.End.Format(domain.DateLayout),
		"bbox", p.window.BoundingBox.String(),
		"workers", p.workers,
	)

	all, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	obs := domain.FilterObservations(all, p.window.Start, p.window.End, p.window.BoundingBox)
	p.metrics.ObservationsLoaded.Add(float64(len(obs)))
	p.logger.Info("observations loaded", "total", len(all), "in_window", len(obs))

	results, err := p.Process(ctx, obs)
	if err != nil {
		return nil, err
	}

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, results); err != nil {
			return results, fmt.Errorf("write results: %w", err)
		}
	}

	elapsed := p.clock.Since(started)
	p.metrics.RunDuration.Set(elapsed.Seconds())

	counts := results.CountByStatus()
	attrs := []any{"dates", len(results), "duration", elapsed.String()}
	for _, s := range domain.Statuses {
		attrs = append(attrs, string(s), counts[s])
	}
	p.logger.Info("pipeline finished", attrs...)
	return results, nil
}

// Process extracts a result for every date in the window from already
// filtered observations. Results are in date order regardless of the
// number of workers.
func (p *Pipeline) Process(ctx context.Context, obs []domain.Observation) (domain.Results, error) {
	days := domain.DateRange(p.window.Start, p.window.End)
	groups := domain.GroupByDay(obs)
	results := make(domain.Results, len(days))

	p.metrics.Workers.Set(float64(p.workers))
	p.progress.Start(len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, day := range days {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := p.safeProcessDate(gctx, day, groups[day])
			if err != nil {
				return err
			}
			results[i] = res
			p.metrics.DatesProcessed.WithLabelValues(string(res.Status)).Inc()
			p.progress.DateProcessed(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// safeProcessDate keeps a panic on one date from taking down the others.
// Only cancellation of ctx is returned as an error.
func (p *Pipeline) safeProcessDate(ctx context.Context, day time.Time, obs []domain.Observation) (res domain.SnowlineResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = p.degrade(day, obs, fmt.Errorf("panic: %v", r)), nil
		}
	}()
	return p.processDate(ctx, day, obs)
}

func (p *Pipeline) processDate(ctx context.Context, day time.Time, obs []domain.Observation) (domain.SnowlineResult, error) {
	start := p.clock.Now()
	defer func() {
		p.metrics.DateProcessingDuration.Observe(p.clock.Since(start).Seconds())
	}()

	res := domain.SnowlineResult{Date: day, ObservationCount: len(obs), Status: domain.Classify(obs)}
	log := p.logger.With("date", day.Format(domain.DateLayout), "observations", len(obs))

	switch res.Status {
	case domain.StatusOK:
	case domain.StatusInsufficientData:
		res.Detail = fmt.Sprintf("%d observations, need at least %d", len(obs), domain.MinObservations)
		log.Warn("insufficient data, skipping date")
		return res, nil
	default:
		log.Debug("uniform snow cover", "status", res.Status)
		return res, nil
	}

	mls, err := p.extract(ctx, day, obs)
	var insufficient *domain.InsufficientDataError
	var geomErr *domain.GeometryError
	switch {
	case err == nil:
		res.Geometry = mls
		if mls == nil {
			res.Detail = "no contour at the configured level"
		}
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return res, err
	case errors.As(err, &insufficient):
		res.Status = domain.StatusInsufficientData
		res.Detail = insufficient.Reason
		log.Warn("insufficient data, skipping date", "error", err)
	case errors.As(err, &geomErr):
		res.Detail = geomErr.Error()
		p.metrics.GeometryErrors.Inc()
		log.Warn("invalid snowline geometry, keeping date without a line", "error", err)
	default:
		return p.degrade(day, obs, err), nil
	}
	return res, nil
}

// degrade reports an unexpected per-date failure as insufficient_data so
// the remaining dates still run.
func (p *Pipeline) degrade(day time.Time, obs []domain.Observation, err error) domain.SnowlineResult {
	p.metrics.DateFailures.Inc()
	p.logger.Warn("extraction failed, reporting insufficient data",
		"date", day.Format(domain.DateLayout), "observations", len(obs), "error", err)
	return domain.SnowlineResult{
		Date:             day,
		ObservationCount: len(obs),
		Status:           domain.StatusInsufficientData,
		Detail:           "extraction failed: " + err.Error(),
	}
}

// extract runs the extractor, bounded by the per-date timeout when set.
func (p *Pipeline) extract(ctx context.Context, day time.Time, obs []domain.Observation) (orb.MultiLineString, error) {
	if p.dateTimeout <= 0 {
		return p.callExtractor(ctx, day, obs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		mls orb.MultiLineString
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		mls, err := p.callExtractor(ctx, day, obs)
		done <- outcome{mls, err}
	}()

	timer := p.clock.NewTimer(p.dateTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.mls, o.err
	case <-timer.Chan():
		return nil, &domain.InsufficientDataError{
			Date: day, Count: len(obs),
			Reason: fmt.Sprintf("processing exceeded %s", p.dateTimeout),
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callExtractor turns a panic in the extractor into an error.
func (p *Pipeline) callExtractor(ctx context.Context, day time.Time, obs []domain.Observation) (mls orb.MultiLineString, err error) {
	defer func() {
		if r := recover(); r != nil {
			mls, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return p.extractor.Extract(ctx, day, obs)
}
