// Package pipeline wires the source, the completion step and the cache into
// the read path every presentation layer uses.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderdash/internal/cache"
	"orderdash/internal/observability"
	"orderdash/internal/orders"
	"orderdash/internal/source"
	"orderdash/pkg/models"
)

// Dataset is the completed table together with how it was produced.
type Dataset struct {
	Rows        []models.OrderRecord
	RawRows     int
	Synthesized int
	LoadedAt    time.Time
}

// Result is one filtered view of a Dataset.
type Result struct {
	Spec       models.FilterSpec       `json:"spec"`
	Rows       []models.OrderRecord    `json:"rows"`
	Summary    models.Summary          `json:"summary"`
	Daily      []orders.DailyTotal     `json:"daily"`
	Warehouses []orders.WarehouseTotal `json:"warehouses"`
}

// Evaluate filters a dense table with spec and computes every aggregate the
// presentation layers render.
func Evaluate(dense []models.OrderRecord, spec models.FilterSpec) Result {
	filtered := orders.Filter(dense, spec)
	return Result{
		Spec:       spec,
		Rows:       filtered,
		Summary:    orders.Summarize(filtered),
		Daily:      orders.DailyTotals(filtered),
		Warehouses: orders.WarehouseTotals(filtered),
	}
}

// Pipeline fetches through a single-slot cache and completes the table once
// per fill.
type Pipeline struct {
	source  source.Source
	memo    *cache.Memo[Dataset]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock replaces time.Now for the cache and load timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline reading src, caching according to policy.
func New(src source.Source, policy cache.ExpiryPolicy, opts ...Option) *Pipeline {
	p := &Pipeline{
		source: src,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	p.memo = cache.NewMemo[Dataset](policy, cache.WithClock(p.now))
	return p
}

// Load returns the completed table, fetching the source only when the cache
// slot is empty or expired.
func (p *Pipeline) Load(ctx context.Context) (Dataset, error) {
	ds, hit, err := p.memo.Get(ctx, p.fill)
	if err != nil {
		return Dataset{}, err
	}

	if p.metrics != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		p.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
	return ds, nil
}

func (p *Pipeline) fill(ctx context.Context) (Dataset, error) {
	start := time.Now()
	raw, err := p.source.Fetch(ctx)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.FetchDuration.Observe(elapsed.Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.SourceFetches.WithLabelValues("error").Inc()
		}
		p.logger.Error("source fetch failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return Dataset{}, err
	}

	dense := orders.Complete(raw)
	ds := Dataset{
		Rows:        dense,
		RawRows:     len(raw),
		Synthesized: len(dense) - len(raw),
		LoadedAt:    p.now(),
	}

	if p.metrics != nil {
		p.metrics.SourceFetches.WithLabelValues("ok").Inc()
		p.metrics.SourceRows.Set(float64(ds.RawRows))
		p.metrics.DenseRows.Set(float64(len(dense)))
		p.metrics.SynthesizedRows.Set(float64(ds.Synthesized))
	}
	p.logger.Info("orders loaded",
		zap.Int("raw_rows", ds.RawRows),
		zap.Int("dense_rows", len(dense)),
		zap.Int("synthesized", ds.Synthesized),
		zap.Duration("elapsed", elapsed),
	)
	return ds, nil
}

// Run loads the table and evaluates spec against it.
func (p *Pipeline) Run(ctx context.Context, spec models.FilterSpec) (Result, error) {
	ds, err := p.Load(ctx)
	if err != nil {
		p.countRun("error")
		return Result{}, err
	}

	res := Evaluate(ds.Rows, spec)
	p.countRun("ok")
	if p.metrics != nil {
		p.metrics.FilteredRows.Set(float64(len(res.Rows)))
	}
	p.logger.Debug("filter applied",
		zap.Time("start", spec.StartDate),
		zap.Time("end", spec.EndDate),
		zap.Strings("warehouses", spec.Warehouses),
		zap.Int("rows", len(res.Rows)),
	)
	return res, nil
}

// Invalidate drops the cached table so the next Load refetches.
func (p *Pipeline) Invalidate() {
	p.memo.Invalidate()
	p.logger.Info("cache invalidated")
}

// ExpiresAt reports when the cached table goes stale.
func (p *Pipeline) ExpiresAt() (time.Time, bool) {
	return p.memo.ExpiresAt()
}

func (p *Pipeline) countRun(outcome string) {
	if p.metrics != nil {
		p.metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	}
}
