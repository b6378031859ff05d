package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/fire-weather-etl/internal/domain"
	"github.com/couchcryptid/fire-weather-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw grid request into one output event per
// requested index. An error means none of the request's outputs are usable.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	backoff     time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// CheckReadiness returns nil once the pipeline has published the indices of
// at least one grid request.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any grid requests yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled. Extract and
// load failures back off exponentially from 200ms up to 5s.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		if err := p.processBatch(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			if !retry.SleepWithContext(ctx, p.backoff) {
				break
			}
			p.backoff = retry.NextBackoff(p.backoff, maxBackoff)
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// requestBatch holds the outcome of transforming one extracted batch.
type requestBatch struct {
	datasets []domain.OutputEvent
	computed []domain.RawEvent
	rejected []domain.RawEvent
}

// processBatch runs one extract-transform-load cycle. A returned error asks
// the caller to back off before the next cycle.
func (p *Pipeline) processBatch(ctx context.Context) error {
	start := time.Now()

	raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("extract batch failed", "error", err)
		}
		return err
	}
	if len(raws) == 0 {
		return nil
	}
	p.metrics.MessagesConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))
	p.backoff = initialBackoff

	b := p.transformBatch(ctx, raws)

	// A request that cannot be transformed never will be; commit it so it
	// does not block the partition.
	p.commit(ctx, b.rejected)

	if len(b.datasets) > 0 {
		if err := p.loader.LoadBatch(ctx, b.datasets); err != nil {
			p.logger.Error("load batch failed", "error", err,
				"datasets", len(b.datasets), "requests", len(b.computed))
			return err
		}
		p.metrics.MessagesProduced.Add(float64(len(b.datasets)))
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	p.commit(ctx, b.computed)

	p.logger.Debug("batch processed",
		"requests", len(raws),
		"rejected", len(b.rejected),
		"datasets", len(b.datasets),
		"duration", time.Since(start),
	)
	return nil
}

// transformBatch computes the indices of every grid request in raws.
func (p *Pipeline) transformBatch(ctx context.Context, raws []domain.RawEvent) requestBatch {
	b := requestBatch{
		datasets: make([]domain.OutputEvent, 0, len(raws)*len(domain.AllIndices)),
		computed: make([]domain.RawEvent, 0, len(raws)),
	}
	for _, raw := range raws {
		outs, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping grid request",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			b.rejected = append(b.rejected, raw)
			continue
		}
		b.datasets = append(b.datasets, outs...)
		b.computed = append(b.computed, raw)
	}
	return b
}

// commit commits the offset of each request that carries a commit function.
func (p *Pipeline) commit(ctx context.Context, raws []domain.RawEvent) {
	for _, raw := range raws {
		if raw.Commit == nil {
			continue
		}
		if err := raw.Commit(ctx); err != nil {
			p.logger.Warn("commit offset failed", "error", err,
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		}
	}
}
