package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/fire-weather-etl/internal/domain"
	"github.com/couchcryptid/fire-weather-etl/internal/grid"
	"github.com/couchcryptid/fire-weather-etl/internal/observability"
)

// IndexTransformer implements Transformer by running the fire-weather index
// chain over one grid request.
type IndexTransformer struct {
	scenario    domain.Scenario
	calibration domain.Calibration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewTransformer creates an IndexTransformer for a fixed scenario and
// calibration. metrics may be nil.
func NewTransformer(s domain.Scenario, cal domain.Calibration, logger *slog.Logger, metrics *observability.Metrics) *IndexTransformer {
	return &IndexTransformer{
		scenario:    s,
		calibration: cal,
		logger:      logger,
		metrics:     metrics,
	}
}

// Transform decodes the grid request in raw and returns one output event per
// requested index, in dependency order.
func (t *IndexTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	req, err := domain.ParseGridRequest(raw)
	if err != nil {
		return nil, err
	}
	defer req.Release()

	c := &chain{t: t, ctx: ctx, req: req}
	temp := req.Variables[domain.VarTemperature]
	rh := req.Variables[domain.VarHumidity]
	wind := req.Variables[domain.VarWindSpeed]
	needDWI := req.Wants(domain.VarDWI) || req.Wants(domain.VarPFFDI) || req.Wants(domain.VarFauxFFDI)

	if req.Wants(domain.VarDPD) {
		dpdTemp, dpdRH := temp, rh
		if needDWI {
			// dwi consumes both inputs, so dpd works on copies.
			if dpdTemp, err = temp.Clone(); err != nil {
				return nil, err
			}
			if dpdRH, err = rh.Clone(); err != nil {
				return nil, err
			}
		}
		c.step(domain.VarDPD, true, func() (*grid.Dataset, error) {
			return domain.DewpointDepression(t.scenario, dpdTemp, dpdRH)
		}).Release()
	}
	if !needDWI {
		return c.finish()
	}

	// faux_ffdi needs temp again.
	dwiTemp, err := temp.Clone()
	if err != nil {
		return nil, err
	}
	dwi := c.step(domain.VarDWI, req.Wants(domain.VarDWI), func() (*grid.Dataset, error) {
		return domain.DryWindyIndex(t.scenario, dwiTemp, rh, wind, t.calibration)
	})
	if dwi == nil {
		return c.finish()
	}
	defer dwi.Release()

	if req.Wants(domain.VarPFFDI) {
		pDWI, err := dwi.Field.Clone()
		if err != nil {
			return nil, err
		}
		c.step(domain.VarPFFDI, true, func() (*grid.Dataset, error) {
			return domain.PseudoFFDI(t.scenario, pDWI)
		}).Release()
	}
	if req.Wants(domain.VarFauxFFDI) {
		c.step(domain.VarFauxFFDI, true, func() (*grid.Dataset, error) {
			return domain.FauxFFDI(t.scenario, dwi.Field, temp)
		}).Release()
	}
	return c.finish()
}

// chain collects the serialized indices of one request and stops at the
// first failure.
type chain struct {
	t   *IndexTransformer
	ctx context.Context
	req domain.GridRequest
	out []domain.OutputEvent
	err error
}

// step computes one index and, if emit is set, serializes it. It returns the
// dataset for the caller to release, or nil once the chain has failed.
func (c *chain) step(name string, emit bool, compute func() (*grid.Dataset, error)) *grid.Dataset {
	if c.err != nil {
		return nil
	}
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return nil
	}

	start := time.Now()
	ds, err := compute()
	if err != nil {
		c.err = fmt.Errorf("compute %s for request %q: %w", name, c.req.ID, err)
		return nil
	}
	c.t.observe(name, ds, time.Since(start))

	if emit {
		out, err := domain.SerializeDataset(c.req.ID, ds, c.t.scenario)
		if err != nil {
			ds.Release()
			c.err = err
			return nil
		}
		c.out = append(c.out, out)
	}
	return ds
}

func (c *chain) finish() ([]domain.OutputEvent, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.out, nil
}

// observe records cell counts for a computed index.
func (t *IndexTransformer) observe(name string, ds *grid.Dataset, elapsed time.Duration) {
	sum, err := grid.Summarize(ds.Field)
	if err != nil {
		return
	}
	if t.metrics != nil {
		t.metrics.CellsComputed.WithLabelValues(name).Add(float64(sum.Cells))
		t.metrics.NonFiniteCells.WithLabelValues(name).Add(float64(sum.NonFinite))
		t.metrics.IndexComputeTime.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	if sum.NonFinite > 0 {
		t.logger.Debug("index has non-finite cells",
			"index", name,
			"cells", sum.Cells,
			"non_finite", sum.NonFinite,
		)
	}
}
