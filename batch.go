package valuation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of valuing one holding in a batch.
type Result struct {
	Holding   *Holding
	Valuation *Valuation // nil when Err is set
	Err       error
}

// Batch values many holdings concurrently. Holdings share no state, so each
// one is adjusted and valued on its own goroutine.
type Batch struct {
	Pipeline    *Pipeline
	Calculator  *Calculator
	Concurrency int // maximum holdings processed at once, <= 0 means 1
	Until       Date
	Log         *zap.SugaredLogger
}

// Run adjusts and values every holding in 'currency'.
//
// A failing holding does not stop the others: its error is reported in its
// Result. Results are in the same order as holdings. The returned error is
// only set when the context is done.
func (b *Batch) Run(ctx context.Context, holdings []*Holding, currency string) ([]Result, error) {
	log := b.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	results := make([]Result, len(holdings))

	var g errgroup.Group
	g.SetLimit(max(b.Concurrency, 1))
	for i, h := range holdings {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = b.one(ctx, h, currency)
			if results[i].Err != nil {
				log.Errorw("holding valuation failed", "holding", h.Name(), "error", results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}
	return results, nil
}

func (b *Batch) one(ctx context.Context, h *Holding, currency string) Result {
	if err := ctx.Err(); err != nil {
		return Result{Holding: h, Err: err}
	}
	if err := b.Pipeline.Run(h); err != nil {
		return Result{Holding: h, Err: err}
	}
	v, err := b.Calculator.CalculateUntil(ctx, h, currency, b.Until)
	if err != nil {
		return Result{Holding: h, Err: fmt.Errorf("valuation of %s: %w", h.Name(), err)}
	}
	return Result{Holding: h, Valuation: v}
}
