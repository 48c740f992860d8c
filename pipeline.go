package valuation

import (
	"fmt"

	"go.uber.org/zap"
)

// Pipeline runs an ordered list of strategies against holdings.
//
// The order is fixed at construction. The built-in order matters: the trace
// is reset first, then values seeded, split-adjusted and finally priced.
type Pipeline struct {
	strategies []Strategy
	log        *zap.SugaredLogger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log *zap.SugaredLogger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// WithStrategies appends strategies after the built-in ones.
func WithStrategies(s ...Strategy) PipelineOption {
	return func(p *Pipeline) { p.strategies = append(p.strategies, s...) }
}

// WithPriceLookback bounds how old a carried-forward price can be when
// determining the price of transfers.
func WithPriceLookback(days int) PipelineOption {
	return func(p *Pipeline) {
		for i, s := range p.strategies {
			if _, ok := s.(PriceDetermination); ok {
				p.strategies[i] = PriceDetermination{Lookback: days}
			}
		}
	}
}

// DefaultStrategies returns the built-in strategies in execution order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		ResetTrace{},
		InitialValue{},
		StockSplitAdjustment{},
		PriceDetermination{},
	}
}

// NewPipeline creates a pipeline with the built-in strategies.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		strategies: DefaultStrategies(),
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Strategies returns the names of the strategies, in execution order.
func (p *Pipeline) Strategies() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run applies every strategy to the holding, in order. It stops at the first
// failure: the holding is then left partially adjusted and must not be valued.
func (p *Pipeline) Run(h *Holding) error {
	for _, s := range p.strategies {
		if err := s.Apply(h); err != nil {
			return fmt.Errorf("strategy %s failed on %s: %w", s.Name(), h.Name(), err)
		}
		p.log.Debugw("strategy applied", "strategy", s.Name(), "holding", h.Name())
	}
	return nil
}
