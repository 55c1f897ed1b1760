// Package mutation runs writes against the backend and invalidates the cached reads they affect.
package mutation

import (
	"context"

	"github.com/jrsteele09/bizadmin/internal/metrics"
	"github.com/jrsteele09/bizadmin/querycache"
	"github.com/rs/zerolog"
)

// Invalidator is the part of the query cache a mutation needs.
type Invalidator interface {
	Invalidate(pred querycache.Predicate) int
}

type Option func(c *Coordinator)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// Coordinator is stateless apart from its dependencies; concurrent mutations are not ordered.
type Coordinator struct {
	cache   Invalidator
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewCoordinator(cache Invalidator, options ...Option) *Coordinator {
	c := &Coordinator{cache: cache, log: zerolog.Nop()}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Run calls fn and, only once it has succeeded, invalidates every entry matching preds.
// On failure nothing is invalidated and fn's error is returned unchanged.
func Run[T any](ctx context.Context, c *Coordinator, fn func(ctx context.Context) (T, error), preds ...querycache.Predicate) (T, error) {
	result, err := fn(ctx)
	if err != nil {
		c.metrics.Mutation(false)
		c.log.Warn().Err(err).Msg("mutation failed")
		return result, err
	}
	c.metrics.Mutation(true)

	invalidated := 0
	for _, pred := range preds {
		invalidated += c.cache.Invalidate(pred)
	}
	c.log.Debug().Int("invalidated", invalidated).Msg("mutation acknowledged")
	return result, nil
}

// Exec is Run for mutations without a result.
func Exec(ctx context.Context, c *Coordinator, fn func(ctx context.Context) error, preds ...querycache.Predicate) error {
	_, err := Run(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, preds...)
	return err
}

// Resource matches every cached read of resource.
func Resource(name string) querycache.Predicate {
	return querycache.ResourcePredicate(name)
}
