package converter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerRunner wraps a Runner with one circuit breaker per tool binary. Bad
// input (a non-zero exit) and client cancellation do not count against the
// breaker; only tools that fail to start or time out do.
type BreakerRunner struct {
	next        Runner
	maxFailures uint32
	openTimeout time.Duration
	log         *zap.SugaredLogger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewBreakerRunner(next Runner, maxFailures int, openTimeout time.Duration, log *zap.SugaredLogger) *BreakerRunner {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &BreakerRunner{
		next:        next,
		maxFailures: uint32(maxFailures),
		openTimeout: openTimeout,
		log:         log,
		breakers:    make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *BreakerRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := b.breaker(name).Execute(func() (interface{}, error) {
		return nil, b.next.Run(ctx, name, args...)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s unavailable: %w", name, err)
	}
	return err
}

// State returns the breaker state for a tool. Tools never run are closed.
func (b *BreakerRunner) State(name string) gobreaker.State {
	b.mu.Lock()
	cb, ok := b.breakers[name]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

func (b *BreakerRunner) breaker(name string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     b.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.maxFailures
		},
		IsSuccessful: toolHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warnw("tool circuit breaker state", "tool", name, "from", from.String(), "to", to.String())
		},
	})
	b.breakers[name] = cb
	return cb
}

func toolHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var te *ToolError
	return errors.As(err, &te) && te.Rejected()
}
