package index

import (
	"context"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	"github.com/joaopapereira/crates.io/internal/common"
	circuit "github.com/rubyist/circuitbreaker"
)

// Appender is anything that can register an index entry.
type Appender interface {
	Append(ctx context.Context, e Entry) error
}

// BreakerAppender fails fast with common.ErrIndexUnavailable once the
// wrapped appender keeps failing. It never retries an append.
type BreakerAppender struct {
	next    Appender
	breaker *circuit.Breaker
}

// NewBreakerAppender trips after threshold consecutive failures and probes
// again with exponential backoff.
func NewBreakerAppender(next Appender, threshold int64) *BreakerAppender {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 10 * time.Second
	expBackoff.MaxInterval = 2 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(threshold),
	}
	return &BreakerAppender{next: next, breaker: circuit.NewBreakerWithOptions(opts)}
}

func (b *BreakerAppender) Append(ctx context.Context, e Entry) error {
	if !b.breaker.Ready() {
		return fmt.Errorf("circuit breaker open: %w", common.ErrIndexUnavailable)
	}
	return b.breaker.Call(func() error {
		return b.next.Append(ctx, e)
	}, 0)
}

// Tripped reports whether the breaker is open, for health checks.
func (b *BreakerAppender) Tripped() bool {
	return b.breaker.Tripped()
}
