package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/glossydesign/pos-api/internal/resilience"
)

func TestBreakerMetricsTransitions(t *testing.T) {
	resilience.BreakerState.Reset()
	resilience.BreakerTransitions.Reset()
	resilience.BreakerOpenedTotal.Reset()

	const target = "artwork-storage"
	stateGauge := func() float64 {
		return testutil.ToFloat64(resilience.BreakerState.WithLabelValues(target))
	}
	transitions := func(from, to string) float64 {
		return testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues(target, from, to))
	}

	breaker := resilience.NewBreaker(1, 0.5, 20*time.Millisecond).WithTarget(target)
	ctx := context.Background()

	// one failed call trips a breaker with minSample 1
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, 1.0, stateGauge(), "gauge should read open")

	// after the cool-off a probe is let through
	require.Eventually(t, func() bool {
		return breaker.Allow(ctx)
	}, 100*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, 2.0, stateGauge(), "gauge should read half-open")

	// a successful probe closes it again
	breaker.Report(ctx, true)
	require.Equal(t, 0.0, stateGauge(), "gauge should read closed")

	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues(target)))
	require.Equal(t, 1.0, transitions("closed", "open"))
	require.Equal(t, 1.0, transitions("open", "half_open"))
	require.Equal(t, 1.0, transitions("half_open", "closed"))
}
