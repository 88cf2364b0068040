package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 40*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx), "open breaker must refuse calls")

	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, time.Second, 5*time.Millisecond)
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.False(t, breaker.Allow(ctx), "only one probe while half-open")

	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, 10*time.Millisecond)
	ctx := context.Background()

	err := breaker.Do(ctx, func(context.Context) error { return errors.New("printer offline") })
	require.Error(t, err)
	require.Equal(t, resilience.Open, breaker.State())

	err = breaker.Do(ctx, func(context.Context) error { return nil })
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)

	time.Sleep(15 * time.Millisecond)
	require.Error(t, breaker.Do(ctx, func(context.Context) error { return errors.New("still offline") }))
	require.Equal(t, resilience.Open, breaker.State())
}

func TestBreakerToleratesOccasionalFailure(t *testing.T) {
	breaker := resilience.NewBreaker(4, 0.5, time.Minute)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		breaker.Report(ctx, i%4 != 0)
	}
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestNilBreakerRuns(t *testing.T) {
	var breaker *resilience.Breaker
	called := false
	require.NoError(t, breaker.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	}))
	require.True(t, called)
}

func TestBreakerPublishesMetrics(t *testing.T) {
	obs.MustRegisterDomainMetrics("pos_test", prometheus.NewRegistry())
	ctx := context.Background()
	breaker := resilience.NewBreaker(1, 0.5, time.Minute).WithTarget("printer-metrics")

	require.Equal(t, 0.0, testutil.ToFloat64(obs.BreakerState.WithLabelValues("printer-metrics")))
	breaker.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(obs.BreakerState.WithLabelValues("printer-metrics")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.BreakerTransitionsTotal.WithLabelValues("printer-metrics", "closed", "open")))
}
