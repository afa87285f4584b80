package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err   atomic.Value
	calls atomic.Int32
}

func (s *stubPinger) Ping(ctx context.Context) error {
	s.calls.Add(1)
	if err, ok := s.err.Load().(error); ok {
		return err
	}
	return nil
}

func TestUpstreamProbe_Check(t *testing.T) {
	pinger := &stubPinger{}
	probe, err := NewUpstreamProbe(pinger, "@every 1h", time.Second, prometheus.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, probe.Ready(), "not ready before the first check")

	status := probe.Check(context.Background())
	assert.True(t, status.Ready)
	assert.True(t, probe.Ready())
	assert.Equal(t, 1.0, testutil.ToFloat64(probe.up))

	pinger.err.Store(errors.New("connection refused"))
	status = probe.Check(context.Background())
	assert.False(t, status.Ready)
	assert.Equal(t, "connection refused", probe.Status().Error)
	assert.Equal(t, 0.0, testutil.ToFloat64(probe.up))
}

func TestUpstreamProbe_StartRunsImmediately(t *testing.T) {
	pinger := &stubPinger{}
	probe, err := NewUpstreamProbe(pinger, "*/5 * * * *", time.Second, nil, zerolog.Nop())
	require.NoError(t, err)

	probe.Start(context.Background())
	defer probe.Stop()

	assert.Eventually(t, probe.Ready, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, pinger.calls.Load())
}

// blockingPinger holds every ping until released or cancelled
type blockingPinger struct {
	release chan struct{}
}

func (b *blockingPinger) Ping(ctx context.Context) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestUpstreamProbe_StartDoesNotWaitForUpstream(t *testing.T) {
	pinger := &blockingPinger{release: make(chan struct{})}
	probe, err := NewUpstreamProbe(pinger, "@every 1h", time.Minute, nil, zerolog.Nop())
	require.NoError(t, err)

	started := make(chan struct{})
	go func() {
		probe.Start(context.Background())
		close(started)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Start blocked on the first upstream check")
	}
	assert.False(t, probe.Ready())

	close(pinger.release)
	assert.Eventually(t, probe.Ready, time.Second, 5*time.Millisecond)
	probe.Stop()
}

func TestUpstreamProbe_StopCancelsFirstCheck(t *testing.T) {
	pinger := &blockingPinger{release: make(chan struct{})}
	probe, err := NewUpstreamProbe(pinger, "@every 1h", time.Minute, nil, zerolog.Nop())
	require.NoError(t, err)

	probe.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		probe.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the in-flight check")
	}
	assert.False(t, probe.Ready())
}

func TestProbeStatus_ErrorIsNotSerialized(t *testing.T) {
	out, err := json.Marshal(ProbeStatus{Ready: false, Error: "dial tcp 10.0.0.7:4000: connection refused"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "10.0.0.7")
	assert.JSONEq(t, `{"ready":false,"checked_at":"0001-01-01T00:00:00Z"}`, string(out))
}

func TestNewUpstreamProbe_InvalidSchedule(t *testing.T) {
	_, err := NewUpstreamProbe(&stubPinger{}, "every now and then", time.Second, nil, zerolog.Nop())
	require.Error(t, err)
}
