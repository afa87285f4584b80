package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pinger checks that the upstream GraphQL API answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeStatus is a snapshot of the last upstream check. Error is kept for
// logs and callers in process; it is never serialized.
type ProbeStatus struct {
	Ready     bool      `json:"ready"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
	Error     string    `json:"-"`
}

// UpstreamProbe periodically pings the upstream and tracks readiness
type UpstreamProbe struct {
	pinger  Pinger
	timeout time.Duration
	logger  zerolog.Logger
	up      prometheus.Gauge

	ready atomic.Bool
	mu    sync.Mutex
	last  ProbeStatus

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUpstreamProbe parses schedule (standard five fields or a descriptor
// such as "@every 30s") and registers the upstream_up gauge with reg.
func NewUpstreamProbe(pinger Pinger, schedule string, timeout time.Duration, reg prometheus.Registerer, logger zerolog.Logger) (*UpstreamProbe, error) {
	p := &UpstreamProbe{
		pinger:  pinger,
		timeout: timeout,
		logger:  logger,
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carepulse",
			Name:      "upstream_up",
			Help:      "1 when the last upstream GraphQL probe succeeded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(p.up)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	p.cron = cron.New(cron.WithParser(parser))
	if _, err := p.cron.AddFunc(schedule, func() { p.Check(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid probe schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start kicks off one check in the background and then follows the
// schedule. It does not wait for the upstream; readiness stays false until
// the first check succeeds.
func (p *UpstreamProbe) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Check(ctx)
	}()
	p.cron.Start()
}

// Stop halts the schedule and waits for running checks to finish
func (p *UpstreamProbe) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.cron.Stop().Done()
	p.wg.Wait()
}

// Check pings the upstream once and records the outcome
func (p *UpstreamProbe) Check(ctx context.Context) ProbeStatus {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(ctx)
	status := ProbeStatus{Ready: err == nil, CheckedAt: time.Now().UTC()}
	if err != nil {
		status.Error = err.Error()
	}

	wasReady := p.ready.Swap(status.Ready)
	p.mu.Lock()
	p.last = status
	p.mu.Unlock()

	if status.Ready {
		p.up.Set(1)
		if !wasReady {
			p.logger.Info().Msg("Upstream GraphQL API is reachable")
		}
	} else {
		p.up.Set(0)
		p.logger.Warn().Err(err).Msg("Upstream GraphQL probe failed")
	}
	return status
}

// Ready reports whether the last check succeeded
func (p *UpstreamProbe) Ready() bool {
	return p.ready.Load()
}

// Status returns the last recorded check
func (p *UpstreamProbe) Status() ProbeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
