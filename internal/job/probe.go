package job

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultProbeSchedule = "@every 30s"
	defaultProbeTimeout  = 5 * time.Second
)

// Gauge is the part of a prometheus gauge the probe writes to.
type Gauge interface {
	Set(float64)
}

// StoreProbe pings the store on a cron schedule and publishes the result.
type StoreProbe struct {
	schedule string
	ping     func(context.Context) error
	up       Gauge
	logger   *zap.Logger
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	healthy *bool
}

func NewStoreProbe(schedule string, ping func(context.Context) error, up Gauge, logger *zap.Logger) *StoreProbe {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = defaultProbeSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreProbe{schedule: schedule, ping: ping, up: up, logger: logger, timeout: defaultProbeTimeout}
}

// Start runs one probe immediately, then schedules the rest. The returned
// function stops the schedule; cancelling parent does the same.
func (p *StoreProbe) Start(parent context.Context) context.CancelFunc {
	if p == nil || p.ping == nil {
		return func() {}
	}
	c := cron.New()
	id, err := c.AddFunc(p.schedule, func() { p.RunOnce(parent) })
	if err != nil {
		p.logger.Error("failed to register store probe", zap.String("cron", p.schedule), zap.Error(err))
		return func() {}
	}
	p.RunOnce(parent)
	c.Start()
	p.logger.Info("store probe started", zap.String("cron", p.schedule), zap.Time("next", c.Entry(id).Next))

	var once sync.Once
	stop := func() {
		once.Do(func() {
			<-c.Stop().Done()
			p.logger.Info("store probe stopped")
		})
	}
	go func() {
		<-parent.Done()
		stop()
	}()
	return stop
}

// RunOnce pings the store once. Overlapping runs are skipped.
func (p *StoreProbe) RunOnce(parent context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.Warn("previous store probe still running, skip")
		return
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	err := p.ping(ctx)
	healthy := err == nil
	if p.up != nil {
		if healthy {
			p.up.Set(1)
		} else {
			p.up.Set(0)
		}
	}

	p.mu.Lock()
	changed := p.healthy == nil || *p.healthy != healthy
	p.healthy = &healthy
	p.mu.Unlock()
	// Only transitions are logged at Info/Error.
	switch {
	case !changed:
		p.logger.Debug("store probe", zap.Bool("healthy", healthy))
	case healthy:
		p.logger.Info("store reachable")
	default:
		p.logger.Error("store unreachable", zap.Error(err))
	}
}
