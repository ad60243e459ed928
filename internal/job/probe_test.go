package job

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGauge struct {
	mu    sync.Mutex
	value float64
	sets  int
}

func (g *fakeGauge) Set(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
	g.sets++
}

func (g *fakeGauge) get() (float64, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value, g.sets
}

func TestStoreProbe_RunOnce(t *testing.T) {
	var pingErr error
	gauge := &fakeGauge{}
	core, logs := observer.New(zap.InfoLevel)
	probe := NewStoreProbe("", func(context.Context) error { return pingErr }, gauge, zap.New(core))

	probe.RunOnce(context.Background())
	if v, _ := gauge.get(); v != 1 {
		t.Fatalf("expected gauge 1, got %v", v)
	}

	pingErr = errors.New("connection refused")
	probe.RunOnce(context.Background())
	probe.RunOnce(context.Background())
	if v, sets := gauge.get(); v != 0 || sets != 3 {
		t.Fatalf("expected gauge 0 after 3 sets, got %v after %d", v, sets)
	}
	if logs.FilterMessage("store unreachable").Len() != 1 {
		t.Fatalf("expected a single transition log, got %d", logs.FilterMessage("store unreachable").Len())
	}
}

func TestStoreProbe_SkipsCancelled(t *testing.T) {
	gauge := &fakeGauge{}
	probe := NewStoreProbe("", func(context.Context) error { return nil }, gauge, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	probe.RunOnce(ctx)
	if _, sets := gauge.get(); sets != 0 {
		t.Fatalf("expected no probe after cancellation")
	}
}

func TestStoreProbe_StartAndStop(t *testing.T) {
	gauge := &fakeGauge{}
	probe := NewStoreProbe("@every 1h", func(context.Context) error { return nil }, gauge, nil)
	stop := probe.Start(context.Background())
	if _, sets := gauge.get(); sets != 1 {
		t.Fatalf("expected an immediate probe, got %d", sets)
	}
	stop()
	stop()
}

func TestStoreProbe_BadSpec(t *testing.T) {
	gauge := &fakeGauge{}
	probe := NewStoreProbe("not a cron", func(context.Context) error { return nil }, gauge, nil)
	probe.Start(context.Background())()
	if _, sets := gauge.get(); sets != 0 {
		t.Fatalf("expected no probe with an invalid schedule")
	}
}
