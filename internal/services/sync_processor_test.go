package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bilancio/internal/core"
)

type syncCall struct {
	year int
	kind core.ValueKind
}

type recordingSyncer struct {
	mu    sync.Mutex
	calls []syncCall
	err   error
}

func (s *recordingSyncer) SyncYear(_ context.Context, year int, kind core.ValueKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, syncCall{year, kind})
	return s.err
}

func (s *recordingSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func fixedNow() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.Interval != 15*time.Minute {
		t.Errorf("expected Interval 15m, got %v", config.Interval)
	}
	if config.YearsBack != 0 {
		t.Errorf("expected YearsBack 0, got %d", config.YearsBack)
	}
	if config.Now == nil {
		t.Error("expected a clock")
	}
}

func TestNewSyncProcessor_FillsDefaults(t *testing.T) {
	processor := NewSyncProcessor(&recordingSyncer{}, SyncProcessorConfig{YearsBack: -3}, nil)

	if processor.config.Interval != 15*time.Minute {
		t.Errorf("expected default interval, got %v", processor.config.Interval)
	}
	if processor.config.YearsBack != 0 {
		t.Errorf("negative YearsBack should be clamped, got %d", processor.config.YearsBack)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_Years(t *testing.T) {
	processor := NewSyncProcessor(&recordingSyncer{}, SyncProcessorConfig{YearsBack: 1, Now: fixedNow}, nil)

	years := processor.Years()
	if len(years) != 2 || years[0] != 2024 || years[1] != 2025 {
		t.Fatalf("unexpected years %v", years)
	}
}

func TestSyncProcessor_RunOnceCoversBothKinds(t *testing.T) {
	syncer := &recordingSyncer{err: errors.New("sheets down")}
	processor := NewSyncProcessor(syncer, SyncProcessorConfig{YearsBack: 1, Now: fixedNow}, nil)

	processor.RunOnce(context.Background())

	want := []syncCall{{2024, core.Budget}, {2024, core.Actual}, {2025, core.Budget}, {2025, core.Actual}}
	if len(syncer.calls) != len(want) {
		t.Fatalf("got %d calls, want %d (failures must not stop the pass)", len(syncer.calls), len(want))
	}
	for i, c := range syncer.calls {
		if c != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, c, want[i])
		}
	}
	if processor.Runs() != 1 {
		t.Errorf("runs = %d, want 1", processor.Runs())
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	syncer := &recordingSyncer{}
	processor := NewSyncProcessor(syncer, SyncProcessorConfig{Interval: time.Hour, Now: fixedNow}, nil)
	ctx := context.Background()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for processor.Runs() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if processor.Runs() != 1 || syncer.count() != 2 {
		t.Fatalf("expected the startup pass, runs=%d calls=%d", processor.Runs(), syncer.count())
	}

	if err := processor.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should be stopped")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&recordingSyncer{}, DefaultSyncProcessorConfig(), nil)

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
