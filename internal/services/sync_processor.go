package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// YearSyncer rewrites one year's mirror for one keyspace.
type YearSyncer interface {
	SyncYear(ctx context.Context, year int, kind core.ValueKind) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Interval between full reconciliations (default: 15m)
	Interval time.Duration

	// YearsBack also reconciles that many years before the current one (default: 0)
	YearsBack int

	// Now returns the current time; tests pin it.
	Now func() time.Time
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval:  15 * time.Minute,
		YearsBack: 0,
		Now:       time.Now,
	}
}

// SyncProcessor periodically reconciles the Sheets mirror with storage.
// Messages already keep the mirror current; this loop repairs whatever a
// failed publish or a dropped message left behind.
type SyncProcessor struct {
	syncer YearSyncer
	config SyncProcessorConfig
	logger *applog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runs    int
}

func NewSyncProcessor(syncer YearSyncer, config SyncProcessorConfig, logger *applog.Logger) *SyncProcessor {
	defaults := DefaultSyncProcessorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.YearsBack < 0 {
		config.YearsBack = 0
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncProcessor{
		syncer: syncer,
		config: config,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Start begins the reconciliation loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"interval", p.config.Interval,
		"years_back", p.config.YearsBack)
	return nil
}

// Stop gracefully stops the processor and waits for the current pass.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs counts completed reconciliation passes.
func (p *SyncProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// Years lists the years a pass covers, oldest first.
func (p *SyncProcessor) Years() []int {
	current := p.config.Now().Year()
	years := make([]int, 0, p.config.YearsBack+1)
	for y := current - p.config.YearsBack; y <= current; y++ {
		years = append(years, y)
	}
	return years
}

// RunOnce performs a single reconciliation pass. Failures are logged and
// the pass moves on to the next sheet.
func (p *SyncProcessor) RunOnce(ctx context.Context) {
	failed := 0
	for _, year := range p.Years() {
		for _, kind := range []core.ValueKind{core.Budget, core.Actual} {
			if ctx.Err() != nil {
				return
			}
			if err := p.syncer.SyncYear(ctx, year, kind); err != nil {
				failed++
				p.logger.WarnContext(ctx, "Reconciliation failed",
					applog.FieldYear, year,
					applog.FieldKind, string(kind),
					applog.FieldError, err)
			}
		}
	}

	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
	p.logger.DebugContext(ctx, "Reconciliation pass completed", "failed", failed)
}
