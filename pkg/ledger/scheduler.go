// Copyright 2025 Veritas Documents
//
// Mining Scheduler - runs MineBlock on a fixed cadence in the background,
// and on demand via TriggerMine.
package ledger

import (
	"context"
	"log"
	"sync"
	"time"
)

// MineResultCallback is invoked after each successful mine that produced a
// non-nil block.
type MineResultCallback func(ctx context.Context, block *Block)

// Scheduler drives an Engine's MineBlock on an interval.
type Scheduler struct {
	mu sync.Mutex

	engine   *Engine
	interval time.Duration
	callback MineResultCallback
	logger   *log.Logger

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Interval time.Duration
	Callback MineResultCallback
	Logger   *log.Logger
}

// DefaultSchedulerConfig returns a scheduler config mining every 15 seconds,
// suitable for a low-volume legal-document ledger where latency matters
// more than large blocks.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval: 15 * time.Second,
		Logger:   log.New(log.Writer(), "[ledger-scheduler] ", log.LstdFlags),
	}
}

// NewScheduler builds a Scheduler over engine.
func NewScheduler(engine *Engine, cfg *SchedulerConfig) *Scheduler {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[ledger-scheduler] ", log.LstdFlags)
	}
	return &Scheduler{
		engine:   engine,
		interval: cfg.Interval,
		callback: cfg.Callback,
		logger:   cfg.Logger,
	}
}

// Start begins the background mining loop. Calling Start while already
// running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop halts the background mining loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mineOnce(ctx)
		}
	}
}

func (s *Scheduler) mineOnce(ctx context.Context) {
	block, err := s.engine.MineBlock(ctx)
	if err != nil {
		s.logger.Printf("mine failed: %v", err)
		return
	}
	if block == nil {
		return
	}
	s.logger.Printf("mined block %d (%d transactions)", block.BlockNumber, len(block.Transactions))
	if s.callback != nil {
		s.callback(ctx, block)
	}
}

// TriggerMine mines immediately, outside the regular cadence. The
// scheduler's callback is not invoked for a block mined this way.
func (s *Scheduler) TriggerMine(ctx context.Context) (*Block, error) {
	return s.engine.MineBlock(ctx)
}
