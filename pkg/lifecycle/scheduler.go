// Copyright 2025 The cogkernel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// HealthCheck reports whether the tool host (and any other externally
// dependent capability) is currently reachable. A panicking agent
// recovers to active the next time this returns true (spec.md §4.6:
// "panic -> active on health-check recovery").
type HealthCheck func(ctx context.Context) bool

// PollWaiting is invoked on a fixed cadence so the scheduler can wake
// any parked DAGs whose poll interval has elapsed (spec.md §4.5.3) —
// it is expected to delegate to WaitingQueue.DueForPoll and resubmit
// whatever comes back runnable. Kept as a function type rather than an
// import of pkg/execute to avoid a lifecycle->execute dependency.
type PollWaiting func(ctx context.Context, now time.Time)

// PressureCheck is invoked on a fixed cadence to test the hardware
// monitor's last Go heap sample against the configured threshold and, if
// exceeded, drive the cache hierarchy's pressure_evict (spec.md §5:
// "the cache pressure-evict hook is driven by the hardware monitor
// (Tier 0) polling RSS at a configurable interval"). Kept as a function
// type rather than imports of pkg/kernhw/pkg/kerncache to avoid a
// lifecycle dependency on either.
type PressureCheck func(ctx context.Context)

// Scheduler drives the periodic background activities T5 owns outside
// the OODA loop itself: health-check polling while panicking, waking
// poll-scheduled parked DAGs, and checking memory pressure.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	entries []cron.EntryID
}

// SchedulerConfig configures the background cadences. Any callback may
// be nil to disable that cadence.
type SchedulerConfig struct {
	HealthCheckInterval time.Duration
	PollInterval        time.Duration
	PressureInterval    time.Duration
	Health              HealthCheck
	Poll                PollWaiting
	Pressure            PressureCheck
	Logger              *slog.Logger
}

// NewScheduler builds a second-precision, UTC cron scheduler (matching
// the pack's own cron wiring) and registers the configured cadences as
// fixed-delay jobs.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Scheduler{cron: cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)), logger: cfg.Logger}

	if cfg.Health != nil && cfg.HealthCheckInterval > 0 {
		if err := s.addIntervalJob(cfg.HealthCheckInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HealthCheckInterval)
			defer cancel()
			healthy := cfg.Health(ctx)
			s.logger.Debug("health check ran", "healthy", healthy)
		}); err != nil {
			return nil, fmt.Errorf("schedule health check: %w", err)
		}
	}

	if cfg.Poll != nil && cfg.PollInterval > 0 {
		if err := s.addIntervalJob(cfg.PollInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.PollInterval)
			defer cancel()
			cfg.Poll(ctx, time.Now())
		}); err != nil {
			return nil, fmt.Errorf("schedule poll wakeup: %w", err)
		}
	}

	if cfg.Pressure != nil && cfg.PressureInterval > 0 {
		if err := s.addIntervalJob(cfg.PressureInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.PressureInterval)
			defer cancel()
			cfg.Pressure(ctx)
		}); err != nil {
			return nil, fmt.Errorf("schedule pressure check: %w", err)
		}
	}

	return s, nil
}

func (s *Scheduler) addIntervalJob(interval time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID := s.cron.Schedule(cron.ConstantDelaySchedule{Delay: interval}, cron.FuncJob(fn))
	s.entries = append(s.entries, entryID)
	return nil
}

// Start begins running the registered cadences.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop drains in-flight jobs and stops the scheduler, blocking until
// any job invocation that was already running completes.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
