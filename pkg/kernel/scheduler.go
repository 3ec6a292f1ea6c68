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

package kernel

import (
	"context"
	"time"

	"github.com/azzindani/cogkernel/pkg/lifecycle"
)

// Scheduler wraps lifecycle.Scheduler with the three callbacks a Kernel
// needs wired to its own state: panic recovery health-checks, waking
// poll-scheduled parked DAGs back into the waiting queue's resolve
// path, and the memory-pressure check that drives cache eviction.
type Scheduler struct {
	inner *lifecycle.Scheduler
}

// NewScheduler builds the kernel's background cadences. Health checks
// run only while panicking (the only state a recovery check matters
// for); poll wakeups always run so parked DAGs resume promptly; the
// pressure check drives the cache hierarchy's eviction off the
// hardware monitor's Go heap sampling (spec.md §5).
func NewScheduler(k *Kernel, cfg *Config) (*Scheduler, error) {
	inner, err := lifecycle.NewScheduler(lifecycle.SchedulerConfig{
		HealthCheckInterval: time.Second,
		PollInterval:        time.Second,
		PressureInterval:    time.Duration(cfg.PressureCheckMs) * time.Millisecond,
		Health: func(ctx context.Context) bool {
			if k.agent.State() != lifecycle.StatePanic {
				return true
			}
			healthy := k.toolHostHealthy(ctx)
			if healthy {
				_ = k.agent.Recover()
			}
			return healthy
		},
		Poll: func(ctx context.Context, now time.Time) {
			for _, parked := range k.engine.Waiting().DueForPoll(now) {
				if _, ok := k.engine.Waiting().Resolve(parked.Continuation.Token); ok {
					k.logger.Info("resumed poll-scheduled parked dag", "dag_id", parked.DAGID)
				}
			}
		},
		Pressure: func(ctx context.Context) {
			if !k.hwMonitor.AbovePressureThreshold(cfg.PressureHighPct) {
				return
			}
			freed := k.cache.PressureEvict(cfg.PressureEvictBytes)
			k.logger.Warn("memory pressure above threshold, evicted L2/L3 cache entries",
				"pct_used", k.hwMonitor.PercentUsed(), "threshold_pct", cfg.PressureHighPct, "freed_bytes", freed)
		},
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{inner: inner}, nil
}

// Start begins the background cadences.
func (s *Scheduler) Start() { s.inner.Start() }

// Stop drains and stops the background cadences.
func (s *Scheduler) Stop() { s.inner.Stop() }

// toolHostHealthy probes the tool host by listing its tools; a
// reachable host (even with zero tools) counts as healthy.
func (k *Kernel) toolHostHealthy(ctx context.Context) bool {
	if k.toolHost == nil {
		return true
	}
	_, err := k.toolHost.List(ctx)
	return err == nil
}
