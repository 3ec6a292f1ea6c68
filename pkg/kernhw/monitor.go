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

// Package kernhw probes process memory pressure for pkg/kerncache's
// pressure_evict hook (spec.md §5: "driven by the hardware monitor (Tier
// 0) polling RSS at a configurable interval").
//
// No pack example repo ships an RSS/cgroup sampling library — this is a
// thin OS probe, not a domain concern with a natural third-party owner —
// so it is built directly on runtime.MemStats (see DESIGN.md).
package kernhw

import (
	"runtime"
	"sync"
	"time"
)

// Monitor samples heap usage against a configured ceiling and reports
// pressure as a percentage, the way the kernel's KERNEL_PRESSURE_HIGH_PCT
// env var expects.
type Monitor struct {
	mu          sync.RWMutex
	ceilingBytes uint64
	lastPct     float64
	stop        chan struct{}
	wg          sync.WaitGroup
}

// NewMonitor creates a Monitor. ceilingBytes is the memory budget against
// which pressure is measured (e.g. a container's memory limit); if zero,
// a conservative 512MiB default is used so PercentUsed never divides by
// zero.
func NewMonitor(ceilingBytes uint64) *Monitor {
	if ceilingBytes == 0 {
		ceilingBytes = 512 * 1024 * 1024
	}
	return &Monitor{ceilingBytes: ceilingBytes, stop: make(chan struct{})}
}

// Start begins polling at the given interval until Stop is called.
func (m *Monitor) Start(interval time.Duration) {
	m.sample()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sample()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts polling and waits for the background goroutine to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

func (m *Monitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	pct := float64(stats.HeapAlloc) / float64(m.ceilingBytes) * 100

	m.mu.Lock()
	m.lastPct = pct
	m.mu.Unlock()
}

// PercentUsed returns the most recently sampled pressure percentage.
func (m *Monitor) PercentUsed() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastPct
}

// AbovePressureThreshold reports whether the last sample exceeded
// thresholdPct (KERNEL_PRESSURE_HIGH_PCT, default 85).
func (m *Monitor) AbovePressureThreshold(thresholdPct float64) bool {
	return m.PercentUsed() >= thresholdPct
}
