// Package monitor samples OS telemetry, detects sustained spikes, and
// persists both through the monitor store.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// Sampler produces one telemetry snapshot per call.
type Sampler interface {
	Sample(ctx context.Context) (*models.SystemMetric, error)
}

// SystemSampler reads host telemetry through gopsutil. Network rates are
// derived from the previous sample's cumulative counters, so the first
// sample carries nil rates.
type SystemSampler struct {
	mu      sync.Mutex
	lastRx  uint64
	lastTx  uint64
	lastAt  time.Time
	hasPrev bool
}

// NewSystemSampler creates a sampler with no baseline.
func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// Sample collects CPU, memory, swap and network telemetry.
func (s *SystemSampler) Sample(ctx context.Context) (*models.SystemMetric, error) {
	now := time.Now()
	metric := &models.SystemMetric{Time: now}

	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(total) > 0 {
		metric.CPUPercent = total[0]
	}

	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err == nil {
		metric.CPUCores = make([]models.CoreLoad, len(perCore))
		for i, load := range perCore {
			metric.CPUCores[i] = models.CoreLoad{Core: i, Load: load}
		}
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory usage: %w", err)
	}
	metric.MemoryUsedBytes = vm.Used
	metric.MemoryTotalBytes = vm.Total
	metric.MemoryPercent = vm.UsedPercent

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read swap usage: %w", err)
	}
	metric.SwapUsedBytes = swap.Used
	metric.SwapTotalBytes = swap.Total
	metric.SwapPercent = swap.UsedPercent

	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read network counters: %w", err)
	}
	if nic := primaryInterface(counters); nic != nil {
		metric.NetworkInterface = nic.Name
		metric.NetworkRxBytes = nic.BytesRecv
		metric.NetworkTxBytes = nic.BytesSent

		rx, tx := s.rates(nic.BytesRecv, nic.BytesSent, now)
		metric.NetworkRxSec = rx
		metric.NetworkTxSec = tx
	}

	return metric, nil
}

func (s *SystemSampler) rates(rx, tx uint64, now time.Time) (*float64, *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		s.lastRx, s.lastTx, s.lastAt, s.hasPrev = rx, tx, now, true
	}()

	if !s.hasPrev || !now.After(s.lastAt) {
		return nil, nil
	}
	elapsed := now.Sub(s.lastAt).Seconds()
	if elapsed <= 0 {
		return nil, nil
	}

	var rxRate, txRate float64
	// Counters reset when an interface bounces; hold the rate at zero
	// rather than reporting a huge negative delta.
	if rx >= s.lastRx {
		rxRate = float64(rx-s.lastRx) / elapsed
	}
	if tx >= s.lastTx {
		txRate = float64(tx-s.lastTx) / elapsed
	}
	return &rxRate, &txRate
}

// primaryInterface picks the interface whose traffic the monitor tracks:
// the first physical-looking one carrying traffic, then any non-loopback,
// then whatever is left.
func primaryInterface(counters []net.IOCountersStat) *net.IOCountersStat {
	var fallback *net.IOCountersStat
	for i := range counters {
		nic := &counters[i]
		if isLoopback(nic.Name) {
			continue
		}
		if fallback == nil {
			fallback = nic
		}
		if !isVirtual(nic.Name) && nic.BytesRecv+nic.BytesSent > 0 {
			return nic
		}
	}
	if fallback != nil {
		return fallback
	}
	if len(counters) > 0 {
		return &counters[0]
	}
	return nil
}

func isLoopback(name string) bool {
	return name == "lo" || strings.HasPrefix(name, "lo0")
}

func isVirtual(name string) bool {
	for _, prefix := range []string{"veth", "docker", "br-", "virbr", "tap", "tun"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
