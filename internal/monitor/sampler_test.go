package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shirou/gopsutil/v4/net"
)

func TestRatesFirstSampleIsNil(t *testing.T) {
	s := NewSystemSampler()

	rx, tx := s.rates(1000, 2000, time.Now())
	assert.Nil(t, rx)
	assert.Nil(t, tx)
}

func TestRatesComputedFromDelta(t *testing.T) {
	s := NewSystemSampler()
	base := time.Now()

	s.rates(1000, 2000, base)
	rx, tx := s.rates(3000, 2500, base.Add(2*time.Second))

	require.NotNil(t, rx)
	require.NotNil(t, tx)
	assert.InDelta(t, 1000, *rx, 0.001)
	assert.InDelta(t, 250, *tx, 0.001)
}

func TestRatesCounterResetHoldsAtZero(t *testing.T) {
	s := NewSystemSampler()
	base := time.Now()

	s.rates(5000, 5000, base)
	rx, tx := s.rates(100, 6000, base.Add(time.Second))

	require.NotNil(t, rx)
	require.NotNil(t, tx)
	assert.Zero(t, *rx)
	assert.InDelta(t, 1000, *tx, 0.001)
}

func TestPrimaryInterfacePrefersPhysicalWithTraffic(t *testing.T) {
	counters := []net.IOCountersStat{
		{Name: "lo", BytesRecv: 9999, BytesSent: 9999},
		{Name: "docker0", BytesRecv: 500, BytesSent: 500},
		{Name: "eth0", BytesRecv: 1000, BytesSent: 2000},
	}

	nic := primaryInterface(counters)
	require.NotNil(t, nic)
	assert.Equal(t, "eth0", nic.Name)
}

func TestPrimaryInterfaceFallsBackToNonLoopback(t *testing.T) {
	counters := []net.IOCountersStat{
		{Name: "lo", BytesRecv: 9999},
		{Name: "veth1234"},
	}

	nic := primaryInterface(counters)
	require.NotNil(t, nic)
	assert.Equal(t, "veth1234", nic.Name)
}

func TestPrimaryInterfaceEmpty(t *testing.T) {
	assert.Nil(t, primaryInterface(nil))

	// Loopback only: last resort is the first counter.
	nic := primaryInterface([]net.IOCountersStat{{Name: "lo"}})
	require.NotNil(t, nic)
	assert.Equal(t, "lo", nic.Name)
}
