package monitor

import (
	"sync"
	"time"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// metricState is the detector's per-series memory.
type metricState struct {
	history []observation

	// candidateSince is when the series first crossed its relative
	// threshold; zero while below it.
	candidateSince    time.Time
	candidateBaseline float64

	// armed gates emission. A fired series stays disarmed until one
	// sample observes it back below threshold.
	armed bool

	criticalArmed bool
}

type observation struct {
	at    time.Time
	value float64
}

// Detector turns a stream of telemetry samples into spike records. A spike
// is emitted once per excursion: the relative path needs the change to hold
// for the configured sustain window, the critical path fires immediately on
// crossing an absolute ceiling.
type Detector struct {
	mu     sync.Mutex
	cfg    models.MonitorConfig
	states map[models.MetricType]*metricState
}

// NewDetector creates a detector with all series armed.
func NewDetector(cfg models.MonitorConfig) *Detector {
	states := make(map[models.MetricType]*metricState, len(models.AllMetricTypes()))
	for _, t := range models.AllMetricTypes() {
		states[t] = &metricState{armed: true, criticalArmed: true}
	}
	return &Detector{cfg: cfg, states: states}
}

// UpdateConfig swaps thresholds in place. Histories and arming state carry
// over so a threshold tweak does not re-fire in-progress excursions.
func (d *Detector) UpdateConfig(cfg models.MonitorConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

// Process evaluates one sample against every series and returns the spikes
// it produced, possibly none.
func (d *Detector) Process(m *models.SystemMetric) []*models.SystemSpike {
	d.mu.Lock()
	defer d.mu.Unlock()

	var spikes []*models.SystemSpike
	for _, t := range models.AllMetricTypes() {
		if s := d.evaluate(t, m.Value(t), m.Time); s != nil {
			spikes = append(spikes, s)
		}
	}
	return spikes
}

func (d *Detector) evaluate(t models.MetricType, value float64, at time.Time) *models.SystemSpike {
	th := d.cfg.Threshold(t)
	st := d.states[t]

	window := time.Duration(th.SustainedSeconds) * time.Second
	st.history = append(st.history, observation{at: at, value: value})
	st.trim(at, window)

	// Absolute ceiling path. A zero ceiling disables it.
	if th.CriticalThreshold > 0 {
		if value >= th.CriticalThreshold {
			if st.criticalArmed {
				st.criticalArmed = false
				return &models.SystemSpike{
					Time:          at,
					MetricType:    t,
					Severity:      models.SeverityCritical,
					PreviousValue: st.baseline(),
					CurrentValue:  value,
					ChangePercent: changePercent(st.baseline(), value),
					Details:       models.Details{"critical_threshold": th.CriticalThreshold},
				}
			}
		} else {
			st.criticalArmed = true
		}
	}

	if th.SpikeThresholdPercent <= 0 {
		return nil
	}

	// While a candidate is open, keep comparing against the baseline from
	// before the excursion; the sliding window alone would drift up into
	// the elevated values and mask a sustained spike.
	baseline := st.baseline()
	if !st.candidateSince.IsZero() {
		baseline = st.candidateBaseline
	}
	change := changePercent(baseline, value)
	over := change >= th.SpikeThresholdPercent || change <= -th.SpikeThresholdPercent

	if !over {
		st.candidateSince = time.Time{}
		st.armed = true
		return nil
	}

	if st.candidateSince.IsZero() {
		st.candidateSince = at
		st.candidateBaseline = baseline
		return nil
	}

	sustained := at.Sub(st.candidateSince)
	if sustained < window || !st.armed {
		return nil
	}

	st.armed = false
	return &models.SystemSpike{
		Time:                at,
		MetricType:          t,
		Severity:            models.SeverityWarning,
		PreviousValue:       st.candidateBaseline,
		CurrentValue:        value,
		ChangePercent:       changePercent(st.candidateBaseline, value),
		SustainedForSeconds: int(sustained.Seconds()),
	}
}

// baseline is the oldest value still inside the sustain window.
func (s *metricState) baseline() float64 {
	if len(s.history) == 0 {
		return 0
	}
	return s.history[0].value
}

func (s *metricState) trim(now time.Time, window time.Duration) {
	if window <= 0 {
		window = time.Second
	}
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.history)-1 && s.history[i].at.Before(cutoff) {
		i++
	}
	s.history = s.history[i:]
}

// changePercent is the relative move from baseline. A zero baseline with a
// nonzero value counts as an unbounded jump so it clears any threshold.
func changePercent(baseline, value float64) float64 {
	if baseline == 0 {
		if value == 0 {
			return 0
		}
		return 1e9
	}
	return (value - baseline) / baseline * 100
}
