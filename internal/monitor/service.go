package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/metrics"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

const cleanupInterval = time.Hour

// Status is a point-in-time view of the service for the API.
type Status struct {
	Running    bool       `json:"running"`
	LastSample *time.Time `json:"last_sample,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Service runs the sample/detect/persist loop. It is either stopped or
// running; starting while disabled in config leaves it stopped.
type Service struct {
	manager  *Manager
	sampler  Sampler
	detector *Detector
	log      *logging.Logger

	mu         sync.Mutex
	running    bool
	interval   time.Duration
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastSample time.Time
	lastError  error
}

// NewService wires the loop components together. The detector is created
// lazily at Start from the stored configuration.
func NewService(manager *Manager, sampler Sampler, log *logging.Logger) *Service {
	return &Service{
		manager: manager,
		sampler: sampler,
		log:     log.Component("monitor"),
	}
}

// Start loads the configuration and launches the sampling loop. A disabled
// configuration is not an error; the service simply stays stopped. Starting
// a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	cfg, err := s.manager.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		s.log.Info("monitoring disabled, not starting")
		return nil
	}

	s.detector = NewDetector(cfg)
	s.interval = time.Duration(cfg.PollingIntervalSeconds) * time.Second
	s.running = true

	// The loop runs on its own context. Start is often reached through a
	// request-scoped context (the config PATCH handler) and sampling must
	// not die with the request.
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(loopCtx, s.interval)

	s.log.Info("monitoring started", "interval", s.interval)
	return nil
}

// Stop halts the loop and waits for the in-flight cycle. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("monitoring stopped")
}

// UpdateConfig persists the patch and applies it to the running loop. The
// loop restarts only when the enabled flag or the polling interval changed;
// threshold-only changes reach the detector in place.
func (s *Service) UpdateConfig(ctx context.Context, patch models.MonitorConfigPatch) (models.MonitorConfig, error) {
	before, err := s.manager.Config(ctx)
	if err != nil {
		return models.MonitorConfig{}, err
	}

	updated, err := s.manager.UpdateConfig(ctx, patch)
	if err != nil {
		return models.MonitorConfig{}, err
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	switch {
	case !running:
		if updated.Enabled {
			return updated, s.Start(ctx)
		}
	case !updated.Enabled:
		s.Stop()
	case updated.PollingIntervalSeconds != before.PollingIntervalSeconds:
		s.Stop()
		return updated, s.Start(ctx)
	default:
		s.detector.UpdateConfig(updated)
	}

	return updated, nil
}

// Status reports whether the loop runs and how the last cycle went.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.running}
	if !s.lastSample.IsZero() {
		t := s.lastSample
		st.LastSample = &t
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

func (s *Service) run(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	// First sample immediately so the dashboard is never empty for a
	// full interval after startup.
	s.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		case <-cleanup.C:
			if _, err := s.manager.CleanupOldMetrics(ctx, 0); err != nil {
				s.log.Error("metric cleanup failed", "error", err)
			}
		}
	}
}

// cycle runs one sample/detect/persist pass. Errors are recorded and
// logged but never stop the loop.
func (s *Service) cycle(ctx context.Context) {
	metric, err := s.sampler.Sample(ctx)
	if err != nil {
		metrics.SampleErrors.Inc()
		s.log.Error("telemetry sample failed", "error", err)
		s.setLastError(err)
		return
	}
	metrics.SamplesTaken.Inc()

	if err := s.manager.store.InsertMetric(ctx, metric); err != nil {
		s.log.Error("failed to store metric", "error", err)
		s.setLastError(err)
		return
	}

	var cycleErr error
	for _, spike := range s.detector.Process(metric) {
		metrics.SpikesEmitted.WithLabelValues(string(spike.MetricType), spike.Severity).Inc()
		s.log.Warn("system spike detected",
			"metric", spike.MetricType, "severity", spike.Severity,
			"previous", spike.PreviousValue, "current", spike.CurrentValue,
			"change_percent", spike.ChangePercent)
		if err := s.manager.store.InsertSpike(ctx, spike); err != nil {
			s.log.Error("failed to store spike", "error", err)
			cycleErr = err
		}
	}

	s.mu.Lock()
	s.lastSample = metric.Time
	s.lastError = cycleErr
	s.mu.Unlock()
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}
