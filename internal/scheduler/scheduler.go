// Package scheduler runs the evaluation pipeline for each loaded
// service manifest on its own cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/halcyonops/halcyon/internal/manifest"
	"github.com/halcyonops/halcyon/internal/portfolio"
	"github.com/halcyonops/halcyon/internal/slo"
	"github.com/halcyonops/halcyon/internal/storage"
)

// Scheduler manages periodic per-service evaluations
type Scheduler struct {
	runner          *portfolio.Runner
	cache           *StateCache
	manifestDir     string
	schemaPath      string
	defaultInterval time.Duration
	manifests       []manifest.WithFile
	repo            storage.Repository
	log             *slog.Logger
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	running         bool
}

// NewScheduler creates a new scheduler
func NewScheduler(runner *portfolio.Runner, manifestDir, schemaPath string, defaultInterval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		runner:          runner,
		cache:           NewStateCache(),
		manifestDir:     manifestDir,
		schemaPath:      schemaPath,
		defaultInterval: defaultInterval,
		log:             log,
	}
}

// SetRepository sets the persistence backend for loaded SLO
// definitions (optional).
func (s *Scheduler) SetRepository(repo storage.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repo = repo
}

// LoadManifests loads and validates service manifests from the
// configured directory.
func (s *Scheduler) LoadManifests(ctx context.Context) error {
	withFiles, loadErrs := manifest.LoadFromDirectory(s.manifestDir)
	if len(loadErrs) > 0 {
		return fmt.Errorf("failed to load manifests: %d errors, first: %s", len(loadErrs), loadErrs[0].Error())
	}

	if len(withFiles) == 0 {
		return fmt.Errorf("no manifests found in %s", s.manifestDir)
	}

	validator, err := manifest.NewValidator(s.schemaPath)
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	validationErrors := validator.ValidateDirectory(s.manifestDir)
	if len(validationErrors) > 0 {
		return fmt.Errorf("manifest validation failed: %d errors, first: %s", len(validationErrors), validationErrors[0].Error())
	}

	s.mu.Lock()
	s.manifests = withFiles
	repo := s.repo
	s.mu.Unlock()

	// Persist declared SLOs so gate and drift lookups see them.
	if repo != nil {
		for _, wf := range withFiles {
			for _, declared := range wf.Manifest.SLOs() {
				if err := repo.StoreSLO(ctx, declared); err != nil {
					s.log.Warn("failed to store SLO definition", "slo_id", declared.ID, "error", err)
				}
			}
		}
	}

	s.log.Info("loaded service manifests", "count", len(withFiles))
	return nil
}

// Start begins the evaluation loops, one goroutine per service.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}

	if len(s.manifests) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no manifests loaded, call LoadManifests() first")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	manifests := s.manifests
	s.mu.Unlock()

	for _, wf := range manifests {
		s.wg.Add(1)
		go s.evaluateLoop(ctx, wf.Manifest)
	}

	s.log.Info("scheduler started", "services", len(manifests))
	return nil
}

// Stop stops the scheduler and waits for in-flight evaluations.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping scheduler")
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// interval resolves a manifest's evaluation cadence, falling back to
// the scheduler default.
func (s *Scheduler) interval(m *manifest.Manifest) time.Duration {
	if m.Spec.EvaluationInterval == "" {
		return s.defaultInterval
	}
	d, err := slo.ParseDuration(m.Spec.EvaluationInterval)
	if err != nil {
		s.log.Warn("invalid evaluation interval, using default",
			"service", m.Metadata.Service, "interval", m.Spec.EvaluationInterval, "error", err)
		return s.defaultInterval
	}
	return d
}

// evaluateLoop runs periodic evaluations for a single service
func (s *Scheduler) evaluateLoop(ctx context.Context, m *manifest.Manifest) {
	defer s.wg.Done()

	interval := s.interval(m)

	// Initial evaluation
	s.evaluateOnce(ctx, m, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluateOnce(ctx, m, interval)
		}
	}
}

// evaluateOnce performs a single evaluation of a service
func (s *Scheduler) evaluateOnce(ctx context.Context, m *manifest.Manifest, interval time.Duration) {
	now := time.Now()

	result := s.runner.EvaluateService(ctx, m, now)

	s.cache.Set(m.Metadata.Service, &ServiceState{
		Result:    &result,
		UpdatedAt: now,
		TTL:       interval,
	})

	s.log.Info("evaluated service",
		"service", m.Metadata.Service,
		"budgets", len(result.Budgets),
		"events", len(result.Events),
		"errors", len(result.Errors))
}

// GetCache returns the state cache
func (s *Scheduler) GetCache() *StateCache {
	return s.cache
}

// GetManifests returns the loaded manifests
func (s *Scheduler) GetManifests() []manifest.WithFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]manifest.WithFile, len(s.manifests))
	copy(result, s.manifests)
	return result
}

// SetManifestsForTest sets manifests directly (for testing only)
func (s *Scheduler) SetManifestsForTest(manifests []manifest.WithFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests = manifests
}

// EvaluateNow forces immediate evaluation of a specific service.
func (s *Scheduler) EvaluateNow(ctx context.Context, service string) error {
	s.mu.RLock()
	var target *manifest.Manifest
	for _, wf := range s.manifests {
		if wf.Manifest.Metadata.Service == service {
			target = wf.Manifest
			break
		}
	}
	s.mu.RUnlock()

	if target == nil {
		return fmt.Errorf("service not found: %s", service)
	}

	s.evaluateOnce(ctx, target, s.interval(target))
	return nil
}
