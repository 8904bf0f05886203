package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/config"
	"packflow/internal/ingest"
	"packflow/internal/logging"
	"packflow/internal/pack"
	"packflow/internal/pipeline"
)

// Manager coordinates package processing: one scan loop feeding a bounded
// pool of per-package pipeline runs.
type Manager struct {
	cfg     *config.Config
	store   *catalog.Store
	worker  *pack.Worker
	scanner *ingest.Scanner
	logger  *slog.Logger

	scanInterval  time.Duration
	retryInterval time.Duration
	sem           chan struct{}

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	loop     sync.WaitGroup
	jobs     sync.WaitGroup
	inFlight map[string]struct{}
	lastErr  error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithScanInterval overrides the configured hot-folder scan cadence,
// mainly for tests.
func WithScanInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.scanInterval = interval
		}
	}
}

// NewManager constructs a workflow manager around the shared store and
// worker.
func NewManager(cfg *config.Config, store *catalog.Store, worker *pack.Worker, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		worker:        worker,
		scanner:       ingest.NewScanner(store, cfg, logger),
		logger:        logging.NewComponentLogger(logger, "workflow"),
		scanInterval:  time.Duration(cfg.Workflow.ScanInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		sem:           make(chan struct{}, cfg.Workflow.MaxConcurrent),
		inFlight:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins background processing. Interrupted packages resume before
// the first hot-folder scan so a restart picks up exactly where the
// previous daemon stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.loop.Add(1)
	m.mu.Unlock()

	if err := m.resumePending(runCtx); err != nil {
		m.logger.Warn("resume of interrupted packages failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "resume_failed"))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight package
// runs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.loop.Wait()
	m.jobs.Wait()
}

// Running reports whether the background loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent loop-level failure.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) run(ctx context.Context) {
	defer m.loop.Done()
	for {
		wait := m.scanInterval
		if err := m.scanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.setLastError(err)
			m.logger.Error("hot folder scan failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "scan_failed"))
			wait = m.retryInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// scanOnce ingests every stable candidate the scanner found.
func (m *Manager) scanOnce(ctx context.Context) error {
	candidates, err := m.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		m.dispatch(ctx, candidate.Package, candidate.Kind)
	}
	return nil
}

// resumePending re-dispatches every package interrupted mid-pipeline.
func (m *Manager) resumePending(ctx context.Context) error {
	pending, err := m.store.Resumable(ctx)
	if err != nil {
		return err
	}
	for _, pkg := range pending {
		kind, kindErr := pack.KindFor(pkg.OriginalFileName)
		if kindErr != nil {
			m.logger.Warn("cannot resume package of unknown kind",
				logging.Int64(logging.FieldPackageID, pkg.ID),
				logging.Error(kindErr))
			continue
		}
		m.logger.Info("resuming interrupted package",
			logging.Int64(logging.FieldPackageID, pkg.ID),
			logging.String(logging.FieldState, string(pkg.State)))
		m.dispatch(ctx, pkg, kind)
	}
	return nil
}

// dispatch hands one package to a pipeline run goroutine. The original
// file path keys the in-flight set so a package is never driven twice
// concurrently.
func (m *Manager) dispatch(ctx context.Context, pkg *catalog.Package, kind string) {
	runner, err := m.worker.RunnerFor(kind)
	if err != nil {
		m.setLastError(err)
		m.logger.Error("no pipeline for package kind",
			logging.String("kind", kind),
			logging.Error(err))
		return
	}

	key := pkg.OriginalPackagePath
	m.mu.Lock()
	if _, busy := m.inFlight[key]; busy {
		m.mu.Unlock()
		return
	}
	m.inFlight[key] = struct{}{}
	m.jobs.Add(1)
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.inFlight, key)
			m.mu.Unlock()
			m.jobs.Done()
		}()

		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-ctx.Done():
			return
		}

		if err := m.runPackage(ctx, runner, pkg); err != nil && !errors.Is(err, context.Canceled) {
			m.setLastError(err)
		}
	}()
}

func (m *Manager) runPackage(ctx context.Context, runner *pipeline.Runner, pkg *catalog.Package) error {
	err := runner.Run(ctx, pkg)
	if err != nil {
		m.logger.Error("package run failed",
			logging.Int64(logging.FieldPackageID, pkg.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "package_failed"))
		return err
	}
	return nil
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
