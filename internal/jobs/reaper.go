package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dropper lists and drops databases. database.Admin implements it.
type Dropper interface {
	IdleDatabases(ctx context.Context, prefix string) ([]string, error)
	DropDatabase(ctx context.Context, name string) error
}

// ReaperConfig configures a Reaper.
type ReaperConfig struct {
	// Prefix selects the databases to reap, e.g. "commerce_test".
	Prefix string
	// Keep are never dropped even when they match Prefix.
	Keep []string
	// Interval between passes when started. Defaults to one minute.
	Interval time.Duration
	// Timeout bounds a single pass. Defaults to two minutes.
	Timeout time.Duration
}

// Reaper drops test databases left behind by runs that never reached
// shutdown: every idle database whose name starts with Prefix.
type Reaper struct {
	admin    Dropper
	prefix   string
	keep     map[string]bool
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewReaper creates a new reaper job
func NewReaper(admin Dropper, cfg ReaperConfig, logger *zap.Logger) (*Reaper, error) {
	if cfg.Prefix == "" {
		return nil, errors.New("jobs: reaper needs a database prefix")
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	keep := make(map[string]bool, len(cfg.Keep))
	for _, name := range cfg.Keep {
		keep[name] = true
	}

	return &Reaper{
		admin:    admin,
		prefix:   cfg.Prefix,
		keep:     keep,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger.With(zap.String("job", "reaper"), zap.String("prefix", cfg.Prefix)),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins the reaper job. A pass runs immediately.
func (r *Reaper) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run()
	r.logger.Info("reaper started", zap.Duration("interval", r.interval))
}

// Stop gracefully stops the reaper job. It cannot be restarted.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("reaper stopped")
}

func (r *Reaper) run() {
	defer r.wg.Done()

	r.pass()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.pass()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reaper) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Warn("reaper pass failed", zap.Error(err))
	}
}

// RunOnce drops every idle matching database once and returns the dropped
// names. A failed drop does not stop the pass; failures are returned joined.
func (r *Reaper) RunOnce(ctx context.Context) ([]string, error) {
	names, err := r.admin.IdleDatabases(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	var (
		dropped []string
		errs    []error
	)
	for _, name := range names {
		if r.keep[name] {
			continue
		}
		if err := r.admin.DropDatabase(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		dropped = append(dropped, name)
		r.logger.Info("dropped leftover database", zap.String("database", name))
	}

	return dropped, errors.Join(errs...)
}

// IsRunning returns whether the reaper is running
func (r *Reaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
