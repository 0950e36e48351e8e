// Package pool owns the bounded set of running execution environments,
// handing out healthy ones per image, reusing idle ones, and recycling
// least-recently-used idle entries when at capacity.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/runtime"
)

// Config is the configuration for the pool.
type Config struct {
	Runtime runtime.Runtime
	// Capacity bounds the number of simultaneously pooled environments.
	// Defaults to 5.
	Capacity int
	// MaxAge is the staleness ceiling, environments older than this are
	// considered unhealthy. Defaults to 1 hour.
	MaxAge time.Duration
	// IdleTimeout is how long an environment may sit idle before the sweep
	// evicts it. Defaults to 30 minutes.
	IdleTimeout time.Duration
	// SweepInterval is how often the background eviction sweep runs.
	// Defaults to 15 minutes.
	SweepInterval time.Duration
	// ProbeCommand is the trivial health probe run when the runtime reports
	// no native health status. Defaults to ["true"].
	ProbeCommand []string
	Logger       log.Logger
}

func (c *Config) defaults() error {
	if c.Runtime == nil {
		return fmt.Errorf("runtime is required")
	}
	if c.Capacity <= 0 {
		c.Capacity = 5
	}
	if c.MaxAge <= 0 {
		c.MaxAge = time.Hour
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 15 * time.Minute
	}
	if len(c.ProbeCommand) == 0 {
		c.ProbeCommand = []string{"true"}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pool.Pool"})
	return nil
}

// Pool is the container resource pool. One mutex guards the whole environment
// table so selecting an entry and marking it busy is a single atomic step
// with respect to concurrent acquires.
type Pool struct {
	runtime       runtime.Runtime
	capacity      int
	maxAge        time.Duration
	idleTimeout   time.Duration
	sweepInterval time.Duration
	probeCommand  []string
	logger        log.Logger

	mu      sync.Mutex
	envs    map[string]*model.Environment
	drained bool

	sweepStop chan struct{}
	stopOnce  sync.Once
}

// NewPool creates a new pool and starts its background eviction sweep.
func NewPool(cfg Config) (*Pool, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pool{
		runtime:       cfg.Runtime,
		capacity:      cfg.Capacity,
		maxAge:        cfg.MaxAge,
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		probeCommand:  cfg.ProbeCommand,
		logger:        cfg.Logger,
		envs:          map[string]*model.Environment{},
		sweepStop:     make(chan struct{}),
	}

	go p.sweepLoop()

	return p, nil
}

// Acquire hands out a healthy environment for the requested image, marked
// busy. Reuses an idle environment of the same image when one is healthy,
// creates a new one below capacity, and otherwise recycles the
// least-recently-used idle environment. At capacity with nothing idle it
// fails fast with a resource exhaustion error instead of pre-empting an
// in-flight execution.
func (p *Pool) Acquire(ctx context.Context, image string) (*model.Environment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drained {
		return nil, model.NewError(model.ErrKindContainer, "pool is drained")
	}

	// Reuse an idle environment with a matching image if a healthy one exists.
	for _, env := range p.envs {
		if env.Busy || env.Image != image {
			continue
		}

		if p.isHealthy(ctx, env) {
			env.Busy = true
			env.LastUsedAt = time.Now().UTC()
			env.Health = model.EnvironmentHealthHealthy
			p.logger.Debugf("Reusing environment %s (image: %s)", env.ID, image)
			envCopy := *env
			return &envCopy, nil
		}

		env.Health = model.EnvironmentHealthUnhealthy
		p.destroyLocked(ctx, env.ID)
	}

	if len(p.envs) < p.capacity {
		return p.createLocked(ctx, image)
	}

	// At capacity: recycle the least-recently-used idle environment. Busy
	// entries are never candidates.
	var oldest *model.Environment
	for _, env := range p.envs {
		if env.Busy {
			continue
		}
		if oldest == nil || env.LastUsedAt.Before(oldest.LastUsedAt) {
			oldest = env
		}
	}
	if oldest == nil {
		return nil, model.NewError(model.ErrKindResourceExhaustion,
			"pool at capacity (%d) with no idle environment to recycle", p.capacity)
	}

	p.logger.Debugf("Recycling environment %s (image: %s) for image %s", oldest.ID, oldest.Image, image)
	p.destroyLocked(ctx, oldest.ID)

	return p.createLocked(ctx, image)
}

// Release marks an environment as not busy. Idempotent, releasing an unknown
// ID is logged and ignored.
func (p *Pool) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	env, ok := p.envs[id]
	if !ok {
		p.logger.Warningf("Release of unknown environment %s ignored", id)
		return
	}

	env.Busy = false
	env.LastUsedAt = time.Now().UTC()
}

// Drain stops the background sweep, destroys every pooled environment best
// effort, and empties the pool. Safe to call more than once and on an empty
// pool.
func (p *Pool) Drain(ctx context.Context) {
	p.stopOnce.Do(func() { close(p.sweepStop) })

	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.envs {
		p.destroyLocked(ctx, id)
	}
	p.drained = true
}

// createLocked creates a new environment for the image and inserts it busy.
// Callers must hold the pool mutex.
func (p *Pool) createLocked(ctx context.Context, image string) (*model.Environment, error) {
	id, err := p.runtime.CreateEnvironment(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("could not create environment: %w", err)
	}

	now := time.Now().UTC()
	env := &model.Environment{
		ID:         id,
		Image:      image,
		Busy:       true,
		CreatedAt:  now,
		LastUsedAt: now,
		Health:     model.EnvironmentHealthUnknown,
	}
	p.envs[id] = env

	p.logger.Infof("Created environment %s (image: %s, pool size: %d)", id, image, len(p.envs))

	envCopy := *env
	return &envCopy, nil
}

// destroyLocked removes an environment from the table and destroys it best
// effort. A runtime failure must not block the pool, the entry is dropped
// either way. Callers must hold the pool mutex.
func (p *Pool) destroyLocked(ctx context.Context, id string) {
	delete(p.envs, id)
	if err := p.runtime.DestroyEnvironment(ctx, id); err != nil {
		p.logger.Errorf("Could not destroy environment %s: %v", id, err)
	}
}

// isHealthy is fail-closed: any probe or inspection error makes the
// environment unhealthy.
func (p *Pool) isHealthy(ctx context.Context, env *model.Environment) bool {
	state, err := p.runtime.InspectEnvironment(ctx, env.ID)
	if err != nil {
		p.logger.Debugf("Health inspection of %s failed: %v", env.ID, err)
		return false
	}

	if !state.Running {
		return false
	}

	// Runtime-native health status wins when the image defines a healthcheck.
	if state.HealthStatus != "" {
		return state.HealthStatus == "healthy"
	}

	// Maximum-age policy bounds resource staleness.
	if time.Since(env.CreatedAt) > p.maxAge {
		return false
	}

	exitCode, err := p.runtime.Exec(ctx, env.ID, p.probeCommand, runtime.ExecOpts{})
	if err != nil {
		p.logger.Debugf("Health probe of %s failed: %v", env.ID, err)
		return false
	}

	return exitCode == 0
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.evictIdle(context.Background())
		}
	}
}

// evictIdle removes environments idle longer than the threshold, but always
// preserves the most recently used idle environment per image so frequently
// used images avoid full cold-start churn.
func (p *Pool) evictIdle(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	newestIdle := map[string]string{} // image -> environment ID
	for id, env := range p.envs {
		if env.Busy {
			continue
		}
		newestID, ok := newestIdle[env.Image]
		if !ok || env.LastUsedAt.After(p.envs[newestID].LastUsedAt) {
			newestIdle[env.Image] = id
		}
	}

	now := time.Now().UTC()
	for id, env := range p.envs {
		if env.Busy || newestIdle[env.Image] == id {
			continue
		}
		if now.Sub(env.LastUsedAt) <= p.idleTimeout {
			continue
		}

		p.logger.Infof("Evicting idle environment %s (image: %s, idle: %s)", id, env.Image, now.Sub(env.LastUsedAt))
		p.destroyLocked(ctx, id)
	}
}

// Size returns the current number of pooled environments.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.envs)
}

// Busy returns the current number of leased environments.
func (p *Pool) Busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy := 0
	for _, env := range p.envs {
		if env.Busy {
			busy++
		}
	}
	return busy
}
