package ratelimit

import "sync"

// Registry hands out one Limiter per provider identity. It is owned by the
// composition root and injected into adapters; there is no package-level
// instance.
type Registry struct {
	mu       sync.Mutex
	defaults Config
	limiters map[string]*Limiter
}

// NewRegistry creates a Registry whose limiters use defaults when no
// per-provider override is registered.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults: defaults,
		limiters: make(map[string]*Limiter),
	}
}

// Get returns the limiter for key, creating it on first use.
func (r *Registry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := NewLimiter(r.defaults)
	r.limiters[key] = l
	return l
}

// Configure installs a limiter with explicit limits for key, replacing any
// existing one.
func (r *Registry) Configure(key string, cfg Config) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := NewLimiter(cfg)
	r.limiters[key] = l
	return l
}

// ResetAll clears the ledgers of every known limiter. Used for test
// isolation and forced recovery.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.limiters {
		l.Reset()
	}
}
