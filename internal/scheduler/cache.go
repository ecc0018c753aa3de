package scheduler

import (
	"sync"
	"time"

	"github.com/halcyonops/halcyon/internal/portfolio"
)

// ServiceState is the cached outcome of a service's latest evaluation.
type ServiceState struct {
	Result    *portfolio.ServiceResult
	UpdatedAt time.Time
	TTL       time.Duration
}

// IsStale returns true if the cached state is older than its TTL
func (s *ServiceState) IsStale(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > s.TTL
}

// StateCache is a thread-safe cache of per-service evaluation states
type StateCache struct {
	mu     sync.RWMutex
	states map[string]*ServiceState
}

// NewStateCache creates a new state cache
func NewStateCache() *StateCache {
	return &StateCache{
		states: make(map[string]*ServiceState),
	}
}

// Get retrieves cached state for a service
func (c *StateCache) Get(service string) (*ServiceState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, exists := c.states[service]
	return state, exists
}

// Set stores evaluation state for a service
func (c *StateCache) Set(service string, state *ServiceState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states[service] = state
}

// GetAll returns a snapshot of all cached states
func (c *StateCache) GetAll() map[string]*ServiceState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]*ServiceState, len(c.states))
	for k, v := range c.states {
		snapshot[k] = v
	}

	return snapshot
}

// Delete removes a cached state
func (c *StateCache) Delete(service string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, service)
}

// Clear removes all cached states
func (c *StateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states = make(map[string]*ServiceState)
}

// Size returns the number of cached states
func (c *StateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.states)
}
