package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps project IDs to their engine sets. It owns no engine
// lifecycle beyond lookup: sets are built once at startup and live for the
// process.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*Set
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sets: make(map[string]*Set),
	}
}

// Register adds an engine set to the registry.
func (r *Registry) Register(set *Set) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := set.ProjectID()
	if _, exists := r.sets[id]; exists {
		return fmt.Errorf("project %q already registered", id)
	}
	r.sets[id] = set
	return nil
}

// Get returns the engine set for a project.
func (r *Registry) Get(projectID string) (*Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, exists := r.sets[projectID]
	return set, exists
}

// Projects returns all registered project IDs in sorted order.
func (r *Registry) Projects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sets))
	for id := range r.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered projects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets)
}

// HealthReport collects engine health for every registered project, keyed
// by project ID then engine name.
func (r *Registry) HealthReport() map[string]map[string]map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := make(map[string]map[string]map[string]float64, len(r.sets))
	for id, set := range r.sets {
		report[id] = set.HealthReport()
	}
	return report
}
