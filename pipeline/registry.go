package pipeline

import (
	"sort"
	"sync"
)

// Registry tracks runs started during this process so the API and TUI can
// look them up by ID. Runs are never evicted; restarts start empty, the run
// folders on disk remain the durable record.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

func (reg *Registry) Add(run *Run) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.runs[run.ID] = run
}

func (reg *Registry) Get(id string) (*Run, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	run, ok := reg.runs[id]
	return run, ok
}

// List returns runs ordered newest first.
func (reg *Registry) List() []*Run {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Run, 0, len(reg.runs))
	for _, run := range reg.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}
