package production

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/arborio/statecraft"
)

// versionedSnapshot annotates a snapshot with its assigned version.
type versionedSnapshot struct {
	statecraft.Snapshot
	Version string
}

// MemoryRegistry is an in-memory, monotonically-versioned Registry
// keyed by machine ID, safe for concurrent use.
type MemoryRegistry struct {
	mu       sync.RWMutex
	versions map[string][]versionedSnapshot // newest last
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{versions: make(map[string][]versionedSnapshot)}
}

func (r *MemoryRegistry) Register(ctx context.Context, machineID string, snapshot statecraft.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := fmt.Sprintf("v%d", len(r.versions[machineID])+1)
	r.versions[machineID] = append(r.versions[machineID], versionedSnapshot{Snapshot: snapshot, Version: v})
	return nil
}

func (r *MemoryRegistry) Latest(ctx context.Context, machineID string) (statecraft.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vs := r.versions[machineID]
	if len(vs) == 0 {
		return statecraft.Snapshot{}, fmt.Errorf("registry: no snapshot for machine %q", machineID)
	}
	return vs[len(vs)-1].Snapshot, nil
}

func (r *MemoryRegistry) Version(ctx context.Context, machineID, version string) (statecraft.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.versions[machineID] {
		if v.Version == version {
			return v.Snapshot, nil
		}
	}
	return statecraft.Snapshot{}, fmt.Errorf("registry: machine %q has no version %q", machineID, version)
}

func (r *MemoryRegistry) ListVersions(ctx context.Context, machineID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vs := r.versions[machineID]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[len(vs)-1-i] = v.Version // newest first
	}
	return out, nil
}

func (r *MemoryRegistry) ListMachines(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.versions))
	for id := range r.versions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
