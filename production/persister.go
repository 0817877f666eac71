// Package production provides deployable Persister, EventPublisher,
// Visualizer and Registry implementations for statecraft.Machine,
// grounded on the same stdlib-first approach the core engine follows:
// JSON/YAML to disk, a buffered channel for publishing, Graphviz DOT
// for visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arborio/statecraft"
)

// JSONPersister is a file-based Persister using JSON serialization,
// one file per machine ID under dir.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring dir exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snapshot statecraft.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	fn := filepath.Join(p.dir, snapshot.MachineID+".json")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (p *JSONPersister) Load(ctx context.Context, machineID string) (statecraft.Snapshot, error) {
	fn := filepath.Join(p.dir, machineID+".json")
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return statecraft.Snapshot{}, fmt.Errorf("machine %q: %w", machineID, os.ErrNotExist)
		}
		return statecraft.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var snapshot statecraft.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return statecraft.Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	snapshot.MachineID = machineID
	return snapshot, nil
}

// YAMLPersister is the YAML-flavored twin of JSONPersister, for
// embedders that prefer a human-editable snapshot format.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring dir exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snapshot statecraft.Snapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	fn := filepath.Join(p.dir, snapshot.MachineID+".yaml")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (p *YAMLPersister) Load(ctx context.Context, machineID string) (statecraft.Snapshot, error) {
	fn := filepath.Join(p.dir, machineID+".yaml")
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return statecraft.Snapshot{}, fmt.Errorf("machine %q: %w", machineID, os.ErrNotExist)
		}
		return statecraft.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var snapshot statecraft.Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return statecraft.Snapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	snapshot.MachineID = machineID
	return snapshot, nil
}
