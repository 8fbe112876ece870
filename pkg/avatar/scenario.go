package avatar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Snapshot is a restorable capture of the scene: which model and room are
// loaded, where they sit, and the camera pose.
type Snapshot struct {
	Model  *Model `json:"model,omitempty"`
	Room   *Room  `json:"room,omitempty"`
	Camera Camera `json:"camera"`
}

/*
ScenarioStore persists named snapshots as JSON files under a directory.
There is no database behind it on purpose: scenarios are a handful of small
documents an operator may also edit by hand.
*/
type ScenarioStore struct {
	mu  sync.Mutex
	dir string
}

func NewScenarioStore(dir string) (*ScenarioStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}

	return &ScenarioStore{dir: dir}, nil
}

// Save writes the snapshot under name, overwriting any previous version.
func (s *ScenarioStore) Save(name string, snap Snapshot) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scenario %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario %s: %w", name, err)
	}

	return nil
}

// Load reads the snapshot saved under name.
func (s *ScenarioStore) Load(name string) (Snapshot, error) {
	path, err := s.path(name)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()

	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("scenario %s not found", name)
		}
		return Snapshot{}, fmt.Errorf("failed to read scenario %s: %w", name, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode scenario %s: %w", name, err)
	}

	return snap, nil
}

// List returns the saved scenario names, sorted.
func (s *ScenarioStore) List() ([]string, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	sort.Strings(names)
	return names, nil
}

// path validates the scenario name and resolves its file path. Names must
// stay inside the store directory.
func (s *ScenarioStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid scenario name %q", name)
	}

	return filepath.Join(s.dir, name+".json"), nil
}
