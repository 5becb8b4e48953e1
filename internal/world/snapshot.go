package world

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlSnapshot is the on-disk form of a MemoryStore.
type yamlSnapshot struct {
	Entities []yamlEntity `yaml:"entities"`
}

type yamlEntity struct {
	ID    string     `yaml:"id"`
	Kind  Kind       `yaml:"kind"`
	Attrs Attributes `yaml:"attrs"`
}

// MarshalSnapshot serialises every entity of s as YAML in creation order.
func MarshalSnapshot(s *MemoryStore) ([]byte, error) {
	var snap yamlSnapshot
	for _, e := range s.All() {
		snap.Entities = append(snap.Entities, yamlEntity{ID: e.ID, Kind: e.Kind, Attrs: e.Attrs})
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshalling world snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot builds a MemoryStore from YAML produced by
// MarshalSnapshot. Entity IDs and creation order are preserved.
//
// Postcondition: Returns a populated store, or an error if any entity has an
// unknown kind, a missing ID or a duplicate ID.
func UnmarshalSnapshot(data []byte) (*MemoryStore, error) {
	var snap yamlSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing world snapshot: %w", err)
	}

	s := NewMemoryStore()
	for i, ye := range snap.Entities {
		if ye.ID == "" {
			return nil, fmt.Errorf("snapshot entity %d: missing id", i)
		}
		if !ye.Kind.Valid() {
			return nil, fmt.Errorf("snapshot entity %q: unknown kind %q", ye.ID, ye.Kind)
		}
		if _, dup := s.entries[ye.ID]; dup {
			return nil, fmt.Errorf("snapshot entity %q: duplicate id", ye.ID)
		}
		s.seq++
		s.entries[ye.ID] = &memoryEntry{
			seq:    s.seq,
			entity: &Entity{ID: ye.ID, Kind: ye.Kind, Attrs: Merge(ye.Attrs)},
		}
	}
	return s, nil
}

// LoadSnapshot reads a snapshot file. A missing file yields an empty store.
func LoadSnapshot(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewMemoryStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading world snapshot %s: %w", path, err)
	}
	return UnmarshalSnapshot(data)
}

// SaveSnapshot writes s to path, creating its directory if needed.
func SaveSnapshot(path string, s *MemoryStore) error {
	data, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating world snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing world snapshot %s: %w", path, err)
	}
	return nil
}
