package index

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileName is the index file kept next to the config.
const FileName = "events.json"

// EventIndex maps task ids to the calendar event mirroring them.
type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// Open loads the index at path. A missing file yields an empty index.
func Open(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}
	if err := idx.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	mappings := make(map[string]string)
	if err := json.NewDecoder(f).Decode(&mappings); err != nil {
		return err
	}
	idx.mu.Lock()
	idx.Mappings = mappings
	idx.dirty = false
	idx.mu.Unlock()
	return nil
}

// Save writes the index if it changed since the last load or save. The file
// is replaced atomically.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	dir := filepath.Dir(idx.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".events-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(idx.Mappings); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), idx.Path); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[taskID] != eventID {
		idx.Mappings[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[taskID]; exists {
		delete(idx.Mappings, taskID)
		idx.dirty = true
	}
}

// TaskIDs returns the indexed task ids in sorted order.
func (idx *EventIndex) TaskIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.Mappings))
	for id := range idx.Mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
