package categories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ghosthub/internal/logging"
)

// ErrNotFound is returned when no category exists for an id.
var ErrNotFound = errors.New("category not found")

// Category is one registered media directory.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Store is the JSON-file-backed category registry, safe for concurrent
// use. The file is the source of truth; the in-memory map is a cache
// rewritten on every mutation.
type Store struct {
	mu   sync.RWMutex
	path string
	byID map[string]Category
}

// Load reads the registry file at path, creating an empty registry if
// the file does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{path: path, byID: make(map[string]Category)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("No category file at %s, starting empty", path)
			return s, nil
		}
		return nil, fmt.Errorf("failed to read category file: %w", err)
	}

	var cats []Category
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("failed to parse category file %s: %w", path, err)
	}
	for _, c := range cats {
		s.byID[c.ID] = c
	}

	logging.Info("Loaded %d categories from %s", len(cats), path)
	return s, nil
}

// All returns every category sorted by name.
func (s *Store) All() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Category, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// ByID looks up one category.
func (s *Store) ByID(id string) (Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

// Add registers a new category for dir and persists the registry.
func (s *Store) Add(name, dir string) (Category, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Category{}, fmt.Errorf("category path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Category{}, fmt.Errorf("category path %s is not a directory", dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := Category{ID: uuid.NewString(), Name: name, Path: dir}
	s.byID[c.ID] = c

	if err := s.saveLocked(); err != nil {
		delete(s.byID, c.ID)
		return Category{}, err
	}

	logging.Info("Added category %q (%s)", name, c.ID)
	return c, nil
}

// Remove deletes a category and persists the registry. Media files on
// disk are untouched.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)

	if err := s.saveLocked(); err != nil {
		s.byID[id] = c
		return err
	}

	logging.Info("Removed category %q (%s)", c.Name, id)
	return nil
}

// Len returns the number of registered categories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}

func (s *Store) saveLocked() error {
	cats := make([]Category, 0, len(s.byID))
	for _, c := range s.byID {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })

	data, err := json.MarshalIndent(cats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot corrupt the file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write category file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace category file: %w", err)
	}
	return nil
}
