// Package journey defines the step sequences the debugger executes and a
// registry for looking them up by id. Journey definitions are plain YAML
// documents; the debugger itself never interprets step logic, it only walks
// the ordered step list.
package journey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Step is one unit of journey execution. The debugger simulates its
// execution; the real step logic lives in the host application.
type Step struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Journey is a named sequence of steps with shared mutable context.
type Journey struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	Steps          []Step         `json:"steps" yaml:"steps"`
	InitialContext map[string]any `json:"initial_context,omitempty" yaml:"initial_context,omitempty"`
}

// Validate checks the journey is usable by the debugger. Missing step ids
// are filled in rather than rejected so hand-written YAML stays terse.
func (j *Journey) Validate() error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if len(j.Steps) == 0 {
		return fmt.Errorf("journey %q has no steps", j.ID)
	}
	seen := make(map[string]bool, len(j.Steps))
	for i := range j.Steps {
		if j.Steps[i].ID == "" {
			j.Steps[i].ID = uuid.NewString()
		}
		if seen[j.Steps[i].ID] {
			return fmt.Errorf("journey %q: duplicate step id %q", j.ID, j.Steps[i].ID)
		}
		seen[j.Steps[i].ID] = true
	}
	return nil
}

// LoadFromFile loads a journey definition from a YAML file.
func LoadFromFile(path string) (*Journey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journey file: %w", err)
	}

	var j Journey
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to parse journey file: %w", err)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Registry is an in-memory id -> journey lookup. It is the step source the
// debug HTTP API resolves session starts against.
type Registry struct {
	mu       sync.RWMutex
	journeys map[string]*Journey
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{journeys: make(map[string]*Journey)}
}

// Add registers a journey. Returns an error if the id is already taken.
func (r *Registry) Add(j *Journey) error {
	if err := j.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.journeys[j.ID]; ok {
		return fmt.Errorf("journey %q already registered", j.ID)
	}
	r.journeys[j.ID] = j
	r.order = append(r.order, j.ID)
	return nil
}

// Journey returns the journey with the given id.
func (r *Registry) Journey(id string) (*Journey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.journeys[id]
	return j, ok
}

// List returns all registered journeys in registration order.
func (r *Registry) List() []*Journey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Journey, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.journeys[id])
	}
	return out
}

// LoadDir loads every .yaml/.yml file in dir into the registry and returns
// the number of journeys loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read journey dir: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		j, err := LoadFromFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, err
		}
		if err := r.Add(j); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}
