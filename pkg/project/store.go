// Package project is the client/project registry spec.md §3 describes as
// "not elaborated here": a Client aggregates Projects, each identified by a
// slug unique within its client. Unlike C1-C12, a Project carries no
// invariants or lifecycle of its own in the core — it exists only so
// Connections, WorkItems, and IndexingStatus records have a stable
// projectId to key against.
package project

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Project is one project under a client.
type Project struct {
	ID        string
	ClientID  string
	Slug      string
	Name      string
	CreatedAt time.Time
}

// Store is an in-memory client/project registry, safe for concurrent use.
// Grounded on pkg/config's registry shape (a mutex-guarded map behind
// Get/GetAll-style accessors) generalized to also support Create/Delete,
// since unlike MCPServerRegistry this registry is mutated at request time
// rather than loaded once from YAML.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*Project // keyed by id
}

// New builds an empty project store.
func New() *Store {
	return &Store{projects: map[string]*Project{}}
}

// ErrInvalidSlug is returned when a requested slug doesn't match
// ^[a-z0-9-]+$.
var ErrInvalidSlug = fmt.Errorf("project: slug must match ^[a-z0-9-]+$")

// ErrSlugTaken is returned when clientID already has a project with slug.
var ErrSlugTaken = fmt.Errorf("project: slug already exists for this client")

// ErrNotFound is returned by Get/Delete for an unknown project id.
var ErrNotFound = fmt.Errorf("project: not found")

// Create registers a new project under clientID. slug must be unique
// within that client.
func (s *Store) Create(clientID, slug, name string) (*Project, error) {
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		if p.ClientID == clientID && p.Slug == slug {
			return nil, ErrSlugTaken
		}
	}

	p := &Project{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Slug:      slug,
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.projects[p.ID] = p
	return p, nil
}

// Get looks up a project by id.
func (s *Store) Get(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListByClient returns every project registered under clientID, oldest
// first.
func (s *Store) ListByClient(clientID string) []*Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Project, 0)
	for _, p := range s.projects {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].CreatedAt.After(out[j].CreatedAt); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Delete removes a project by id. Deleting an unknown id is a no-op error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	return nil
}
