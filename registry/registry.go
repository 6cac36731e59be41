// Package registry holds the candidate roster. It never touches the chain;
// vote counts live elsewhere as a projection of the ledger.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"campusvote/models"
)

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrCandidateExists   = errors.New("candidate already registered")
	ErrInvalidCandidate  = errors.New("candidate name is required")
)

// Config controls optional seeding and persistence of the roster. The seed
// file is configuration, not ledger state.
type Config struct {
	CandidatesFilePath string `json:"candidates_file_path"`
	AutoSave           bool   `json:"auto_save"`
}

// CandidateRegistry is a mutex-guarded in-memory roster.
type CandidateRegistry struct {
	candidates map[string]*models.Candidate
	mu         sync.RWMutex
	config     Config
}

// New creates an empty registry.
func New(config Config) (*CandidateRegistry, error) {
	registry := &CandidateRegistry{
		candidates: make(map[string]*models.Candidate),
		config:     config,
	}

	if config.CandidatesFilePath != "" {
		dir := filepath.Dir(config.CandidatesFilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %v", err)
		}
	}

	return registry, nil
}

// LoadFromFile seeds the roster from the configured JSON file. A missing
// file is not an error; the roster simply starts empty.
func (r *CandidateRegistry) LoadFromFile() error {
	if r.config.CandidatesFilePath == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.config.CandidatesFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read candidates file: %v", err)
	}

	var seed struct {
		Candidates []*models.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to unmarshal candidate data: %v", err)
	}

	r.candidates = make(map[string]*models.Candidate)
	for _, candidate := range seed.Candidates {
		if strings.TrimSpace(candidate.Name) == "" {
			return fmt.Errorf("invalid candidate entry %q: %v", candidate.ID, ErrInvalidCandidate)
		}
		if candidate.ID == "" {
			candidate.ID = uuid.New().String()
		}
		candidate.VoteCount = 0
		r.candidates[candidate.ID] = candidate
	}

	return nil
}

// Add registers a candidate. An empty ID gets a freshly minted UUID.
func (r *CandidateRegistry) Add(candidate *models.Candidate) (*models.Candidate, error) {
	if strings.TrimSpace(candidate.Name) == "" {
		return nil, ErrInvalidCandidate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	} else if _, ok := r.candidates[candidate.ID]; ok {
		return nil, ErrCandidateExists
	}

	stored := *candidate
	stored.VoteCount = 0
	r.candidates[stored.ID] = &stored

	if r.config.AutoSave {
		if err := r.saveLocked(); err != nil {
			return nil, err
		}
	}

	copied := stored
	return &copied, nil
}

// Remove deletes a candidate from the roster.
func (r *CandidateRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.candidates[id]; !ok {
		return ErrCandidateNotFound
	}
	delete(r.candidates, id)

	if r.config.AutoSave {
		return r.saveLocked()
	}
	return nil
}

// Exists reports whether the ID identifies a registered candidate.
func (r *CandidateRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.candidates[id]
	return ok
}

// Get returns a copy of the candidate with the given ID.
func (r *CandidateRegistry) Get(id string) (*models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidate, ok := r.candidates[id]
	if !ok {
		return nil, ErrCandidateNotFound
	}
	copied := *candidate
	return &copied, nil
}

// List returns copies of all candidates sorted by name.
func (r *CandidateRegistry) List() []*models.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]*models.Candidate, 0, len(r.candidates))
	for _, candidate := range r.candidates {
		copied := *candidate
		candidates = append(candidates, &copied)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
	return candidates
}

// Count returns the roster size.
func (r *CandidateRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.candidates)
}

func (r *CandidateRegistry) saveLocked() error {
	if r.config.CandidatesFilePath == "" {
		return nil
	}

	roster := struct {
		Candidates []*models.Candidate `json:"candidates"`
	}{Candidates: make([]*models.Candidate, 0, len(r.candidates))}

	for _, candidate := range r.candidates {
		roster.Candidates = append(roster.Candidates, candidate)
	}
	sort.Slice(roster.Candidates, func(i, j int) bool {
		return roster.Candidates[i].Name < roster.Candidates[j].Name
	})

	data, err := json.MarshalIndent(roster, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal candidate data: %v", err)
	}

	return os.WriteFile(r.config.CandidatesFilePath, data, 0644)
}
