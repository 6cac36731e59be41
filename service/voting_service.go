package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"campusvote/anonymizer"
	"campusvote/ledger"
	"campusvote/models"
	"campusvote/registry"
)

// VotingService translates voter-facing actions into ledger operations and
// enforces the election's business rules. The chain is the source of truth;
// the tallies map is a derived projection kept for display.
type VotingService struct {
	ledger           *ledger.Ledger
	candidates       *registry.CandidateRegistry
	session          *ElectionSession
	tallies          map[string]int
	mu               sync.Mutex
	metricsCollector *MetricsCollector
}

// StateSnapshot is the read-only view handed to the HTTP boundary.
type StateSnapshot struct {
	Candidates []*models.Candidate `json:"candidates"`
	Chain      []*models.Block     `json:"chain"`
	PollOpen   bool                `json:"pollOpen"`
}

// NewVotingService wires a fresh ledger to the given candidate roster.
// Polling starts closed.
func NewVotingService(candidates *registry.CandidateRegistry, difficulty uint8, sessionDuration time.Duration) (*VotingService, error) {
	chain, err := ledger.New(difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	return &VotingService{
		ledger:           chain,
		candidates:       candidates,
		session:          NewElectionSession(sessionDuration),
		tallies:          make(map[string]int),
		metricsCollector: NewMetricsCollector(),
	}, nil
}

// CastVote runs the full vote pipeline as one critical section: poll check,
// candidate check, duplicate check, mine, append, tally update. Two
// concurrent attempts by the same voter cannot both pass the duplicate
// check. All precondition failures abort before any mining work begins.
func (vs *VotingService) CastVote(rawIdentity, candidateID string) (*models.Block, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if !vs.session.IsOpen() {
		return nil, ErrPollClosed
	}

	if !vs.candidates.Exists(candidateID) {
		return nil, ErrUnknownCandidate
	}

	digest := anonymizer.Digest(rawIdentity)
	if vs.hasVotedLocked(digest) {
		return nil, ErrDuplicateVote
	}

	data := models.BlockData{
		VoterID:     digest,
		CandidateID: candidateID,
		Timestamp:   time.Now().UnixMilli(),
	}

	block, err := vs.ledger.MineBlock(data)
	if err != nil {
		return nil, fmt.Errorf("failed to mine vote block: %w", err)
	}

	if err := vs.ledger.Append(block); err != nil {
		log.Printf("Append failed after mining: %v", err)
		return nil, err
	}

	vs.tallies[candidateID]++
	return block, nil
}

// HasVoted reports whether the identity's digest already appears in the
// chain. Genesis is excluded.
func (vs *VotingService) HasVoted(rawIdentity string) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.hasVotedLocked(anonymizer.Digest(rawIdentity))
}

func (vs *VotingService) hasVotedLocked(digest string) bool {
	for _, block := range vs.ledger.Snapshot()[1:] {
		if block.Data.VoterID == digest {
			return true
		}
	}
	return false
}

// ToggleElection flips the polling flag and returns the new state.
func (vs *VotingService) ToggleElection() bool {
	open := vs.session.Toggle()
	log.Printf("Polling toggled: open=%v", open)
	return open
}

// IsPollOpen reports whether votes are currently accepted.
func (vs *VotingService) IsPollOpen() bool {
	return vs.session.IsOpen()
}

// AddCandidate registers a candidate. Rejected while polling is open; the
// roster is frozen for the duration of the election.
func (vs *VotingService) AddCandidate(candidate *models.Candidate) (*models.Candidate, error) {
	if vs.session.IsOpen() {
		return nil, ErrPollOpen
	}
	return vs.candidates.Add(candidate)
}

// RemoveCandidate deletes a candidate from the roster. Never touches the
// chain.
func (vs *VotingService) RemoveCandidate(id string) error {
	if vs.session.IsOpen() {
		return ErrPollOpen
	}
	return vs.candidates.Remove(id)
}

// Status returns a read-only snapshot of candidates, chain and the polling
// flag. Candidate vote counts are filled from the incremental tallies.
func (vs *VotingService) Status() *StateSnapshot {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	candidates := vs.candidates.List()
	for _, candidate := range candidates {
		candidate.VoteCount = vs.tallies[candidate.ID]
	}

	return &StateSnapshot{
		Candidates: candidates,
		Chain:      vs.ledger.Snapshot(),
		PollOpen:   vs.session.IsOpen(),
	}
}

// Chain returns a copy of the ledger's block sequence.
func (vs *VotingService) Chain() []*models.Block {
	return vs.ledger.Snapshot()
}

// ValidateChain exposes ledger health to external auditors without them
// needing to understand the hash scheme.
func (vs *VotingService) ValidateChain() bool {
	return vs.ledger.Validate()
}

// Difficulty returns the ledger's proof-of-work difficulty.
func (vs *VotingService) Difficulty() uint8 {
	return vs.ledger.Difficulty()
}

// Metrics returns the service's operation metrics collector.
func (vs *VotingService) Metrics() *MetricsCollector {
	return vs.metricsCollector
}

// EndElection closes polling for good and logs the final standing.
func (vs *VotingService) EndElection() {
	vs.session.End()

	report := vs.Results()
	log.Printf("Election ended: %d votes across %d candidates", report.TotalVotes, len(report.Results))
}
