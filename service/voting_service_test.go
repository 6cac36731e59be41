package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/ledger"
	"campusvote/models"
	"campusvote/registry"
)

func newTestService(t *testing.T, candidateIDs ...string) *VotingService {
	t.Helper()

	roster, err := registry.New(registry.Config{})
	require.NoError(t, err)

	for _, id := range candidateIDs {
		_, err := roster.Add(&models.Candidate{ID: id, Name: "Candidate " + id})
		require.NoError(t, err)
	}

	vs, err := NewVotingService(roster, ledger.DefaultDifficulty, 0)
	require.NoError(t, err)
	return vs
}

func TestElectionScenario(t *testing.T) {
	vs := newTestService(t, "c1")

	// Fresh ledger holds only genesis.
	require.Len(t, vs.Chain(), 1)

	// Polling starts closed.
	_, err := vs.CastVote("alice@x.edu", "c1")
	assert.ErrorIs(t, err, ErrPollClosed)

	assert.True(t, vs.ToggleElection())

	block, err := vs.CastVote("alice@x.edu", "c1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Index)
	assert.Equal(t, "c1", block.Data.CandidateID)
	assert.Len(t, vs.Chain(), 2)
	assert.Equal(t, 1, vs.Results().Results["c1"])

	// Same voter again, regardless of candidate spelling of the email.
	_, err = vs.CastVote("  ALICE@x.edu ", "c1")
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.Len(t, vs.Chain(), 2)

	assert.False(t, vs.ToggleElection())

	_, err = vs.CastVote("bob@x.edu", "c1")
	assert.ErrorIs(t, err, ErrPollClosed)
	assert.Len(t, vs.Chain(), 2)
}

func TestCastVoteRejectsUnknownCandidate(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	_, err := vs.CastVote("alice@x.edu", "nobody")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	assert.Len(t, vs.Chain(), 1)
}

func TestVoterIdentityIsAnonymized(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	block, err := vs.CastVote("alice@x.edu", "c1")
	require.NoError(t, err)

	assert.NotContains(t, block.Data.VoterID, "alice")
	assert.Len(t, block.Data.VoterID, 64)
	assert.True(t, vs.HasVoted("Alice@X.edu"))
	assert.False(t, vs.HasVoted("bob@x.edu"))
}

func TestTallyRoundTrip(t *testing.T) {
	vs := newTestService(t, "c1", "c2")
	vs.ToggleElection()

	votes := map[string]string{
		"alice@x.edu": "c1",
		"bob@x.edu":   "c2",
		"carol@x.edu": "c1",
		"dave@x.edu":  "c1",
	}
	for voter, candidate := range votes {
		_, err := vs.CastVote(voter, candidate)
		require.NoError(t, err)
	}

	report := vs.Results()
	assert.Equal(t, 4, report.TotalVotes)
	assert.Equal(t, 3, report.Results["c1"])
	assert.Equal(t, 1, report.Results["c2"])

	// Incremental counters must match the replayed chain exactly.
	verification := vs.VerifyCount()
	assert.True(t, verification.IsConsistent)
	assert.Equal(t, 4, verification.ChainVotes)
	assert.Equal(t, 4, verification.ReplayedTotal)
	assert.Equal(t, 4, verification.CounterTotal)

	status := vs.Status()
	for _, candidate := range status.Candidates {
		assert.Equal(t, report.Results[candidate.ID], candidate.VoteCount)
	}
}

func TestChainProofOfWork(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	_, err := vs.CastVote("alice@x.edu", "c1")
	require.NoError(t, err)
	_, err = vs.CastVote("bob@x.edu", "c1")
	require.NoError(t, err)

	for _, block := range vs.Chain() {
		assert.True(t, block.HasValidProof(ledger.DefaultDifficulty),
			"block %d fails the proof-of-work predicate", block.Index)
	}
	assert.True(t, vs.ValidateChain())
}

func TestConcurrentDuplicateVotes(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	const attempts = 16
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := vs.CastVote("alice@x.edu", "c1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, duplicates := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateVote)
		duplicates++
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
	assert.Len(t, vs.Chain(), 2)
	assert.True(t, vs.ValidateChain())
}

func TestRosterLockedWhilePollOpen(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	_, err := vs.AddCandidate(&models.Candidate{Name: "Late Entry"})
	assert.ErrorIs(t, err, ErrPollOpen)
	assert.ErrorIs(t, vs.RemoveCandidate("c1"), ErrPollOpen)

	vs.ToggleElection()

	_, err = vs.AddCandidate(&models.Candidate{Name: "Late Entry"})
	assert.NoError(t, err)
}

func TestRemoveCandidateKeepsChain(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	_, err := vs.CastVote("alice@x.edu", "c1")
	require.NoError(t, err)

	vs.ToggleElection()
	require.NoError(t, vs.RemoveCandidate("c1"))

	// The vote stays on the chain and in the replayed tally.
	assert.Len(t, vs.Chain(), 2)
	assert.Equal(t, 1, vs.Results().Results["c1"])
	assert.True(t, vs.ValidateChain())
}

func TestStatusSnapshotIsReadOnly(t *testing.T) {
	vs := newTestService(t, "c1")
	vs.ToggleElection()

	_, err := vs.CastVote("alice@x.edu", "c1")
	require.NoError(t, err)

	status := vs.Status()
	status.Chain[1].Data.CandidateID = "tampered"

	assert.True(t, vs.ValidateChain())
	assert.Equal(t, "c1", vs.Chain()[1].Data.CandidateID)
}
