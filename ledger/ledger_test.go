package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/models"
)

func TestNewLedgerGenesis(t *testing.T) {
	chain, err := New(DefaultDifficulty)
	require.NoError(t, err)

	assert.Equal(t, 1, chain.Height())

	blocks := chain.Snapshot()
	genesis := blocks[0]
	assert.Equal(t, uint64(0), genesis.Index)
	assert.Equal(t, models.GenesisPrevHash, genesis.PrevHash)
	assert.True(t, genesis.Data.IsGenesis())
	assert.True(t, strings.HasPrefix(genesis.Hash, "00"))
}

func TestMineAndAppend(t *testing.T) {
	chain, err := New(DefaultDifficulty)
	require.NoError(t, err)

	// The chain must validate after every append.
	for i, candidate := range []string{"c1", "c2", "c1"} {
		data := models.BlockData{VoterID: "digest-" + candidate, CandidateID: candidate, Timestamp: int64(i)}

		block, err := chain.MineBlock(data)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), block.Index)
		assert.Equal(t, chain.LastHash(), block.PrevHash)
		assert.True(t, block.HasValidProof(DefaultDifficulty))

		require.NoError(t, chain.Append(block))
		assert.True(t, chain.Validate())
	}

	assert.Equal(t, 4, chain.Height())
}

func TestMineBlockDoesNotAppend(t *testing.T) {
	chain, err := New(DefaultDifficulty)
	require.NoError(t, err)

	_, err = chain.MineBlock(models.BlockData{VoterID: "d", CandidateID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, 1, chain.Height())
}

func TestAppendRejectsStaleIndex(t *testing.T) {
	chain, err := New(DefaultDifficulty)
	require.NoError(t, err)

	block, err := chain.MineBlock(models.BlockData{VoterID: "d1", CandidateID: "c1"})
	require.NoError(t, err)
	require.NoError(t, chain.Append(block))

	// Appending the same block twice violates the index precondition.
	err = chain.Append(block)
	var integrityErr *ChainIntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.Equal(t, 2, chain.Height())
}

func TestAppendRejectsBrokenLink(t *testing.T) {
	chain, err := New(DefaultDifficulty)
	require.NoError(t, err)

	forged, err := models.NewBlock(1, models.BlockData{VoterID: "d1", CandidateID: "c1"}, "0000bogus", DefaultDifficulty)
	require.NoError(t, err)

	err = chain.Append(forged)
	var integrityErr *ChainIntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.True(t, chain.Validate())
}

func TestSnapshotIsolation(t *testing.T) {
	chain, err := New(DefaultDifficulty)
	require.NoError(t, err)

	block, err := chain.MineBlock(models.BlockData{VoterID: "d1", CandidateID: "c1"})
	require.NoError(t, err)
	require.NoError(t, chain.Append(block))

	snapshot := chain.Snapshot()
	snapshot[1].Data.CandidateID = "tampered"
	snapshot[1].Hash = "tampered"

	// Mutating the snapshot must not reach the ledger.
	assert.True(t, chain.Validate())
	assert.Equal(t, "c1", chain.Snapshot()[1].Data.CandidateID)
}
