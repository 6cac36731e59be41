// Package ledger owns the append-only block sequence and its hash linkage.
// It knows nothing about HTTP, voters or candidates.
package ledger

import (
	"fmt"
	"log"
	"sync"

	"campusvote/models"
)

// DefaultDifficulty is the number of leading zero hex characters a block
// hash must carry. The proof-of-work is illustrative, not a security
// mechanism.
const DefaultDifficulty = 2

// ChainIntegrityError reports an append precondition violation. It signals a
// programming or concurrency bug, not a user error, and is never silently
// swallowed.
type ChainIntegrityError struct {
	Reason   string
	Index    uint64
	Expected string
	Actual   string
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity violation at block %d: %s (expected %q, got %q)",
		e.Index, e.Reason, e.Expected, e.Actual)
}

// Ledger is the single-writer, in-memory chain. Process restart resets it to
// a fresh genesis block.
type Ledger struct {
	chain      []*models.Block
	difficulty uint8
	mutex      sync.RWMutex
}

// New creates a ledger holding exactly one mined genesis block with the
// sentinel payload and previousHash "0". Construct one instance per process;
// there is no hidden package-level chain.
func New(difficulty uint8) (*Ledger, error) {
	genesis, err := models.NewBlock(0, models.GenesisData(), models.GenesisPrevHash, difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to mine genesis block: %w", err)
	}

	return &Ledger{
		chain:      []*models.Block{genesis},
		difficulty: difficulty,
	}, nil
}

// MineBlock constructs a block for the current chain tail without appending
// it. Index and previous hash are captured once, at entry.
func (l *Ledger) MineBlock(data models.BlockData) (*models.Block, error) {
	l.mutex.RLock()
	index := uint64(len(l.chain))
	prevHash := l.chain[len(l.chain)-1].Hash
	l.mutex.RUnlock()

	return models.NewBlock(index, data, prevHash, l.difficulty)
}

// Append adds a mined block to the chain tail. The block must continue the
// chain exactly; a mismatch returns a ChainIntegrityError and leaves the
// chain untouched.
func (l *Ledger) Append(block *models.Block) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	tail := l.chain[len(l.chain)-1]

	if block.Index != uint64(len(l.chain)) {
		return &ChainIntegrityError{
			Reason:   "index does not continue the chain",
			Index:    block.Index,
			Expected: fmt.Sprintf("%d", len(l.chain)),
			Actual:   fmt.Sprintf("%d", block.Index),
		}
	}

	if block.PrevHash != tail.Hash {
		return &ChainIntegrityError{
			Reason:   "previous hash does not match the chain tail",
			Index:    block.Index,
			Expected: tail.Hash,
			Actual:   block.PrevHash,
		}
	}

	l.chain = append(l.chain, block)
	return nil
}

// Snapshot returns a copy of the chain safe to hand to readers. Blocks are
// copied by value so callers cannot mutate ledger state.
func (l *Ledger) Snapshot() []*models.Block {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	blocks := make([]*models.Block, len(l.chain))
	for i, block := range l.chain {
		copied := *block
		blocks[i] = &copied
	}
	return blocks
}

// Validate checks hash linkage and hash reproducibility over the whole
// chain. It holds only a read lock and has no side effects.
func (l *Ledger) Validate() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	valid := models.ValidateChain(l.chain)
	if !valid {
		log.Printf("Ledger validation failed at height %d", len(l.chain))
	}
	return valid
}

// Height returns the number of blocks including genesis.
func (l *Ledger) Height() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.chain)
}

// LastHash returns the hash of the chain tail.
func (l *Ledger) LastHash() string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.chain[len(l.chain)-1].Hash
}

// Difficulty returns the proof-of-work difficulty every block was mined at.
func (l *Ledger) Difficulty() uint8 {
	return l.difficulty
}
