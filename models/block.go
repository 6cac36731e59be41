package models

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// GenesisSentinel marks the payload of the chain's first block. A block
// carrying it is never counted as a cast vote.
const GenesisSentinel = "GENESIS"

// GenesisPrevHash is the previousHash value of the genesis block.
const GenesisPrevHash = "0"

// maxMineAttempts bounds the nonce search. At difficulty 2 mining finishes
// within a few hundred attempts; the cap exists so a misconfigured
// difficulty fails fast instead of spinning forever.
const maxMineAttempts = 1 << 24

var ErrMiningExhausted = errors.New("mining attempt limit exceeded")

// BlockData is the payload carried by a block: the genesis sentinel or a
// single anonymized vote. VoterID holds a one-way digest, never a raw
// identity.
type BlockData struct {
	VoterID     string `json:"voterId"`
	CandidateID string `json:"candidateId"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// GenesisData returns the sentinel payload seeding a fresh chain.
func GenesisData() BlockData {
	return BlockData{VoterID: GenesisSentinel, CandidateID: GenesisSentinel}
}

// IsGenesis reports whether the payload is the genesis sentinel.
func (d BlockData) IsGenesis() bool {
	return d.VoterID == GenesisSentinel && d.CandidateID == GenesisSentinel
}

// Block is one immutable ledger entry. Timestamps are milliseconds since
// epoch; hashes are lowercase hex Keccak-256 digests.
type Block struct {
	Index      uint64    `json:"index"`
	Timestamp  int64     `json:"timestamp"`
	Data       BlockData `json:"data"`
	PrevHash   string    `json:"previousHash"`
	Hash       string    `json:"hash"`
	Nonce      uint64    `json:"nonce"`
	Difficulty uint8     `json:"-"`
}

// NewBlock constructs and mines a block. Timestamp and index are fixed at
// entry, so every candidate hash of the search shares them. The block is not
// appended anywhere; that is the caller's job.
func NewBlock(index uint64, data BlockData, prevHash string, difficulty uint8) (*Block, error) {
	block := &Block{
		Index:      index,
		Timestamp:  time.Now().UnixMilli(),
		Data:       data,
		PrevHash:   prevHash,
		Difficulty: difficulty,
	}

	if err := block.Mine(); err != nil {
		return nil, err
	}
	return block, nil
}

// Mine searches nonce values from 0 until the block hash carries the
// required number of leading zero hex characters.
func (b *Block) Mine() error {
	target := strings.Repeat("0", int(b.Difficulty))

	for nonce := uint64(0); nonce < maxMineAttempts; nonce++ {
		b.Nonce = nonce
		b.Hash = b.calculateHash()

		if strings.HasPrefix(b.Hash, target) {
			return nil
		}
	}

	return ErrMiningExhausted
}

// calculateHash derives the block digest over (index, previousHash,
// timestamp, payload, nonce). The payload is marshaled from a struct with a
// fixed field order, so the encoding is canonical.
func (b *Block) calculateHash() string {
	payload, err := json.Marshal(b.Data)
	if err != nil {
		log.Printf("Warning: failed to marshal block payload for hashing: %v", err)
		return ""
	}

	record := fmt.Sprintf("%d%s%d%s%d", b.Index, b.PrevHash, b.Timestamp, payload, b.Nonce)
	return hex.EncodeToString(crypto.Keccak256([]byte(record)))
}

// Validate recomputes the block hash from its stored fields and compares it
// with the stored value.
func (b *Block) Validate() bool {
	return b.calculateHash() == b.Hash
}

// HasValidProof additionally checks the proof-of-work predicate against the
// given difficulty. Chain validation does not call this; it exists for
// audits and tests.
func (b *Block) HasValidProof(difficulty uint8) bool {
	return b.Validate() && strings.HasPrefix(b.Hash, strings.Repeat("0", int(difficulty)))
}

// ValidateChain walks every consecutive pair checking hash linkage, index
// continuity and hash reproducibility. It returns false on the first
// mismatch and never mutates the chain, so it is safe to call concurrently
// with reads.
func ValidateChain(blocks []*Block) bool {
	for i := 1; i < len(blocks); i++ {
		currentBlock := blocks[i]
		previousBlock := blocks[i-1]

		if currentBlock.PrevHash != previousBlock.Hash {
			log.Printf("Invalid chain: hash link broken at block %d", i)
			return false
		}

		if currentBlock.Index != previousBlock.Index+1 {
			log.Printf("Invalid chain: index discontinuity at block %d", i)
			return false
		}

		if !currentBlock.Validate() {
			log.Printf("Invalid chain: hash mismatch at block %d", i)
			return false
		}
	}
	return true
}
