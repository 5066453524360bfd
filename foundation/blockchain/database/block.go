package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/merkle"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/signature"
)

// BlockHeader represents the fields that are hashed to produce the digest of
// a block. The field order is the hashing order.
type BlockHeader struct {
	Index          uint64 `json:"index"`           // Position of the block in the chain.
	TimeStamp      int64  `json:"timestamp"`       // Unix milliseconds the block was mined.
	MerkleRoot     string `json:"merkle_root"`     // Root of the merkle tree over the transactions.
	PreviousDigest string `json:"previous_digest"` // Digest of the block before this one.
	Nonce          uint64 `json:"nonce"`           // Value identified to solve the proof of work.
}

// Block represents a group of transactions batched together. This is what
// is stored and sent over the network.
type Block struct {
	Index          uint64     `json:"index"`
	TimeStamp      int64      `json:"timestamp"`
	Trans          []SignedTx `json:"transactions"`
	MerkleRoot     string     `json:"merkle_root"`
	PreviousDigest string     `json:"previous_digest"`
	Nonce          uint64     `json:"nonce"`
	Difficulty     uint       `json:"difficulty"` // Number of leading zero hex digits the digest must carry.
	Digest         string     `json:"digest"`
}

// Header returns the hashed portion of the block.
func (b Block) Header() BlockHeader {
	return BlockHeader{
		Index:          b.Index,
		TimeStamp:      b.TimeStamp,
		MerkleRoot:     b.MerkleRoot,
		PreviousDigest: b.PreviousDigest,
		Nonce:          b.Nonce,
	}
}

// Hash recomputes the digest for the block from its header.
func (b Block) Hash() string {
	return signature.Hash(b.Header())
}

// Tree builds the merkle tree for the block's transactions.
func (b Block) Tree() (*merkle.Tree[SignedTx], error) {
	return merkle.NewTree(b.Trans)
}

// Clone returns a copy of the block that shares no memory with the original.
func (b Block) Clone() Block {
	nb := b
	nb.Trans = make([]SignedTx, len(b.Trans))
	copy(nb.Trans, b.Trans)

	return nb
}

// Equal reports whether two blocks hold the same values.
func (b Block) Equal(other Block) bool {
	if b.Header() != other.Header() || b.Difficulty != other.Difficulty || b.Digest != other.Digest {
		return false
	}

	if len(b.Trans) != len(other.Trans) {
		return false
	}

	for i := range b.Trans {
		if b.Trans[i] != other.Trans[i] {
			return false
		}
	}

	return true
}

// =============================================================================

// GenesisBlock constructs the fixed first block of the chain. The seed
// balances are paid out by system transactions ordered by account.
func GenesisBlock(gen genesis.Genesis) (Block, error) {
	timeStamp := gen.Date.UTC().UnixMilli()

	accounts := make([]AccountID, 0, len(gen.Balances))
	amounts := make(map[AccountID]int64, len(gen.Balances))
	for accountStr, amount := range gen.Balances {
		if amount == 0 {
			continue
		}

		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return Block{}, fmt.Errorf("genesis balance %q: %w", accountStr, err)
		}

		if _, exists := amounts[accountID]; !exists {
			accounts = append(accounts, accountID)
		}
		amounts[accountID] += amount
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	trans := make([]SignedTx, 0, len(accounts))
	for _, accountID := range accounts {
		trans = append(trans, NewSystemTx(accountID, amounts[accountID], timeStamp))
	}

	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Index:          0,
		TimeStamp:      timeStamp,
		Trans:          trans,
		MerkleRoot:     tree.RootHex(),
		PreviousDigest: signature.ZeroHash,
		Nonce:          0,
		Difficulty:     0,
	}
	b.Digest = b.Hash()

	return b, nil
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock  Block
	Difficulty uint
	Trans      []SignedTx
	TimeStamp  int64 // Unix milliseconds, the current time is used when zero.
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The search only ends when a solution
// is found or the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	if args.Difficulty > genesis.MaxDifficulty {
		return Block{}, fmt.Errorf("difficulty %d is above the max of %d", args.Difficulty, genesis.MaxDifficulty)
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, err
	}

	timeStamp := args.TimeStamp
	if timeStamp == 0 {
		timeStamp = time.Now().UTC().UnixMilli()
	}

	nb := Block{
		Index:          args.PrevBlock.Index + 1,
		TimeStamp:      timeStamp,
		Trans:          tree.Values(),
		MerkleRoot:     tree.RootHex(),
		PreviousDigest: args.PrevBlock.Digest,
		Nonce:          0, // Will be identified by the POW algorithm.
		Difficulty:     args.Difficulty,
	}

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Index, b.Difficulty)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	for _, tx := range b.Trans {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// Loop until we find a solution or we are told to stop.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !isHashSolved(b.Difficulty, hash) {
			b.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PreviousDigest, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		b.Digest = hash
		return nil
	}
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's
// following the 0x prefix.
func isHashSolved(difficulty uint, hash string) bool {
	const hashLength = 2 + 2*32

	if len(hash) != hashLength || difficulty > genesis.MaxDifficulty {
		return false
	}

	for _, c := range hash[2 : 2+difficulty] {
		if c != '0' {
			return false
		}
	}

	return true
}
