package database

import (
	"errors"
	"fmt"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/balance"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
)

// ValidateChain checks the full chain from genesis. Checks run in passes over
// the whole chain: genesis, linkage, digests, proof of work, merkle roots and
// finally a replay of every transaction. The first failure is returned and
// wraps exactly one of the chain error kinds. A nil error means the chain is
// valid.
func ValidateChain(gen genesis.Genesis, chain []Block, evHandler func(v string, args ...any)) error {
	_, _, err := validateChain(gen, chain, evHandler)
	return err
}

// ValidateBlock checks the block can be appended after the previous block.
// Transactions are checked when the block is applied to a balance sheet.
func ValidateBlock(gen genesis.Genesis, previousBlock Block, block Block) error {
	if err := checkLinkage(previousBlock, block); err != nil {
		return err
	}

	if err := checkDigest(block); err != nil {
		return err
	}

	if err := checkPOW(gen, block); err != nil {
		return err
	}

	return checkMerkleRoot(block)
}

// Replay applies every transaction in the chain, starting from an empty
// balance sheet, and returns the resulting balances.
func Replay(gen genesis.Genesis, chain []Block) (*balance.Sheet, error) {
	sheet, _, err := replay(gen, chain)
	return sheet, err
}

// =============================================================================

func validateChain(gen genesis.Genesis, chain []Block, evHandler func(v string, args ...any)) (*balance.Sheet, map[string]uint64, error) {
	ev := evHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: ValidateChain: check: genesis block matches: blocks[%d]", len(chain))

	genBlock, err := GenesisBlock(gen)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGenesisMismatch, err)
	}

	if len(chain) == 0 {
		return nil, nil, fmt.Errorf("%w: chain is empty", ErrGenesisMismatch)
	}

	if !chain[0].Equal(genBlock) {
		return nil, nil, fmt.Errorf("%w: got %s, exp %s", ErrGenesisMismatch, chain[0].Digest, genBlock.Digest)
	}

	ev("database: ValidateChain: check: previous digest linkage")

	for i := 1; i < len(chain); i++ {
		if err := checkLinkage(chain[i-1], chain[i]); err != nil {
			return nil, nil, err
		}
	}

	ev("database: ValidateChain: check: block digests")

	for _, block := range chain[1:] {
		if err := checkDigest(block); err != nil {
			return nil, nil, err
		}
	}

	ev("database: ValidateChain: check: proof of work")

	for _, block := range chain[1:] {
		if err := checkPOW(gen, block); err != nil {
			return nil, nil, err
		}
	}

	ev("database: ValidateChain: check: merkle roots")

	for _, block := range chain[1:] {
		if err := checkMerkleRoot(block); err != nil {
			return nil, nil, err
		}
	}

	ev("database: ValidateChain: check: replay balances")

	return replay(gen, chain)
}

func replay(gen genesis.Genesis, chain []Block) (*balance.Sheet, map[string]uint64, error) {
	sheet := balance.NewSheet(string(SystemAccountID), nil)
	confirmed := make(map[string]uint64)

	for _, block := range chain {
		if err := applyBlock(gen, sheet, confirmed, block); err != nil {
			return nil, nil, err
		}
	}

	return sheet, confirmed, nil
}

// applyBlock applies the block's transactions in order to the sheet and
// records the markers as confirmed. The sheet is left partially applied on
// failure so callers must pass a copy they can discard.
func applyBlock(gen genesis.Genesis, sheet *balance.Sheet, confirmed map[string]uint64, block Block) error {
	fresh := make(map[string]struct{})

	for i, tx := range block.Trans {
		if err := tx.Validate(); err != nil {
			if errors.Is(err, ErrInvalidAmount) {
				return fmt.Errorf("blk[%d]: tx[%d]: %w", block.Index, i, err)
			}
			return fmt.Errorf("%w: blk[%d]: tx[%d]: %v", ErrUnverifiedTransaction, block.Index, i, err)
		}

		if !tx.Verify() {
			return fmt.Errorf("%w: blk[%d]: tx[%d]", ErrUnverifiedTransaction, block.Index, i)
		}

		if block.Index > 0 {
			last := i == len(block.Trans)-1

			switch {
			case tx.IsSystem() && !last:
				return fmt.Errorf("%w: blk[%d]: system transaction at position %d", ErrInvalidReward, block.Index, i)
			case !tx.IsSystem() && last:
				return fmt.Errorf("%w: blk[%d]: last transaction is not a reward", ErrInvalidReward, block.Index)
			case last && tx.Amount != gen.MiningReward:
				return fmt.Errorf("%w: blk[%d]: got %d, exp %d", ErrInvalidReward, block.Index, tx.Amount, gen.MiningReward)
			}
		}

		if !tx.IsSystem() {
			id := tx.ID()
			_, known := confirmed[id]
			_, repeated := fresh[id]
			if known || repeated {
				return fmt.Errorf("%w: blk[%d]: tx[%d]", ErrDuplicateTransaction, block.Index, i)
			}
			fresh[id] = struct{}{}
		}

		if err := sheet.Apply(string(tx.FromID.Canonical()), string(tx.ToID.Canonical()), tx.Amount, tx.Fee); err != nil {
			return fmt.Errorf("%w: blk[%d]: tx[%d]: %v", ErrNegativeBalanceReplay, block.Index, i, err)
		}
	}

	if block.Index > 0 && len(block.Trans) == 0 {
		return fmt.Errorf("%w: blk[%d]: missing reward transaction", ErrInvalidReward, block.Index)
	}

	for id := range fresh {
		confirmed[id] = block.Index
	}

	return nil
}

func checkLinkage(previousBlock Block, block Block) error {
	if block.Index != previousBlock.Index+1 {
		return fmt.Errorf("%w: blk[%d] follows blk[%d]", ErrChainLinkageBroken, block.Index, previousBlock.Index)
	}

	if block.PreviousDigest != previousBlock.Digest {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrChainLinkageBroken, block.Index, block.PreviousDigest, previousBlock.Digest)
	}

	return nil
}

func checkDigest(block Block) error {
	if hash := block.Hash(); hash != block.Digest {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrDigestMismatch, block.Index, block.Digest, hash)
	}

	return nil
}

func checkPOW(gen genesis.Genesis, block Block) error {
	if block.Difficulty < gen.MinDifficulty {
		return fmt.Errorf("%w: blk[%d]: difficulty %d is below the min of %d", ErrProofOfWorkUnsatisfied, block.Index, block.Difficulty, gen.MinDifficulty)
	}

	if !isHashSolved(block.Difficulty, block.Digest) {
		return fmt.Errorf("%w: blk[%d]: %s at difficulty %d", ErrProofOfWorkUnsatisfied, block.Index, block.Digest, block.Difficulty)
	}

	return nil
}

func checkMerkleRoot(block Block) error {
	tree, err := block.Tree()
	if err != nil {
		return fmt.Errorf("%w: blk[%d]: %v", ErrMerkleRootMismatch, block.Index, err)
	}

	if root := tree.RootHex(); root != block.MerkleRoot {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrMerkleRootMismatch, block.Index, block.MerkleRoot, root)
	}

	return nil
}
