package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/balance"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
)

// ErrMiningCancelled is returned when a mining operation was stopped or its
// result was discarded because the chain moved on. This is a normal outcome
// of losing a race with a peer.
var ErrMiningCancelled = errors.New("mining cancelled")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The reward is paid to the beneficiary. Blocks
// with no pending transactions are legal and carry only the reward.
func (s *State) MineNewBlock(ctx context.Context, beneficiaryID database.AccountID) (database.Block, error) {
	if !beneficiaryID.IsAccountID() {
		return database.Block{}, fmt.Errorf("beneficiary account %q is not properly formatted", beneficiaryID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.evHandler("state: MineNewBlock: MINING: snapshot state")

	// Capture everything the search depends on in one critical section.
	s.mu.Lock()
	prevBlock := s.db.LatestBlock()
	generation := s.generation
	difficulty := s.difficulty
	sheet := s.db.CopyBalances()
	candidates := s.mempool.PickBest(s.transPerBlock())
	id := s.registerMining(cancel)
	s.mu.Unlock()

	defer s.unregisterMining(id)

	// Each candidate is checked against the balances produced by the ones
	// accepted before it.
	trans := s.selectTransactions(sheet, candidates)

	timeStamp := time.Now().UTC().UnixMilli()
	trans = append(trans, database.NewSystemTx(beneficiaryID.Canonical(), s.genesis.MiningReward, timeStamp))

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]: difficulty[%d]", len(trans), difficulty)

	// Attempt to create a new block by solving the POW puzzle. This can be
	// cancelled and runs without holding the lock.
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock:  prevBlock,
		Difficulty: difficulty,
		Trans:      trans,
		TimeStamp:  timeStamp,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		if ctx.Err() != nil {
			return database.Block{}, fmt.Errorf("%w: %w", ErrMiningCancelled, err)
		}
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if err := s.commitMinedBlock(ctx, generation, prevBlock, block); err != nil {
		return database.Block{}, err
	}

	// Propose the new block to the network.
	s.Worker.SignalShareBlock(block)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. A block that does
// not extend the local tip signals a chain resolution with the peers.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PreviousDigest, block.Digest, len(block.Trans))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Digest)

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.db.LatestBlock()
	if err := s.db.Append(block); err != nil {
		if errors.Is(err, database.ErrChainLinkageBroken) && block.Index > latest.Index {
			s.evHandler("state: ProcessProposedBlock: peer is ahead: localBlk[%d]: peerBlk[%d]: signal resolve", latest.Index, block.Index)
			s.Worker.SignalResolve()
		}
		return err
	}

	// Any local mining is now working on a stale tip.
	s.generation++
	s.cancelMining()
	s.removeConfirmed(block)
	s.blockEvent(block)

	return nil
}

// =============================================================================

// commitMinedBlock adds the mined block to the chain unless the chain has
// moved on since the search started.
func (s *State) commitMinedBlock(ctx context.Context, generation uint64, prevBlock database.Block, block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrMiningCancelled, ctx.Err())
	case s.generation != generation:
		return fmt.Errorf("%w: chain replaced during mining", ErrMiningCancelled)
	case s.db.LatestBlock().Digest != prevBlock.Digest:
		return fmt.Errorf("%w: tip moved during mining", ErrMiningCancelled)
	}

	if err := s.db.Append(block); err != nil {
		return err
	}

	s.removeConfirmed(block)
	s.blockEvent(block)

	return nil
}

// selectTransactions returns the candidates that verify and that the sender
// can pay for in sequence. A candidate that fails only because of an earlier
// candidate in the batch stays pending. One the confirmed state can't cover
// on its own is removed, it could never be mined.
func (s *State) selectTransactions(sheet *balance.Sheet, candidates []database.SignedTx) []database.SignedTx {
	trans := make([]database.SignedTx, 0, len(candidates)+1)

	for _, tx := range candidates {
		if _, confirmed := s.db.IsConfirmed(tx.ID()); confirmed {
			s.evHandler("state: selectTransactions: tx[%s]: already confirmed, removing", tx)
			s.mempool.Delete(tx)
			continue
		}

		if err := database.ApplyTransaction(sheet, tx); err != nil {
			if s.unpayable(tx, err) {
				s.evHandler("state: selectTransactions: tx[%s]: removing: %s", tx, err)
				s.mempool.Delete(tx)
				continue
			}

			s.evHandler("state: selectTransactions: tx[%s]: skipped: %s", tx, err)
			continue
		}

		trans = append(trans, tx)
	}

	return trans
}

// removeConfirmed takes the block's transactions out of the mempool. The
// caller must hold the lock.
func (s *State) removeConfirmed(block database.Block) {
	for _, tx := range block.Trans {
		s.mempool.Delete(tx)
	}
}

// transPerBlock returns how many transactions to pick for a block.
func (s *State) transPerBlock() int {
	if s.genesis.TransPerBlock == 0 {
		return -1
	}

	// Leave room for the reward.
	return int(s.genesis.TransPerBlock) - 1
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"digest":%q,"block":%s}`, block.Digest, string(blockJSON))
}

// unpayable reports whether the candidate fails against the confirmed state
// alone, regardless of what else is in the batch.
func (s *State) unpayable(tx database.SignedTx, err error) bool {
	if !errors.Is(err, database.ErrInsufficientBalance) {
		return true
	}

	return s.db.Balance(tx.FromID) < tx.Amount+tx.Fee
}
