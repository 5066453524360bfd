package state

import (
	"errors"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
)

// ErrResolveInProgress is returned when a chain resolution is requested while
// another one is still running. The request is skipped.
var ErrResolveInProgress = errors.New("chain resolution already in progress")

// PeerChain is a chain reported by a peer.
type PeerChain struct {
	PeerID string
	Blocks []database.Block
}

// =============================================================================

// ConsiderPeerChain runs a chain resolution against a single peer's chain.
func (s *State) ConsiderPeerChain(peerID string, blocks []database.Block) (bool, error) {
	return s.Resolve([]PeerChain{{PeerID: peerID, Blocks: blocks}})
}

// Resolve adopts the longest valid chain among the peer chains if it is
// strictly longer than the local chain. Invalid chains are ignored no matter
// their length and a tie keeps the local chain. It reports whether the local
// chain was replaced. Only one resolution runs at a time, overlapping calls
// are skipped with ErrResolveInProgress.
func (s *State) Resolve(chains []PeerChain) (bool, error) {
	if !s.resolveMu.TryLock() {
		s.evHandler("state: Resolve: skipped: resolution in progress")
		return false, ErrResolveInProgress
	}
	defer s.resolveMu.Unlock()

	s.evHandler("state: Resolve: started: chains[%d]", len(chains))
	defer s.evHandler("state: Resolve: completed")

	// Validation of the candidates runs without holding the lock so
	// submissions and mining are not blocked.
	bestLen := s.db.Length()
	var best *PeerChain

	for i := range chains {
		chain := chains[i]
		length := uint64(len(chain.Blocks))

		if length <= bestLen {
			s.evHandler("state: Resolve: peer[%s]: blocks[%d]: not longer than blocks[%d]", chain.PeerID, length, bestLen)
			continue
		}

		if err := database.ValidateChain(s.genesis, chain.Blocks, nil); err != nil {
			s.evHandler("state: Resolve: peer[%s]: blocks[%d]: invalid: %s", chain.PeerID, length, err)
			continue
		}

		s.evHandler("state: Resolve: peer[%s]: blocks[%d]: candidate", chain.PeerID, length)
		bestLen = length
		best = &chains[i]
	}

	if best == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The local chain may have grown while the candidates were validated.
	if uint64(len(best.Blocks)) <= s.db.Length() {
		s.evHandler("state: Resolve: peer[%s]: local chain caught up", best.PeerID)
		return false, nil
	}

	if err := s.db.Replace(best.Blocks); err != nil {
		return false, err
	}

	// Any local mining is now working on a replaced chain.
	s.generation++
	s.cancelMining()

	for _, tx := range s.mempool.Copy() {
		if _, confirmed := s.db.IsConfirmed(tx.ID()); confirmed {
			s.mempool.Delete(tx)
		}
	}

	latest := s.db.LatestBlock()
	s.evHandler("state: Resolve: peer[%s]: replaced local chain: blocks[%d]: tip[%s]", best.PeerID, len(best.Blocks), latest.Digest)
	s.blockEvent(latest)

	return true, nil
}
