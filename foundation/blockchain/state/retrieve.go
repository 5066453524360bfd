package state

import (
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveBeneficiary returns the account receiving this node's mining rewards.
func (s *State) RetrieveBeneficiary() database.AccountID {
	return s.beneficiaryID
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveDifficulty returns the difficulty used for the next mined block.
func (s *State) RetrieveDifficulty() uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.difficulty
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []database.SignedTx {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrievePeerStatus returns the status this node reports to its peers.
func (s *State) RetrievePeerStatus() peer.PeerStatus {
	s.mu.Lock()
	latest := s.db.LatestBlock()
	length := s.db.Length()
	s.mu.Unlock()

	return peer.PeerStatus{
		LatestDigest: latest.Digest,
		LatestIndex:  latest.Index,
		Length:       length,
		KnownPeers:   s.RetrieveKnownPeers(),
	}
}

// Snapshot returns a point in time copy of the full chain.
func (s *State) Snapshot() ([]database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Blocks()
}
