package state

import (
	"errors"
	"fmt"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/merkle"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// ErrTxNotConfirmed is returned when a proof is requested for a transaction
// that isn't in the chain.
var ErrTxNotConfirmed = errors.New("transaction not confirmed")

// =============================================================================

// Status represents the state of the node.
type Status struct {
	Length       uint64 `json:"length"`
	LatestIndex  uint64 `json:"latest_index"`
	LatestDigest string `json:"latest_digest"`
	Pending      int    `json:"pending"`
	Difficulty   uint   `json:"difficulty"`
	MiningReward int64  `json:"mining_reward"`
	Peers        int    `json:"peers"`
	AutoMining   bool   `json:"auto_mining"`
}

// TxRecord is a confirmed transaction and the block holding it.
type TxRecord struct {
	BlockIndex  uint64            `json:"block_index"`
	BlockDigest string            `json:"block_digest"`
	Tx          database.SignedTx `json:"tx"`
}

// Portfolio represents the confirmed activity for an account.
type Portfolio struct {
	AccountID database.AccountID `json:"account"`
	Balance   int64              `json:"balance"`
	Sent      int                `json:"sent"`
	Received  int                `json:"received"`
	History   []TxRecord         `json:"history"`
}

// TxProof shows a confirmed transaction is part of its block's merkle root.
// Folding the leaf with each hash, first when the order is 0 and second when
// it is 1, produces the root.
type TxProof struct {
	BlockIndex  uint64            `json:"block_index"`
	BlockDigest string            `json:"block_digest"`
	MerkleRoot  string            `json:"merkle_root"`
	Tx          database.SignedTx `json:"tx"`
	Leaf        string            `json:"leaf"`
	Hashes      []string          `json:"hashes"`
	Order       []int64           `json:"order"`
}

// =============================================================================

// QueryStatus returns the current status of the node.
func (s *State) QueryStatus() Status {
	s.mu.Lock()
	latest := s.db.LatestBlock()
	length := s.db.Length()
	difficulty := s.difficulty
	s.mu.Unlock()

	return Status{
		Length:       length,
		LatestIndex:  latest.Index,
		LatestDigest: latest.Digest,
		Pending:      s.mempool.Count(),
		Difficulty:   difficulty,
		MiningReward: s.genesis.MiningReward,
		Peers:        len(s.RetrieveKnownPeers()),
		AutoMining:   s.IsAutoMining(),
	}
}

// QueryBalance returns the confirmed balance for the account. Pending
// transactions never affect it.
func (s *State) QueryBalance(accountID database.AccountID) int64 {
	return s.db.Balance(accountID)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.db.LatestBlock().Index

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: getblock: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}

// QueryBlocksByAccount returns the set of blocks by account. If the account
// is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(accountID database.AccountID) ([]database.Block, error) {
	var out []database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if accountID == "" {
			out = append(out, block)
			continue
		}

		for _, tx := range block.Trans {
			if involves(tx, accountID) {
				out = append(out, block)
				break
			}
		}
	}

	return out, nil
}

// QueryPortfolio returns the balance and the confirmed transaction history
// for the account.
func (s *State) QueryPortfolio(accountID database.AccountID) (Portfolio, error) {
	accountID = accountID.Canonical()

	pf := Portfolio{
		AccountID: accountID,
		Balance:   s.db.Balance(accountID),
		History:   []TxRecord{},
	}

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return Portfolio{}, err
		}

		for _, tx := range block.Trans {
			if !involves(tx, accountID) {
				continue
			}

			if tx.FromID.Canonical() == accountID {
				pf.Sent++
			}
			if tx.ToID.Canonical() == accountID {
				pf.Received++
			}

			pf.History = append(pf.History, TxRecord{
				BlockIndex:  block.Index,
				BlockDigest: block.Digest,
				Tx:          tx,
			})
		}
	}

	return pf, nil
}

// =============================================================================

// involves reports whether the account sent or received the transaction.
func involves(tx database.SignedTx, accountID database.AccountID) bool {
	accountID = accountID.Canonical()
	return tx.FromID.Canonical() == accountID || tx.ToID.Canonical() == accountID
}

// QueryProof returns the merkle proof for the confirmed transaction with
// the ID.
func (s *State) QueryProof(id string) (TxProof, error) {
	index, confirmed := s.db.IsConfirmed(id)
	if !confirmed {
		return TxProof{}, fmt.Errorf("%w: %s", ErrTxNotConfirmed, id)
	}

	block, err := s.db.GetBlock(index)
	if err != nil {
		return TxProof{}, err
	}

	var tx database.SignedTx
	var found bool
	for _, tran := range block.Trans {
		if tran.ID() == id {
			tx, found = tran, true
			break
		}
	}
	if !found {
		return TxProof{}, fmt.Errorf("%w: %s: missing from blk[%d]", ErrTxNotConfirmed, id, index)
	}

	tree, err := merkle.NewTree(block.Trans)
	if err != nil {
		return TxProof{}, err
	}

	if err := tree.VerifyData(tx); err != nil {
		return TxProof{}, fmt.Errorf("blk[%d]: %w", index, err)
	}

	hashes, order, err := tree.Proof(tx)
	if err != nil {
		return TxProof{}, err
	}

	leaf, err := tx.Hash()
	if err != nil {
		return TxProof{}, err
	}

	proof := TxProof{
		BlockIndex:  block.Index,
		BlockDigest: block.Digest,
		MerkleRoot:  tree.RootHex(),
		Tx:          tx,
		Leaf:        hexutil.Encode(leaf),
		Hashes:      make([]string, len(hashes)),
		Order:       order,
	}
	for i, h := range hashes {
		proof.Hashes[i] = hexutil.Encode(h)
	}

	return proof, nil
}
