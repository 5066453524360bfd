// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/mempool/selector"
)

// entry is a pending transaction and the order it arrived in.
type entry struct {
	seq uint64
	tx  database.SignedTx
}

// Mempool represents a cache of pending transactions keyed by their ID.
// The arrival order is kept so transactions are offered first in, first out.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[string]entry
	seq      uint64
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Exists reports whether a transaction with the ID is pending.
func (mp *Mempool) Exists(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Insert adds a transaction to the back of the pool. A transaction that is
// already pending is rejected.
func (mp *Mempool) Insert(tx database.SignedTx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID()]; exists {
		return len(mp.pool), fmt.Errorf("%w: %s", database.ErrDuplicateTransaction, tx)
	}

	mp.seq++
	mp.pool[tx.ID()] = entry{seq: mp.seq, tx: tx}

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]entry)
}

// Copy returns the pending transactions in the order they arrived.
func (mp *Mempool) Copy() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.ordered()
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. A value of -1 returns them all.
func (mp *Mempool) PickBest(howMany int) []database.SignedTx {
	mp.mu.RLock()
	txs := mp.ordered()
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}

// =============================================================================

// ordered returns the transactions by arrival. The caller must hold a lock.
func (mp *Mempool) ordered() []database.SignedTx {
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	txs := make([]database.SignedTx, len(entries))
	for i, e := range entries {
		txs[i] = e.tx
	}

	return txs
}
