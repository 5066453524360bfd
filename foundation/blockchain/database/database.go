// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory database of account
// balances derived from the confirmed blocks.
package database

import (
	"fmt"
	"sync"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/balance"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(block Block) error
	GetBlock(num uint64) (Block, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// Database manages the confirmed chain and the balances it produces.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	latestBlock Block
	length      uint64
	balances    *balance.Sheet
	confirmed   map[string]uint64

	storage   Storage
	evHandler func(v string, args ...any)
}

// New constructs a new database from the blocks held in storage. Empty
// storage is seeded with the genesis block. The stored chain must validate.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	ev := evHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	db := Database{
		genesis:   gen,
		storage:   storage,
		evHandler: ev,
	}

	blocks, err := readAll(storage)
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		genBlock, err := GenesisBlock(gen)
		if err != nil {
			return nil, err
		}

		if err := storage.Write(genBlock); err != nil {
			return nil, err
		}

		blocks = []Block{genBlock}
	}

	sheet, confirmed, err := validateChain(gen, blocks, ev)
	if err != nil {
		return nil, fmt.Errorf("stored chain: %w", err)
	}

	db.balances = sheet
	db.confirmed = confirmed
	db.latestBlock = blocks[len(blocks)-1]
	db.length = uint64(len(blocks))

	return &db, nil
}

// Close closes the open blocks database.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Genesis returns the genesis information the chain is built on.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock.Clone()
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.length
}

// Balance returns the confirmed balance for the account.
func (db *Database) Balance(accountID AccountID) int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.balances.Balance(string(accountID.Canonical()))
}

// CopyBalances makes a copy of the current balance sheet.
func (db *Database) CopyBalances() *balance.Sheet {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.balances.Clone()
}

// IsConfirmed reports whether a transaction with the ID is in the chain
// and the index of the block holding it.
func (db *Database) IsConfirmed(id string) (uint64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	index, exists := db.confirmed[id]
	return index, exists
}

// Append validates the block against the latest block and adds it to the
// chain. Nothing changes if the block is rejected.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.evHandler("database: Append: validate: blk[%d]: digest[%s]", block.Index, block.Digest)

	if err := ValidateBlock(db.genesis, db.latestBlock, block); err != nil {
		return err
	}

	sheet := db.balances.Clone()
	if err := applyBlock(db.genesis, sheet, db.confirmedFor(block), block); err != nil {
		return err
	}

	if err := db.storage.Write(block.Clone()); err != nil {
		return err
	}

	for _, tx := range block.Trans {
		if !tx.IsSystem() {
			db.confirmed[tx.ID()] = block.Index
		}
	}
	db.balances = sheet
	db.latestBlock = block.Clone()
	db.length++

	return nil
}

// Replace validates the full chain and, if valid, swaps it in for the
// current chain. The current chain is kept when the new chain is rejected.
func (db *Database) Replace(chain []Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.evHandler("database: Replace: validate: blocks[%d]", len(chain))

	sheet, confirmed, err := validateChain(db.genesis, chain, db.evHandler)
	if err != nil {
		return err
	}

	if err := db.storage.Reset(); err != nil {
		return err
	}

	for _, block := range chain {
		if err := db.storage.Write(block.Clone()); err != nil {
			return fmt.Errorf("storage left inconsistent writing blk[%d]: %w", block.Index, err)
		}
	}

	db.balances = sheet
	db.confirmed = confirmed
	db.latestBlock = chain[len(chain)-1].Clone()
	db.length = uint64(len(chain))

	return nil
}

// Blocks returns a copy of every block in the chain in order.
func (db *Database) Blocks() ([]Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return readAll(db.storage)
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (db *Database) ForEach() Iterator {
	return db.storage.ForEach()
}

// GetBlock searches the blockchain to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	return db.storage.GetBlock(num)
}

// =============================================================================

// confirmedFor returns the confirmed markers a new block must be checked
// against for duplicates.
func (db *Database) confirmedFor(block Block) map[string]uint64 {
	known := make(map[string]uint64)
	for _, tx := range block.Trans {
		if index, exists := db.confirmed[tx.ID()]; exists {
			known[tx.ID()] = index
		}
	}

	return known
}

// readAll reads every block held in storage.
func readAll(storage Storage) ([]Block, error) {
	var blocks []Block

	iter := storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block.Clone())
	}

	return blocks, nil
}

// ApplyTransaction checks the transaction and applies it to the sheet. This
// is used to build a candidate batch where each transaction is checked
// against the effect of the ones accepted before it.
func ApplyTransaction(sheet *balance.Sheet, tx SignedTx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if !tx.Verify() {
		return ErrUnverifiedTransaction
	}

	return sheet.Apply(string(tx.FromID.Canonical()), string(tx.ToID.Canonical()), tx.Amount, tx.Fee)
}
