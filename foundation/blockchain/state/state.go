// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/mempool"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, chain resolution and
// transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalResolve()
	SignalShareTx(tx database.SignedTx)
	SignalShareBlock(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID  database.AccountID
	Host           string
	Storage        database.Storage
	Genesis        genesis.Genesis
	SelectStrategy string
	KnownPeers     *peer.PeerSet
	EvHandler      EventHandler
}

// State manages the blockchain database. A single mutex guards the chain,
// the balances and the mempool whenever a result is committed.
type State struct {
	mu        sync.Mutex
	resolveMu sync.Mutex

	beneficiaryID database.AccountID
	host          string
	evHandler     EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	difficulty uint
	mempool    *mempool.Mempool
	db         *database.Database
	autoMining atomic.Bool

	// generation changes every time the tip is replaced by anything other
	// than a locally mined block. Mining results from an older generation
	// are discarded.
	generation uint64
	miningID   uint64
	mining     map[uint64]context.CancelFunc

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage not provided")
	}

	beneficiaryID := cfg.BeneficiaryID
	if beneficiaryID != "" {
		if !beneficiaryID.IsAccountID() {
			return nil, errors.New("beneficiary account is not properly formatted")
		}
		beneficiaryID = beneficiaryID.Canonical()
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	selectStrategy := cfg.SelectStrategy
	if selectStrategy == "" {
		selectStrategy = "fifo"
	}

	// Access the storage for the blockchain. The stored chain is
	// validated and the balances are built from it.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified select strategy.
	mempool, err := mempool.NewWithStrategy(selectStrategy)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		beneficiaryID: beneficiaryID,
		host:          cfg.Host,
		evHandler:     ev,

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		difficulty: cfg.Genesis.Difficulty,
		mempool:    mempool,
		db:         db,
		mining:     make(map[uint64]context.CancelFunc),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node. Until then all
	// signals are dropped.
	state.Worker = nopWorker{}

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// CancelMining stops every mining operation in flight. Their results will
// not be added to the chain.
func (s *State) CancelMining() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelMining()
}

// SetAutoMining turns the automatic mining of pending transactions on or off.
func (s *State) SetAutoMining(on bool) {
	s.autoMining.Store(on)
	if on {
		s.Worker.SignalStartMining()
	}
}

// IsAutoMining reports whether pending transactions are mined automatically.
func (s *State) IsAutoMining() bool {
	return s.autoMining.Load()
}

// SetDifficulty changes the difficulty used for the next mined block. Blocks
// already in the chain keep the difficulty they were mined with.
func (s *State) SetDifficulty(difficulty uint) error {
	if difficulty < s.genesis.MinDifficulty || difficulty > genesis.MaxDifficulty {
		return fmt.Errorf("difficulty must be between %d and %d, got %d", s.genesis.MinDifficulty, genesis.MaxDifficulty, difficulty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.difficulty = difficulty
	return nil
}

// =============================================================================

// registerMining keeps the cancel function for a mining operation so a
// chain replacement can stop it. The caller must hold the lock.
func (s *State) registerMining(cancel context.CancelFunc) uint64 {
	s.miningID++
	s.mining[s.miningID] = cancel
	return s.miningID
}

// unregisterMining forgets a finished mining operation.
func (s *State) unregisterMining(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mining, id)
}

// cancelMining cancels every registered mining operation. The caller must
// hold the lock.
func (s *State) cancelMining() {
	for id, cancel := range s.mining {
		cancel()
		delete(s.mining, id)
	}
}

// =============================================================================

// nopWorker is used until a real worker registers itself.
type nopWorker struct{}

func (nopWorker) Shutdown()                       {}
func (nopWorker) Sync()                           {}
func (nopWorker) SignalStartMining()              {}
func (nopWorker) SignalResolve()                  {}
func (nopWorker) SignalShareTx(database.SignedTx) {}
func (nopWorker) SignalShareBlock(database.Block) {}
