// Package worker implements mining, peer updates, chain resolution and
// transaction sharing for the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
)

// maxShareRequests represents the max number of pending network share
// requests that can be outstanding before share requests are dropped.
const maxShareRequests = 100

// Config represents the intervals the background operations run on. A zero
// interval turns the operation off.
type Config struct {
	PeerInterval     time.Duration
	SyncInterval     time.Duration
	AutoMineInterval time.Duration
}

// DefaultConfig returns the intervals used when none are configured.
func DefaultConfig() Config {
	return Config{
		PeerInterval:     time.Minute,
		SyncInterval:     30 * time.Second,
		AutoMineInterval: 10 * time.Second,
	}
}

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state     *state.State
	cfg       Config
	wg        sync.WaitGroup
	shut      chan struct{}
	shutOnce  sync.Once
	tickers   []*time.Ticker
	evHandler state.EventHandler

	peerTick <-chan time.Time
	syncTick <-chan time.Time
	mineTick <-chan time.Time

	startMining  chan bool
	resolve      chan bool
	txSharing    chan database.SignedTx
	blockSharing chan database.Block
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		state:        st,
		cfg:          cfg,
		shut:         make(chan struct{}),
		evHandler:    evHandler,
		startMining:  make(chan bool, 1),
		resolve:      make(chan bool, 1),
		txSharing:    make(chan database.SignedTx, maxShareRequests),
		blockSharing: make(chan database.Block, maxShareRequests),
	}

	w.peerTick = w.newTicker(cfg.PeerInterval)
	w.syncTick = w.newTicker(cfg.SyncInterval)
	w.mineTick = w.newTicker(cfg.AutoMineInterval)

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
		w.syncOperations,
		w.shareOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work. Any mining in flight
// is cancelled.
func (w *Worker) Shutdown() {
	w.shutOnce.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		w.evHandler("worker: shutdown: stop tickers")
		for _, t := range w.tickers {
			t.Stop()
		}

		w.evHandler("worker: shutdown: cancel mining")
		w.state.CancelMining()

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.wg.Wait()
	})
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
		w.evHandler("worker: SignalStartMining: mining signaled")
	default:
	}
}

// SignalResolve requests a chain resolution against the known peers.
func (w *Worker) SignalResolve() {
	select {
	case w.resolve <- true:
		w.evHandler("worker: SignalResolve: resolve signaled")
	default:
	}
}

// SignalShareTx signals a share transaction operation. If maxShareRequests
// signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.SignedTx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// SignalShareBlock signals a share block operation for a block this node
// mined.
func (w *Worker) SignalShareBlock(block database.Block) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share block signaled")
	default:
		w.evHandler("worker: SignalShareBlock: queue full, block won't be shared.")
	}
}

// =============================================================================

// newTicker constructs a ticker the shutdown will stop. A nil channel is
// returned for a zero interval so the operation never fires.
func (w *Worker) newTicker(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return nil
	}

	t := time.NewTicker(d)
	w.tickers = append(w.tickers, t)
	return t.C
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
