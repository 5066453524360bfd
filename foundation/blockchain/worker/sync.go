package worker

import (
	"errors"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
)

// syncOperations runs a chain resolution on every tick and whenever one
// is signaled.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.syncTick:
			if !w.isShutdown() {
				w.runResolveOperation()
			}
		case <-w.resolve:
			if !w.isShutdown() {
				w.runResolveOperation()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// Sync updates the peer list, the mempool and the chain from the known peers.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		// Retrieve the mempool from the peer. Transactions this node can't
		// accept are skipped.
		pool, err := w.state.NetRequestPeerMempool(pr)
		if err != nil {
			w.evHandler("worker: sync: retrievePeerMempool: %s: ERROR: %s", pr.Host, err)
		}
		for _, tx := range pool {
			if err := w.state.UpsertNodeTransaction(tx); err != nil {
				w.evHandler("worker: sync: retrievePeerMempool: %s: skip tx: %s", pr.Host, err)
			}
		}
	}

	w.runResolveOperation()
}

// runResolveOperation lets the state adopt the longest valid chain held by
// the known peers.
func (w *Worker) runResolveOperation() {
	w.evHandler("worker: runResolveOperation: started")
	defer w.evHandler("worker: runResolveOperation: completed")

	replaced, err := w.state.NetResolvePeers()
	switch {
	case errors.Is(err, state.ErrResolveInProgress):
		w.evHandler("worker: runResolveOperation: skipped: %s", err)
	case err != nil:
		w.evHandler("worker: runResolveOperation: ERROR: %s", err)
	case replaced:
		w.evHandler("worker: runResolveOperation: chain replaced: blocks[%d]", w.state.RetrieveLatestBlock().Index+1)
	}
}
