package worker

import (
	"context"
	"errors"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
)

// miningOperations handles mining. A mining operation runs when it is
// signaled, and on every tick while auto mining is on and transactions
// are pending.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() && w.state.IsAutoMining() {
				w.runMiningOperation()
			}
		case <-w.mineTick:
			if !w.isShutdown() && w.state.IsAutoMining() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes the pending transactions from the mempool and
// mines them into a new block.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Make sure there are transactions in the mempool.
	length := w.state.QueryMempoolLength()
	if length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// The state cancels this context when the chain is replaced. The
	// shutdown cancels it through the state as well.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.state.MineNewBlock(ctx, w.state.RetrieveBeneficiary())
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrMiningCancelled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: %s", err)
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: blk[%d]: digest[%s]", block.Index, block.Digest)

	// Mine again right away only when this block made progress on the
	// mempool. Anything still pending waits for the next tick otherwise.
	if len(block.Trans) < 2 {
		return
	}

	if length := w.state.QueryMempoolLength(); length > 0 && w.state.IsAutoMining() {
		w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
		w.SignalStartMining()
	}
}
