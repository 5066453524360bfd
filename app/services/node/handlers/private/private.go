// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/adeputraprimasuhendri/blockchain/business/sys/validate"
	"github.com/adeputraprimasuhendri/blockchain/business/web/errs"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/peer"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
	"github.com/adeputraprimasuhendri/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// SubmitPeer is called by a node so they can be added to the known peer list.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var pr peerRequest
	if err := web.Decode(r, &pr); err != nil {
		return badRequest(err)
	}

	if h.State.AddKnownPeer(peer.New(pr.Host)) {
		h.Log.Infow("adding peer", "traceid", web.GetTraceID(ctx), "host", pr.Host)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// SubmitNodeTransaction adds a transaction shared by a node to the mempool.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.SignedTx
	if err := web.Decode(r, &tx); err != nil {
		return badRequest(err)
	}

	h.Log.Infow("add node tran", "traceid", web.GetTraceID(ctx), "tx", tx)
	if err := h.State.UpsertNodeTransaction(tx); err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return badRequest(err)
	}

	// A block that doesn't extend the tip is rejected, the state schedules
	// a chain resolution when the peer is ahead.
	if err := h.State.ProcessProposedBlock(block); err != nil {
		return errs.NewTrusted(err, http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrievePeerStatus(), http.StatusOK)
}

// Chain returns the full chain so a peer can run a chain resolution.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.Snapshot()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// =============================================================================

type peerRequest struct {
	Host string `json:"host" validate:"required,hostname_port"`
}

// Validate checks the data in the model is considered clean.
func (pr peerRequest) Validate() error {
	return validate.Check(pr)
}

func badRequest(err error) error {
	if validate.IsFieldErrors(err) {
		return err
	}
	return errs.NewTrusted(err, http.StatusBadRequest)
}
