// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/business/sys/validate"
	"github.com/adeputraprimasuhendri/blockchain/business/web/errs"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/peer"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
	"github.com/adeputraprimasuhendri/blockchain/foundation/events"
	"github.com/adeputraprimasuhendri/blockchain/foundation/nameservice"
	"github.com/adeputraprimasuhendri/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new wallet transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitTx
	if err := web.Decode(r, &req); err != nil {
		return badRequest(err)
	}
	signedTx := req.toSignedTx()

	h.Log.Infow("add wallet tran", "traceid", v.TraceID, "sender", signedTx.FromID, "recipient", signedTx.ToID, "amount", signedTx.Amount, "fee", signedTx.Fee)
	if err := h.State.SubmitWalletTransaction(signedTx); err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Marker  string `json:"marker"`
		Pending int    `json:"pending"`
	}{
		Status:  "transaction added to mempool",
		ID:      signedTx.ID(),
		Marker:  signedTx.Marker,
		Pending: h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of pending transactions in arrival order. When an
// account is provided only its transactions are returned.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := database.AccountID(web.Param(r, "account"))
	if acct != "" && !acct.IsAccountID() {
		return errs.NewTrusted(errors.New("account is not properly formatted"), http.StatusBadRequest)
	}

	trans := []tx{}
	for _, tran := range h.State.RetrieveMempool() {
		if acct != "" && tran.FromID.Canonical() != acct.Canonical() && tran.ToID.Canonical() != acct.Canonical() {
			continue
		}
		trans = append(trans, toTx(h.NS, tran))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Mine mines the pending transactions into a new block. The request may
// name the account receiving the reward, the node's beneficiary is used
// otherwise.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if r.ContentLength != 0 {
		if err := web.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
			return badRequest(err)
		}
	}

	beneficiary := h.State.RetrieveBeneficiary()
	if req.Beneficiary != "" {
		beneficiary = database.AccountID(req.Beneficiary)
	}
	if beneficiary == "" {
		return errs.NewTrusted(errors.New("no beneficiary configured for the reward"), http.StatusBadRequest)
	}

	block, err := h.State.MineNewBlock(ctx, beneficiary)
	if err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		Status string         `json:"status"`
		Block  database.Block `json:"block"`
		Length uint64         `json:"length"`
	}{
		Status: "block mined",
		Block:  block,
		Length: block.Index + 1,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AutoMine turns the automatic mining of pending transactions on or off.
func (h Handlers) AutoMine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req autoMineRequest
	if err := web.Decode(r, &req); err != nil {
		return badRequest(err)
	}

	if req.Difficulty != nil {
		if err := h.State.SetDifficulty(*req.Difficulty); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	h.State.SetAutoMining(req.Enabled)

	resp := struct {
		AutoMining bool `json:"auto_mining"`
		Difficulty uint `json:"difficulty"`
	}{
		AutoMining: h.State.IsAutoMining(),
		Difficulty: h.State.RetrieveDifficulty(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Chain returns a snapshot of the full chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.Snapshot()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, chain{Length: uint64(len(blocks)), Blocks: blocks}, http.StatusOK)
}

// Balance returns the confirmed balance for the account.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := balance{
		AccountID: accountID,
		Name:      h.NS.Lookup(accountID),
		Balance:   h.State.QueryBalance(accountID),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Portfolio returns the balance and confirmed history for the account.
func (h Handlers) Portfolio(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	pf, err := h.State.QueryPortfolio(accountID)
	if err != nil {
		return err
	}

	resp := portfolio{
		AccountID: pf.AccountID,
		Name:      h.NS.Lookup(pf.AccountID),
		Balance:   pf.Balance,
		Sent:      pf.Sent,
		Received:  pf.Received,
		History:   make([]record, len(pf.History)),
	}
	for i, rec := range pf.History {
		resp.History[i] = record{
			BlockIndex:  rec.BlockIndex,
			BlockDigest: rec.BlockDigest,
			Tx:          toTx(h.NS, rec.Tx),
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Proof returns the merkle proof for a confirmed transaction.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	proof, err := h.State.QueryProof(web.Param(r, "id"))
	if err != nil {
		if errors.Is(err, state.ErrTxNotConfirmed) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryStatus(), http.StatusOK)
}

// RegisterPeers adds the provided hosts to the known peers.
func (h Handlers) RegisterPeers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := web.Decode(r, &req); err != nil {
		return badRequest(err)
	}

	for _, host := range req.Nodes {
		if h.State.AddKnownPeer(peer.New(host)) {
			h.Log.Infow("register peer", "traceid", web.GetTraceID(ctx), "host", host)
		}
	}

	resp := struct {
		Status string      `json:"status"`
		Peers  []peer.Peer `json:"peers"`
	}{
		Status: "peers registered",
		Peers:  h.State.RetrieveKnownPeers(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ResolvePeers runs a chain resolution against the known peers.
func (h Handlers) ResolvePeers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	replaced, err := h.State.NetResolvePeers()
	if err != nil {
		return errs.FromLedger(err)
	}

	latest := h.State.RetrieveLatestBlock()
	resp := resolved{
		Replaced:     replaced,
		Length:       latest.Index + 1,
		LatestDigest: latest.Digest,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// badRequest keeps field errors intact for the error middleware and marks
// anything else as a bad request.
func badRequest(err error) error {
	if validate.IsFieldErrors(err) {
		return err
	}
	return errs.NewTrusted(err, http.StatusBadRequest)
}
