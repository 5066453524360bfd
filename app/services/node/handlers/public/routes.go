package public

import (
	"net/http"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
	"github.com/adeputraprimasuhendri/blockchain/foundation/events"
	"github.com/adeputraprimasuhendri/blockchain/foundation/nameservice"
	"github.com/adeputraprimasuhendri/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// Routes binds all the public routes.
func Routes(app *web.App, cfg Config) {
	pbl := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/balance/:account", pbl.Balance)
	app.Handle(http.MethodGet, version, "/portfolio/:account", pbl.Portfolio)
	app.Handle(http.MethodGet, version, "/tx/pending", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/pending/:account", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/proof/:id", pbl.Proof)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)
	app.Handle(http.MethodPost, version, "/mining/mine", pbl.Mine)
	app.Handle(http.MethodPost, version, "/mining/auto", pbl.AutoMine)
	app.Handle(http.MethodPost, version, "/peers/register", pbl.RegisterPeers)
	app.Handle(http.MethodGet, version, "/peers/resolve", pbl.ResolvePeers)
}
