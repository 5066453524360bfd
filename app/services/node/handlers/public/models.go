package public

import (
	"github.com/adeputraprimasuhendri/blockchain/business/sys/validate"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/nameservice"
)

// submitTx is a signed transaction sent by a wallet.
type submitTx struct {
	FromID    string `json:"sender" validate:"required,account"`
	ToID      string `json:"recipient" validate:"required,account"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Fee       int64  `json:"fee" validate:"gte=0"`
	TimeStamp int64  `json:"timestamp" validate:"gt=0"`
	Marker    string `json:"marker" validate:"required,startswith=0x"`
}

// Validate checks the data in the model is considered clean.
func (st submitTx) Validate() error {
	return validate.Check(st)
}

func (st submitTx) toSignedTx() database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			FromID:    database.AccountID(st.FromID),
			ToID:      database.AccountID(st.ToID),
			Amount:    st.Amount,
			Fee:       st.Fee,
			TimeStamp: st.TimeStamp,
		},
		Marker: st.Marker,
	}
}

// mineRequest optionally names the account that gets the reward.
type mineRequest struct {
	Beneficiary string `json:"beneficiary" validate:"omitempty,account"`
}

// Validate checks the data in the model is considered clean.
func (mr mineRequest) Validate() error {
	return validate.Check(mr)
}

// autoMineRequest turns auto mining on or off. The difficulty is changed
// when it is provided.
type autoMineRequest struct {
	Enabled    bool  `json:"enabled"`
	Difficulty *uint `json:"difficulty,omitempty" validate:"omitempty,lte=64"`
}

// Validate checks the data in the model is considered clean.
func (ar autoMineRequest) Validate() error {
	return validate.Check(ar)
}

// registerRequest names the peers to add.
type registerRequest struct {
	Nodes []string `json:"nodes" validate:"required,min=1,dive,hostname_port"`
}

// Validate checks the data in the model is considered clean.
func (rr registerRequest) Validate() error {
	return validate.Check(rr)
}

// =============================================================================

type tx struct {
	ID        string             `json:"id"`
	FromID    database.AccountID `json:"sender"`
	FromName  string             `json:"sender_name"`
	ToID      database.AccountID `json:"recipient"`
	ToName    string             `json:"recipient_name"`
	Amount    int64              `json:"amount"`
	Fee       int64              `json:"fee"`
	TimeStamp int64              `json:"timestamp"`
	Marker    string             `json:"marker"`
}

func toTx(ns *nameservice.NameService, t database.SignedTx) tx {
	return tx{
		ID:        t.ID(),
		FromID:    t.FromID,
		FromName:  ns.Lookup(t.FromID),
		ToID:      t.ToID,
		ToName:    ns.Lookup(t.ToID),
		Amount:    t.Amount,
		Fee:       t.Fee,
		TimeStamp: t.TimeStamp,
		Marker:    t.Marker,
	}
}

type balance struct {
	AccountID database.AccountID `json:"account"`
	Name      string             `json:"name"`
	Balance   int64              `json:"balance"`
}

type record struct {
	BlockIndex  uint64 `json:"block_index"`
	BlockDigest string `json:"block_digest"`
	Tx          tx     `json:"tx"`
}

type portfolio struct {
	AccountID database.AccountID `json:"account"`
	Name      string             `json:"name"`
	Balance   int64              `json:"balance"`
	Sent      int                `json:"sent"`
	Received  int                `json:"received"`
	History   []record           `json:"history"`
}

type chain struct {
	Length uint64           `json:"length"`
	Blocks []database.Block `json:"blocks"`
}

type resolved struct {
	Replaced     bool   `json:"replaced"`
	Length       uint64 `json:"length"`
	LatestDigest string `json:"latest_digest"`
}
