package database

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Tx is the transactional information between two parties. The field order
// is the wire and hashing order.
type Tx struct {
	FromID    AccountID `json:"sender"`    // Account sending the amount, recovered from the marker.
	ToID      AccountID `json:"recipient"` // Account receiving the amount.
	Amount    int64     `json:"amount"`    // Value moved from sender to recipient.
	Fee       int64     `json:"fee"`       // Value the sender burns for inclusion.
	TimeStamp int64     `json:"timestamp"` // Unix milliseconds the transaction was created.
}

// NewTx constructs a new transaction stamped with the current time.
func NewTx(fromID AccountID, toID AccountID, amount int64, fee int64) (Tx, error) {
	tx := Tx{
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		Fee:       fee,
		TimeStamp: time.Now().UTC().UnixMilli(),
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// Validate checks the amounts and accounts of the transaction.
func (tx Tx) Validate() error {
	if tx.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidAmount, tx.Amount)
	}

	if tx.Fee < 0 {
		return fmt.Errorf("%w: fee can't be negative, got %d", ErrInvalidAmount, tx.Fee)
	}

	if tx.Amount > math.MaxInt64-tx.Fee {
		return fmt.Errorf("%w: amount plus fee overflows", ErrInvalidAmount)
	}

	if !tx.FromID.IsAccountID() {
		return fmt.Errorf("sender account %q is not properly formatted", tx.FromID)
	}

	if !tx.ToID.IsAccountID() {
		return fmt.Errorf("recipient account %q is not properly formatted", tx.ToID)
	}

	if tx.FromID.Canonical() == tx.ToID.Canonical() {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, tx.FromID)
	}

	return nil
}

// Sign uses the specified private key to sign the transaction. The key must
// belong to the sender account.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if err := tx.Validate(); err != nil {
		return SignedTx{}, err
	}

	if PublicKeyToAccountID(privateKey.PublicKey) != tx.FromID.Canonical() {
		return SignedTx{}, fmt.Errorf("private key does not belong to sender %s", tx.FromID)
	}

	// Sign the transaction with the private key to produce the marker.
	marker, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:     tx,
		Marker: marker,
	}

	return signedTx, nil
}

// NewSystemTx constructs a transaction from the system account. These pay
// out genesis seed balances and mining rewards. The marker is the hash of the
// transaction since there is no key for the system account.
func NewSystemTx(toID AccountID, amount int64, timeStamp int64) SignedTx {
	tx := Tx{
		FromID:    SystemAccountID,
		ToID:      toID,
		Amount:    amount,
		Fee:       0,
		TimeStamp: timeStamp,
	}

	return SignedTx{
		Tx:     tx,
		Marker: signature.Hash(tx),
	}
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	Marker string `json:"marker"` // Hex encoded [R|S|V] signature over the transaction fields.
}

// ID identifies the transaction by its fields with the accounts in canonical
// form. Two markers over the same fields share an ID, so a confirmed transfer
// can't be included again under a different marker.
func (tx SignedTx) ID() string {
	t := tx.Tx
	t.FromID = t.FromID.Canonical()
	t.ToID = t.ToID.Canonical()

	return signature.Hash(t)
}

// IsSystem reports whether the transaction was issued by the system account.
func (tx SignedTx) IsSystem() bool {
	return tx.FromID.IsSystem()
}

// Verify reports whether the marker was produced by the sender over these
// exact fields. It never fails loudly; any malformed marker is simply false.
func (tx SignedTx) Verify() bool {
	if tx.IsSystem() {
		return tx.Fee == 0 && tx.Marker == signature.Hash(tx.Tx)
	}

	if err := signature.VerifySignature(tx.Marker); err != nil {
		return false
	}

	address, err := signature.FromAddress(tx.Tx, tx.Marker)
	if err != nil {
		return false
	}

	return strings.EqualFold(address, string(tx.FromID))
}

// Hash implements the merkle Hashable interface for providing a hash
// of a signed transaction.
func (tx SignedTx) Hash() ([]byte, error) {
	return hexutil.Decode(signature.Hash(tx))
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two signed transactions.
func (tx SignedTx) Equals(otherTx SignedTx) bool {
	return tx == otherTx
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s->%s:%d:%d", tx.FromID, tx.ToID, tx.Amount, tx.Fee)
}
