package state

import (
	"fmt"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
)

// SubmitWalletTransaction accepts a transaction from a wallet for inclusion.
// The transaction is shared with the known peers once it is accepted.
func (s *State) SubmitWalletTransaction(tx database.SignedTx) error {
	if err := s.admitTransaction(tx); err != nil {
		return err
	}

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}

// UpsertNodeTransaction accepts a transaction from a node for inclusion.
func (s *State) UpsertNodeTransaction(tx database.SignedTx) error {
	if err := s.admitTransaction(tx); err != nil {
		return err
	}

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// admitTransaction validates the transaction against the confirmed state and
// places it at the back of the mempool.
func (s *State) admitTransaction(tx database.SignedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateTransaction(tx); err != nil {
		s.evHandler("state: admitTransaction: rejected: tx[%s]: %s", tx, err)
		return err
	}

	n, err := s.mempool.Insert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: admitTransaction: accepted: tx[%s]: pending[%d]", tx, n)
	s.evHandler(`viewer: tx: {"marker":%q,"sender":%q,"recipient":%q,"amount":%d,"fee":%d}`, tx.Marker, tx.FromID, tx.ToID, tx.Amount, tx.Fee)

	return nil
}

// validateTransaction takes the signed transaction and validates it has
// a proper marker, sane amounts and is covered by the sender's confirmed
// balance. The caller must hold the lock.
func (s *State) validateTransaction(tx database.SignedTx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if tx.IsSystem() {
		return fmt.Errorf("%w: system transactions can't be submitted", database.ErrUnverifiedTransaction)
	}

	if !tx.Verify() {
		return database.ErrUnverifiedTransaction
	}

	if index, confirmed := s.db.IsConfirmed(tx.ID()); confirmed {
		return fmt.Errorf("%w: confirmed in blk[%d]", database.ErrDuplicateTransaction, index)
	}

	if balance := s.db.Balance(tx.FromID); balance < tx.Amount+tx.Fee {
		return fmt.Errorf("%w: %s has %d, needs %d", database.ErrInsufficientBalance, tx.FromID, balance, tx.Amount+tx.Fee)
	}

	return nil
}
