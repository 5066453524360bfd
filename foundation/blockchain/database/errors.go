package database

import (
	"errors"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/balance"
)

// Set of errors returned when a transaction is rejected.
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrSelfTransfer          = errors.New("sender and recipient are the same account")
	ErrUnverifiedTransaction = errors.New("transaction marker failed verification")
	ErrInsufficientBalance   = balance.ErrInsufficientBalance
	ErrDuplicateTransaction  = errors.New("transaction already known")
)

// Set of errors returned when a chain or block fails validation.
var (
	ErrGenesisMismatch        = errors.New("genesis block does not match")
	ErrChainLinkageBroken     = errors.New("chain linkage broken")
	ErrDigestMismatch         = errors.New("digest mismatch")
	ErrProofOfWorkUnsatisfied = errors.New("proof of work unsatisfied")
	ErrMerkleRootMismatch     = errors.New("merkle root mismatch")
	ErrNegativeBalanceReplay  = errors.New("negative balance on replay")
	ErrInvalidReward          = errors.New("invalid reward transaction")
)
