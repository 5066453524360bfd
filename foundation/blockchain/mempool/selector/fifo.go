package selector

import "github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"

// fifoSelect returns the transactions in the order they arrived.
var fifoSelect = func(transactions []database.SignedTx, howMany int) []database.SignedTx {
	if howMany < 0 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	final := make([]database.SignedTx, howMany)
	copy(final, transactions[:howMany])

	return final
}
