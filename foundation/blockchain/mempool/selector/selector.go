// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO = "fifo"
	StrategyFee  = "fee"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO: fifoSelect,
	StrategyFee:  feeSelect,
}

// Func defines a function that takes the pending transactions in the order
// they arrived and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST keep the arrival order of the
// transactions from a single sender. Receiving -1 for howMany must return all
// the transactions in the strategies ordering.
type Func func(transactions []database.SignedTx, howMany int) []database.SignedTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byFee provides sorting support by the transaction fee value.
type byFee []database.SignedTx

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in descending order to pick the
// transactions that burn the most.
func (bf byFee) Less(i, j int) bool {
	return bf[i].Fee > bf[j].Fee
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
