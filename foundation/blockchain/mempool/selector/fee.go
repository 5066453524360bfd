package selector

import (
	"sort"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
)

// feeSelect returns transactions with the best fee while respecting the
// arrival order for each sender.
var feeSelect = func(transactions []database.SignedTx, howMany int) []database.SignedTx {
	if howMany < 0 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	/*
		Bill: {To: Jill, Fee: 150, arrived 1}, {To: Ed, Fee: 250, arrived 4}
		Pavl: {To: Jill, Fee: 75, arrived 2},  {To: Ed, Fee: 200, arrived 5}
		Edua: {To: Bill, Fee: 100, arrived 3}
	*/

	// Group the transactions by sender keeping the arrival order of senders
	// and of each sender's transactions.
	var senders []database.AccountID
	m := make(map[database.AccountID][]database.SignedTx)
	for _, tx := range transactions {
		from := tx.FromID.Canonical()
		if _, exists := m[from]; !exists {
			senders = append(senders, from)
		}
		m[from] = append(m[from], tx)
	}

	// Pick the first transaction for each sender. Each iteration represents
	// a new row of selections. Keep doing that until all the transactions
	// have been selected.
	var rows [][]database.SignedTx
	for {
		var row []database.SignedTx
		for _, from := range senders {
			if len(m[from]) > 0 {
				row = append(row, m[from][0])
				m[from] = m[from][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: Bill: {Fee: 150}, Pavl: {Fee: 75}, Edua: {Fee: 100}
		1: Bill: {Fee: 250}, Pavl: {Fee: 200}
	*/

	// Sort each row by fee and pull transactions from each row until the
	// amount is fulfilled or there are no more transactions.
	final := []database.SignedTx{}
done:
	for _, row := range rows {
		sort.Stable(byFee(row))

		need := howMany - len(final)
		if len(row) >= need {
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	/*
		0: Bill: {Fee: 150}
		1: Edua: {Fee: 100}
		2: Pavl: {Fee: 75}
		3: Bill: {Fee: 250}
	*/

	return final
}
