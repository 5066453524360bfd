// Package balance maintains account balances in memory.
package balance

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientBalance is returned when applying a transfer would drive the
// sending account below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Sheet represents the data representation to maintain address balances.
// A single exempt address may spend without holding a balance. It is used to
// seed funds and pay mining rewards.
type Sheet struct {
	mu     sync.RWMutex
	exempt string
	sheet  map[string]int64
}

// NewSheet constructs a new balance sheet for use. The exempt address is
// never checked for a sufficient balance and never tracked.
func NewSheet(exempt string, sheet map[string]int64) *Sheet {
	bs := Sheet{
		exempt: exempt,
		sheet:  make(map[string]int64),
	}

	if sheet != nil {
		bs.Reset(sheet)
	}

	return &bs
}

// Exempt returns the address that is exempt from balance checks.
func (bs *Sheet) Exempt() string {
	return bs.exempt
}

// Reset takes the specified sheet and resets the balances.
func (bs *Sheet) Reset(sheet map[string]int64) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.sheet = make(map[string]int64)
	for address, value := range sheet {
		bs.sheet[address] = value
	}
}

// Replace updates the balance sheet for a new version.
func (bs *Sheet) Replace(newBS *Sheet) {
	values := newBS.Copy()

	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.exempt = newBS.exempt
	bs.sheet = values
}

// Clone makes a copy of the current balance sheet.
func (bs *Sheet) Clone() *Sheet {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	balanceSheet := NewSheet(bs.exempt, nil)
	for address, value := range bs.sheet {
		balanceSheet.sheet[address] = value
	}
	return balanceSheet
}

// Copy makes a copy of the current balance sheet but returns the raw data.
func (bs *Sheet) Copy() map[string]int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	sheet := make(map[string]int64, len(bs.sheet))
	for address, value := range bs.sheet {
		sheet[address] = value
	}
	return sheet
}

// Balance returns the confirmed balance for the address. Unknown addresses
// hold a zero balance.
func (bs *Sheet) Balance(address string) int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.sheet[address]
}

// Apply moves the amount from one address to the other and burns the fee.
// Nothing is changed if the sender can't cover both the amount and the fee.
func (bs *Sheet) Apply(from string, to string, amount int64, fee int64) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if from != bs.exempt {
		if bs.sheet[from] < amount+fee {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, bs.sheet[from], amount+fee)
		}
		bs.sheet[from] -= amount + fee
	}

	if to != bs.exempt {
		bs.sheet[to] += amount
	}

	return nil
}
