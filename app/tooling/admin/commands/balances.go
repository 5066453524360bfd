package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
)

// Balances replays the node's chain and prints the resulting balances. When
// an account is provided only its balance is printed.
func Balances(node Node, gen genesis.Genesis, account string) error {
	blocks, err := node.Chain()
	if err != nil {
		return err
	}

	if len(blocks) == 0 {
		return errors.New("node returned an empty chain")
	}

	sheet, err := database.Replay(gen, blocks)
	if err != nil {
		return err
	}

	fmt.Printf("LatestDigest: %s\n\n", blocks[len(blocks)-1].Digest)

	if account != "" {
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return err
		}
		fmt.Printf("Account: %s  Balance: %d\n", accountID, sheet.Balance(string(accountID)))
		return nil
	}

	balances := sheet.Copy()

	accounts := make([]string, 0, len(balances))
	for account := range balances {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	for _, account := range accounts {
		fmt.Printf("Account: %s  Balance: %d\n", account, balances[account])
	}

	return nil
}
