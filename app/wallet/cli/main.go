// This program is a wallet for the ledger. It manages the key files and
// talks to a node's public API.
package main

import "github.com/adeputraprimasuhendri/blockchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
