package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type balance struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance [account]",
	Short: "Print the confirmed balance of your wallet or the provided account.",
	Args:  cobra.MaximumNArgs(1),
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	var accountID database.AccountID

	switch len(args) {
	case 1:
		var err error
		if accountID, err = database.ToAccountID(args[0]); err != nil {
			log.Fatal(err)
		}

	default:
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}
		accountID = database.PublicKeyToAccountID(privateKey.PublicKey)
	}

	fmt.Println("For Account:", accountID)

	resp, err := http.Get(fmt.Sprintf("%s/v1/balance/%s", url, accountID))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var bal balance
	if err := decodeResponse(resp, &bal); err != nil {
		log.Fatal(err)
	}

	fmt.Println(bal.Balance)
}
