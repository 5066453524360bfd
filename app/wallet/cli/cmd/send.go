package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount int64
	fee    int64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the amount.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.Flags().Int64VarP(&fee, "fee", "f", 0, "Fee paid for the transfer.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	toID, err := database.ToAccountID(to)
	if err != nil {
		log.Fatal(err)
	}

	tx, err := database.NewTx(database.PublicKeyToAccountID(privateKey.PublicKey), toID, amount, fee)
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Marker  string `json:"marker"`
		Pending int    `json:"pending"`
	}
	if err := decodeResponse(resp, &status); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: id[%s] marker[%s] pending[%d]\n", status.Status, status.ID, status.Marker, status.Pending)
}
