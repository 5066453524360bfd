package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestLookup(t *testing.T) {
	t.Log("Given a folder of account key files.")
	{
		dir := t.TempDir()

		pk, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a private key: %v", failed, err)
		}
		if err := crypto.SaveECDSA(filepath.Join(dir, "kennedy.ecdsa"), pk); err != nil {
			t.Fatalf("\t%s\tShould be able to save the private key: %v", failed, err)
		}
		accountID := database.PublicKeyToAccountID(pk.PublicKey)

		ns, err := nameservice.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the name service: %v", failed, err)
		}

		if got := ns.Lookup(accountID); got != "kennedy" {
			t.Fatalf("\t%s\tShould find the name for the account: got %q", failed, got)
		}
		t.Logf("\t%s\tShould find the name for the account.", success)

		unknown := database.AccountID("0x1111111111111111111111111111111111111111")
		if got := ns.Lookup(unknown); got != string(unknown) {
			t.Fatalf("\t%s\tShould return an unknown account as is: got %q", failed, got)
		}
		t.Logf("\t%s\tShould return an unknown account as is.", success)

		if got := len(ns.Copy()); got != 1 {
			t.Fatalf("\t%s\tShould hold one account: got %d", failed, got)
		}
		t.Logf("\t%s\tShould hold one account.", success)
	}
}
