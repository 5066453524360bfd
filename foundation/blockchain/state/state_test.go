package state_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database/memory"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const billKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

type account struct {
	pk *ecdsa.PrivateKey
	id database.AccountID
}

func newAccount(t *testing.T) account {
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a private key: %v", failed, err)
	}

	return account{pk: pk, id: database.PublicKeyToAccountID(pk.PublicKey)}
}

func billAccount(t *testing.T) account {
	pk, err := crypto.HexToECDSA(billKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %v", failed, err)
	}

	return account{pk: pk, id: database.PublicKeyToAccountID(pk.PublicKey)}
}

func testGenesis(balances map[string]int64) genesis.Genesis {
	return genesis.Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:    1,
		MinDifficulty: 1,
		MiningReward:  50,
		Balances:      balances,
	}
}

func newState(t *testing.T, gen genesis.Genesis, beneficiary database.AccountID, ev state.EventHandler) *state.State {
	storage, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct storage: %v", failed, err)
	}

	st, err := state.New(state.Config{
		BeneficiaryID: beneficiary,
		Host:          "localhost:9080",
		Storage:       storage,
		Genesis:       gen,
		EvHandler:     ev,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func signTx(t *testing.T, from account, to database.AccountID, amount int64, fee int64) database.SignedTx {
	tx, err := database.NewTx(from.id, to, amount, fee)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a transaction: %v", failed, err)
	}

	signedTx, err := tx.Sign(from.pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a transaction: %v", failed, err)
	}

	return signedTx
}

func mine(t *testing.T, st *state.State, beneficiary database.AccountID) database.Block {
	block, err := st.MineNewBlock(context.Background(), beneficiary)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
	}

	return block
}

func snapshot(t *testing.T, st *state.State) []database.Block {
	blocks, err := st.Snapshot()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to snapshot the chain: %v", failed, err)
	}

	return blocks
}

// =============================================================================

func Test_MineAndTransfer(t *testing.T) {
	t.Log("Given the need to mine rewards and spend them.")
	{
		miner, alice := newAccount(t), newAccount(t)
		gen := testGenesis(nil)
		st := newState(t, gen, miner.id, nil)
		reward := gen.MiningReward

		block := mine(t, st, miner.id)
		if len(block.Trans) != 1 || !block.Trans[0].IsSystem() {
			t.Fatalf("\t%s\tShould mine an empty block carrying only the reward: %d", failed, len(block.Trans))
		}
		t.Logf("\t%s\tShould mine an empty block carrying only the reward.", success)

		if got := st.QueryBalance(miner.id); got != reward {
			t.Fatalf("\t%s\tShould credit the reward to the miner: got %d, exp %d", failed, got, reward)
		}
		t.Logf("\t%s\tShould credit the reward to the miner.", success)

		tx := signTx(t, miner, alice.id, reward/2, 1)
		if err := st.SubmitWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the transfer: %v", failed, err)
		}

		if got := st.QueryMempoolLength(); got != 1 {
			t.Fatalf("\t%s\tShould have one pending transaction: got %d", failed, got)
		}
		t.Logf("\t%s\tShould have one pending transaction.", success)

		if got := st.QueryBalance(alice.id); got != 0 {
			t.Fatalf("\t%s\tShould not credit a pending transfer: got %d", failed, got)
		}
		t.Logf("\t%s\tShould not credit a pending transfer.", success)

		mine(t, st, miner.id)

		if got, exp := st.QueryBalance(miner.id), reward+reward-reward/2-1; got != exp {
			t.Fatalf("\t%s\tShould debit the miner the amount and fee: got %d, exp %d", failed, got, exp)
		}
		t.Logf("\t%s\tShould debit the miner the amount and fee.", success)

		if got := st.QueryBalance(alice.id); got != reward/2 {
			t.Fatalf("\t%s\tShould credit the recipient: got %d, exp %d", failed, got, reward/2)
		}
		t.Logf("\t%s\tShould credit the recipient.", success)

		if got := st.QueryMempoolLength(); got != 0 {
			t.Fatalf("\t%s\tShould empty the mempool: got %d", failed, got)
		}
		t.Logf("\t%s\tShould empty the mempool.", success)

		if err := st.SubmitWalletTransaction(tx); !errors.Is(err, database.ErrDuplicateTransaction) {
			t.Fatalf("\t%s\tShould reject a confirmed transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a confirmed transaction.", success)

		for _, marker := range []string{"0x" + strings.ToUpper(tx.Marker[2:]), "0X" + tx.Marker[2:]} {
			respelled := tx
			respelled.Marker = marker
			if err := st.SubmitWalletTransaction(respelled); !errors.Is(err, database.ErrUnverifiedTransaction) {
				t.Fatalf("\t%s\tShould reject a confirmed transaction with a respelled marker: %v", failed, err)
			}
		}
		if got := st.QueryMempoolLength(); got != 0 {
			t.Fatalf("\t%s\tShould keep a respelled marker out of the mempool: got %d", failed, got)
		}
		t.Logf("\t%s\tShould reject a confirmed transaction with a respelled marker.", success)

		pf, err := st.QueryPortfolio(alice.id)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to query the portfolio: %v", failed, err)
		}
		if pf.Balance != reward/2 || pf.Received != 1 || pf.Sent != 0 || len(pf.History) != 1 || pf.History[0].BlockIndex != 2 {
			t.Logf("got: %+v", pf)
			t.Fatalf("\t%s\tShould report the recipient's history.", failed)
		}
		t.Logf("\t%s\tShould report the recipient's history.", success)

		proof, err := st.QueryProof(tx.ID())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to get a merkle proof: %v", failed, err)
		}

		hash, err := hexutil.Decode(proof.Leaf)
		if err != nil {
			t.Fatalf("\t%s\tShould get back a hex leaf: %v", failed, err)
		}
		for i, p := range proof.Hashes {
			sibling, err := hexutil.Decode(p)
			if err != nil {
				t.Fatalf("\t%s\tShould get back hex proof hashes: %v", failed, err)
			}

			var sum [32]byte
			switch proof.Order[i] {
			case 0:
				sum = sha256.Sum256(append(sibling, hash...))
			default:
				sum = sha256.Sum256(append(hash, sibling...))
			}
			hash = sum[:]
		}

		if hexutil.Encode(hash) != proof.MerkleRoot || proof.MerkleRoot != snapshot(t, st)[2].MerkleRoot {
			t.Fatalf("\t%s\tShould prove the transfer is in its block's merkle root.", failed)
		}
		t.Logf("\t%s\tShould prove the transfer is in its block's merkle root.", success)

		if _, err := st.QueryProof(signTx(t, alice, miner.id, 1, 0).ID()); !errors.Is(err, state.ErrTxNotConfirmed) {
			t.Fatalf("\t%s\tShould not prove an unconfirmed transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould not prove an unconfirmed transaction.", success)
	}
}

func Test_InsufficientBalance(t *testing.T) {
	t.Log("Given the need to reject transfers the sender can't cover.")
	{
		miner, alice := newAccount(t), newAccount(t)
		st := newState(t, testGenesis(nil), miner.id, nil)

		err := st.SubmitWalletTransaction(signTx(t, alice, miner.id, 10, 1))
		if !errors.Is(err, database.ErrInsufficientBalance) {
			t.Fatalf("\t%s\tShould get an insufficient balance error: %v", failed, err)
		}
		t.Logf("\t%s\tShould get an insufficient balance error.", success)

		if got := st.QueryMempoolLength(); got != 0 {
			t.Fatalf("\t%s\tShould leave the mempool unchanged: got %d", failed, got)
		}
		t.Logf("\t%s\tShould leave the mempool unchanged.", success)
	}
}

func Test_RejectedSubmissions(t *testing.T) {
	bill, jill := billAccount(t), newAccount(t)
	gen := testGenesis(map[string]int64{string(bill.id): 1000})

	tampered := signTx(t, bill, jill.id, 10, 1)
	tampered.Amount = 11

	system := database.NewSystemTx(jill.id, 50, time.Now().UnixMilli())

	tt := []struct {
		name string
		tx   database.SignedTx
		err  error
	}{
		{name: "tampered", tx: tampered, err: database.ErrUnverifiedTransaction},
		{name: "system", tx: system, err: database.ErrUnverifiedTransaction},
		{name: "overspend", tx: signTx(t, bill, jill.id, 1000, 1), err: database.ErrInsufficientBalance},
	}

	t.Log("Given the need to reject transactions that can't be confirmed.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				st := newState(t, gen, jill.id, nil)

				if err := st.SubmitWalletTransaction(tst.tx); !errors.Is(err, tst.err) {
					t.Fatalf("\t%s\tTest %d:\tShould get %v: got %v", failed, testID, tst.err, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get %v.", success, testID, tst.err)

				if got := st.QueryMempoolLength(); got != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould leave the mempool empty: got %d", failed, testID, got)
				}
			}

			t.Run(tst.name, f)
		}
	}

	t.Log("Given the need to reject a duplicate pending transaction.")
	{
		st := newState(t, gen, jill.id, nil)
		tx := signTx(t, bill, jill.id, 10, 1)

		if err := st.SubmitWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould accept the first submission: %v", failed, err)
		}

		if err := st.SubmitWalletTransaction(tx); !errors.Is(err, database.ErrDuplicateTransaction) {
			t.Fatalf("\t%s\tShould reject the second submission: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject the second submission.", success)
	}
}

func Test_OverspendInOneBlock(t *testing.T) {
	t.Log("Given the need to keep a block from overspending a sender.")
	{
		bill, jill, miner := billAccount(t), newAccount(t), newAccount(t)
		st := newState(t, testGenesis(map[string]int64{string(bill.id): 1000}), miner.id, nil)

		// Each transfer alone is covered, together they are not.
		for _, amount := range []int64{600, 601} {
			if err := st.SubmitWalletTransaction(signTx(t, bill, jill.id, amount, 0)); err != nil {
				t.Fatalf("\t%s\tShould accept a covered transfer: %v", failed, err)
			}
		}

		block := mine(t, st, miner.id)
		if len(block.Trans) != 2 {
			t.Fatalf("\t%s\tShould include one transfer and the reward: got %d", failed, len(block.Trans))
		}
		t.Logf("\t%s\tShould include one transfer and the reward.", success)

		if got := st.QueryBalance(bill.id); got != 400 {
			t.Fatalf("\t%s\tShould apply only the first transfer: got %d", failed, got)
		}
		t.Logf("\t%s\tShould apply only the first transfer.", success)

		if got := st.QueryMempoolLength(); got != 1 {
			t.Fatalf("\t%s\tShould keep the skipped transfer pending: got %d", failed, got)
		}
		t.Logf("\t%s\tShould keep the skipped transfer pending.", success)

		block = mine(t, st, miner.id)
		if len(block.Trans) != 1 {
			t.Fatalf("\t%s\tShould not include a transfer the confirmed balance can't cover: got %d", failed, len(block.Trans))
		}
		if got := st.QueryMempoolLength(); got != 0 {
			t.Fatalf("\t%s\tShould remove the unpayable transfer from the mempool: got %d", failed, got)
		}
		if got := st.QueryBalance(bill.id); got != 400 {
			t.Fatalf("\t%s\tShould leave the sender's balance alone: got %d", failed, got)
		}
		t.Logf("\t%s\tShould remove the unpayable transfer from the mempool.", success)
	}
}

func Test_TwoNodeTie(t *testing.T) {
	t.Log("Given two nodes mining competing blocks from the same genesis.")
	{
		minerA, minerB := newAccount(t), newAccount(t)
		gen := testGenesis(nil)

		nodeA := newState(t, gen, minerA.id, nil)
		nodeB := newState(t, gen, minerB.id, nil)
		nodeC := newState(t, gen, minerA.id, nil)

		blockA := mine(t, nodeA, minerA.id)
		blockB := mine(t, nodeB, minerB.id)

		if blockA.Digest == blockB.Digest {
			t.Fatalf("\t%s\tShould produce competing blocks.", failed)
		}

		replaced, err := nodeA.ConsiderPeerChain("nodeB", snapshot(t, nodeB))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to resolve: %v", failed, err)
		}
		if replaced {
			t.Fatalf("\t%s\tShould keep the local chain on a tie.", failed)
		}
		if got := nodeA.RetrieveLatestBlock().Digest; got != blockA.Digest {
			t.Fatalf("\t%s\tShould keep the local tip on a tie: got %s", failed, got)
		}
		t.Logf("\t%s\tShould keep the local chain on a tie.", success)

		replaced, err = nodeC.Resolve([]state.PeerChain{
			{PeerID: "nodeA", Blocks: snapshot(t, nodeA)},
			{PeerID: "nodeB", Blocks: snapshot(t, nodeB)},
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to resolve: %v", failed, err)
		}
		if !replaced {
			t.Fatalf("\t%s\tShould adopt a longer chain on the shorter node.", failed)
		}
		if got := nodeC.RetrieveLatestBlock().Digest; got != blockA.Digest {
			t.Fatalf("\t%s\tShould adopt the first of equally long chains: got %s", failed, got)
		}
		t.Logf("\t%s\tShould adopt the first of equally long chains on the shorter node.", success)

		if got := nodeC.QueryBalance(minerA.id); got != gen.MiningReward {
			t.Fatalf("\t%s\tShould rebuild balances from the adopted chain: got %d", failed, got)
		}
		t.Logf("\t%s\tShould rebuild balances from the adopted chain.", success)
	}
}

func Test_AdoptLongerChain(t *testing.T) {
	t.Log("Given a peer holding a longer chain.")
	{
		bill, jill, minerA, minerB := billAccount(t), newAccount(t), newAccount(t), newAccount(t)
		gen := testGenesis(map[string]int64{string(bill.id): 1000})

		nodeA := newState(t, gen, minerA.id, nil)
		nodeB := newState(t, gen, minerB.id, nil)

		// The same transfer is pending on both nodes.
		tx := signTx(t, bill, jill.id, 100, 2)
		if err := nodeA.SubmitWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit to node A: %v", failed, err)
		}
		if err := nodeB.UpsertNodeTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit to node B: %v", failed, err)
		}

		mine(t, nodeB, minerB.id)
		mine(t, nodeB, minerB.id)

		chainB := snapshot(t, nodeB)

		// Break the proof of work in the middle of a longer copy.
		tampered := make([]database.Block, len(chainB))
		for i := range chainB {
			tampered[i] = chainB[i].Clone()
		}
		tampered[1].Trans[0].Amount = 999
		tampered = append(tampered, tampered[len(tampered)-1])

		replaced, err := nodeA.ConsiderPeerChain("tampered", tampered)
		if err != nil || replaced {
			t.Fatalf("\t%s\tShould ignore an invalid longer chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould ignore an invalid longer chain.", success)

		replaced, err = nodeA.ConsiderPeerChain("nodeB", chainB)
		if err != nil || !replaced {
			t.Fatalf("\t%s\tShould adopt the longer chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould adopt the longer chain.", success)

		if got := nodeA.QueryMempoolLength(); got != 0 {
			t.Fatalf("\t%s\tShould drop pending transactions confirmed by the new chain: got %d", failed, got)
		}
		t.Logf("\t%s\tShould drop pending transactions confirmed by the new chain.", success)

		for _, acct := range []database.AccountID{bill.id, jill.id, minerB.id} {
			if got, exp := nodeA.QueryBalance(acct), nodeB.QueryBalance(acct); got != exp {
				t.Fatalf("\t%s\tShould match the peer's balance for %s: got %d, exp %d", failed, acct, got, exp)
			}
		}
		t.Logf("\t%s\tShould match the peer's balances.", success)

		sheet, err := database.Replay(gen, snapshot(t, nodeA))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to replay the chain: %v", failed, err)
		}
		if got := sheet.Balance(string(jill.id)); got != nodeA.QueryBalance(jill.id) {
			t.Fatalf("\t%s\tShould match a replay of the chain: got %d", failed, got)
		}
		t.Logf("\t%s\tShould match a replay of the chain.", success)
	}
}

func Test_ProcessProposedBlock(t *testing.T) {
	t.Log("Given a block proposed by a peer.")
	{
		minerA, minerB := newAccount(t), newAccount(t)
		gen := testGenesis(nil)

		nodeA := newState(t, gen, minerA.id, nil)
		nodeB := newState(t, gen, minerB.id, nil)

		b1 := mine(t, nodeB, minerB.id)
		if err := nodeA.ProcessProposedBlock(b1); err != nil {
			t.Fatalf("\t%s\tShould accept a block extending the tip: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept a block extending the tip.", success)

		if err := nodeA.ProcessProposedBlock(b1); !errors.Is(err, database.ErrChainLinkageBroken) {
			t.Fatalf("\t%s\tShould reject the same block twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject the same block twice.", success)

		mine(t, nodeB, minerB.id)
		b3 := mine(t, nodeB, minerB.id)
		if err := nodeA.ProcessProposedBlock(b3); !errors.Is(err, database.ErrChainLinkageBroken) {
			t.Fatalf("\t%s\tShould reject a block that skips ahead: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a block that skips ahead.", success)

		if got := nodeA.QueryBalance(minerB.id); got != gen.MiningReward {
			t.Fatalf("\t%s\tShould credit the peer's reward once: got %d", failed, got)
		}
		t.Logf("\t%s\tShould credit the peer's reward once.", success)
	}
}

func Test_MiningCancelled(t *testing.T) {
	t.Log("Given a mining operation that can't finish.")
	{
		miner := newAccount(t)
		st := newState(t, testGenesis(nil), miner.id, nil)

		if err := st.SetDifficulty(genesis.MaxDifficulty); err != nil {
			t.Fatalf("\t%s\tShould be able to raise the difficulty: %v", failed, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := st.MineNewBlock(ctx, miner.id); !errors.Is(err, state.ErrMiningCancelled) {
			t.Fatalf("\t%s\tShould stop when the context is done: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop when the context is done.", success)

		if got := st.RetrieveLatestBlock().Index; got != 0 {
			t.Fatalf("\t%s\tShould leave the chain unchanged: got %d", failed, got)
		}
		t.Logf("\t%s\tShould leave the chain unchanged.", success)
	}

	t.Log("Given a mining operation overtaken by a longer chain.")
	{
		minerA, minerB := newAccount(t), newAccount(t)
		gen := testGenesis(nil)

		started := make(chan struct{}, 1)
		ev := func(v string, args ...any) {
			if strings.Contains(v, "MINING: started") {
				select {
				case started <- struct{}{}:
				default:
				}
			}
		}

		nodeA := newState(t, gen, minerA.id, ev)
		nodeB := newState(t, gen, minerB.id, nil)

		mine(t, nodeB, minerB.id)

		if err := nodeA.SetDifficulty(genesis.MaxDifficulty); err != nil {
			t.Fatalf("\t%s\tShould be able to raise the difficulty: %v", failed, err)
		}

		result := make(chan error, 1)
		go func() {
			_, err := nodeA.MineNewBlock(context.Background(), minerA.id)
			result <- err
		}()

		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatalf("\t%s\tShould start mining.", failed)
		}

		replaced, err := nodeA.ConsiderPeerChain("nodeB", snapshot(t, nodeB))
		if err != nil || !replaced {
			t.Fatalf("\t%s\tShould adopt the longer chain: %v", failed, err)
		}

		select {
		case err := <-result:
			if !errors.Is(err, state.ErrMiningCancelled) {
				t.Fatalf("\t%s\tShould cancel the mining operation: %v", failed, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("\t%s\tShould cancel the mining operation in time.", failed)
		}
		t.Logf("\t%s\tShould cancel the mining operation.", success)

		if got := nodeA.RetrieveLatestBlock().Digest; got != nodeB.RetrieveLatestBlock().Digest {
			t.Fatalf("\t%s\tShould keep the adopted tip: got %s", failed, got)
		}
		t.Logf("\t%s\tShould keep the adopted tip.", success)
	}
}

func Test_SubmitDuringMining(t *testing.T) {
	t.Log("Given a transaction submitted while proof of work is running.")
	{
		bill, jill, miner := billAccount(t), newAccount(t), newAccount(t)

		first := signTx(t, bill, jill.id, 100, 0)
		late := signTx(t, bill, jill.id, 200, 0)

		var st *state.State
		var submitted bool
		var lateErr error
		ev := func(v string, args ...any) {
			if strings.Contains(v, "perform POW") && !submitted {
				submitted = true
				lateErr = st.SubmitWalletTransaction(late)
			}
		}

		st = newState(t, testGenesis(map[string]int64{string(bill.id): 1000}), miner.id, ev)

		if err := st.SubmitWalletTransaction(first); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the transfer: %v", failed, err)
		}

		block := mine(t, st, miner.id)
		if !submitted || lateErr != nil {
			t.Fatalf("\t%s\tShould accept a transfer while mining: %v", failed, lateErr)
		}
		t.Logf("\t%s\tShould accept a transfer while mining.", success)

		if len(block.Trans) != 2 || block.Trans[0].ID() != first.ID() {
			t.Fatalf("\t%s\tShould mine only the transfer from the snapshot: got %d", failed, len(block.Trans))
		}
		t.Logf("\t%s\tShould mine only the transfer from the snapshot.", success)

		if got := st.RetrieveMempool(); len(got) != 1 || got[0].ID() != late.ID() {
			t.Fatalf("\t%s\tShould keep the late transfer pending: got %d", failed, len(got))
		}
		t.Logf("\t%s\tShould keep the late transfer pending.", success)

		block = mine(t, st, miner.id)
		if len(block.Trans) != 2 || block.Trans[0].ID() != late.ID() || st.QueryBalance(jill.id) != 300 {
			t.Fatalf("\t%s\tShould mine the late transfer into the next block.", failed)
		}
		t.Logf("\t%s\tShould mine the late transfer into the next block.", success)
	}
}

func Test_OverlappingResolve(t *testing.T) {
	t.Log("Given a chain resolution requested while another is running.")
	{
		minerA, minerB := newAccount(t), newAccount(t)
		gen := testGenesis(nil)

		nodeB := newState(t, gen, minerB.id, nil)
		mine(t, nodeB, minerB.id)
		chain := snapshot(t, nodeB)

		var nodeA *state.State
		var nested bool
		var nestedErr error
		ev := func(v string, args ...any) {
			if strings.Contains(v, "Resolve: started") && !nested {
				nested = true
				_, nestedErr = nodeA.ConsiderPeerChain("nodeC", chain)
			}
		}

		nodeA = newState(t, gen, minerA.id, ev)

		replaced, err := nodeA.ConsiderPeerChain("nodeB", chain)
		if err != nil || !replaced {
			t.Fatalf("\t%s\tShould adopt the longer chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould adopt the longer chain.", success)

		if !nested || !errors.Is(nestedErr, state.ErrResolveInProgress) {
			t.Fatalf("\t%s\tShould skip the overlapping resolution: %v", failed, nestedErr)
		}
		t.Logf("\t%s\tShould skip the overlapping resolution.", success)

		if got := nodeA.RetrieveLatestBlock().Digest; got != nodeB.RetrieveLatestBlock().Digest {
			t.Fatalf("\t%s\tShould replace the chain once: got %s", failed, got)
		}

		if replaced, err := nodeA.ConsiderPeerChain("nodeB", chain); err != nil || replaced {
			t.Fatalf("\t%s\tShould run a later resolution normally: %v %v", failed, replaced, err)
		}
		t.Logf("\t%s\tShould run a later resolution normally.", success)
	}
}

func Test_SetDifficulty(t *testing.T) {
	t.Log("Given the need to change the difficulty at runtime.")
	{
		miner := newAccount(t)
		gen := testGenesis(nil)
		gen.MinDifficulty = 1
		st := newState(t, gen, miner.id, nil)

		if err := st.SetDifficulty(0); err == nil {
			t.Fatalf("\t%s\tShould reject a difficulty below the minimum.", failed)
		}
		if err := st.SetDifficulty(genesis.MaxDifficulty + 1); err == nil {
			t.Fatalf("\t%s\tShould reject a difficulty above the maximum.", failed)
		}
		t.Logf("\t%s\tShould reject a difficulty out of range.", success)

		if err := st.SetDifficulty(2); err != nil {
			t.Fatalf("\t%s\tShould accept a difficulty in range: %v", failed, err)
		}

		block := mine(t, st, miner.id)
		if block.Difficulty != 2 || !strings.HasPrefix(block.Digest, "0x00") {
			t.Fatalf("\t%s\tShould mine with the new difficulty: %d %s", failed, block.Difficulty, block.Digest)
		}
		t.Logf("\t%s\tShould mine with the new difficulty.", success)

		if err := st.SetDifficulty(1); err != nil {
			t.Fatalf("\t%s\tShould accept a lower difficulty: %v", failed, err)
		}
		mine(t, st, miner.id)

		if err := database.ValidateChain(gen, snapshot(t, st), nil); err != nil {
			t.Fatalf("\t%s\tShould validate a chain mined under mixed difficulties: %v", failed, err)
		}
		t.Logf("\t%s\tShould validate a chain mined under mixed difficulties.", success)
	}
}
