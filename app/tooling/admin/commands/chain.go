// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
	"go.uber.org/zap"
)

// Node identifies the node whose chain is audited.
type Node struct {
	URL     string
	Timeout time.Duration
}

// Chain retrieves the full chain from the node's public api.
func (n Node) Chain() ([]database.Block, error) {
	client := http.Client{Timeout: n.Timeout}

	resp, err := client.Get(fmt.Sprintf("%s/v1/chain", n.URL))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status[%d] from %s", resp.StatusCode, n.URL)
	}

	var chain struct {
		Length uint64           `json:"length"`
		Blocks []database.Block `json:"blocks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chain); err != nil {
		return nil, err
	}

	return chain.Blocks, nil
}

// Validate runs every chain check against the node's chain.
func Validate(log *zap.SugaredLogger, node Node, gen genesis.Genesis) error {
	blocks, err := node.Chain()
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	if err := database.ValidateChain(gen, blocks, ev); err != nil {
		fmt.Printf("INVALID: blocks[%d]: %s\n", len(blocks), err)
		return nil
	}

	fmt.Printf("VALID: blocks[%d]: tip[%s]\n", len(blocks), blocks[len(blocks)-1].Digest)
	return nil
}
