// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// MaxDifficulty is the largest number of leading zero hex digits a digest
// can carry.
const MaxDifficulty = 64

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time        `json:"date"`            // Timestamp of the genesis block.
	Difficulty    uint             `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	MinDifficulty uint             `json:"min_difficulty"`  // Lowest difficulty any mined block may carry.
	MiningReward  int64            `json:"mining_reward"`   // Reward for mining a block.
	TransPerBlock uint16           `json:"trans_per_block"` // The maximum number of transactions that can be in a block, 0 is unlimited.
	Balances      map[string]int64 `json:"balances"`        // Seed balances minted in the genesis block.
}

// Default returns the genesis used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:    4,
		MinDifficulty: 4,
		MiningReward:  50,
		TransPerBlock: 0,
		Balances:      map[string]int64{},
	}
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	if g.MiningReward <= 0 {
		return fmt.Errorf("mining reward must be positive, got %d", g.MiningReward)
	}

	if g.Difficulty > MaxDifficulty {
		return fmt.Errorf("difficulty %d is above the max of %d", g.Difficulty, MaxDifficulty)
	}

	if g.Difficulty < g.MinDifficulty {
		return fmt.Errorf("difficulty %d is below the min difficulty %d", g.Difficulty, g.MinDifficulty)
	}

	for address, balance := range g.Balances {
		if balance < 0 {
			return fmt.Errorf("seed balance for %s is negative", address)
		}
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	if path == "" {
		return Genesis{}, errors.New("genesis path not provided")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("invalid genesis file: %w", err)
	}

	return genesis, nil
}
