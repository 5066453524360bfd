// This program performs administrative tasks against a running node. It
// audits the node's chain offline against the genesis file.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adeputraprimasuhendri/blockchain/app/tooling/admin/commands"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/genesis"
	"github.com/adeputraprimasuhendri/blockchain/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args    conf.Args
		URL     string        `conf:"default:http://localhost:8080"`
		Genesis string        `conf:"default:zblock/genesis.json"`
		Timeout time.Duration `conf:"default:30s"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.Genesis)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	return processCommands(cfg.Args, log, commands.Node{URL: cfg.URL, Timeout: cfg.Timeout}, gen)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, log *zap.SugaredLogger, node commands.Node, gen genesis.Genesis) error {
	switch args.Num(0) {
	case "validate":
		if err := commands.Validate(log, node, gen); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}

	case "bals":
		if err := commands.Balances(node, gen, args.Num(1)); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	default:
		fmt.Println("validate: fetch the node's chain and validate it against the genesis file")
		fmt.Println("bals [account]: replay the node's chain and print the balances")
		fmt.Println("provide a command to get more help.")
	}

	return nil
}
