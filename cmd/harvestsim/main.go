// Command harvestsim runs the HarvestBoost cooperative farming simulation.
package main

import (
	"os"

	"github.com/talgya/harvest-boost/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
