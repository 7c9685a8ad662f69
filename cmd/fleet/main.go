package main

import (
	"github.com/onflow/evm-fleet/cmd/fleet/cmd"
)

func main() {
	cmd.Execute()
}
