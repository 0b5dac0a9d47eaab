package main

import (
	"os"

	"github.com/rovshanmuradov/solana-txcore/cmd/txcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
