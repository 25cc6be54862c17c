package main

import (
	"fmt"
	"os"

	"github.com/moved-network/moved/cmd/moved/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
