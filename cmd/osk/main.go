package main

import (
	"os"

	"github.com/bnema/online-session-kit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
