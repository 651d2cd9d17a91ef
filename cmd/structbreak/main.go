package main

import (
	"fmt"
	"os"

	"github.com/chrissnell/structbreak/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}
