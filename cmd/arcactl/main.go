package main

import (
	"log"

	"github.com/arca-vault/arca/internal/cmd"
)

func main() {
	if err := cmd.MustInitialize(); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	cmd.Execute()
}
