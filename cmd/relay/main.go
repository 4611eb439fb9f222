package main

import (
	"context"
	"log"

	"rollbacknet/internal/relayapp"
)

func main() {
	if err := relayapp.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
