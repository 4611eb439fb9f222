package main

import (
	"log"
	"os"

	"rollbacknet/tools/rollbackgen/internal/cli"
)

func main() {
	if err := cli.Execute(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
