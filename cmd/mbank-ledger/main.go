// Package main provides the entry point for the mbank-ledger CLI.
package main

import (
	"fmt"
	"os"

	"dkowalski/mbank-ledger/cmd/enrich"
	"dkowalski/mbank-ledger/cmd/export"
	"dkowalski/mbank-ledger/cmd/ingest"
	"dkowalski/mbank-ledger/cmd/root"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(enrich.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
