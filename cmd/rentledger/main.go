// Command rentledger keeps track of rental properties, tenants and rent
// payments from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"

	"rentledger/internal/cli"
	"rentledger/internal/config"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr, config.Load, cli.DefaultOpener)
	stop()
	exitFunc(code)
}
