package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pai/internal/cli"
)

// Set by -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.New(cli.WithVersion(version)).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
