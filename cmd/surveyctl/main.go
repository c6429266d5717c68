package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fieldsurvey/internal/cli"
)

func main() {
	cfg, err := cli.ParseConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
