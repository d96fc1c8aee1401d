// Package main is the entry point for the jig CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := newApp(nil)
	err := a.run(ctx, newRootCmd(a))
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "jig: %v\n", err)
		os.Exit(1)
	}
}
