package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	// Query the terminal background before any program reads stdin, so the
	// OSC 11 reply cannot land in the prompt.
	_ = lipgloss.HasDarkBackground()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wiring := defaultCommandWiring(os.Stdout, os.Stderr, os.Stdin)
	root := newRootCommand(wiring)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "smithy error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
