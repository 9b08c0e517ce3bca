package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/uniclip/uniclipboard/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(cli.Run(ctx, commandArgs(os.Args[1:]), os.Stdin, os.Stdout, os.Stderr))
}

// commandArgs skips the global flags that config.LoadConfig consumes from
// os.Args itself. Globals come before the subcommand; everything from the
// first non-flag argument on belongs to the subcommand.
func commandArgs(args []string) []string {
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		return args[i:]
	}
	return nil
}
