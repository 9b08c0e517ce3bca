// Package cli implements the uniclip command surface: space initialization,
// a clipboard watch loop, and snapshot file tooling built on the same JSON
// codec the network uses.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/uniclip/uniclipboard/internal/app"
	"github.com/uniclip/uniclipboard/internal/clipboard"
	"github.com/uniclip/uniclipboard/internal/config"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
	"github.com/uniclip/uniclipboard/internal/setup"
)

const usage = `usage: uniclip <command> [flags]

commands:
  init                    create a new encrypted space in the vault
  watch [-max-events N]   watch the clipboard and print captured entries
  capture [-out FILE]     read stdin into a snapshot file
  restore -in FILE [-select N]  print a snapshot representation
  inspect -in FILE        show the selection ranking for a snapshot
`

// Run dispatches the subcommand and returns the process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	var err error
	switch args[0] {
	case "init":
		err = runInit(ctx, stdout, stderr)
	case "watch":
		err = runWatch(ctx, args[1:], stdout, stderr)
	case "capture":
		err = runCapture(args[1:], stdin, stdout)
	case "restore":
		err = runRestore(args[1:], stdout)
	case "inspect":
		err = runInspect(args[1:], stdout)
	default:
		fmt.Fprint(stderr, usage)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "uniclip: %v\n", err)
		return 1
	}
	return 0
}

func buildApp(ctx context.Context, stderr io.Writer) (*app.App, error) {
	cfg := config.LoadConfig()
	log := logging.NewTextLogger(stderr, slog.LevelInfo)

	hub := network.NewMemHub()
	node := hub.Join(models.PeerID("local"), models.DeviceID(cfg.DeviceName))

	return app.New(ctx, cfg, node, clipboard.NewMemoryClipboard(), log)
}

func runInit(ctx context.Context, stdout, stderr io.Writer) error {
	a, err := buildApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	passphrase, err := getPassword(stdout, "Choose a space passphrase: ")
	if err != nil {
		return err
	}
	confirm, err := getPassword(stdout, "Repeat passphrase: ")
	if err != nil {
		return err
	}
	if string(passphrase) != string(confirm) {
		return fmt.Errorf("passphrases do not match")
	}

	if err := a.Start(ctx); err != nil {
		return err
	}

	a.Setup.Dispatch(ctx, setup.Event{Kind: setup.EventStartNewSpace})
	state := a.Setup.Dispatch(ctx, setup.Event{
		Kind:       setup.EventSubmitPassphrase,
		Passphrase: string(passphrase),
	})
	if state.Kind != setup.StateCompleted {
		return fmt.Errorf("space creation failed: %s", state.Error)
	}

	fmt.Fprintln(stdout, "space created, device ready")
	return nil
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("watch")
	maxEvents := fs.Int("max-events", 0, "stop after N captured entries (0 = run forever)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	passphrase, err := getPassword(stdout, "Passphrase: ")
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	if err := a.Unlock(ctx, string(passphrase)); err != nil {
		return err
	}

	seen := map[models.EntryID]struct{}{}
	printed := 0
	ticker := time.NewTicker(a.Config.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		entries, err := a.Entries.List(ctx, 50)
		if err != nil {
			return err
		}
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			if _, ok := seen[entry.EntryID]; ok {
				continue
			}
			seen[entry.EntryID] = struct{}{}
			fmt.Fprintf(stdout, "%s  entry %s  %d bytes\n",
				time.UnixMilli(entry.CreatedAtMs).Format(time.RFC3339), entry.EntryID, entry.TotalSize)
			printed++
			if *maxEvents > 0 && printed >= *maxEvents {
				return nil
			}
		}
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
