package config

import (
	"flag"
	"os"
	"time"

	"github.com/uniclip/uniclipboard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   vault directory holding all local state
//	-n string   device name announced to peers
//	-i int      clipboard polling interval in milliseconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-n", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.VaultDir, "d", cfg.VaultDir, "vault directory")
	fs.StringVar(&cfg.DeviceName, "n", cfg.DeviceName, "device name announced to peers")
	watchInterval := fs.Int("i", int(cfg.WatchInterval.Milliseconds()), "clipboard polling interval (in milliseconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.WatchInterval = time.Duration(*watchInterval) * time.Millisecond
}
