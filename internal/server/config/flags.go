package config

import (
	"flag"
	"os"
	"time"

	"github.com/Erikmmkarlsson/graphmaster/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-w int      refresh window, minutes
//	-k int      registration token validity, minutes
//	-m string   SMTP host (empty disables outbound mail)
//	-f string   data directory for tenant persistence
//	-b string   snapshot bucket name (empty disables snapshots)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration flags
// are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-w", "-k", "-m", "-f", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessValidity := fs.Int("t", int(config.AccessTokenValidity.Minutes()), "access token validity (in minutes)")
	refreshWindow := fs.Int("w", int(config.RefreshWindow.Minutes()), "refresh window (in minutes)")
	registrationValidity := fs.Int("k", int(config.RegistrationTokenValidity.Minutes()), "registration token validity (in minutes)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "tenant data directory")
	fs.StringVar(&config.SnapshotBucket, "b", config.SnapshotBucket, "snapshot bucket")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidity = time.Duration(*accessValidity) * time.Minute
	config.RefreshWindow = time.Duration(*refreshWindow) * time.Minute
	config.RegistrationTokenValidity = time.Duration(*registrationValidity) * time.Minute
}
