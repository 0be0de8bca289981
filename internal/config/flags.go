package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/dsqlctl/internal/flagx"
)

var knownFlags = []string{
	"-host", "-port", "-user", "-db", "-region", "-admin",
	"-max-conns", "-retries", "-backoff", "-token-expiry", "-token-refresh",
	"-backup-bucket", "-backup-endpoint",
	"-users", "-concurrency",
	"-v", "-yes", "-dry-run", "-token-only",
}

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-host string            cluster endpoint
//	-port int               port (5432)
//	-user string            database role; "admin" requests admin tokens
//	-db string              database name (postgres)
//	-region string          signing region; derived from -host when empty
//	-admin                  force the admin token variant
//	-max-conns int          pool size
//	-retries int            attempts per store operation
//	-backoff duration       pause between attempts
//	-token-expiry duration  requested token lifetime
//	-token-refresh          mint a token for every new pooled connection
//	-backup-bucket string   S3 bucket for snapshots before repopulate
//	-backup-endpoint string S3-compatible endpoint override
//	-users int              stress-test units
//	-concurrency int        stress-test batch size
//	-v                      debug logging
//	-yes                    answer yes to confirmations
//	-dry-run                use an in-memory store instead of the cluster
//	-token-only             generate-token prints only the token
//
// Arguments other than these (the command name, -c) are filtered out with
// flagx.FilterArgs first.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Host, "host", config.Host, "cluster endpoint")
	fs.IntVar(&config.Port, "port", config.Port, "port")
	fs.StringVar(&config.User, "user", config.User, "database user")
	fs.StringVar(&config.Database, "db", config.Database, "database name")
	fs.StringVar(&config.Region, "region", config.Region, "signing region")
	fs.BoolVar(&config.Admin, "admin", config.Admin, "request an admin token")
	fs.IntVar(&config.MaxConns, "max-conns", config.MaxConns, "max open connections")
	fs.IntVar(&config.RetryMaxAttempts, "retries", config.RetryMaxAttempts, "attempts per operation")
	fs.DurationVar(&config.RetryBackoff, "backoff", config.RetryBackoff, "pause between attempts")
	fs.DurationVar(&config.TokenExpiry, "token-expiry", config.TokenExpiry, "token lifetime")
	fs.BoolVar(&config.TokenRefresh, "token-refresh", config.TokenRefresh, "fresh token per connection")
	fs.StringVar(&config.BackupBucket, "backup-bucket", config.BackupBucket, "S3 backup bucket")
	fs.StringVar(&config.BackupEndpoint, "backup-endpoint", config.BackupEndpoint, "S3 endpoint override")
	fs.IntVar(&config.StressUsers, "users", config.StressUsers, "stress-test units")
	fs.IntVar(&config.StressConcurrency, "concurrency", config.StressConcurrency, "stress-test concurrency")
	fs.BoolVar(&config.Verbose, "v", config.Verbose, "verbose logging")
	fs.BoolVar(&config.Yes, "yes", config.Yes, "skip confirmations")
	fs.BoolVar(&config.DryRun, "dry-run", config.DryRun, "use an in-memory store")
	fs.BoolVar(&config.TokenOnly, "token-only", config.TokenOnly, "print only the token")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "admin" {
			config.adminSet = true
		}
	})
	return nil
}
