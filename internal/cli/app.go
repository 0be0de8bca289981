package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrijs2005/dsqlctl/internal/auth"
	"github.com/dmitrijs2005/dsqlctl/internal/config"
	"github.com/dmitrijs2005/dsqlctl/internal/connx"
	"github.com/dmitrijs2005/dsqlctl/internal/dbx"
	"github.com/dmitrijs2005/dsqlctl/internal/logging"
	"github.com/dmitrijs2005/dsqlctl/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dsqlctl/internal/retry"
	"github.com/dmitrijs2005/dsqlctl/internal/services"
)

// ErrUnknownCommand is returned by Run for names it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// openDB is a seam for tests.
var openDB = dbx.Open

type App struct {
	config *config.Config
	logger logging.Logger
	tokens *auth.TokenProvider
	retry  *retry.Executor
	reader *bufio.Reader
	out    io.Writer

	db    *sql.DB
	users *services.UserService

	interactive func() bool
}

// NewApp builds an App from cfg. No network access happens until a command
// needs it.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, cfg.Verbose)

	exec, err := retry.NewExecutor(
		retry.Policy{MaxAttempts: cfg.RetryMaxAttempts, Backoff: cfg.RetryBackoff},
		retry.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	return &App{
		config:      cfg,
		logger:      logger,
		tokens:      auth.NewTokenProvider(cfg.Credentials(), auth.WithExpiry(cfg.TokenExpiry)),
		retry:       exec,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: stdinIsTerminal,
	}, nil
}

// Run executes the named command.
func (a *App) Run(ctx context.Context, command string) error {
	defer a.Close()

	switch command {
	case "repopulate":
		return a.repopulate(ctx)
	case "list-users":
		return a.listUsers(ctx)
	case "add-user":
		return a.addUser(ctx)
	case "stress-test":
		return a.stressTest(ctx)
	case "user-stats":
		return a.userStats(ctx)
	case "generate-token":
		return a.generateToken(ctx)
	case "help", "-h", "-help", "--help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

// Close releases the connection pool, if one was opened.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, `Usage: dsqlctl <command> [flags]

Commands:
  repopulate       drop and recreate the users table with sample data
  list-users       list all users
  add-user         add a user interactively
  stress-test      insert -users synthetic users, -concurrency at a time
  user-stats       print statistics about the users table
  generate-token   print an auth token (-token-only for just the token)`)
}

func (a *App) descriptor() connx.Descriptor {
	d := connx.NewDescriptor(a.config.Host, a.config.Port, a.config.User, a.config.Database, a.config.Region)
	d.Admin = a.config.Admin
	return d
}

// connect prepares the user service. Dry runs use an in-memory store;
// otherwise a token is generated and the pool opened.
func (a *App) connect(ctx context.Context) error {
	if a.users != nil {
		return nil
	}

	var opts []services.UserServiceOption
	if a.config.BackupBucket != "" {
		opts = append(opts, services.WithBackup(services.NewBackupService(services.BackupConfig{
			Bucket:   a.config.BackupBucket,
			Region:   a.config.Region,
			Endpoint: a.config.BackupEndpoint,
		})))
	}

	if a.config.DryRun {
		a.logger.Info(ctx, "dry run, using in-memory store")
		a.users = services.NewUserService(nil, repomanager.NewInMemoryRepositoryManager(), a.retry, a.logger, opts...)
		return nil
	}

	d := a.descriptor()
	if err := d.Validate(); err != nil {
		return err
	}

	token, err := a.tokens.GenerateToken(ctx, d.Host, d.Region, d.Admin)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	dsn, err := d.ConnectionString(token)
	if err != nil {
		return err
	}

	pool := dbx.PoolOptions{MaxOpenConns: a.config.MaxConns}
	if a.config.TokenRefresh {
		pool.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			t, err := a.tokens.GenerateToken(ctx, d.Host, d.Region, d.Admin)
			if err != nil {
				return err
			}
			cc.Password = t
			return nil
		}
	}

	a.logger.Debug(ctx, "connecting", "host", d.Host, "user", d.User, "admin", d.Admin, "region", d.Region)
	db, err := openDB(ctx, dsn, pool)
	if err != nil {
		return err
	}

	a.db = db
	a.users = services.NewUserService(db, repomanager.NewPostgresRepositoryManager(), a.retry, a.logger, opts...)
	return nil
}

// confirm returns the confirmation capability handed to destructive
// operations. -yes agrees up front; without a terminal nothing is confirmed.
func (a *App) confirm(prompt string) services.ConfirmFunc {
	return func(ctx context.Context) (bool, error) {
		if a.config.Yes {
			return true, nil
		}
		if !a.interactive() {
			fmt.Fprintln(a.out, "Refusing to continue without a terminal; pass -yes to confirm.")
			return false, nil
		}
		return Confirm(a.reader, prompt, a.out)
	}
}
