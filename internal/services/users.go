// Package services contains the user operations dsqlctl runs against the
// store. Every store call goes through the retry executor; conflicts and
// other terminal failures come back on the first attempt.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
	"github.com/dmitrijs2005/dsqlctl/internal/dbx"
	"github.com/dmitrijs2005/dsqlctl/internal/logging"
	"github.com/dmitrijs2005/dsqlctl/internal/models"
	"github.com/dmitrijs2005/dsqlctl/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dsqlctl/internal/retry"
)

const sqlStateUndefinedTable = "42P01"

// ConfirmFunc asks whoever drives the service for permission to run a
// destructive operation.
type ConfirmFunc func(ctx context.Context) (bool, error)

// Snapshotter stores a copy of the users about to be dropped and returns
// where it went.
type Snapshotter interface {
	Snapshot(ctx context.Context, users []*models.User) (string, error)
}

// UserService exposes the users table operations:
// - EnsureSchema: confirmed drop and recreate
// - Bootstrap: non-destructive create through migrations
// - InsertUser, ListUsers, Stats
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	retry       *retry.Executor
	logger      logging.Logger
	backup      Snapshotter
}

// UserServiceOption configures a UserService.
type UserServiceOption func(*UserService)

// WithBackup makes EnsureSchema snapshot existing users before dropping them.
func WithBackup(s Snapshotter) UserServiceOption {
	return func(us *UserService) { us.backup = s }
}

// NewUserService constructs a UserService. A nil logger discards output.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, exec *retry.Executor, logger logging.Logger, opts ...UserServiceOption) *UserService {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &UserService{
		db:          db,
		repomanager: m,
		retry:       exec,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema drops and recreates the users table once confirm agrees.
// Without confirmation nothing is touched and common.ErrorNotConfirmed is
// returned. Drop and create form one retried unit so a transient failure
// between them is repaired by the next attempt.
func (s *UserService) EnsureSchema(ctx context.Context, confirm ConfirmFunc) error {
	if confirm == nil {
		return common.ErrorNotConfirmed
	}
	ok, err := confirm(ctx)
	if err != nil {
		return fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		return common.ErrorNotConfirmed
	}

	if s.backup != nil {
		if err := s.snapshot(ctx); err != nil {
			return err
		}
	}

	return s.retry.Run(ctx, "ensure_schema", func(ctx context.Context) error {
		repo := s.repomanager.Users(s.db)
		if err := repo.DropTable(ctx); err != nil {
			return err
		}
		return repo.CreateTable(ctx)
	})
}

func (s *UserService) snapshot(ctx context.Context) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateUndefinedTable {
			s.logger.Info(ctx, "no users table, skipping backup")
			return nil
		}
		return fmt.Errorf("backup: %w", err)
	}

	key, err := s.backup.Snapshot(ctx, users)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	s.logger.Info(ctx, "users backed up", "key", key, "count", len(users))
	return nil
}

// Bootstrap applies pending migrations, creating the table if it is missing
// and keeping existing rows.
func (s *UserService) Bootstrap(ctx context.Context) error {
	return s.retry.Run(ctx, "bootstrap_schema", func(ctx context.Context) error {
		return s.repomanager.RunMigrations(ctx, s.db)
	})
}

// InsertUser stores a user unless its email is already taken, in which case
// an error matching common.ErrorConflict is returned without retrying.
func (s *UserService) InsertUser(ctx context.Context, id uuid.UUID, name, email, role string) (*models.User, error) {
	user := &models.User{ID: id, Name: name, Email: email, Role: role}

	err := s.retry.Run(ctx, "insert_user", func(ctx context.Context) error {
		n, err := s.repomanager.Users(s.db).Insert(ctx, user)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: user with email %q", common.ErrorConflict, email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns every stored user.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return retry.Do(ctx, s.retry, "list_users", func(ctx context.Context) ([]*models.User, error) {
		return s.repomanager.Users(s.db).List(ctx)
	})
}

// Stats aggregates the table inside a read-only transaction so all numbers
// describe the same snapshot. Without a database handle (dry runs) the
// repository is queried directly.
func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	return retry.Do(ctx, s.retry, "user_stats", func(ctx context.Context) (*models.UserStats, error) {
		if s.db == nil {
			return s.repomanager.Users(nil).Stats(ctx)
		}
		var stats *models.UserStats
		err := dbx.WithTx(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			stats, err = s.repomanager.Users(tx).Stats(ctx)
			return err
		})
		return stats, err
	})
}
