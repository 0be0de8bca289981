package users

import (
	"context"

	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

// Repository is the store access needed by the user operations. Every method
// is a single statement (or a fixed group of read statements); retries and
// outcome classification belong to the caller.
type Repository interface {
	// DropTable removes the users table if it exists.
	DropTable(ctx context.Context) error
	// CreateTable creates the users table. It fails if the table exists.
	CreateTable(ctx context.Context) error
	// Insert adds user unless its email is taken and returns the number of
	// affected rows: 1 when stored, 0 on an email conflict.
	Insert(ctx context.Context, user *models.User) (int64, error)
	// List returns every user in storage order.
	List(ctx context.Context) ([]*models.User, error)
	// Stats aggregates the table.
	Stats(ctx context.Context) (*models.UserStats, error)
}
