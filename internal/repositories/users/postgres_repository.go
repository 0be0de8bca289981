package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/dmitrijs2005/dsqlctl/internal/dbx"
	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

const (
	tableUsers = "users"

	colName      = "name"
	colEmail     = "email"
	colRole      = "role"
	colCreatedAt = "created_at"
	aliasCount   = "count"
	aliasDomain  = "domain"

	topDomains = 5
)

const (
	dropTableQuery = `DROP TABLE IF EXISTS users`

	createTableQuery = `CREATE TABLE users (
            id UUID PRIMARY KEY,
            name VARCHAR(100) NOT NULL,
            email VARCHAR(100) UNIQUE NOT NULL,
            role VARCHAR(50) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`

	insertQuery = `INSERT INTO users (id, name, email, role)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (email) DO NOTHING`

	listQuery = `SELECT id, name, email, role, created_at FROM users`
)

var dialect = goqu.Dialect("postgres")

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) DropTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, dropTableQuery); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, user *models.User) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertQuery, user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0)
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Stats runs the aggregation queries one after another. Run it inside a
// read-only transaction to get a consistent snapshot.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{}

	query, _, err := dialect.From(tableUsers).Select(goqu.COUNT(goqu.Star()).As(aliasCount)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if stats.ByRole, err = r.roleCounts(ctx); err != nil {
		return nil, err
	}
	if stats.Newest, err = r.edgeUser(ctx, goqu.C(colCreatedAt).Desc()); err != nil {
		return nil, err
	}
	if stats.Oldest, err = r.edgeUser(ctx, goqu.C(colCreatedAt).Asc()); err != nil {
		return nil, err
	}
	if stats.Domains, err = r.domainCounts(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *PostgresRepository) roleCounts(ctx context.Context) ([]models.RoleCount, error) {
	query, _, err := dialect.From(tableUsers).
		Select(goqu.C(colRole), goqu.COUNT(goqu.Star()).As(aliasCount)).
		GroupBy(goqu.C(colRole)).
		Order(goqu.C(aliasCount).Desc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.RoleCount, 0)
	for rows.Next() {
		var rc models.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) domainCounts(ctx context.Context) ([]models.DomainCount, error) {
	domain := goqu.L("SUBSTRING(? FROM POSITION('@' IN ?) + 1)", goqu.C(colEmail), goqu.C(colEmail))
	query, _, err := dialect.From(tableUsers).
		Select(domain.As(aliasDomain), goqu.COUNT(goqu.Star()).As(aliasCount)).
		GroupBy(goqu.C(aliasDomain)).
		Order(goqu.C(aliasCount).Desc()).
		Limit(topDomains).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.DomainCount, 0)
	for rows.Next() {
		var dc models.DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) edgeUser(ctx context.Context, order exp.OrderedExpression) (*models.UserSummary, error) {
	query, _, err := dialect.From(tableUsers).
		Select(goqu.C(colName), goqu.C(colEmail), goqu.C(colCreatedAt)).
		Order(order).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	u := &models.UserSummary{}
	err = r.db.QueryRowContext(ctx, query).Scan(&u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
