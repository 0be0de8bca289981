package users

import "github.com/jackc/pgx/v5/pgconn"

// The in-memory repository reports constraint and catalog failures the way
// the server does, so callers classify them identically.
var (
	errNoTable     = &pgconn.PgError{Code: "42P01", Message: `relation "users" does not exist`}
	errTableExists = &pgconn.PgError{Code: "42P07", Message: `relation "users" already exists`}
	errDuplicateID = &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "users_pkey"`}
)
