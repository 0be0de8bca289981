package common

import "time"

const (
	// DefaultPort is the PostgreSQL port exposed by Aurora DSQL clusters.
	DefaultPort = 5432

	// DefaultDatabase is the only database available on a DSQL cluster.
	DefaultDatabase = "postgres"

	// AdminUser is the built-in privileged role; connecting as it requires an admin token.
	AdminUser = "admin"

	// TokenValidity is how long a generated auth token stays usable.
	TokenValidity = 15 * time.Minute
)
