package models

import "time"

// RoleCount is the number of users holding Role.
type RoleCount struct {
	Role  string
	Count int64
}

// DomainCount is the number of users whose email is at Domain.
type DomainCount struct {
	Domain string
	Count  int64
}

// UserSummary is a user reduced to what the statistics report prints.
type UserSummary struct {
	Name      string
	Email     string
	CreatedAt time.Time
}

// UserStats aggregates the users table.
type UserStats struct {
	Total   int64
	ByRole  []RoleCount
	Domains []DomainCount
	Newest  *UserSummary
	Oldest  *UserSummary
}
