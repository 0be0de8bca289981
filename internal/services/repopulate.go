package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

// SampleUser is one row of the fixed demo data set.
type SampleUser struct {
	Name  string
	Email string
	Role  string
}

// SampleUsers is the demo data set written by Repopulate.
var SampleUsers = []SampleUser{
	{Name: "John Doe", Email: "john.doe@example.com", Role: "Admin"},
	{Name: "Jane Smith", Email: "jane.smith@example.com", Role: "User"},
	{Name: "Bob Johnson", Email: "bob.johnson@example.com", Role: "User"},
	{Name: "Alice Williams", Email: "alice.williams@example.com", Role: "Manager"},
	{Name: "Charlie Brown", Email: "charlie.brown@example.com", Role: "User"},
}

// SeedResult is the outcome of inserting one sample user.
type SeedResult struct {
	Sample SampleUser
	User   *models.User
	Err    error
}

// Repopulate recreates the table (subject to confirm) and inserts
// SampleUsers. A failed sample is reported in its SeedResult and does not
// stop the others; only schema errors are returned.
func (s *UserService) Repopulate(ctx context.Context, confirm ConfirmFunc) ([]SeedResult, error) {
	if err := s.EnsureSchema(ctx, confirm); err != nil {
		return nil, err
	}

	results := make([]SeedResult, 0, len(SampleUsers))
	for _, su := range SampleUsers {
		u, err := s.InsertUser(ctx, uuid.New(), su.Name, su.Email, su.Role)
		if err != nil {
			s.logger.Warn(ctx, "sample user not inserted", "email", su.Email, "error", err)
		}
		results = append(results, SeedResult{Sample: su, User: u, Err: err})
	}
	return results, nil
}
