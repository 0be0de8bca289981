package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

// InMemoryRepository is a Repository kept in process memory. It enforces the
// same primary-key and unique-email constraints as the SQL table and is safe
// for concurrent use.
type InMemoryRepository struct {
	mu      sync.Mutex
	created bool
	users   []*models.User
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{created: true, now: time.Now}
}

func (r *InMemoryRepository) DropTable(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = false
	r.users = nil
	return nil
}

func (r *InMemoryRepository) CreateTable(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.created {
		return errTableExists
	}
	r.created = true
	return nil
}

func (r *InMemoryRepository) Insert(ctx context.Context, user *models.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.created {
		return 0, errNoTable
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return 0, nil
		}
		if u.ID == user.ID {
			return 0, errDuplicateID
		}
	}

	stored := *user
	stored.CreatedAt = r.now()
	r.users = append(r.users, &stored)
	return 1, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.created {
		return nil, errNoTable
	}
	result := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		c := *u
		result = append(result, &c)
	}
	return result, nil
}

func (r *InMemoryRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{Total: int64(len(users))}
	roles := map[string]int64{}
	domains := map[string]int64{}
	for _, u := range users {
		roles[u.Role]++
		if at := strings.IndexByte(u.Email, '@'); at >= 0 {
			domains[u.Email[at+1:]]++
		}
		summary := &models.UserSummary{Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
		if stats.Newest == nil || u.CreatedAt.After(stats.Newest.CreatedAt) {
			stats.Newest = summary
		}
		if stats.Oldest == nil || u.CreatedAt.Before(stats.Oldest.CreatedAt) {
			stats.Oldest = summary
		}
	}

	for role, n := range roles {
		stats.ByRole = append(stats.ByRole, models.RoleCount{Role: role, Count: n})
	}
	sort.Slice(stats.ByRole, func(i, j int) bool {
		if stats.ByRole[i].Count != stats.ByRole[j].Count {
			return stats.ByRole[i].Count > stats.ByRole[j].Count
		}
		return stats.ByRole[i].Role < stats.ByRole[j].Role
	})

	for domain, n := range domains {
		stats.Domains = append(stats.Domains, models.DomainCount{Domain: domain, Count: n})
	}
	sort.Slice(stats.Domains, func(i, j int) bool {
		if stats.Domains[i].Count != stats.Domains[j].Count {
			return stats.Domains[i].Count > stats.Domains[j].Count
		}
		return stats.Domains[i].Domain < stats.Domains[j].Domain
	})
	if len(stats.Domains) > topDomains {
		stats.Domains = stats.Domains[:topDomains]
	}

	return stats, nil
}
