package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dmitrijs2005/dsqlctl/internal/connx"
	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

func printUsers(w io.Writer, users []*models.User) {
	fmt.Fprintf(w, "Found %d users in database\n", len(users))
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found in the database.")
		return
	}

	fmt.Fprintln(w, "\nUsers in database:")
	for _, u := range users {
		fmt.Fprintf(w, "ID: %s, Name: %s, Email: %s, Role: %s, Created at: %s\n",
			u.ID, u.Name, u.Email, u.Role, u.CreatedAt.UTC().Format(time.RFC3339))
	}
}

func printStressRun(w io.Writer, r models.StressRun) {
	fmt.Fprintln(w, "\nStress Test Results:")
	fmt.Fprintln(w, "--------------------")
	fmt.Fprintf(w, "Total time: %.2f seconds\n", r.Elapsed.Seconds())
	fmt.Fprintf(w, "Batches: %d\n", r.Batches)
	fmt.Fprintf(w, "Successful inserts: %d\n", r.Succeeded)
	fmt.Fprintf(w, "Failed inserts: %d\n", r.Failed)
	fmt.Fprintf(w, "Insert rate: %.2f users/second\n", r.Throughput())
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n) / float64(total) * 100)
}

func printStats(w io.Writer, s *models.UserStats) {
	fmt.Fprintln(w, "\n----- User Statistics -----")
	fmt.Fprintf(w, "Total users: %d\n", s.Total)

	fmt.Fprintln(w, "\nDistribution by role:")
	for _, r := range s.ByRole {
		fmt.Fprintf(w, "- %s: %d users (%.0f%%)\n", r.Role, r.Count, percent(r.Count, s.Total))
	}

	if s.Newest != nil {
		fmt.Fprintf(w, "\nNewest user: %s (%s) - Created: %s\n", s.Newest.Name, s.Newest.Email, s.Newest.CreatedAt.UTC().Format(time.RFC3339))
	}
	if s.Oldest != nil {
		fmt.Fprintf(w, "Oldest user: %s (%s) - Created: %s\n", s.Oldest.Name, s.Oldest.Email, s.Oldest.CreatedAt.UTC().Format(time.RFC3339))
	}

	fmt.Fprintln(w, "\nMost common email domains:")
	for _, d := range s.Domains {
		fmt.Fprintf(w, "- %s: %d users (%.0f%%)\n", d.Domain, d.Count, percent(d.Count, s.Total))
	}
	fmt.Fprintln(w, "\n---------------------------")
}

func printToken(w io.Writer, d connx.Descriptor, token string) {
	admin := "No"
	if d.Admin {
		admin = "Yes"
	}

	fmt.Fprintln(w, "Authentication token generated successfully!")
	fmt.Fprintf(w, "Host:     %s\n", d.Host)
	fmt.Fprintf(w, "Port:     %d\n", d.Port)
	fmt.Fprintf(w, "User:     %s\n", d.User)
	fmt.Fprintf(w, "Database: %s\n", d.Database)
	fmt.Fprintf(w, "Region:   %s\n", d.Region)
	fmt.Fprintf(w, "Admin:    %s\n", admin)
	fmt.Fprintf(w, "\nToken: %s\n", token)

	fmt.Fprintln(w, "\nSample connection command:")
	fmt.Fprintf(w, "PGSSLMODE=require psql \"postgresql://%s@%s:%d/%s\" -W\n", d.User, d.Host, d.Port, d.Database)
	fmt.Fprintln(w, "When prompted for password, use the token shown above.")
}
