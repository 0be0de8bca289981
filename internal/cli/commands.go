package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
	"github.com/dmitrijs2005/dsqlctl/internal/stress"
)

const defaultRole = "User"

func (a *App) repopulate(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "This will DROP the users table and recreate it with sample data.")
	results, err := a.users.Repopulate(ctx, a.confirm("Continue?"))
	if errors.Is(err, common.ErrorNotConfirmed) {
		fmt.Fprintln(a.out, "Operation cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Inserting sample users...")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(a.out, "Failed to insert user '%s': %v\n", r.Sample.Name, r.Err)
			continue
		}
		fmt.Fprintf(a.out, "User '%s' inserted with ID: %s\n", r.User.Name, r.User.ID)
	}
	fmt.Fprintln(a.out, "Database has been repopulated successfully")
	return nil
}

func (a *App) listUsers(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	printUsers(a.out, users)
	return nil
}

func (a *App) addUser(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Adding a new user. Please provide the following information:")
	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	role, err := GetTextWithDefault(a.reader, "Role (Admin/User/Manager)", defaultRole, a.out)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return errors.New("name and email are required")
	}

	user, err := a.users.InsertUser(ctx, uuid.New(), name, email, role)
	if err != nil {
		fmt.Fprintf(a.out, "Failed to add user: %v\n", err)
		return err
	}

	fmt.Fprintln(a.out, "User added successfully!")
	fmt.Fprintf(a.out, "User ID: %s\nName: %s\nEmail: %s\nRole: %s\n", user.ID, user.Name, user.Email, user.Role)
	return nil
}

func (a *App) stressTest(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	total, concurrency := a.config.StressUsers, a.config.StressConcurrency
	fmt.Fprintf(a.out, "Starting stress test with %d users at concurrency level %d\n", total, concurrency)

	if err := a.users.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	h := stress.NewHarness(a.users,
		stress.WithLogger(a.logger),
		stress.WithBatchHook(func(_ context.Context, r stress.BatchReport) error {
			fmt.Fprintf(a.out, "Batch %d: users %d-%d, %d ok, %d failed\n", r.Number, r.From, r.To, r.Succeeded, r.Failed)
			return nil
		}),
	)

	run, err := h.Run(ctx, total, concurrency)
	printStressRun(a.out, run)
	return err
}

func (a *App) userStats(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	stats, err := a.users.Stats(ctx)
	if err != nil {
		return err
	}
	printStats(a.out, stats)
	return nil
}

func (a *App) generateToken(ctx context.Context) error {
	d := a.descriptor()
	if d.Host == "" {
		return fmt.Errorf("%w: host is required (-host or DB_HOST)", common.ErrorEncoding)
	}

	token, err := a.tokens.GenerateToken(ctx, d.Host, d.Region, d.Admin)
	if err != nil {
		return err
	}

	if a.config.TokenOnly {
		fmt.Fprintln(a.out, token)
		return nil
	}
	printToken(a.out, d, token)
	return nil
}
