package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
	"github.com/dmitrijs2005/dsqlctl/internal/dbx"
	"github.com/dmitrijs2005/dsqlctl/internal/models"
	"github.com/dmitrijs2005/dsqlctl/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dsqlctl/internal/repositories/users"
	"github.com/dmitrijs2005/dsqlctl/internal/retry"
)

// --- helpers ---

func yes(context.Context) (bool, error) { return true, nil }
func no(context.Context) (bool, error)  { return false, nil }

func newExecutor(t *testing.T) *retry.Executor {
	t.Helper()
	e, err := retry.NewExecutor(retry.Policy{MaxAttempts: 3, Backoff: 0})
	require.NoError(t, err)
	return e
}

func newInMemoryService(t *testing.T, opts ...UserServiceOption) (*UserService, *repomanager.InMemoryRepositoryManager) {
	t.Helper()
	m := repomanager.NewInMemoryRepositoryManager()
	return NewUserService(nil, m, newExecutor(t), nil, opts...), m
}

type insertResult struct {
	n   int64
	err error
}

// countingRepo replays scripted results and counts calls.
type countingRepo struct {
	inserts    []insertResult
	insertN    int
	createErrs []error
	createN    int
	dropN      int
	listErr    error
}

func (r *countingRepo) DropTable(context.Context) error {
	r.dropN++
	return nil
}

func (r *countingRepo) CreateTable(context.Context) error {
	r.createN++
	if r.createN <= len(r.createErrs) {
		return r.createErrs[r.createN-1]
	}
	return nil
}

func (r *countingRepo) Insert(context.Context, *models.User) (int64, error) {
	r.insertN++
	res := r.inserts[len(r.inserts)-1]
	if r.insertN <= len(r.inserts) {
		res = r.inserts[r.insertN-1]
	}
	return res.n, res.err
}

func (r *countingRepo) List(context.Context) ([]*models.User, error) {
	return nil, r.listErr
}

func (r *countingRepo) Stats(context.Context) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

type fakeManager struct {
	repo          users.Repository
	migrationErrs []error
	migrationN    int
}

func (m *fakeManager) Users(dbx.DBTX) users.Repository { return m.repo }

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrationN++
	if m.migrationN <= len(m.migrationErrs) {
		return m.migrationErrs[m.migrationN-1]
	}
	return nil
}

type fakeSnapshotter struct {
	got   []*models.User
	calls int
	err   error
}

func (f *fakeSnapshotter) Snapshot(_ context.Context, u []*models.User) (string, error) {
	f.calls++
	f.got = u
	return "backups/users/key.json", f.err
}

// --- tests ---

func TestEnsureSchemaInsertList_EndToEnd(t *testing.T) {
	svc, _ := newInMemoryService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureSchema(ctx, yes))

	id := uuid.New()
	u, err := svc.InsertUser(ctx, id, "Ann", "ann@x.com", "User")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ann@x.com", list[0].Email)
	assert.Equal(t, "User", list[0].Role)
}

func TestEnsureSchema_RequiresConfirmation(t *testing.T) {
	svc, _ := newInMemoryService(t)
	ctx := context.Background()

	_, err := svc.InsertUser(ctx, uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.EnsureSchema(ctx, no), common.ErrorNotConfirmed)
	assert.ErrorIs(t, svc.EnsureSchema(ctx, nil), common.ErrorNotConfirmed)

	boom := errors.New("stdin closed")
	err = svc.EnsureSchema(ctx, func(context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "table must be untouched without confirmation")
}

func TestEnsureSchema_DropsExistingRows(t *testing.T) {
	svc, _ := newInMemoryService(t)
	ctx := context.Background()

	_, err := svc.InsertUser(ctx, uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	require.NoError(t, svc.EnsureSchema(ctx, yes))

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEnsureSchema_RetriesDropAndCreateTogether(t *testing.T) {
	repo := &countingRepo{createErrs: []error{errors.New("connection reset")}}
	svc := NewUserService(nil, &fakeManager{repo: repo}, newExecutor(t), nil)

	require.NoError(t, svc.EnsureSchema(context.Background(), yes))
	assert.Equal(t, 2, repo.dropN)
	assert.Equal(t, 2, repo.createN)
}

func TestInsertUser_SameEmailTwice(t *testing.T) {
	svc, _ := newInMemoryService(t)
	ctx := context.Background()

	first := uuid.New()
	_, err := svc.InsertUser(ctx, first, "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	u, err := svc.InsertUser(ctx, uuid.New(), "Ann Again", "ann@x.com", "Admin")
	require.Error(t, err)
	assert.Nil(t, u)
	assert.ErrorIs(t, err, common.ErrorConflict)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first, list[0].ID)
}

func TestInsertUser_ConflictIsNeverRetried(t *testing.T) {
	for _, attempts := range []int{1, 3, 10} {
		repo := &countingRepo{inserts: []insertResult{{n: 0}}}
		exec, err := retry.NewExecutor(retry.Policy{MaxAttempts: attempts})
		require.NoError(t, err)
		svc := NewUserService(nil, &fakeManager{repo: repo}, exec, nil)

		_, err = svc.InsertUser(context.Background(), uuid.New(), "Ann", "ann@x.com", "User")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrorConflict)
		assert.NotErrorIs(t, err, common.ErrorRetriesExhausted)
		assert.Equal(t, 1, repo.insertN, "max attempts %d", attempts)

		var rerr *retry.Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, retry.StateFailedTerminal, rerr.State)
		assert.Equal(t, "insert_user", rerr.Op)
	}
}

func TestInsertUser_TransientThenSuccess(t *testing.T) {
	transient := errors.New("connection reset by peer")
	repo := &countingRepo{inserts: []insertResult{{err: transient}, {err: transient}, {n: 1}}}
	svc := NewUserService(nil, &fakeManager{repo: repo}, newExecutor(t), nil)

	u, err := svc.InsertUser(context.Background(), uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.Equal(t, 3, repo.insertN)
}

func TestInsertUser_Exhausted(t *testing.T) {
	transient := errors.New("i/o timeout")
	repo := &countingRepo{inserts: []insertResult{{err: transient}}}
	svc := NewUserService(nil, &fakeManager{repo: repo}, newExecutor(t), nil)

	_, err := svc.InsertUser(context.Background(), uuid.New(), "Ann", "ann@x.com", "User")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorRetriesExhausted)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, repo.insertN)
}

func TestBootstrap_RetriesMigrations(t *testing.T) {
	m := &fakeManager{repo: &countingRepo{}, migrationErrs: []error{errors.New("connection refused")}}
	svc := NewUserService(nil, m, newExecutor(t), nil)

	require.NoError(t, svc.Bootstrap(context.Background()))
	assert.Equal(t, 2, m.migrationN)
}

func TestStats_ReadOnlyTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := repomanager.NewInMemoryRepositoryManager()
	svc := NewUserService(db, m, newExecutor(t), nil)
	ctx := context.Background()

	_, err = svc.InsertUser(ctx, uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_BacksUpExistingUsers(t *testing.T) {
	snap := &fakeSnapshotter{}
	svc, _ := newInMemoryService(t, WithBackup(snap))
	ctx := context.Background()

	_, err := svc.InsertUser(ctx, uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	require.NoError(t, svc.EnsureSchema(ctx, yes))
	assert.Equal(t, 1, snap.calls)
	require.Len(t, snap.got, 1)
	assert.Equal(t, "ann@x.com", snap.got[0].Email)
}

func TestEnsureSchema_NoTableSkipsBackup(t *testing.T) {
	snap := &fakeSnapshotter{}
	svc, m := newInMemoryService(t, WithBackup(snap))
	ctx := context.Background()

	require.NoError(t, m.Users(nil).DropTable(ctx))

	require.NoError(t, svc.EnsureSchema(ctx, yes))
	assert.Zero(t, snap.calls)
}

func TestEnsureSchema_BackupFailureKeepsTable(t *testing.T) {
	snap := &fakeSnapshotter{err: errors.New("access denied")}
	svc, _ := newInMemoryService(t, WithBackup(snap))
	ctx := context.Background()

	_, err := svc.InsertUser(ctx, uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	err = svc.EnsureSchema(ctx, yes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup")

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRepopulate(t *testing.T) {
	svc, _ := newInMemoryService(t)
	ctx := context.Background()

	_, err := svc.InsertUser(ctx, uuid.New(), "Old", "old@x.com", "User")
	require.NoError(t, err)

	results, err := svc.Repopulate(ctx, yes)
	require.NoError(t, err)
	require.Len(t, results, len(SampleUsers))
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, SampleUsers[i].Email, r.User.Email)
	}

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(SampleUsers))
}

func TestRepopulate_NotConfirmed(t *testing.T) {
	svc, _ := newInMemoryService(t)

	results, err := svc.Repopulate(context.Background(), no)
	assert.ErrorIs(t, err, common.ErrorNotConfirmed)
	assert.Nil(t, results)
}

func TestRepopulate_ReportsPerUserFailures(t *testing.T) {
	repo := &countingRepo{inserts: []insertResult{{n: 1}, {n: 0}, {n: 1}}}
	svc := NewUserService(nil, &fakeManager{repo: repo}, newExecutor(t), nil)

	results, err := svc.Repopulate(context.Background(), yes)
	require.NoError(t, err)
	require.Len(t, results, len(SampleUsers))
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, common.ErrorConflict)
	assert.NoError(t, results[4].Err)
}

func TestStats_WithoutDatabase(t *testing.T) {
	svc, _ := newInMemoryService(t)
	ctx := context.Background()

	_, err := svc.InsertUser(ctx, uuid.New(), "Ann", "ann@x.com", "User")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, "ann@x.com", stats.Newest.Email)
}
