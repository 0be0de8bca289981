package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var dbErrRe = regexp.MustCompile(`db error: .*db down`)

func TestDropTable(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DROP\s+TABLE\s+IF\s+EXISTS\s+users$`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DropTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTable(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^CREATE\s+TABLE\s+users\s*\(\s*id\s+UUID\s+PRIMARY\s+KEY,.*email\s+VARCHAR\(100\)\s+UNIQUE\s+NOT\s+NULL,.*created_at\s+TIMESTAMPTZ\s+NOT\s+NULL\s+DEFAULT\s+CURRENT_TIMESTAMP\s*\)$`
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.CreateTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTable_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE users`).WillReturnError(errors.New("db down"))

	err := repo.CreateTable(context.Background())
	require.Error(t, err)
	assert.Regexp(t, dbErrRe, err.Error())
}

const insertRe = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s*\(email\)\s*DO\s+NOTHING$`

func TestInsert_Stored(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := &models.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com", Role: "User"}
	mock.ExpectExec(insertRe).
		WithArgs(u.ID.String(), "Ann", "ann@x.com", "User").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Insert(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ConflictReportsZeroRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := &models.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com", Role: "User"}
	mock.ExpectExec(insertRe).WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.Insert(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertRe).WillReturnError(errors.New("db down"))

	_, err := repo.Insert(context.Background(), models.NewUser("Ann", "ann@x.com", "User"))
	require.Error(t, err)
	assert.Regexp(t, dbErrRe, err.Error())
}

func TestInsert_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertRe).WillReturnResult(sqlmock.NewErrorResult(errors.New("db down")))

	_, err := repo.Insert(context.Background(), models.NewUser("Ann", "ann@x.com", "User"))
	require.Error(t, err)
	assert.Regexp(t, dbErrRe, err.Error())
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at"}).
		AddRow(id.String(), "Ann", "ann@x.com", "User", created)
	mock.ExpectQuery(`^SELECT\s+id,\s*name,\s*email,\s*role,\s*created_at\s+FROM\s+users$`).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "ann@x.com", got[0].Email)
	assert.Equal(t, "User", got[0].Role)
	assert.Equal(t, created, got[0].CreatedAt)
}

func TestList_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at"}))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("db down"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Regexp(t, dbErrRe, err.Error())
}

func TestList_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at"}).
		AddRow("not-a-uuid", "Ann", "ann@x.com", "User", time.Now())
	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	_, err := repo.List(context.Background())
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	newest := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	oldest := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^SELECT COUNT\(\*\) AS "count" FROM "users"$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`^SELECT "role", COUNT\(\*\) AS "count" FROM "users" GROUP BY "role" ORDER BY "count" DESC$`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).AddRow("User", int64(2)).AddRow("Admin", int64(1)))
	mock.ExpectQuery(`^SELECT "name", "email", "created_at" FROM "users" ORDER BY "created_at" DESC LIMIT 1$`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "email", "created_at"}).AddRow("Bob", "bob@y.org", newest))
	mock.ExpectQuery(`^SELECT "name", "email", "created_at" FROM "users" ORDER BY "created_at" ASC LIMIT 1$`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "email", "created_at"}).AddRow("Ann", "ann@x.com", oldest))
	mock.ExpectQuery(`(?s)^SELECT SUBSTRING\("email" FROM POSITION\('@' IN "email"\) \+ 1\) AS "domain", COUNT\(\*\) AS "count" FROM "users" GROUP BY "domain" ORDER BY "count" DESC LIMIT 5$`).
		WillReturnRows(sqlmock.NewRows([]string{"domain", "count"}).AddRow("x.com", int64(2)).AddRow("y.org", int64(1)))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, []models.RoleCount{{Role: "User", Count: 2}, {Role: "Admin", Count: 1}}, stats.ByRole)
	assert.Equal(t, []models.DomainCount{{Domain: "x.com", Count: 2}, {Domain: "y.org", Count: 1}}, stats.Domains)
	require.NotNil(t, stats.Newest)
	assert.Equal(t, "Bob", stats.Newest.Name)
	require.NotNil(t, stats.Oldest)
	assert.Equal(t, oldest, stats.Oldest.CreatedAt)
}

func TestStats_EmptyTable(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`GROUP BY "role"`).WillReturnRows(sqlmock.NewRows([]string{"role", "count"}))
	mock.ExpectQuery(`DESC LIMIT 1`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`ASC LIMIT 1`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`GROUP BY "domain"`).WillReturnRows(sqlmock.NewRows([]string{"domain", "count"}))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.Newest)
	assert.Nil(t, stats.Oldest)
	assert.Empty(t, stats.ByRole)
}

func TestStats_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`COUNT`).WillReturnError(errors.New("db down"))

	_, err := repo.Stats(context.Background())
	require.Error(t, err)
	assert.Regexp(t, dbErrRe, err.Error())
}
