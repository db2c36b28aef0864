package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/pkg/database"
)

func columnNames(t *testing.T, r *UserRepo) []string {
	t.Helper()
	var cols []string
	require.NoError(t, r.db.Select(&cols, `SELECT name FROM pragma_table_info('users') ORDER BY cid`))
	return cols
}

func TestMigrate_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	v, err := Migrate(context.Background(), db.DB, database.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	cols := columnNames(t, NewUserRepo(db))
	assert.Equal(t, []string{
		"id", "username", "email", "remark", "created_at",
		"password", "is_admin", "height", "weight", "age",
	}, cols)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := Migrate(ctx, db.DB, database.DriverSQLite)
	require.NoError(t, err)

	r := NewUserRepo(db)
	mustCreate(t, r, "alice", "alice@x.com")

	v, err := Migrate(ctx, db.DB, database.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMigrate_UpgradesLegacyTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Tables from older deployments, with no migration bookkeeping at all.
	db.MustExec(`CREATE TABLE users (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  username TEXT UNIQUE NOT NULL,
	  email TEXT UNIQUE NOT NULL,
	  remark TEXT,
	  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  password TEXT NOT NULL DEFAULT ''
	)`)
	db.MustExec(`INSERT INTO users (username, email, remark) VALUES ('old', 'old@x.com', 'kept')`)

	_, err := Migrate(ctx, db.DB, database.DriverSQLite)
	require.NoError(t, err)

	r := NewUserRepo(db)
	assert.Contains(t, columnNames(t, r), "age")

	u, err := r.GetByEmail(ctx, "old@x.com")
	require.NoError(t, err)
	assert.Equal(t, "old", u.Username)
	assert.Equal(t, "kept", *u.Remark)
	assert.Equal(t, "", u.Password)
	assert.False(t, u.IsAdmin)
	assert.Nil(t, u.Height)
	assert.Nil(t, u.Age)

	_, err = r.Authenticate(ctx, "old@x.com", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
