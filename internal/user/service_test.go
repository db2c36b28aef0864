package user

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
	userrepo "github.com/AiCodeFutures/usermanage/internal/user/repo"
	"github.com/AiCodeFutures/usermanage/pkg/database"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: database.SQLiteDSN(path), MaxConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = userrepo.Migrate(context.Background(), db.DB, database.DriverSQLite)
	require.NoError(t, err)
	return db
}

func newTestService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestDB(t), nil, Argon2idHasher{Params: testParams})
}

func register(t *testing.T, s *UserService, username, email, password string) *entity.User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func TestRegister_NormalizesAndHashes(t *testing.T) {
	s := newTestService(t)
	u := register(t, s, "  alice ", " Alice@Example.COM ", "pw")

	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "pw", u.Password)
	assert.Contains(t, u.Password, "$argon2id$")
	assert.NotZero(t, u.ID)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	neg := -1.0

	cases := []RegisterInput{
		{Username: "", Email: "a@x.com", Password: "pw"},
		{Username: "a", Email: "not-an-email", Password: "pw"},
		{Username: "a", Email: "a@x.com", Password: ""},
		{Username: "a", Email: "a@x.com", Password: "pw", Height: &neg},
	}
	for i, in := range cases {
		_, err := s.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, "case %d", i)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@x.com", "pw")

	_, err := s.Register(ctx, RegisterInput{Username: "other", Email: "ALICE@x.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConstraint)

	_, err = s.Register(ctx, RegisterInput{Username: "alice", Email: "new@x.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConstraint)
}

func TestList_LimitZeroMeansAll(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		register(t, s, fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@x.com", i), "pw")
	}

	all, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	page, err := s.List(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "u2", page[0].Username)
	assert.Equal(t, "u4", page[2].Username)

	_, err = s.List(ctx, -1, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	s := newTestService(t)
	_, err := s.Search(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearch_MatchesEmailAndRemark(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	remark := "friend of ann"
	register(t, s, "x1", "ann@x.com", "pw")
	_, err := s.Register(ctx, RegisterInput{Username: "x2", Email: "b@x.com", Password: "pw", Remark: &remark})
	require.NoError(t, err)
	register(t, s, "x3", "c@x.com", "pw")

	got, err := s.Search(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x1", got[0].Username)
	assert.Equal(t, "x2", got[1].Username)
}

func TestUpdate_PartialAndPassword(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice", "alice@x.com", "old")

	remark := "hello"
	newPw := "new"
	got, err := s.Update(ctx, u.ID, UpdateInput{Patch: entity.NewPatch().SetRemark(&remark), Password: &newPw})
	require.NoError(t, err)
	assert.Equal(t, "hello", *got.Remark)
	assert.Equal(t, "alice@x.com", got.Email)
	assert.NotEqual(t, u.Password, got.Password)

	_, err = s.Login(ctx, "alice@x.com", "old")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = s.Login(ctx, "alice@x.com", "new")
	assert.NoError(t, err)
}

func TestUpdate_Errors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice", "alice@x.com", "pw")
	register(t, s, "bob", "bob@x.com", "pw")
	empty := ""

	_, err := s.Update(ctx, u.ID, UpdateInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Update(ctx, u.ID, UpdateInput{Password: &empty})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Update(ctx, u.ID, UpdateInput{Patch: entity.NewPatch().SetUsername(" ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Update(ctx, u.ID, UpdateInput{Patch: entity.NewPatch().SetEmail("bob@x.com")})
	assert.ErrorIs(t, err, apperr.ErrConstraint)

	_, err = s.Update(ctx, u.ID+100, UpdateInput{Patch: entity.NewPatch().SetUsername("zed")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice", "alice@x.com", "pw")

	require.NoError(t, s.Delete(ctx, u.ID))
	assert.ErrorIs(t, s.Delete(ctx, u.ID), apperr.ErrNotFound)
	_, err := s.Get(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice", "alice@x.com", "s3cret")

	got, err := s.Login(ctx, "Alice@x.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	for _, tc := range []struct{ email, pw string }{
		{"alice@x.com", "wrong"},
		{"nobody@x.com", "s3cret"},
		{"", "s3cret"},
		{"alice@x.com", ""},
	} {
		_, err := s.Login(ctx, tc.email, tc.pw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, "%s/%s", tc.email, tc.pw)
	}
}

func TestLogin_LegacyRowWithoutPassword(t *testing.T) {
	db := newTestDB(t)
	db.MustExec(`INSERT INTO users (username, email) VALUES ('old', 'old@x.com')`)
	s := NewUserService(db, nil, Argon2idHasher{Params: testParams})

	_, err := s.Login(context.Background(), "old@x.com", "anything")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
