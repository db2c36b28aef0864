package repo

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
)

// UserRepo provides data access for users table using sqlx.
// Queries are written with '?' placeholders and rebound for the driver.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, password, remark, is_admin, height, weight, age, created_at`

// Create inserts a new user row and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u *entity.NewUser) (int64, error) {
	q := `INSERT INTO users (username, email, password, remark, is_admin, height, weight, age, created_at)
		  VALUES (:username, :email, :password, :remark, :is_admin, :height, :weight, :age, :created_at) RETURNING id`
	params := map[string]any{
		"username":   u.Username,
		"email":      u.Email,
		"password":   u.PasswordHash,
		"remark":     u.Remark,
		"is_admin":   u.IsAdmin,
		"height":     u.Height,
		"weight":     u.Weight,
		"age":        u.Age,
		"created_at": time.Now().UTC(),
	}
	rows, err := r.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return 0, classify("create user", err)
	}
	defer rows.Close()
	if rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, classify("create user", err)
		}
		return id, nil
	}
	if err := rows.Err(); err != nil {
		return 0, classify("create user", err)
	}
	return 0, fmt.Errorf("create user: %w: no id returned", apperr.ErrStorageUnavailable)
}

// GetByID fetches a full user row or apperr.ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail returns a user matched by email or apperr.ErrNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, "get user by email", `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByUsername fetches by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getOne(ctx, "get user by username", `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepo) getOne(ctx context.Context, op, q string, arg any) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(q), arg); err != nil {
		return nil, classify(op, err)
	}
	return &u, nil
}

// List returns users in insertion order. skip discards the first rows, a nil
// limit returns everything after them.
func (r *UserRepo) List(ctx context.Context, skip int, limit *int) ([]entity.User, error) {
	n := int64(math.MaxInt64)
	if limit != nil {
		n = int64(*limit)
	}
	if skip < 0 {
		skip = 0
	}
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT ? OFFSET ?`)
	users := []entity.User{}
	if err := r.db.SelectContext(ctx, &users, q, n, skip); err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

// Count returns the number of live rows.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, classify("count users", err)
	}
	return n, nil
}

// Search matches query as a case-insensitive substring of username, email or
// remark. A NULL remark never matches. Both sides are folded by the database's
// LOWER so an exact substring always matches, whatever the script.
func (r *UserRepo) Search(ctx context.Context, query string) ([]entity.User, error) {
	pattern := "%" + escapeLike(query) + "%"
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
	  WHERE LOWER(username) LIKE LOWER(?) ESCAPE '\'
	     OR LOWER(email) LIKE LOWER(?) ESCAPE '\'
	     OR LOWER(remark) LIKE LOWER(?) ESCAPE '\'
	  ORDER BY id`)
	users := []entity.User{}
	if err := r.db.SelectContext(ctx, &users, q, pattern, pattern, pattern); err != nil {
		return nil, classify("search users", err)
	}
	return users, nil
}

// Update writes only the columns present in p. It reports false without
// touching storage when p is empty, and false when no row has the id.
func (r *UserRepo) Update(ctx context.Context, id int64, p *entity.Patch) (bool, error) {
	cols := p.Columns()
	if len(cols) == 0 {
		return false, nil
	}
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, p.Value(c))
	}
	args = append(args, id)

	q := r.db.Rebind(`UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, classify("update user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("update user", err)
	}
	return n > 0, nil
}

// Delete removes the row permanently. False means there was nothing to remove.
func (r *UserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return false, classify("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete user", err)
	}
	return n > 0, nil
}

// Authenticate loads the user by email and compares the stored digest with
// passwordHash byte for byte. Any mismatch is reported as apperr.ErrNotFound.
func (r *UserRepo) Authenticate(ctx context.Context, email, passwordHash string) (*entity.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Password == "" || !digestsEqual(u.Password, passwordHash) {
		return nil, fmt.Errorf("authenticate: %w", apperr.ErrNotFound)
	}
	return u, nil
}

// digestsEqual compares two digests in constant time.
func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, apperr.ErrConstraint)
	default:
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
	}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE")
		}
		return false
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// escapeLike escapes LIKE wildcards so the query is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
