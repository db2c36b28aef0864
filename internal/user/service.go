package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
	userrepo "github.com/AiCodeFutures/usermanage/internal/user/repo"
)

var validate = validator.New()

// UserService orchestrates the user lifecycle on top of the record store.
type UserService struct {
	repo   *userrepo.UserRepo
	hasher PasswordHasher
}

func NewUserService(db *sqlx.DB, r *userrepo.UserRepo, hasher PasswordHasher) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = Argon2idHasher{}
	}
	return &UserService{repo: r, hasher: hasher}
}

// RegisterInput carries the plaintext password; it is hashed before storage.
type RegisterInput struct {
	Username string   `json:"username" validate:"required,max=64"`
	Email    string   `json:"email" validate:"required,email,max=254"`
	Password string   `json:"password" validate:"required"`
	Remark   *string  `json:"remark"`
	IsAdmin  bool     `json:"is_admin"`
	Height   *float64 `json:"height" validate:"omitempty,gt=0"`
	Weight   *float64 `json:"weight" validate:"omitempty,gt=0"`
	Age      *int64   `json:"age" validate:"omitempty,gte=0"`
}

// UpdateInput is a partial update. Password, when set, is plaintext.
type UpdateInput struct {
	Patch    *entity.Patch
	Password *string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, fmt.Sprintf(format, args...))
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Register creates a user. The username/email pre-check only gives an early answer,
// the unique constraint in the store is what actually decides.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, invalid("%v", err)
	}

	if err := s.precheck(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, &entity.NewUser{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Remark:       in.Remark,
		IsAdmin:      in.IsAdmin,
		Height:       in.Height,
		Weight:       in.Weight,
		Age:          in.Age,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) precheck(ctx context.Context, username, email string) error {
	lookups := []func() (*entity.User, error){
		func() (*entity.User, error) { return s.repo.GetByEmail(ctx, email) },
		func() (*entity.User, error) { return s.repo.GetByUsername(ctx, username) },
	}
	for _, get := range lookups {
		if _, err := get(); err == nil {
			return fmt.Errorf("register: %w", apperr.ErrConstraint)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List pages through users. limit 0 means no limit.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]entity.User, error) {
	if skip < 0 || limit < 0 {
		return nil, invalid("skip and limit must not be negative")
	}
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	return s.repo.List(ctx, skip, lim)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *UserService) Search(ctx context.Context, query string) ([]entity.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query is required")
	}
	return s.repo.Search(ctx, query)
}

// Update applies the supplied fields and returns the stored record.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateInput) (*entity.User, error) {
	p := in.Patch
	if p == nil {
		p = entity.NewPatch()
	}
	if p.Has(entity.ColPassword) {
		return nil, invalid("password must be supplied in plaintext")
	}
	if p.Has(entity.ColUsername) {
		v, _ := p.Value(entity.ColUsername).(string)
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, invalid("username must not be empty")
		}
		p.SetUsername(v)
	}
	if p.Has(entity.ColEmail) {
		v, _ := p.Value(entity.ColEmail).(string)
		v = normalizeEmail(v)
		if err := validate.Var(v, "required,email"); err != nil {
			return nil, invalid("email is not valid")
		}
		p.SetEmail(v)
	}
	for _, c := range []string{entity.ColHeight, entity.ColWeight} {
		if v, ok := p.Value(c).(float64); ok && v <= 0 {
			return nil, invalid("%s must be positive", c)
		}
	}
	if v, ok := p.Value(entity.ColAge).(int64); ok && v < 0 {
		return nil, invalid("age must not be negative")
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, invalid("password must not be empty")
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		p.SetPasswordHash(hash)
	}
	if p.Len() == 0 {
		return nil, invalid("no fields to update")
	}

	ok, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("update user %d: %w", id, apperr.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete user %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Login derives the digest of password with the stored digest's salt and
// parameters and asks the store to match it. Every miss is ErrUnauthorized so
// callers cannot tell an unknown email from a wrong password.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.ErrUnauthorized
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	digest, err := s.hasher.Derive(u.Password, password)
	if err != nil {
		// empty or foreign digest, the account cannot log in
		return nil, apperr.ErrUnauthorized
	}
	u, err = s.repo.Authenticate(ctx, email, digest)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}
