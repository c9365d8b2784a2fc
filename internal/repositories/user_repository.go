package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"social-service/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")
)

const userColumns = `id, email, username, password_hash, full_name, birthdate, gender, interests, followers, following`

// UserRepository is the account directory: lookup, enumeration and the
// persistence side of the follow relation.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateFollowSets(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new account.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (email, username, password_hash, full_name, birthdate, gender, interests)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		user.Email, user.Username, user.PasswordHash, user.FullName, user.Birthdate, user.Gender, user.Interests).
		Scan(&user.ID)
	if err != nil {
		return translateCreateError(err)
	}
	return nil
}

// translateCreateError maps a unique-constraint violation to the sentinel of
// the column that collided. Anything else passes through untouched.
func translateCreateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "username") {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	return err
}

// GetByEmail fetches an account by its canonical identifier.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByUsername fetches an account by handle.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListAll enumerates every account in insertion order. This order is the
// stable "natural" order the suggestions endpoint relies on.
func (r *UserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`)
	return users, err
}

// Search matches handle or full name case-insensitively.
func (r *UserRepo) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users
        WHERE username ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'
        ORDER BY id LIMIT $2`, query, limit)
	return users, err
}

// UpdateFollowSets persists only the follower/following arrays of one row.
// Callers maintain the symmetric invariant by calling this once per side.
func (r *UserRepo) UpdateFollowSets(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET followers=$1, following=$2 WHERE email=$3`,
		user.Followers, user.Following, user.Email)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE email=$2`, passwordHash, email)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
