package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/leafnote/leafnote-server/internal/models"
)

// mysqlDuplicateEntry is the server error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// UserStore performs user persistence against the shared connection pool.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, name, email, password, created_at, updated_at"

// Create registers a new user with an already-hashed password. A duplicate
// email reports ErrEmailTaken.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (models.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		name, email, passwordHash, now, now)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user insert id: %w", err)
	}

	return models.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByEmail resolves a user for login.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.get(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetByID resolves the authenticated caller's own record.
func (s *UserStore) GetByID(ctx context.Context, id int64) (models.User, error) {
	return s.get(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (s *UserStore) get(ctx context.Context, query string, arg interface{}) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("fetch user: %w", err)
	}
	return user, nil
}
