package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// SQLiteUserRepository implements domain.UserRepository using SQLite.
type SQLiteUserRepository struct {
	db        *sql.DB
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
	now       Clock
}

var _ domain.UserRepository = (*SQLiteUserRepository)(nil)

// NewSQLiteUserRepository creates a repository over an initialized database.
// writeLock must be shared with every other writer of db.
func NewSQLiteUserRepository(db *sql.DB, writeLock *sync.Mutex) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, writeLock: writeLock, now: utcNow}
}

// Create implements domain.UserRepository.Create using SQLite.
func (r *SQLiteUserRepository) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := r.now().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, createdAt.Unix(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, oops.Code("USER_USERNAME_TAKEN").
				With("username", username).
				Wrap(domain.ErrUsernameTaken)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", username).
			Wrap(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "read inserted id").
			Wrap(err)
	}

	return &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetByUsername implements domain.UserRepository.GetByUsername using SQLite.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	)
	user, err := scanSQLiteUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// GetByID implements domain.UserRepository.GetByID using SQLite.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	user, err := scanSQLiteUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

func scanSQLiteUser(row *sql.Row) (*domain.User, error) {
	var (
		user      domain.User
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}
