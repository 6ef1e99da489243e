package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
)

// Account status values. Employees see the processed document index,
// external users only submit faxes.
const (
	StatusEmployee = "employee"
	StatusExternal = "external"
)

var (
	ErrDuplicateUser      = errors.New("user id already exists")
	ErrInvalidCredentials = errors.New("invalid user id or password")
)

type User struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

type UserRepository interface {
	Create(ctx context.Context, userID, password, status string) (*User, error)
	Authenticate(ctx context.Context, userID, password string) (*User, error)
}

type userRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewUserRepository(db *sqlx.DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, userID, password, status string) (*User, error) {
	if status != StatusEmployee && status != StatusExternal {
		return nil, common.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.NewAppError(common.KindStore, "hash password", err)
	}

	q := r.db.Rebind(`INSERT INTO users (user_id, password_hash, status) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, userID, string(hash), status); err != nil {
		if isDuplicateErr(err) {
			return nil, ErrDuplicateUser
		}
		return nil, common.NewAppError(common.KindStore, "create user", err)
	}

	r.logger.Info("store.user.created", "user_id", userID, "status", status)
	return r.getByUserID(ctx, userID)
}

func (r *userRepository) Authenticate(ctx context.Context, userID, password string) (*User, error) {
	var row struct {
		User
		PasswordHash string `db:"password_hash"`
	}
	q := r.db.Rebind(`SELECT id, user_id, password_hash, status, created_at FROM users WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &row, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, common.NewAppError(common.KindStore, "look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &row.User, nil
}

func (r *userRepository) getByUserID(ctx context.Context, userID string) (*User, error) {
	var u User
	q := r.db.Rebind(`SELECT id, user_id, status, created_at FROM users WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &u, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.NewAppError(common.KindStore, "get user", err)
	}
	return &u, nil
}

// isDuplicateErr matches unique-constraint violations on both engines
// without importing driver-specific error types.
func isDuplicateErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
