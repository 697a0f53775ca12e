// Package postgres implements authcore.UserRepository on PostgreSQL via
// database/sql with the pgx stdlib driver. Schema migrations are embedded
// and applied with goose.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/postgres/migrations"
)

const (
	pgUniqueViolation    = "23505"
	pgSerializationError = "40001"
)

// Repository is the PostgreSQL-backed user store.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle. The caller owns the handle
// and its connection pool settings.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open connects with the pgx driver, pings, and runs migrations.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	r := NewRepository(db)
	if err := r.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return r, nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// RunMigrations applies the embedded schema migrations with goose.
func (r *Repository) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, r.db, ".")
}

const userColumns = `id, email, mobile, password, role, info,
	is_email_verified, is_mobile_verified, is_sms_two_fa,
	is_blocked, blocked_until, created, updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*authcore.User, error) {
	var (
		user authcore.User
		info []byte
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.Mobile, &user.PasswordHash, &user.Role, &info,
		&user.EmailVerified, &user.MobileVerified, &user.SMSTwoFA,
		&user.Blocked, &user.BlockedUntil, &user.Created, &user.Updated,
	)
	if err != nil {
		return nil, err
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &user.Info); err != nil {
			return nil, fmt.Errorf("decode info: %w", err)
		}
	}
	return &user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*authcore.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*authcore.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *Repository) Update(ctx context.Context, user *authcore.User) error {
	query := `UPDATE users SET
		email = $2, mobile = $3, password = $4, role = $5, info = $6,
		is_email_verified = $7, is_mobile_verified = $8, is_sms_two_fa = $9,
		is_blocked = $10, blocked_until = $11, updated = $12
		WHERE id = $1`

	info, err := json.Marshal(user.Info)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Mobile, user.PasswordHash, user.Role, info,
		user.EmailVerified, user.MobileVerified, user.SMSTwoFA,
		user.Blocked, user.BlockedUntil, user.Updated,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return authcore.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return authcore.ErrUserDoesNotExist
	}
	return nil
}

// orderColumns maps query sort names to real columns. Anything else falls
// back to created, never into the SQL string.
var orderColumns = map[string]string{
	"email":   "email",
	"role":    "role",
	"created": "created",
	"updated": "updated",
}

func (r *Repository) List(ctx context.Context, q authcore.ListUsersQuery) (*authcore.UserPage, error) {
	column, ok := orderColumns[q.OrderBy]
	if !ok {
		column = "created"
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}

	where := ""
	args := []any{}
	if q.Search != "" {
		where = ` WHERE email ILIKE $1`
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}

	var total int
	countQuery := `SELECT count(*) FROM users` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	page := &authcore.UserPage{Total: total, Users: []authcore.Profile{}}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		page.Users = append(page.Users, user.Profile())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return page, nil
}

// CreateSerializable runs fn inside a serializable transaction. Unique and
// serialization conflicts both surface as ErrUserAlreadyExists: either way
// a concurrent signup won the race for the email.
func (r *Repository) CreateSerializable(ctx context.Context, fn func(ctx context.Context, tx authcore.UserTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if err := fn(ctx, &userTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		if isPgError(err, pgUniqueViolation) || isPgError(err, pgSerializationError) {
			return authcore.ErrUserAlreadyExists
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isPgError(err, pgUniqueViolation) || isPgError(err, pgSerializationError) {
			return authcore.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type userTx struct {
	tx *sql.Tx
}

func (t *userTx) FindByEmail(ctx context.Context, email string) (*authcore.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(t.tx.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (t *userTx) Insert(ctx context.Context, user *authcore.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	info, err := json.Marshal(user.Info)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, query,
		user.ID, user.Email, user.Mobile, user.PasswordHash, user.Role, info,
		user.EmailVerified, user.MobileVerified, user.SMSTwoFA,
		user.Blocked, user.BlockedUntil, user.Created, user.Updated,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return authcore.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
