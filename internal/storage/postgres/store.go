package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store provides Postgres-backed persistence for users and services.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL,
			national_id TEXT NOT NULL,
			phone TEXT NOT NULL,
			job TEXT NOT NULL,
			address TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS services (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL CHECK (type IN ('funding', 'saving', 'investment')),
			amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'completed')),
			purpose TEXT,
			target_date TIMESTAMPTZ,
			progress NUMERIC(12,2) NOT NULL DEFAULT 0,
			payment_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			contract_generated BOOLEAN NOT NULL DEFAULT FALSE,
			contract_path TEXT,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
		);`,
		`CREATE INDEX IF NOT EXISTS services_user_created_idx ON services (user_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS services_created_idx ON services (created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.full_name, u.national_id, u.phone, u.job, u.address, u.is_admin, u.created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users AS u (username, email, password_hash, full_name, national_id, phone, job, address, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.NationalID,
		user.Phone, user.Job, user.Address, user.IsAdmin,
	)
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, translate(err)
	}
	return created, nil
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	return scanUser(row)
}

// FindByUsername fetches a user by username.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)
	return scanUser(row)
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users u WHERE u.username = $1 OR u.email = $1 ORDER BY u.id LIMIT 1`
	row := s.pool.QueryRow(ctx, query, identifier)
	return scanUser(row)
}

const serviceColumns = `s.id, s.user_id, s.type, s.amount::text, s.status, s.purpose, s.target_date, s.progress::text,
	s.payment_confirmed, s.contract_generated, s.contract_path, s.details, s.created_at, s.updated_at`

// CreateService inserts a new service row. A missing owner yields storage.ErrNotFound.
func (s *Store) CreateService(ctx context.Context, svc models.Service) (models.Service, error) {
	const query = `
		INSERT INTO services AS s (user_id, type, amount, status, purpose, target_date, payment_confirmed, contract_generated, contract_path)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
		RETURNING ` + serviceColumns
	row := s.pool.QueryRow(ctx, query,
		svc.UserID, string(svc.Type), svc.Amount, string(svc.Status), svc.Purpose, svc.TargetDate,
		svc.PaymentConfirmed, svc.ContractGenerated, svc.ContractPath,
	)
	created, err := scanService(row)
	if err != nil {
		return models.Service{}, translate(err)
	}
	return created, nil
}

// FindServiceByID fetches a single service.
func (s *Store) FindServiceByID(ctx context.Context, id int64) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services s WHERE s.id = $1`, id)
	return scanService(row)
}

// ListServicesByUser returns the services owned by userID, newest first.
func (s *Store) ListServicesByUser(ctx context.Context, userID int64) ([]models.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services s WHERE s.user_id = $1 ORDER BY s.created_at DESC, s.id DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	out := []models.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// ListServicesWithUsers returns every service joined with its owner, newest first.
func (s *Store) ListServicesWithUsers(ctx context.Context) ([]models.ServiceWithUser, error) {
	const query = `SELECT ` + serviceColumns + `, ` + userColumns + `
		FROM services s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.created_at DESC, s.id DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services with users: %w", err)
	}
	defer rows.Close()

	out := []models.ServiceWithUser{}
	for rows.Next() {
		var item models.ServiceWithUser
		var details []byte
		dest := append(serviceDest(&item.Service, &details), userDest(&item.User)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		item.Details = details
		out = append(out, item)
	}
	return out, rows.Err()
}

// UpdateService applies a partial update and returns the stored row.
func (s *Store) UpdateService(ctx context.Context, id int64, update storage.ServiceUpdate) (models.Service, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Status != nil {
		set("status", string(*update.Status))
	}
	if update.ContractGenerated != nil {
		set("contract_generated", *update.ContractGenerated)
	}
	if update.ContractPath != nil {
		set("contract_path", *update.ContractPath)
	}
	// clock_timestamp keeps updated_at moving even when several updates share a transaction.
	sets = append(sets, "updated_at = GREATEST(clock_timestamp(), s.updated_at + INTERVAL '1 microsecond')")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE services AS s SET %s WHERE s.id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), serviceColumns)
	row := s.pool.QueryRow(ctx, query, args...)
	updated, err := scanService(row)
	if err != nil {
		return models.Service{}, translate(err)
	}
	return updated, nil
}

func userDest(user *models.User) []any {
	return []any{
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName, &user.NationalID,
		&user.Phone, &user.Job, &user.Address, &user.IsAdmin, &user.CreatedAt,
	}
}

func serviceDest(svc *models.Service, details *[]byte) []any {
	return []any{
		&svc.ID, &svc.UserID, &svc.Type, &svc.Amount, &svc.Status, &svc.Purpose, &svc.TargetDate, &svc.Progress,
		&svc.PaymentConfirmed, &svc.ContractGenerated, &svc.ContractPath, details, &svc.CreatedAt, &svc.UpdatedAt,
	}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(userDest(&user)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanService(row pgx.Row) (models.Service, error) {
	var svc models.Service
	var details []byte
	if err := row.Scan(serviceDest(&svc, &details)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, storage.ErrNotFound
		}
		return models.Service{}, err
	}
	svc.Details = details
	return svc, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return storage.ErrAlreadyExists
		case pgForeignKeyViolation:
			return storage.ErrNotFound
		}
	}
	return err
}
