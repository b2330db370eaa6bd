package auth

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/ArcaneChat/chatmail/config"
	"github.com/pressly/goose/v3"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Variables

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUp is a seam for running the embedded migrations.
var gooseUp = func(ctx context.Context, db *sql.DB) error {

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, "migrations")
}

// Structs

// PostgresStore keeps password records in the accounts
// table of a PostgreSQL database. The primary key on
// addr is what makes creation atomic across processes.
type PostgresStore struct {
	db   *sql.DB
	conf *config.Config
}

// Functions

// OpenPostgresStore connects to the database named by
// dsn and brings its schema up to date.
func OpenPostgresStore(ctx context.Context, dsn string, conf *config.Config) (*PostgresStore, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open PostgreSQL database: %w", err)
	}

	if err := gooseUp(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate PostgreSQL database: %w", err)
	}

	return NewPostgresStore(db, conf), nil
}

// NewPostgresStore wraps an already migrated database.
func NewPostgresStore(db *sql.DB, conf *config.Config) *PostgresStore {

	return &PostgresStore{
		db:   db,
		conf: conf,
	}
}

// Close releases the database connections.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) account(addr string, password string) *Account {

	return &Account{
		Addr:     addr,
		Password: password,
		Home:     p.conf.UserDir(addr),
		UID:      p.conf.VmailUser,
		GID:      p.conf.VmailUser,
	}
}

// ReadAccount looks up the stored hash of addr.
func (p *PostgresStore) ReadAccount(ctx context.Context, addr string) (*Account, error) {

	if err := validateAddress(addr); err != nil {
		return nil, err
	}

	var password string

	err := p.db.QueryRowContext(ctx,
		`SELECT password FROM accounts WHERE addr = $1`,
		addr,
	).Scan(&password)
	if err != nil {

		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}

		return nil, fmt.Errorf("db error: %w", err)
	}

	return p.account(addr, password), nil
}

// CreateAccount inserts the record unless the address
// is taken, in which case the stored record is returned.
func (p *PostgresStore) CreateAccount(ctx context.Context, addr string, passwordHash string) (*Account, bool, error) {

	if err := validateAddress(addr); err != nil {
		return nil, false, err
	}

	res, err := p.db.ExecContext(ctx,
		`INSERT INTO accounts (addr, password) VALUES ($1, $2) ON CONFLICT (addr) DO NOTHING`,
		addr, passwordHash,
	)
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	if n == 0 {

		acc, err := p.ReadAccount(ctx, addr)
		if err != nil {
			return nil, false, err
		}

		return acc, false, nil
	}

	return p.account(addr, passwordHash), true, nil
}

// ListAddresses returns all addresses in the accounts table.
func (p *PostgresStore) ListAddresses(ctx context.Context) ([]string, error) {

	rows, err := p.db.QueryContext(ctx, `SELECT addr FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var addrs []string

	for rows.Next() {

		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		addrs = append(addrs, addr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return addrs, nil
}
