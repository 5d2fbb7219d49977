package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/rexbrahh/lp-vault/address"
)

// Postgres stores records in a single table keyed by address. Update runs
// at SERIALIZABLE isolation and locks every row it reads, which gives each
// command exclusive access to the records it names.
type Postgres struct {
	db    *sql.DB
	table string
}

// OpenPostgres connects with lib/pq, pings the server and ensures the schema.
func OpenPostgres(cfg Config) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(db, cfg.Table)
	if err := p.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing handle.
func NewPostgres(db *sql.DB, table string) *Postgres {
	return &Postgres{db: db, table: table}
}

// EnsureSchema creates the records table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		address BYTEA PRIMARY KEY,
		data BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, p.table)
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Update implements Store.
func (p *Postgres) Update(ctx context.Context, fn func(Tx) error) error {
	return p.run(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn, false)
}

// View implements Store.
func (p *Postgres) View(ctx context.Context, fn func(Tx) error) error {
	return p.run(ctx, &sql.TxOptions{ReadOnly: true}, fn, true)
}

func (p *Postgres) run(ctx context.Context, opts *sql.TxOptions, fn func(Tx) error, readOnly bool) error {
	sqlTx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &postgresTx{tx: sqlTx, table: p.table, readOnly: readOnly}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	return p.db.Close()
}

type postgresTx struct {
	tx       *sql.Tx
	table    string
	readOnly bool
}

func (t *postgresTx) Get(ctx context.Context, key address.Address) ([]byte, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE address = $1", t.table)
	if !t.readOnly {
		query += " FOR UPDATE"
	}
	var data []byte
	err := t.tx.QueryRowContext(ctx, query, key[:]).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (t *postgresTx) Insert(ctx context.Context, key address.Address, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	query := fmt.Sprintf("INSERT INTO %s (address, data) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING", t.table)
	res, err := t.tx.ExecContext(ctx, query, key[:], value)
	if err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	return expectOneRow(res, ErrExists)
}

func (t *postgresTx) Put(ctx context.Context, key address.Address, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	query := fmt.Sprintf("UPDATE %s SET data = $2, updated_at = CURRENT_TIMESTAMP WHERE address = $1", t.table)
	res, err := t.tx.ExecContext(ctx, query, key[:], value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return expectOneRow(res, ErrNotFound)
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}
