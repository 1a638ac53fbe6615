// Package store keeps the installed-package journal in SQLite.
//
// A [Store] satisfies [install.Journal]: transactions are recorded as they
// begin and finish, and each installed package is tied to the transaction
// that installed it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/matzehuels/fsm/pkg/deps"
	"github.com/matzehuels/fsm/pkg/install"
	"github.com/matzehuels/fsm/pkg/version"
)

var _ install.Journal = (*Store)(nil)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// Record is one installed package.
type Record struct {
	Name        string
	Version     version.Version
	URL         string
	Kind        deps.Kind
	TxnID       string
	InstalledAt time.Time
}

// Transaction is one journaled transaction.
type Transaction struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while pending
	Status     install.Status
}

// Open opens or creates the database at path, enables WAL mode and applies
// the schema.
func Open(path string) (*Store, error) {
	// foreign_keys is per connection, so it goes in the DSN for the whole pool.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS installed (
		name TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		txn_id TEXT NOT NULL REFERENCES transactions(id),
		installed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_installed_txn ON installed(txn_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Begin records a new pending transaction.
func (s *Store) Begin(ctx context.Context, txnID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, started_at, status) VALUES (?, ?, ?)`,
		txnID, time.Now().UTC(), string(install.StatusPending))
	if err != nil {
		return fmt.Errorf("begin %s: %w", txnID, err)
	}
	return nil
}

// Record marks p as installed by txnID, replacing any earlier entry.
func (s *Store) Record(ctx context.Context, txnID string, p *deps.Package) error {
	v, _ := p.Version.MarshalText()
	url := ""
	if p.URL != nil {
		url = p.URL.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO installed (name, version, url, kind, txn_id, installed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			url = excluded.url,
			kind = excluded.kind,
			txn_id = excluded.txn_id,
			installed_at = excluded.installed_at`,
		p.Name, string(v), url, p.Kind.String(), txnID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record %s: %w", p.Name, err)
	}
	return nil
}

// Forget removes name from the installed set.
func (s *Store) Forget(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM installed WHERE name = ?`, name); err != nil {
		return fmt.Errorf("forget %s: %w", name, err)
	}
	return nil
}

// Finish closes a transaction with status.
func (s *Store) Finish(ctx context.Context, txnID string, status install.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC(), string(status), txnID)
	if err != nil {
		return fmt.Errorf("finish %s: %w", txnID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish %s: no such transaction", txnID)
	}
	return nil
}

// IsInstalled reports whether name is in the installed set.
func (s *Store) IsInstalled(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM installed WHERE name = ?`, name).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup %s: %w", name, err)
	}
	return true, nil
}

// Installed returns every installed package ordered by name.
func (s *Store) Installed(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, version, url, kind, txn_id, installed_at FROM installed ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query installed: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			v    string
			kind string
		)
		if err := rows.Scan(&r.Name, &v, &r.URL, &kind, &r.TxnID, &r.InstalledAt); err != nil {
			return nil, fmt.Errorf("scan installed: %w", err)
		}
		if err := r.Version.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("installed %s: %w", r.Name, err)
		}
		r.Kind = deps.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Transactions returns the journaled transactions, newest first.
func (s *Store) Transactions(ctx context.Context) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status FROM transactions ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			t        Transaction
			finished sql.NullTime
			status   string
		)
		if err := rows.Scan(&t.ID, &t.StartedAt, &finished, &status); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if finished.Valid {
			t.FinishedAt = finished.Time
		}
		t.Status = install.Status(status)
		out = append(out, t)
	}
	return out, rows.Err()
}
