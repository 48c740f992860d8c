// Package store persists computed valuation snapshots in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/etnz/valuation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store keeps the latest valuation history of each holding per reporting
// currency.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer, and in-memory databases live in their connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debugw("sqlite store opened", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS valuations (
			symbol         TEXT NOT NULL,
			currency       TEXT NOT NULL,
			name           TEXT,
			data_source    TEXT,
			asset_class    TEXT,
			activity_count INTEGER NOT NULL,
			PRIMARY KEY (symbol, currency)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			symbol         TEXT NOT NULL,
			currency       TEXT NOT NULL,
			date           TEXT NOT NULL,
			quantity       TEXT NOT NULL,
			unit_price     TEXT NOT NULL,
			total_value    TEXT NOT NULL,
			total_invested TEXT NOT NULL,
			oversold       INTEGER NOT NULL,
			PRIMARY KEY (symbol, currency, date)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Save replaces the stored history of the valuation's holding.
func (s *Store) Save(ctx context.Context, v *valuation.Valuation) (err error) {
	if v.Symbol == "" {
		return fmt.Errorf("cannot save a valuation without symbol")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO valuations
		(symbol, currency, name, data_source, asset_class, activity_count)
		VALUES (?,?,?,?,?,?)`,
		v.Symbol, v.Currency, v.Name, v.DataSource, v.AssetClass, v.ActivityCount,
	); err != nil {
		return fmt.Errorf("save valuation of %s: %w", v.Symbol, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshots WHERE symbol = ? AND currency = ?`, v.Symbol, v.Currency); err != nil {
		return fmt.Errorf("clear snapshots of %s: %w", v.Symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshots
		(symbol, currency, date, quantity, unit_price, total_value, total_invested, oversold)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, snap := range v.Snapshots {
		if _, err = stmt.ExecContext(ctx,
			v.Symbol, v.Currency, snap.Date.String(),
			snap.Quantity.String(),
			snap.CurrentUnitPrice.Amount().String(),
			snap.TotalValue.Amount().String(),
			snap.TotalInvested.Amount().String(),
			snap.Oversold,
		); err != nil {
			return fmt.Errorf("save snapshot of %s on %s: %w", v.Symbol, snap.Date, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.log.Debugw("valuation saved", "symbol", v.Symbol, "currency", v.Currency, "snapshots", len(v.Snapshots))
	return nil
}

// Load returns the stored history of 'symbol' valued in 'currency'. It returns
// sql.ErrNoRows when nothing was saved.
func (s *Store) Load(ctx context.Context, symbol, currency string) (*valuation.Valuation, error) {
	v := &valuation.Valuation{Symbol: symbol, Currency: currency}
	var name, source, class sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT name, data_source, asset_class, activity_count
		FROM valuations WHERE symbol = ? AND currency = ?`, symbol, currency)
	if err := row.Scan(&name, &source, &class, &v.ActivityCount); err != nil {
		return nil, fmt.Errorf("load valuation of %s in %s: %w", symbol, currency, err)
	}
	v.Name, v.DataSource, v.AssetClass = name.String, source.String, class.String

	rows, err := s.db.QueryContext(ctx, `SELECT date, quantity, unit_price, total_value, total_invested, oversold
		FROM snapshots WHERE symbol = ? AND currency = ? ORDER BY date`, symbol, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var on, quantity, price, value, invested string
		var snap valuation.CalculatedSnapshot
		if err := rows.Scan(&on, &quantity, &price, &value, &invested, &snap.Oversold); err != nil {
			return nil, err
		}
		if snap.Date, err = valuation.ParseDate(on); err != nil {
			return nil, err
		}
		q, err := decimal.NewFromString(quantity)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q on %s: %w", quantity, on, err)
		}
		snap.Quantity = valuation.Q(q)
		amounts := []*valuation.Money{&snap.CurrentUnitPrice, &snap.TotalValue, &snap.TotalInvested}
		for i, text := range []string{price, value, invested} {
			d, err := decimal.NewFromString(text)
			if err != nil {
				return nil, fmt.Errorf("invalid amount %q on %s: %w", text, on, err)
			}
			*amounts[i] = valuation.M(d, currency)
		}
		v.Snapshots = append(v.Snapshots, snap)
	}
	return v, rows.Err()
}

// Symbols lists the holdings stored for 'currency'.
func (s *Store) Symbols(ctx context.Context, currency string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM valuations WHERE currency = ? ORDER BY symbol`, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

func (s *Store) Close() error {
	s.log.Debugw("closing sqlite store")
	return s.db.Close()
}
