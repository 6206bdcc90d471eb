package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marlin/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	source       TEXT NOT NULL,
	initial_cash REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	date         INTEGER NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	fill_price   REAL NOT NULL,
	shares       INTEGER NOT NULL,
	gross_amount REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	exit_reason  TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS ledger (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	date          INTEGER NOT NULL,
	cash          REAL NOT NULL,
	stock_value   REAL NOT NULL,
	total_balance REAL NOT NULL,
	win_count     INTEGER NOT NULL,
	loss_count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, date)
);
CREATE TABLE IF NOT EXISTS ledger_slots (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	date         INTEGER NOT NULL,
	slot         INTEGER NOT NULL,
	symbol       TEXT NOT NULL,
	market_value REAL NOT NULL,
	PRIMARY KEY (run_id, date, slot)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a complete run inside one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, meta RunMeta, trades []domain.Trade, ledger []domain.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, initial_cash) VALUES (?, ?, ?, ?)`,
		meta.ID, meta.CreatedAt.UnixMilli(), meta.Source, meta.InitialCash,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", meta.ID, err)
	}

	for i, t := range trades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, seq, date, symbol, side, fill_price, shares, gross_amount, realized_pnl, exit_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, i, t.Date.UnixMilli(), string(t.Symbol), string(t.Side),
			t.FillPrice, t.Shares, t.GrossAmount, t.RealizedPnL, string(t.ExitReason),
		); err != nil {
			return fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	for _, e := range ledger {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger (run_id, date, cash, stock_value, total_balance, win_count, loss_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, e.Date.UnixMilli(), e.Cash, e.StockValue, e.TotalBalance, e.WinCount, e.LossCount,
		); err != nil {
			return fmt.Errorf("inserting ledger entry %s: %w", e.Date.Format("2006-01-02"), err)
		}
		for _, sb := range e.Slots {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ledger_slots (run_id, date, slot, symbol, market_value) VALUES (?, ?, ?, ?, ?)`,
				meta.ID, e.Date.UnixMilli(), sb.Slot, string(sb.Symbol), sb.MarketValue,
			); err != nil {
				return fmt.Errorf("inserting slot balance: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run's metadata by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (RunMeta, error) {
	var meta RunMeta
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, source, initial_cash FROM runs WHERE id = ?`, id,
	).Scan(&meta.ID, &createdAt, &meta.Source, &meta.InitialCash)
	if err != nil {
		return RunMeta{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	meta.CreatedAt = time.UnixMilli(createdAt).UTC()
	return meta, nil
}

// LoadTrades returns a run's trade log in original order.
func (s *SQLiteStore) LoadTrades(ctx context.Context, id string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, symbol, side, fill_price, shares, gross_amount, realized_pnl, exit_reason
		 FROM trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var date int64
		var symbol, side, reason string
		if err := rows.Scan(&date, &symbol, &side, &t.FillPrice, &t.Shares, &t.GrossAmount, &t.RealizedPnL, &reason); err != nil {
			return nil, err
		}
		t.Date = time.UnixMilli(date).UTC()
		t.Symbol = domain.SymbolID(symbol)
		t.Side = domain.Side(side)
		t.ExitReason = domain.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// LoadLedger returns a run's ledger in date order, slot balances included.
func (s *SQLiteStore) LoadLedger(ctx context.Context, id string) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, cash, stock_value, total_balance, win_count, loss_count
		 FROM ledger WHERE run_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledger []domain.LedgerEntry
	index := make(map[int64]int)
	for rows.Next() {
		var e domain.LedgerEntry
		var date int64
		if err := rows.Scan(&date, &e.Cash, &e.StockValue, &e.TotalBalance, &e.WinCount, &e.LossCount); err != nil {
			return nil, err
		}
		e.Date = time.UnixMilli(date).UTC()
		index[date] = len(ledger)
		ledger = append(ledger, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := s.db.QueryContext(ctx,
		`SELECT date, slot, symbol, market_value FROM ledger_slots WHERE run_id = ? ORDER BY date, slot`, id)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var date int64
		var sb domain.SlotBalance
		var symbol string
		if err := slotRows.Scan(&date, &sb.Slot, &symbol, &sb.MarketValue); err != nil {
			return nil, err
		}
		sb.Symbol = domain.SymbolID(symbol)
		if i, ok := index[date]; ok {
			ledger[i].Slots = append(ledger[i].Slots, sb)
		}
	}
	return ledger, slotRows.Err()
}

// ListRuns returns all persisted runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, initial_cash FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var meta RunMeta
		var createdAt int64
		if err := rows.Scan(&meta.ID, &createdAt, &meta.Source, &meta.InitialCash); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.UnixMilli(createdAt).UTC()
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}
