// Package storage implements the SQLite ledger mirror. The database is
// only a crash-recovery reflection of the in-memory ledger: it is read
// once at start-up and written inside every order add/delete so state
// survives restarts.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Julian6262/BingX/internal/core"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols_config (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol_name TEXT NOT NULL UNIQUE,
    grid_size   REAL NOT NULL DEFAULT 0.01,
    lot         REAL NOT NULL DEFAULT 10.0
);
CREATE TABLE IF NOT EXISTS symbols (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    name      TEXT NOT NULL UNIQUE,
    step_size REAL NOT NULL,
    profit    REAL NOT NULL DEFAULT 0.0,
    state     TEXT NOT NULL DEFAULT 'stop'
);
CREATE TABLE IF NOT EXISTS orders_info (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    price         REAL NOT NULL,
    executed_qty  REAL NOT NULL,
    cost          REAL NOT NULL,
    cost_with_fee REAL NOT NULL,
    symbol_id     INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
    open_time     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders_info(symbol_id);
`

// SQLiteMirror implements core.LedgerMirror on a local SQLite file.
type SQLiteMirror struct {
	db *sql.DB
}

// SymbolRecord is one symbol's persisted state as loaded at start-up.
type SymbolRecord struct {
	Name     string
	StepSize decimal.Decimal
	Profit   decimal.Decimal
	State    core.SymbolState
	Lot      decimal.Decimal
	GridSize decimal.Decimal
	Orders   []core.Order
}

// NewSQLiteMirror opens the database and creates the schema.
func NewSQLiteMirror(dsn string) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode for crash recovery; one writer at a time is plenty here.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteMirror{db: db}, nil
}

// LoadAll reads every symbol with its config and open orders in
// chronological order. Called once before any task starts.
func (s *SQLiteMirror) LoadAll(ctx context.Context) ([]SymbolRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.step_size, s.profit, s.state,
		       COALESCE(c.lot, 10.0), COALESCE(c.grid_size, 0.01)
		FROM symbols s
		LEFT JOIN symbols_config c ON c.symbol_name = s.name
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	defer rows.Close()

	var records []SymbolRecord
	var symbolIDs []int64
	for rows.Next() {
		var (
			id                              int64
			name, state                     string
			stepSize, profit, lot, gridSize float64
		)
		if err := rows.Scan(&id, &name, &stepSize, &profit, &state, &lot, &gridSize); err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}
		records = append(records, SymbolRecord{
			Name:     name,
			StepSize: decimal.NewFromFloat(stepSize),
			Profit:   decimal.NewFromFloat(profit),
			State:    core.SymbolState(state),
			Lot:      decimal.NewFromFloat(lot),
			GridSize: decimal.NewFromFloat(gridSize),
		})
		symbolIDs = append(symbolIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symbol rows: %w", err)
	}

	for i, id := range symbolIDs {
		orders, err := s.loadOrders(ctx, id)
		if err != nil {
			return nil, err
		}
		records[i].Orders = orders
	}
	return records, nil
}

func (s *SQLiteMirror) loadOrders(ctx context.Context, symbolID int64) ([]core.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, price, executed_qty, cost, cost_with_fee, open_time
		FROM orders_info WHERE symbol_id = ? ORDER BY id`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	defer rows.Close()

	var orders []core.Order
	for rows.Next() {
		var (
			id                            int64
			price, qty, cost, costWithFee float64
			openTime                      time.Time
		)
		if err := rows.Scan(&id, &price, &qty, &cost, &costWithFee, &openTime); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, core.Order{
			ID:          id,
			Price:       decimal.NewFromFloat(price),
			ExecutedQty: decimal.NewFromFloat(qty),
			Cost:        decimal.NewFromFloat(cost),
			CostWithFee: decimal.NewFromFloat(costWithFee),
			OpenTime:    openTime,
		})
	}
	return orders, rows.Err()
}

// AddSymbol inserts the symbols row and its config row in one transaction.
func (s *SQLiteMirror) AddSymbol(ctx context.Context, name string, stepSize decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO symbols (name, step_size) VALUES (?, ?)`,
		name, stepSize.InexactFloat64()); err != nil {
		return fmt.Errorf("failed to insert symbol %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO symbols_config (symbol_name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("failed to insert symbol config %s: %w", name, err)
	}
	return tx.Commit()
}

// DeleteSymbol removes the symbol, its config, and its orders.
func (s *SQLiteMirror) DeleteSymbol(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete symbol %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols_config WHERE symbol_name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete symbol config %s: %w", name, err)
	}
	return tx.Commit()
}

// InsertOrder appends an order row and returns its durable id.
func (s *SQLiteMirror) InsertOrder(ctx context.Context, symbol string, o core.Order) (int64, error) {
	symbolID, err := s.symbolID(ctx, symbol)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders_info (price, executed_qty, cost, cost_with_fee, symbol_id, open_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.Price.InexactFloat64(), o.ExecutedQty.InexactFloat64(),
		o.Cost.InexactFloat64(), o.CostWithFee.InexactFloat64(),
		symbolID, o.OpenTime)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order for %s: %w", symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read order id: %w", err)
	}
	return id, nil
}

// DeleteOrders removes orders by id (nil means all) and writes the new
// profit for the symbol in the same transaction, so a crash between the
// two cannot desynchronize the mirror.
func (s *SQLiteMirror) DeleteOrders(ctx context.Context, symbol string, ids []int64, newProfit decimal.Decimal) error {
	symbolID, err := s.symbolID(ctx, symbol)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if ids == nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM orders_info WHERE symbol_id = ?`, symbolID); err != nil {
			return fmt.Errorf("failed to delete orders for %s: %w", symbol, err)
		}
	} else {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM orders_info WHERE id = ? AND symbol_id = ?`, id, symbolID); err != nil {
				return fmt.Errorf("failed to delete order %d for %s: %w", id, symbol, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE symbols SET profit = ? WHERE id = ?`,
		newProfit.InexactFloat64(), symbolID); err != nil {
		return fmt.Errorf("failed to update profit for %s: %w", symbol, err)
	}
	return tx.Commit()
}

// UpdateState persists the operator lifecycle state.
func (s *SQLiteMirror) UpdateState(ctx context.Context, symbol string, state core.SymbolState) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE symbols SET state = ? WHERE name = ?`, string(state), symbol); err != nil {
		return fmt.Errorf("failed to update state for %s: %w", symbol, err)
	}
	return nil
}

// UpdateSymbolConfig persists the indicator-chosen lot and grid spacing.
func (s *SQLiteMirror) UpdateSymbolConfig(ctx context.Context, symbol string, lot, gridSize decimal.Decimal) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE symbols_config SET lot = ?, grid_size = ? WHERE symbol_name = ?`,
		lot.InexactFloat64(), gridSize.InexactFloat64(), symbol); err != nil {
		return fmt.Errorf("failed to update config for %s: %w", symbol, err)
	}
	return nil
}

// OrderIDs returns the persisted order-id set of a symbol, oldest first.
func (s *SQLiteMirror) OrderIDs(ctx context.Context, symbol string) ([]int64, error) {
	symbolID, err := s.symbolID(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM orders_info WHERE symbol_id = ? ORDER BY id`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteMirror) symbolID(ctx context.Context, symbol string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM symbols WHERE name = ?`, symbol).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("symbol %s not found in mirror", symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve symbol %s: %w", symbol, err)
	}
	return id, nil
}

// Close closes the underlying database.
func (s *SQLiteMirror) Close() error {
	return s.db.Close()
}
