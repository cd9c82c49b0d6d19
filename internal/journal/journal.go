// Package journal records closed trades durably for later analysis.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// ClosedTrade is the permanent record of one full entry/exit round trip
type ClosedTrade struct {
	Pair          core.CurrencyPair
	LongExchange  string
	ShortExchange string
	EntryTime     time.Time
	ExitTime      time.Time
	EntrySpread   decimal.Decimal
	ExitSpread    decimal.Decimal
	LongVolume    decimal.Decimal
	ShortVolume   decimal.Decimal
	EntryBalance  decimal.Decimal
	ExitBalance   decimal.Decimal
	Profit        decimal.Decimal
}

// Journal persists closed trades
type Journal interface {
	Record(trade ClosedTrade) error
	Close() error
}

// SQLiteJournal stores closed trades in a local sqlite database
type SQLiteJournal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS closed_trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pair TEXT NOT NULL,
	long_exchange TEXT NOT NULL,
	short_exchange TEXT NOT NULL,
	entry_time TEXT NOT NULL,
	exit_time TEXT NOT NULL,
	entry_spread TEXT NOT NULL,
	exit_spread TEXT NOT NULL,
	long_volume TEXT NOT NULL,
	short_volume TEXT NOT NULL,
	entry_balance TEXT NOT NULL,
	exit_balance TEXT NOT NULL,
	profit TEXT NOT NULL
)`

// NewSQLiteJournal opens (and if needed initializes) the journal database
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Record inserts one closed trade
func (j *SQLiteJournal) Record(trade ClosedTrade) error {
	_, err := j.db.Exec(`
		INSERT INTO closed_trades (
			pair, long_exchange, short_exchange,
			entry_time, exit_time,
			entry_spread, exit_spread,
			long_volume, short_volume,
			entry_balance, exit_balance, profit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Pair.String(),
		trade.LongExchange,
		trade.ShortExchange,
		trade.EntryTime.UTC().Format(time.RFC3339),
		trade.ExitTime.UTC().Format(time.RFC3339),
		trade.EntrySpread.String(),
		trade.ExitSpread.String(),
		trade.LongVolume.String(),
		trade.ShortVolume.String(),
		trade.EntryBalance.String(),
		trade.ExitBalance.String(),
		trade.Profit.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to record closed trade: %w", err)
	}
	return nil
}

// Count returns the number of journaled trades
func (j *SQLiteJournal) Count() (int, error) {
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM closed_trades`).Scan(&n)
	return n, err
}

// Close closes the database
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
