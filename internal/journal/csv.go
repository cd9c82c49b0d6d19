package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// csvColumn pairs a header with the extractor for its cell. The slice
// below is the single source of truth for both the header row and the
// data rows, so the two can never drift apart.
type csvColumn struct {
	header  string
	extract func(t ClosedTrade) string
}

var csvColumns = []csvColumn{
	{"pair", func(t ClosedTrade) string { return t.Pair.String() }},
	{"long_exchange", func(t ClosedTrade) string { return t.LongExchange }},
	{"short_exchange", func(t ClosedTrade) string { return t.ShortExchange }},
	{"entry_time", func(t ClosedTrade) string { return t.EntryTime.UTC().Format(time.RFC3339) }},
	{"exit_time", func(t ClosedTrade) string { return t.ExitTime.UTC().Format(time.RFC3339) }},
	{"entry_spread", func(t ClosedTrade) string { return t.EntrySpread.String() }},
	{"exit_spread", func(t ClosedTrade) string { return t.ExitSpread.String() }},
	{"long_volume", func(t ClosedTrade) string { return t.LongVolume.String() }},
	{"short_volume", func(t ClosedTrade) string { return t.ShortVolume.String() }},
	{"entry_balance", func(t ClosedTrade) string { return t.EntryBalance.String() }},
	{"exit_balance", func(t ClosedTrade) string { return t.ExitBalance.String() }},
	{"profit", func(t ClosedTrade) string { return t.Profit.String() }},
}

// CSVJournal appends closed trades to a CSV file, writing the header
// once when the file is created.
type CSVJournal struct {
	path string
}

// NewCSVJournal creates a CSV-backed journal
func NewCSVJournal(path string) *CSVJournal {
	return &CSVJournal{path: path}
}

// Record appends one closed trade
func (j *CSVJournal) Record(trade ClosedTrade) error {
	_, statErr := os.Stat(j.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open trade log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		headers := make([]string, len(csvColumns))
		for i, c := range csvColumns {
			headers[i] = c.header
		}
		if err := w.Write(headers); err != nil {
			return fmt.Errorf("failed to write trade log header: %w", err)
		}
	}

	row := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		row[i] = c.extract(trade)
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write trade log row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Close is a no-op; the file is reopened per append
func (j *CSVJournal) Close() error { return nil }
