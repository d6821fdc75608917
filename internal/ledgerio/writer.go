package ledgerio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"payments_ledger/internal/domain"
)

var ErrUnknownFormat = errors.New("unknown output format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType is the media type of a rendered ledger.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

var ledgerHeader = []string{"client", "available", "held", "total", "locked"}

// LedgerRow is the JSON shape of one client ledger. Amounts are strings so
// that the four fractional digits survive.
type LedgerRow struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func NewLedgerRow(l domain.ClientLedger) LedgerRow {
	return LedgerRow{
		Client:    uint16(l.Client),
		Available: l.Available.String(),
		Held:      l.Held.String(),
		Total:     l.Total.String(),
		Locked:    l.Locked,
	}
}

type Writer struct {
	w      io.Writer
	format Format
}

func NewWriter(w io.Writer, format Format) *Writer {
	if format == "" {
		format = FormatCSV
	}
	return &Writer{w: w, format: format}
}

// Write renders ledger rows in the order given.
func (w *Writer) Write(ledger domain.Ledger) error {
	switch w.format {
	case FormatCSV:
		return w.writeCSV(ledger)
	case FormatJSON:
		return w.writeJSON(ledger)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, w.format)
	}
}

func (w *Writer) writeCSV(ledger domain.Ledger) error {
	cw := csv.NewWriter(w.w)
	if err := cw.Write(ledgerHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, l := range ledger {
		row := NewLedgerRow(l)
		record := []string{
			strconv.FormatUint(uint64(row.Client), 10),
			row.Available,
			row.Held,
			row.Total,
			strconv.FormatBool(row.Locked),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write client %d: %w", row.Client, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeJSON(ledger domain.Ledger) error {
	rows := make([]LedgerRow, 0, len(ledger))
	for _, l := range ledger {
		rows = append(rows, NewLedgerRow(l))
	}

	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return nil
}
