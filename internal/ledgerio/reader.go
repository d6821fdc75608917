// Package ledgerio decodes transaction files and renders ledgers.
package ledgerio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"payments_ledger/internal/domain"
	"payments_ledger/pkg/validator"
)

var ErrMissingColumn = errors.New("missing required column")

// Column names recognised in the header row. Matching ignores case and
// surrounding whitespace; column order is free.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

type columns struct {
	typ, client, tx, amount int
}

// Reader decodes a transaction CSV into domain transactions.
type Reader struct {
	csv       *csv.Reader
	validator *validator.TransactionValidator
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return &Reader{
		csv:       cr,
		validator: validator.NewTransactionValidator(),
	}
}

// ReadAll decodes every row. Decoding is all or nothing: on the first bad row
// it returns an error naming the line and no transactions. Empty input has
// no rows and decodes to no transactions.
func (r *Reader) ReadAll() ([]domain.Transaction, error) {
	header, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var txs []domain.Transaction
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read transactions: %w", err)
		}

		line, _ := r.csv.FieldPos(0)
		tx, err := r.validator.ValidateRecord(validator.Record{
			Type:   field(record, cols.typ),
			Client: field(record, cols.client),
			Tx:     field(record, cols.tx),
			Amount: field(record, cols.amount),
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Decode is a shorthand for NewReader(r).ReadAll().
func Decode(r io.Reader) ([]domain.Transaction, error) {
	return NewReader(r).ReadAll()
}

func mapColumns(header []string) (columns, error) {
	cols := columns{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ColumnType:
			cols.typ = i
		case ColumnClient:
			cols.client = i
		case ColumnTx:
			cols.tx = i
		case ColumnAmount:
			cols.amount = i
		}
	}

	var missing []string
	if cols.typ < 0 {
		missing = append(missing, ColumnType)
	}
	if cols.client < 0 {
		missing = append(missing, ColumnClient)
	}
	if cols.tx < 0 {
		missing = append(missing, ColumnTx)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// field returns the trimmed value at i, or "" when the row is short or the
// column is absent.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
