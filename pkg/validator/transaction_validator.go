package validator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"payments_ledger/internal/domain"
	"payments_ledger/pkg/money"
)

var (
	ErrUnknownType      = errors.New("unknown transaction type")
	ErrInvalidClient    = errors.New("invalid client id")
	ErrInvalidTxID      = errors.New("invalid transaction id")
	ErrMissingAmount    = errors.New("amount is required")
	ErrUnexpectedAmount = errors.New("amount is not allowed")
	ErrInvalidAmount    = errors.New("invalid transaction amount")
)

// Record is one undecoded input row.
type Record struct {
	Type   string
	Client string
	Tx     string
	Amount string
}

type TransactionValidator struct{}

func NewTransactionValidator() *TransactionValidator {
	return &TransactionValidator{}
}

// ValidateRecord checks rec and converts it to a domain transaction. All
// problems found in the record are reported together.
func (v *TransactionValidator) ValidateRecord(rec Record) (domain.Transaction, error) {
	var errs []error

	kind, err := domain.ParseKind(rec.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, strings.TrimSpace(rec.Type))
	}

	client, err := parseUint(rec.Client, 16)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidClient, err))
	}

	tx, err := parseUint(rec.Tx, 32)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidTxID, err))
	}

	amount, err := v.validateAmount(kind, rec.Amount)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c, id := domain.ClientID(client), domain.TransactionID(tx)
	switch kind {
	case domain.KindDeposit:
		return domain.Deposit{Client: c, Tx: id, Value: amount}, nil
	case domain.KindWithdrawal:
		return domain.Withdrawal{Client: c, Tx: id, Value: amount}, nil
	case domain.KindDispute:
		return domain.Dispute{Client: c, Tx: id}, nil
	case domain.KindResolve:
		return domain.Resolve{Client: c, Tx: id}, nil
	default:
		return domain.Chargeback{Client: c, Tx: id}, nil
	}
}

func (v *TransactionValidator) validateAmount(kind domain.Kind, raw string) (money.Amount, error) {
	raw = strings.TrimSpace(raw)

	if !kind.CarriesAmount() {
		if raw != "" {
			return money.Amount{}, fmt.Errorf("%w for %s", ErrUnexpectedAmount, kind)
		}
		return money.Amount{}, nil
	}

	if raw == "" {
		return money.Amount{}, fmt.Errorf("%w for %s", ErrMissingAmount, kind)
	}

	amount, err := v.ValidateAmount(raw)
	if err != nil {
		return money.Amount{}, err
	}
	return amount, nil
}

// ValidateAmount parses a deposit or withdrawal amount. Any finite decimal
// is accepted, including negative values.
func (v *TransactionValidator) ValidateAmount(raw string) (money.Amount, error) {
	amount, err := money.Parse(raw)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return amount, nil
}

func parseUint(raw string, bits int) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty value")
	}
	n, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s exceeds %d", raw, uint64(math.MaxUint64)>>(64-bits))
		}
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return n, nil
}
