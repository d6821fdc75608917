package domain

import (
	"fmt"
	"strings"

	"payments_ledger/pkg/money"
)

type ClientID uint16

type TransactionID uint32

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// ParseKind accepts the kind names in any letter case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", s)
	}
}

// CarriesAmount reports whether records of this kind must have an amount.
func (k Kind) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Transaction is one decoded input record. The set of implementations is
// closed: Deposit, Withdrawal, Dispute, Resolve and Chargeback.
type Transaction interface {
	ClientID() ClientID
	TxID() TransactionID
	Kind() Kind
	isTransaction()
}

// AccountActivity is a recorded money movement that later disputes can
// reference by transaction id.
type AccountActivity interface {
	Transaction
	Amount() money.Amount
}

type Deposit struct {
	Client ClientID
	Tx     TransactionID
	Value  money.Amount
}

func (d Deposit) ClientID() ClientID   { return d.Client }
func (d Deposit) TxID() TransactionID  { return d.Tx }
func (Deposit) Kind() Kind             { return KindDeposit }
func (d Deposit) Amount() money.Amount { return d.Value }
func (Deposit) isTransaction()         {}

type Withdrawal struct {
	Client ClientID
	Tx     TransactionID
	Value  money.Amount
}

func (w Withdrawal) ClientID() ClientID   { return w.Client }
func (w Withdrawal) TxID() TransactionID  { return w.Tx }
func (Withdrawal) Kind() Kind             { return KindWithdrawal }
func (w Withdrawal) Amount() money.Amount { return w.Value }
func (Withdrawal) isTransaction()         {}

// Dispute claims that the referenced deposit should be reversed.
type Dispute struct {
	Client ClientID
	Tx     TransactionID
}

func (d Dispute) ClientID() ClientID  { return d.Client }
func (d Dispute) TxID() TransactionID { return d.Tx }
func (Dispute) Kind() Kind            { return KindDispute }
func (Dispute) isTransaction()        {}

// Resolve releases the funds held by an open dispute.
type Resolve struct {
	Client ClientID
	Tx     TransactionID
}

func (r Resolve) ClientID() ClientID  { return r.Client }
func (r Resolve) TxID() TransactionID { return r.Tx }
func (Resolve) Kind() Kind            { return KindResolve }
func (Resolve) isTransaction()        {}

// Chargeback upholds an open dispute and locks the account.
type Chargeback struct {
	Client ClientID
	Tx     TransactionID
}

func (c Chargeback) ClientID() ClientID  { return c.Client }
func (c Chargeback) TxID() TransactionID { return c.Tx }
func (Chargeback) Kind() Kind            { return KindChargeback }
func (Chargeback) isTransaction()        {}
