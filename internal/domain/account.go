package domain

import (
	"slices"

	"payments_ledger/pkg/money"
)

// TxSet is a set of transaction ids.
type TxSet map[TransactionID]struct{}

func NewTxSet(ids ...TransactionID) TxSet {
	s := make(TxSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s TxSet) Contains(id TransactionID) bool {
	_, ok := s[id]
	return ok
}

func (s TxSet) Add(id TransactionID) {
	s[id] = struct{}{}
}

func (s TxSet) Remove(id TransactionID) {
	delete(s, id)
}

func (s TxSet) Len() int {
	return len(s)
}

func (s TxSet) Clone() TxSet {
	c := make(TxSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// RejectedActivity is a withdrawal that could not be paid while disputes were
// open. DisputedSnapshot holds the disputes open at rejection time; only
// resolving one of those can make the withdrawal payable later.
type RejectedActivity struct {
	Activity         Withdrawal
	DisputedSnapshot TxSet
}

// TransactionHistory is the per-client record that dispute management works
// against.
type TransactionHistory struct {
	// Activity holds applied deposits and withdrawals by transaction id.
	Activity map[TransactionID]AccountActivity
	// Disputed holds deposits with an open dispute.
	Disputed TxSet
	// Rejected holds withdrawals awaiting a possible backfill, oldest first.
	Rejected []RejectedActivity
}

func NewTransactionHistory() TransactionHistory {
	return TransactionHistory{
		Activity: make(map[TransactionID]AccountActivity),
		Disputed: make(TxSet),
	}
}

func (h TransactionHistory) Clone() TransactionHistory {
	c := TransactionHistory{
		Activity: make(map[TransactionID]AccountActivity, len(h.Activity)),
		Disputed: h.Disputed.Clone(),
		Rejected: make([]RejectedActivity, 0, len(h.Rejected)),
	}
	for id, a := range h.Activity {
		c.Activity[id] = a
	}
	for _, r := range h.Rejected {
		c.Rejected = append(c.Rejected, RejectedActivity{
			Activity:         r.Activity,
			DisputedSnapshot: r.DisputedSnapshot.Clone(),
		})
	}
	return c
}

// Deposit returns the recorded deposit for id, if any.
func (h TransactionHistory) Deposit(id TransactionID) (Deposit, bool) {
	d, ok := h.Activity[id].(Deposit)
	return d, ok
}

// RemoveRejected drops the rejected withdrawal with the given id.
func (h *TransactionHistory) RemoveRejected(id TransactionID) bool {
	i := slices.IndexFunc(h.Rejected, func(r RejectedActivity) bool {
		return r.Activity.Tx == id
	})
	if i < 0 {
		return false
	}
	h.Rejected = slices.Delete(h.Rejected, i, i+1)
	return true
}

// ClientState is the running balance of one client. Total always equals
// Available plus Held.
type ClientState struct {
	Available money.Amount
	Held      money.Amount
	Total     money.Amount
	Locked    bool
	History   TransactionHistory
}

// NewClientState returns the state of a client that has not been seen yet.
func NewClientState() *ClientState {
	return &ClientState{History: NewTransactionHistory()}
}

func (s *ClientState) Clone() *ClientState {
	c := *s
	c.History = s.History.Clone()
	return &c
}

func (s *ClientState) Balanced() bool {
	return s.Total.Equal(s.Available.Add(s.Held))
}

// ClientLedger is the public projection of a ClientState.
type ClientLedger struct {
	Client    ClientID
	Available money.Amount
	Held      money.Amount
	Total     money.Amount
	Locked    bool
}

func NewClientLedger(id ClientID, s *ClientState) ClientLedger {
	return ClientLedger{
		Client:    id,
		Available: s.Available,
		Held:      s.Held,
		Total:     s.Total,
		Locked:    s.Locked,
	}
}

// Ledger holds one row per client. Row order carries no meaning.
type Ledger []ClientLedger

func (l Ledger) Find(id ClientID) (ClientLedger, bool) {
	for _, row := range l {
		if row.Client == id {
			return row, true
		}
	}
	return ClientLedger{}, false
}

// Sorted returns a copy ordered by client id.
func (l Ledger) Sorted() Ledger {
	out := slices.Clone(l)
	slices.SortFunc(out, func(a, b ClientLedger) int {
		return int(a.Client) - int(b.Client)
	})
	return out
}
