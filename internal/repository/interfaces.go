package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"payments_ledger/internal/domain"
)

// ClientStateRepository holds the client states of a single fold. It is owned
// by exactly one goroutine for the duration of a run.
type ClientStateRepository interface {
	Get(id domain.ClientID) (*domain.ClientState, bool)
	GetOrCreate(id domain.ClientID) *domain.ClientState
	Range(fn func(id domain.ClientID, state *domain.ClientState) bool)
	Len() int
}

// LedgerRepository stores finished ledgers for reporting.
type LedgerRepository interface {
	SaveLedger(ctx context.Context, runID uuid.UUID, ledger domain.Ledger) error
	GetLedger(ctx context.Context, runID uuid.UUID) (domain.Ledger, error)
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
