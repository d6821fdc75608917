package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"payments_ledger/internal/domain"
	"payments_ledger/internal/repository"
	"payments_ledger/pkg/money"
)

func newTestRepo(t *testing.T) *LedgerRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "ledger.db"), nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustAmount(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return a
}

func TestLedgerRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	ledger := domain.Ledger{
		{Client: 2, Available: mustAmount(t, "-50"), Total: mustAmount(t, "-50"), Locked: true},
		{Client: 1, Available: mustAmount(t, "1.5"), Held: mustAmount(t, "2.25"), Total: mustAmount(t, "3.75")},
	}
	if err := repo.SaveLedger(ctx, runID, ledger); err != nil {
		t.Fatalf("SaveLedger() error: %v", err)
	}

	got, err := repo.GetLedger(ctx, runID)
	if err != nil {
		t.Fatalf("GetLedger() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Client != 1 || got[1].Client != 2 {
		t.Errorf("rows not ordered by client: %d, %d", got[0].Client, got[1].Client)
	}
	if got[0].Held.String() != "2.2500" || got[0].Total.String() != "3.7500" {
		t.Errorf("client 1 = %+v", got[0])
	}
	if !got[1].Locked || got[1].Available.String() != "-50.0000" {
		t.Errorf("client 2 = %+v", got[1])
	}
}

func TestLedgerRepository_DuplicateRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	if err := repo.SaveLedger(ctx, runID, nil); err != nil {
		t.Fatalf("SaveLedger() error: %v", err)
	}
	err := repo.SaveLedger(ctx, runID, nil)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestLedgerRepository_UnknownRun(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetLedger(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerRepository_EmptyLedger(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	if err := repo.SaveLedger(ctx, runID, domain.Ledger{}); err != nil {
		t.Fatalf("SaveLedger() error: %v", err)
	}
	got, err := repo.GetLedger(ctx, runID)
	if err != nil {
		t.Fatalf("GetLedger() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestLedgerRepository_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	runID := uuid.New()

	repo, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := repo.SaveLedger(ctx, runID, domain.Ledger{{Client: 7}}); err != nil {
		t.Fatalf("SaveLedger() error: %v", err)
	}
	repo.Close()

	repo, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer repo.Close()

	got, err := repo.GetLedger(ctx, runID)
	if err != nil || len(got) != 1 || got[0].Client != 7 {
		t.Errorf("GetLedger() = %+v, %v", got, err)
	}
}
