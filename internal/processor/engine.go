package processor

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"time"

	"payments_ledger/internal/domain"
	"payments_ledger/internal/repository"
	"payments_ledger/internal/repository/memory"
	"payments_ledger/pkg/money"
)

// Outcome describes what a single transaction did to its client.
type Outcome string

const (
	// OutcomeApplied means balances or history changed.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the transaction was a no-op: locked account,
	// unknown or non-deposit reference, or wrong dispute state.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDeferred means a withdrawal was kept as rejected for a later backfill.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeDropped means a withdrawal could never be paid and was discarded.
	OutcomeDropped Outcome = "dropped"
)

// Observer receives engine events. Implementations used with ShardedBuild
// must be safe for concurrent use.
type Observer interface {
	TransactionProcessed(kind domain.Kind, outcome Outcome)
	WithdrawalBackfilled(client domain.ClientID, tx domain.TransactionID, amount money.Amount)
}

type nopObserver struct{}

func (nopObserver) TransactionProcessed(domain.Kind, Outcome)                                {}
func (nopObserver) WithdrawalBackfilled(domain.ClientID, domain.TransactionID, money.Amount) {}

// Summary counts what happened during one fold.
type Summary struct {
	Processed int
	Outcomes  map[Outcome]int
	Backfills int
}

func newSummary() Summary {
	return Summary{Outcomes: make(map[Outcome]int)}
}

func (s *Summary) merge(other Summary) {
	s.Processed += other.Processed
	s.Backfills += other.Backfills
	for k, v := range other.Outcomes {
		s.Outcomes[k] += v
	}
}

// Engine folds transaction streams into ledgers. It holds no per-run state,
// so one Engine may serve any number of independent builds.
type Engine struct {
	logger   *slog.Logger
	observer Observer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateLedger builds a ledger from an empty initial state.
func (e *Engine) CreateLedger(ctx context.Context, txs iter.Seq[domain.Transaction]) domain.Ledger {
	return e.BuildLedger(ctx, nil, txs)
}

// BuildLedger applies txs in order on top of initial and returns one row per
// client seen in either. initial is not modified.
func (e *Engine) BuildLedger(
	ctx context.Context,
	initial map[domain.ClientID]*domain.ClientState,
	txs iter.Seq[domain.Transaction],
) domain.Ledger {
	startTime := time.Now()

	repo := memory.NewClientStateRepository()
	repo.Seed(initial)

	summary := e.fold(ctx, repo, txs)
	ledger := project(repo)

	e.logSummary(ctx, summary, len(ledger), time.Since(startTime))
	return ledger
}

// Transactions adapts a slice to the sequence BuildLedger consumes.
func Transactions(txs []domain.Transaction) iter.Seq[domain.Transaction] {
	return slices.Values(txs)
}

func (e *Engine) fold(ctx context.Context, repo repository.ClientStateRepository, txs iter.Seq[domain.Transaction]) Summary {
	summary := newSummary()
	for tx := range txs {
		state := repo.GetOrCreate(tx.ClientID())
		outcome, backfills := e.apply(ctx, state, tx)

		summary.Processed++
		summary.Outcomes[outcome]++
		summary.Backfills += backfills
		e.observer.TransactionProcessed(tx.Kind(), outcome)

		if outcome != OutcomeApplied {
			e.logger.DebugContext(ctx, "Transaction not applied",
				slog.String("kind", string(tx.Kind())),
				slog.Int("client_id", int(tx.ClientID())),
				slog.Int64("transaction_id", int64(tx.TxID())),
				slog.String("outcome", string(outcome)))
		}
	}
	return summary
}

// Apply runs the rule for tx against state. state must belong to
// tx.ClientID(). A zero ClientState is usable.
func (e *Engine) Apply(ctx context.Context, state *domain.ClientState, tx domain.Transaction) Outcome {
	if state.History.Activity == nil {
		state.History.Activity = make(map[domain.TransactionID]domain.AccountActivity)
	}
	if state.History.Disputed == nil {
		state.History.Disputed = make(domain.TxSet)
	}
	outcome, _ := e.apply(ctx, state, tx)
	return outcome
}

func (e *Engine) apply(ctx context.Context, state *domain.ClientState, tx domain.Transaction) (Outcome, int) {
	switch t := tx.(type) {
	case domain.Deposit:
		return applyDeposit(state, t), 0
	case domain.Withdrawal:
		return applyWithdrawal(state, t), 0
	case domain.Dispute:
		return applyDispute(state, t), 0
	case domain.Resolve:
		outcome := applyResolve(state, t)
		if outcome != OutcomeApplied {
			return outcome, 0
		}
		return outcome, e.backfill(ctx, state, t.Tx)
	case domain.Chargeback:
		return applyChargeback(state, t), 0
	default:
		e.logger.ErrorContext(ctx, "Unsupported transaction type",
			slog.Any("transaction", tx))
		return OutcomeIgnored, 0
	}
}

func project(repo repository.ClientStateRepository) domain.Ledger {
	ledger := make(domain.Ledger, 0, repo.Len())
	repo.Range(func(id domain.ClientID, state *domain.ClientState) bool {
		ledger = append(ledger, domain.NewClientLedger(id, state))
		return true
	})
	return ledger
}

func (e *Engine) logSummary(ctx context.Context, summary Summary, clients int, elapsed time.Duration) {
	e.logger.InfoContext(ctx, "Ledger built",
		slog.Int("transactions", summary.Processed),
		slog.Int("clients", clients),
		slog.Int("applied", summary.Outcomes[OutcomeApplied]),
		slog.Int("ignored", summary.Outcomes[OutcomeIgnored]),
		slog.Int("deferred", summary.Outcomes[OutcomeDeferred]),
		slog.Int("dropped", summary.Outcomes[OutcomeDropped]),
		slog.Int("backfills", summary.Backfills),
		slog.Duration("duration", elapsed))
}
