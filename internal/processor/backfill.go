package processor

import (
	"context"
	"log/slog"
	"slices"

	"payments_ledger/internal/domain"
)

// backfill pays previously rejected withdrawals after resolved has been
// released. A rejected withdrawal qualifies only if resolved was already
// under dispute when it was rejected, and only if current available funds
// cover it. Entries are visited once, oldest first; each payment lowers the
// funds seen by the entries after it. Returns the number of withdrawals paid.
func (e *Engine) backfill(ctx context.Context, state *domain.ClientState, resolved domain.TransactionID) int {
	if len(state.History.Rejected) == 0 {
		return 0
	}

	paid := 0
	pending := slices.Clone(state.History.Rejected)
	for _, rejected := range pending {
		if !rejected.DisputedSnapshot.Contains(resolved) {
			continue
		}

		w := rejected.Activity
		if !w.Value.LessThanOrEqual(state.Available) {
			continue
		}

		state.Available = state.Available.Sub(w.Value)
		state.Total = state.Total.Sub(w.Value)
		state.History.RemoveRejected(w.Tx)
		state.History.Activity[w.Tx] = w
		paid++

		e.observer.WithdrawalBackfilled(w.Client, w.Tx, w.Value)
		e.logger.DebugContext(ctx, "Rejected withdrawal backfilled",
			slog.Int("client_id", int(w.Client)),
			slog.Int64("transaction_id", int64(w.Tx)),
			slog.Int64("resolved_transaction_id", int64(resolved)),
			slog.String("amount", w.Value.String()))
	}
	return paid
}
