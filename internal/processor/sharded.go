package processor

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"payments_ledger/internal/domain"
	"payments_ledger/internal/repository/memory"
)

const shardQueueSize = 256

// ShardedBuild produces the same ledger as BuildLedger using several workers.
// Clients never interact, so each client is pinned to the worker
// client%workers and that worker alone owns its state. A single dispatcher
// reads txs in order, which keeps every client's transactions in input order.
func (e *Engine) ShardedBuild(
	ctx context.Context,
	initial map[domain.ClientID]*domain.ClientState,
	txs iter.Seq[domain.Transaction],
	workers int,
) (domain.Ledger, error) {
	if workers <= 1 {
		return e.BuildLedger(ctx, initial, txs), nil
	}

	startTime := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	queues := make([]chan domain.Transaction, workers)
	repos := make([]*memory.ClientStateRepository, workers)
	summaries := make([]Summary, workers)
	for i := range workers {
		queues[i] = make(chan domain.Transaction, shardQueueSize)
		repos[i] = memory.NewClientStateRepository()
	}
	for id, state := range initial {
		repos[shardOf(id, workers)].Seed(map[domain.ClientID]*domain.ClientState{id: state})
	}

	for i := range workers {
		g.Go(func() error {
			summaries[i] = e.fold(gctx, repos[i], drain(queues[i]))
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for tx := range txs {
			select {
			case queues[shardOf(tx.ClientID(), workers)] <- tx:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sharded build aborted: %w", err)
	}

	total := newSummary()
	var ledger domain.Ledger
	for i := range workers {
		total.merge(summaries[i])
		ledger = append(ledger, project(repos[i])...)
	}

	e.logger.DebugContext(ctx, "Sharded build finished", slog.Int("workers", workers))
	e.logSummary(ctx, total, len(ledger), time.Since(startTime))
	return ledger, nil
}

func shardOf(id domain.ClientID, workers int) int {
	return int(id) % workers
}

func drain(queue <-chan domain.Transaction) iter.Seq[domain.Transaction] {
	return func(yield func(domain.Transaction) bool) {
		for tx := range queue {
			if !yield(tx) {
				return
			}
		}
	}
}
