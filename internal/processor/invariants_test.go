package processor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments_ledger/internal/domain"
	"payments_ledger/pkg/money"
)

// randomStream builds a reproducible mix of all five kinds across clients,
// with dispute-management records pointing at earlier deposit and
// withdrawal ids as well as unknown ones.
func randomStream(seed uint64, n int, clients int) []domain.Transaction {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	txs := make([]domain.Transaction, 0, n)
	next := domain.TransactionID(1)

	for len(txs) < n {
		c := domain.ClientID(r.IntN(clients) + 1)
		ref := domain.TransactionID(r.IntN(int(next)) + 1)
		value, _ := money.Parse(randomAmount(r))

		switch r.IntN(6) {
		case 0, 1:
			txs = append(txs, domain.Deposit{Client: c, Tx: next, Value: value})
			next++
		case 2:
			txs = append(txs, domain.Withdrawal{Client: c, Tx: next, Value: value})
			next++
		case 3:
			txs = append(txs, domain.Dispute{Client: c, Tx: ref})
		case 4:
			txs = append(txs, domain.Resolve{Client: c, Tx: ref})
		default:
			if r.IntN(4) == 0 {
				txs = append(txs, domain.Chargeback{Client: c, Tx: ref})
			} else {
				txs = append(txs, domain.Resolve{Client: c, Tx: ref})
			}
		}
	}
	return txs
}

func randomAmount(r *rand.Rand) string {
	return fmt.Sprintf("%d.%04d", r.IntN(500), r.IntN(10000))
}

type snapshot struct {
	available, held, total string
	locked                 bool
	disputed, rejected     int
}

func snap(s *domain.ClientState) snapshot {
	return snapshot{
		available: s.Available.String(),
		held:      s.Held.String(),
		total:     s.Total.String(),
		locked:    s.Locked,
		disputed:  s.History.Disputed.Len(),
		rejected:  len(s.History.Rejected),
	}
}

func TestInvariants_RandomStreams(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	for seed := uint64(1); seed <= 20; seed++ {
		states := make(map[domain.ClientID]*domain.ClientState)

		for i, tx := range randomStream(seed, 400, 4) {
			state, ok := states[tx.ClientID()]
			if !ok {
				state = domain.NewClientState()
				states[tx.ClientID()] = state
			}

			before := snap(state)
			engine.Apply(ctx, state, tx)
			after := snap(state)

			require.True(t, state.Balanced(),
				"seed %d step %d: total %s != available %s + held %s",
				seed, i, state.Total, state.Available, state.Held)
			if before.locked {
				require.Equal(t, before, after, "seed %d step %d: locked client changed", seed, i)
			}
		}
	}
}

func TestInvariants_DisputeIsIdempotent(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	once := applyAll(t, deposit(1, 42), deposit(2, 8), dispute(1))
	many := applyAll(t, deposit(1, 42), deposit(2, 8), dispute(1))
	for i := 0; i < 5; i++ {
		assert.Equal(t, OutcomeIgnored, engine.Apply(ctx, many, dispute(1)))
	}

	assert.Equal(t, snap(once), snap(many))
}

func TestShardedBuild_MatchesSequentialBuild(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	for _, workers := range []int{1, 2, 3, 8} {
		txs := randomStream(uint64(workers)+100, 2000, 17)

		want := engine.CreateLedger(ctx, Transactions(txs)).Sorted()
		got, err := engine.ShardedBuild(ctx, nil, Transactions(txs), workers)
		require.NoError(t, err)
		got = got.Sorted()

		require.Len(t, got, len(want), "workers=%d", workers)
		for i := range want {
			assert.Equal(t, want[i].Client, got[i].Client)
			assert.Equal(t, want[i].Available.String(), got[i].Available.String(), "client %d", want[i].Client)
			assert.Equal(t, want[i].Held.String(), got[i].Held.String(), "client %d", want[i].Client)
			assert.Equal(t, want[i].Total.String(), got[i].Total.String(), "client %d", want[i].Client)
			assert.Equal(t, want[i].Locked, got[i].Locked, "client %d", want[i].Client)
		}
	}
}

func TestShardedBuild_UsesInitialState(t *testing.T) {
	initial := initialState(10, 10, 0)
	initial[6] = domain.NewClientState()

	ledger, err := NewEngine().ShardedBuild(context.Background(), initial, Transactions([]domain.Transaction{
		withdrawal(1, 4),
	}), 4)
	require.NoError(t, err)

	row, ok := ledger.Find(client)
	require.True(t, ok)
	assertBalances(t, row, "6.0000", "0.0000", "6.0000", false)

	_, ok = ledger.Find(6)
	assert.True(t, ok, "seeded client without transactions must still be reported")
	assert.Equal(t, "10.0000", initial[client].Available.String())
}

func TestShardedBuild_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sent := 0
	endless := func(yield func(domain.Transaction) bool) {
		for id := domain.TransactionID(1); ; id++ {
			if sent == 100 {
				cancel()
			}
			sent++
			tx := domain.Deposit{Client: domain.ClientID(id % 8), Tx: id, Value: amt(1)}
			if !yield(tx) {
				return
			}
		}
	}

	ledger, err := NewEngine().ShardedBuild(ctx, nil, endless, 4)

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "sharded build aborted")
	assert.Nil(t, ledger)
	assert.Greater(t, sent, 100)
}
