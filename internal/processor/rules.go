package processor

import (
	"payments_ledger/internal/domain"
)

// Each rule checks every precondition before touching state, so a rule
// either commits all of its changes or none.

func applyDeposit(state *domain.ClientState, tx domain.Deposit) Outcome {
	if state.Locked {
		return OutcomeIgnored
	}

	state.Available = state.Available.Add(tx.Value)
	state.Total = state.Total.Add(tx.Value)
	state.History.Activity[tx.Tx] = tx
	return OutcomeApplied
}

func applyWithdrawal(state *domain.ClientState, tx domain.Withdrawal) Outcome {
	if state.Locked {
		return OutcomeIgnored
	}

	short := state.Available.LessThan(tx.Value)
	disputesOpen := state.History.Disputed.Len() > 0

	// No later resolve can release enough funds.
	if (short && !disputesOpen) || state.Total.LessThan(tx.Value) {
		return OutcomeDropped
	}

	if short {
		state.History.Rejected = append(state.History.Rejected, domain.RejectedActivity{
			Activity:         tx,
			DisputedSnapshot: state.History.Disputed.Clone(),
		})
		return OutcomeDeferred
	}

	state.Available = state.Available.Sub(tx.Value)
	state.Total = state.Total.Sub(tx.Value)
	state.History.Activity[tx.Tx] = tx
	return OutcomeApplied
}

func applyDispute(state *domain.ClientState, tx domain.Dispute) Outcome {
	if state.Locked || state.History.Disputed.Contains(tx.Tx) {
		return OutcomeIgnored
	}

	// Only deposits can be disputed; a withdrawal has already left the account.
	deposit, ok := state.History.Deposit(tx.Tx)
	if !ok {
		return OutcomeIgnored
	}

	state.Available = state.Available.Sub(deposit.Value)
	state.Held = state.Held.Add(deposit.Value)
	state.History.Disputed.Add(tx.Tx)
	return OutcomeApplied
}

func applyResolve(state *domain.ClientState, tx domain.Resolve) Outcome {
	if state.Locked || !state.History.Disputed.Contains(tx.Tx) {
		return OutcomeIgnored
	}

	deposit, ok := state.History.Deposit(tx.Tx)
	if !ok {
		return OutcomeIgnored
	}

	state.Available = state.Available.Add(deposit.Value)
	state.Held = state.Held.Sub(deposit.Value)
	state.History.Disputed.Remove(tx.Tx)
	return OutcomeApplied
}

func applyChargeback(state *domain.ClientState, tx domain.Chargeback) Outcome {
	if state.Locked || !state.History.Disputed.Contains(tx.Tx) {
		return OutcomeIgnored
	}

	deposit, ok := state.History.Deposit(tx.Tx)
	if !ok {
		return OutcomeIgnored
	}

	// Available was already reduced when the dispute opened.
	state.Total = state.Total.Sub(deposit.Value)
	state.Held = state.Held.Sub(deposit.Value)
	state.Locked = true
	return OutcomeApplied
}
