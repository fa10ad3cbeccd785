// Package domain defines the settlement core's two owned record types —
// Agent and Transaction — and the append-only Event log they feed.
//
// Both Agent and Transaction are owned exclusively by SimulationState
// (internal/simstate); the subsystems the orchestrator drives each tick
// mutate them through the pointers that state hands out.
package domain

import (
	"rtgscore/pkg/errors"
	"rtgscore/pkg/money"
)

// Agent is a bank's settlement-facing state: balance, intraday credit,
// posted collateral, its outgoing policy queue ("Queue 1"), and accumulated
// cost of operation.
type Agent struct {
	ID                    string
	Balance               money.Cents
	CreditLimit           money.Cents
	PostedCollateral      money.Cents
	MaxCollateralCapacity money.Cents
	LiquidityBuffer       money.Cents
	AccumulatedCost       money.Cents

	// OutgoingQueue is Queue 1: transaction ids awaiting a policy decision,
	// in insertion order.
	OutgoingQueue []string
}

// NewAgent constructs an Agent with a derived collateral ceiling: 10x the
// credit limit unless an explicit, non-zero cap is given.
func NewAgent(id string, openingBalance, creditLimit, maxCollateralCapacity, initialPostedCollateral money.Cents) *Agent {
	cap := maxCollateralCapacity
	if cap <= 0 {
		cap = 10 * creditLimit
	}
	return &Agent{
		ID:                    id,
		Balance:               openingBalance,
		CreditLimit:           creditLimit,
		PostedCollateral:      initialPostedCollateral,
		MaxCollateralCapacity: cap,
		OutgoingQueue:         make([]string, 0),
	}
}

// AvailableLiquidity is the maximum amount the agent can debit right now:
// balance + credit_limit + posted_collateral. A negative balance (overdraft
// already drawn) reduces it directly.
func (a *Agent) AvailableLiquidity() money.Cents {
	return a.Balance + a.CreditLimit + a.PostedCollateral
}

// CanPay reports whether amount is within available liquidity.
func (a *Agent) CanPay(amount money.Cents) bool {
	return amount <= a.AvailableLiquidity()
}

// Headroom is the signed distance to the credit/collateral floor:
// -balance <= credit_limit + posted_collateral must hold at every
// settlement boundary. Headroom >= 0 means the invariant holds.
func (a *Agent) Headroom() money.Cents {
	return a.CreditLimit + a.PostedCollateral + a.Balance
}

// Debit atomically decreases balance, failing if it would breach available
// liquidity. It never leaves the agent in a partially-debited state.
func (a *Agent) Debit(amount money.Cents) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	if !a.CanPay(amount) {
		return errors.InsufficientLiquidity(a.ID, int64(amount), int64(a.AvailableLiquidity()))
	}
	a.Balance -= amount
	return nil
}

// Credit increases balance. It never fails for a non-negative amount.
func (a *Agent) Credit(amount money.Cents) {
	if amount < 0 {
		return
	}
	a.Balance += amount
}

// ApplyNetDelta adjusts balance directly by a signed amount, bypassing the
// liquidity check Debit performs. It exists for LSM multilateral netting:
// a bilateral offset or cycle settlement computes one net delta per
// participant from transactions whose combined effect is already known to
// leave every participant's headroom unchanged or improved, so no
// per-leg liquidity check applies — only the net result matters.
func (a *Agent) ApplyNetDelta(delta money.Cents) {
	a.Balance += delta
}

// RemainingCollateralCapacity is how much more collateral the agent may
// post before hitting its derived ceiling.
func (a *Agent) RemainingCollateralCapacity() money.Cents {
	return a.MaxCollateralCapacity - a.PostedCollateral
}

// PostCollateral raises posted collateral, failing if it would breach the
// capacity ceiling.
func (a *Agent) PostCollateral(amount money.Cents) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	if amount > a.RemainingCollateralCapacity() {
		return errors.InsufficientCollateralCapacity(a.ID, int64(amount), int64(a.RemainingCollateralCapacity()))
	}
	a.PostedCollateral += amount
	return nil
}

// WithdrawCollateral lowers posted collateral, failing if it would go
// negative.
func (a *Agent) WithdrawCollateral(amount money.Cents) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	if amount > a.PostedCollateral {
		return errors.InsufficientCollateral(a.ID, int64(amount), int64(a.PostedCollateral))
	}
	a.PostedCollateral -= amount
	return nil
}

// QueueOutgoing appends tx_id to Queue 1, preserving insertion order.
func (a *Agent) QueueOutgoing(txID string) {
	a.OutgoingQueue = append(a.OutgoingQueue, txID)
}

// RemoveFromQueue deletes tx_id from Queue 1 by value, preserving the
// relative order of the survivors. Reports whether it was present.
func (a *Agent) RemoveFromQueue(txID string) bool {
	for i, id := range a.OutgoingQueue {
		if id == txID {
			a.OutgoingQueue = append(a.OutgoingQueue[:i], a.OutgoingQueue[i+1:]...)
			return true
		}
	}
	return false
}

// QueueContains reports whether tx_id is currently in Queue 1.
func (a *Agent) QueueContains(txID string) bool {
	for _, id := range a.OutgoingQueue {
		if id == txID {
			return true
		}
	}
	return false
}
