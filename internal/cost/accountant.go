// Package cost implements the per-tick cost accrual that turns liquidity
// and timing decisions into a comparable scalar: overdraft, Queue 1 delay,
// collateral opportunity cost, deadline penalties, split friction, and
// end-of-day penalties. Every rate is basis points per tick applied via
// money.BpsOfPerTick, the core's one rounding rule, so the ledger never
// drifts from agent to agent or tick to tick.
package cost

import (
	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// Config holds the per-tick rates shared by every agent. Split friction and
// deadline penalties are charged at their own call sites (policy.ApplySplit,
// and the orchestrator's scan of the deadline drops rtgs.ProcessQueue
// logged this tick) and are not part of Accrue's per-tick sum.
type Config struct {
	OverdraftBpsPerTick      int64
	DelayBpsPerTick          int64
	CollateralCostBpsPerTick int64
	EodPenaltyPerTransaction money.Cents
}

// Accountant runs the per-tick accrual pass.
type Accountant struct {
	cfg Config
}

// New builds an Accountant.
func New(cfg Config) *Accountant {
	return &Accountant{cfg: cfg}
}

// Accrue charges one agent its overdraft, delay, and collateral-opportunity
// costs for this tick, returning the total charged (also what the caller
// folds into TickResult.total_cost).
func (a *Accountant) Accrue(state *simstate.SimulationState, agent *domain.Agent, tick int) money.Cents {
	var total money.Cents

	if agent.Balance < 0 {
		overdraft := money.BpsOfPerTick(agent.Balance.Abs(), a.cfg.OverdraftBpsPerTick)
		total += overdraft
	}

	var delayBase money.Cents
	for _, txID := range agent.OutgoingQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil {
			continue
		}
		delayBase += tx.RemainingAmount
	}
	total += money.BpsOfPerTick(delayBase, a.cfg.DelayBpsPerTick)

	total += money.BpsOfPerTick(agent.PostedCollateral, a.cfg.CollateralCostBpsPerTick)

	if total == 0 {
		return 0
	}

	agent.AccumulatedCost += total
	state.AppendEvent(domain.NewEvent(tick, domain.EventCostAccrual, map[string]interface{}{
		"agent_id": agent.ID,
		"amount":   total,
	}))
	return total
}

// DeadlinePenalty is charged once per transaction dropped for missing its
// deadline: the orchestrator calls it for each deadline drop that
// rtgs.ProcessQueue logged this tick, not as part of the per-tick Accrue
// pass. Callers add the returned amount into their own running total_cost.
func (a *Accountant) DeadlinePenalty(sender *domain.Agent, amount money.Cents) money.Cents {
	sender.AccumulatedCost += amount
	return amount
}

// EndOfDay charges EodPenaltyPerTransaction once for every non-terminal
// transaction still sitting in an agent's Queue 1 or Queue 2 at a day
// boundary, returning the total penalty charged across every agent.
func (a *Accountant) EndOfDay(state *simstate.SimulationState, tick int) money.Cents {
	var total money.Cents

	inQueue2 := make(map[string]bool, len(state.RtgsQueue))
	for _, id := range state.RtgsQueue {
		inQueue2[id] = true
	}

	for _, agentID := range state.AgentIDs() {
		agent := state.Agents[agentID]
		count := 0
		for _, txID := range agent.OutgoingQueue {
			tx, err := state.GetTransaction(txID)
			if err == nil && tx.IsActive() {
				count++
			}
		}
		for txID := range inQueue2 {
			tx, err := state.GetTransaction(txID)
			if err != nil || tx.SenderID != agentID || !tx.IsActive() {
				continue
			}
			count++
		}
		if count == 0 {
			continue
		}
		penalty := a.cfg.EodPenaltyPerTransaction * money.Cents(count)
		agent.AccumulatedCost += penalty
		total += penalty
	}

	if total > 0 {
		state.AppendEvent(domain.NewEvent(tick, domain.EventEndOfDay, map[string]interface{}{
			"total_penalty": total,
		}))
	}
	return total
}
