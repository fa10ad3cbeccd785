package policy

import (
	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// FIFOPolicy releases every Queue 1 entry in insertion order, every tick,
// regardless of liquidity or deadline.
type FIFOPolicy struct {
	BasePolicy
}

func (FIFOPolicy) EvaluateQueue(agent *domain.Agent, _ *simstate.SimulationState, _ int) []ReleaseDecision {
	decisions := make([]ReleaseDecision, 0, len(agent.OutgoingQueue))
	for _, txID := range agent.OutgoingQueue {
		decisions = append(decisions, ReleaseDecision{Kind: SubmitFull, TxID: txID})
	}
	return decisions
}

// DeadlineAwarePolicy releases a transaction once it is within
// UrgencyThreshold ticks of its deadline, and otherwise holds it.
type DeadlineAwarePolicy struct {
	BasePolicy
	UrgencyThreshold int
}

func (p DeadlineAwarePolicy) EvaluateQueue(agent *domain.Agent, state *simstate.SimulationState, tick int) []ReleaseDecision {
	decisions := make([]ReleaseDecision, 0, len(agent.OutgoingQueue))
	for _, txID := range agent.OutgoingQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil {
			continue
		}
		if ticksToDeadline(tx, tick) <= p.UrgencyThreshold {
			decisions = append(decisions, ReleaseDecision{Kind: SubmitFull, TxID: txID})
		} else {
			decisions = append(decisions, ReleaseDecision{Kind: Hold, TxID: txID, Reason: "not urgent"})
		}
	}
	return decisions
}

// LiquidityAwarePolicy releases a transaction when it is urgent, or when
// settling it would still leave at least TargetBuffer of balance behind.
type LiquidityAwarePolicy struct {
	BasePolicy
	UrgencyThreshold int
	TargetBuffer     money.Cents
}

func (p LiquidityAwarePolicy) EvaluateQueue(agent *domain.Agent, state *simstate.SimulationState, tick int) []ReleaseDecision {
	decisions := make([]ReleaseDecision, 0, len(agent.OutgoingQueue))
	for _, txID := range agent.OutgoingQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil {
			continue
		}
		urgent := ticksToDeadline(tx, tick) <= p.UrgencyThreshold
		comfortable := agent.Balance-tx.RemainingAmount >= p.TargetBuffer
		if urgent || comfortable {
			decisions = append(decisions, ReleaseDecision{Kind: SubmitFull, TxID: txID})
		} else {
			decisions = append(decisions, ReleaseDecision{Kind: Hold, TxID: txID, Reason: "below target buffer"})
		}
	}
	return decisions
}

// SplittingPolicy extends LiquidityAwarePolicy: when a transaction would
// otherwise hold for lack of liquidity, it tries to carve off a chunk the
// agent can afford right now instead of waiting for the whole amount.
type SplittingPolicy struct {
	BasePolicy
	UrgencyThreshold int
	TargetBuffer     money.Cents
	MinSplitAmount   money.Cents
	MaxSplits        int
}

func (p SplittingPolicy) EvaluateQueue(agent *domain.Agent, state *simstate.SimulationState, tick int) []ReleaseDecision {
	decisions := make([]ReleaseDecision, 0, len(agent.OutgoingQueue))
	for _, txID := range agent.OutgoingQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil {
			continue
		}
		urgent := ticksToDeadline(tx, tick) <= p.UrgencyThreshold
		comfortable := agent.Balance-tx.RemainingAmount >= p.TargetBuffer
		if urgent || comfortable {
			decisions = append(decisions, ReleaseDecision{Kind: SubmitFull, TxID: txID})
			continue
		}

		if numSplits, ok := p.chooseSplit(agent, tx); ok {
			decisions = append(decisions, ReleaseDecision{Kind: SubmitPartial, TxID: txID, NumSplits: numSplits, Reason: "liquidity insufficient for full release"})
			continue
		}
		decisions = append(decisions, ReleaseDecision{Kind: Hold, TxID: txID, Reason: "below target buffer, not splittable"})
	}
	return decisions
}

// chooseSplit picks the smallest num_splits (>= 2) such that each child's
// base amount is within the agent's headroom and at least MinSplitAmount,
// capped at MaxSplits. Not splittable if no such count divides the
// transaction's amount acceptably, or if the transaction is indivisible.
func (p SplittingPolicy) chooseSplit(agent *domain.Agent, tx *domain.Transaction) (int, bool) {
	if !tx.Divisible || p.MaxSplits < 2 {
		return 0, false
	}
	headroom := agent.AvailableLiquidity()
	if headroom <= 0 {
		return 0, false
	}
	for n := 2; n <= p.MaxSplits; n++ {
		childAmount := tx.RemainingAmount / money.Cents(n)
		if childAmount < p.MinSplitAmount {
			break // larger n only shrinks childAmount further
		}
		if childAmount <= headroom {
			return n, true
		}
	}
	return 0, false
}
