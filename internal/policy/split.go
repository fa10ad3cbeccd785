package policy

import (
	"rtgscore/internal/domain"
	"rtgscore/internal/rtgs"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/errors"
	"rtgscore/pkg/idgen"
	"rtgscore/pkg/money"
)

// SplitResult reports what ApplySplit did.
type SplitResult struct {
	Children     []*domain.Transaction
	FrictionCost money.Cents
}

// ApplySplit executes the five mechanical steps a SubmitPartial decision
// triggers: remove the parent from Queue 1, carve it into numSplits
// children whose amounts sum exactly back to the parent's amount, submit
// every child to RTGS, and charge the sender a split-friction cost
// proportional to how many extra legs the split created. The caller
// still owns appending the PolicySplit event — ApplySplit only returns
// what happened so the orchestrator can log it with tick context.
func ApplySplit(state *simstate.SimulationState, engine *rtgs.Engine, parent *domain.Transaction, numSplits int, frictionCostPerSplit money.Cents, tick int) (SplitResult, error) {
	if numSplits < 2 {
		return SplitResult{}, errors.ErrInvalidSplit
	}
	if !parent.Divisible {
		return SplitResult{}, errors.ErrInvalidSplit
	}

	sender, err := state.GetAgent(parent.SenderID)
	if err != nil {
		return SplitResult{}, err
	}

	base := parent.Amount / money.Cents(numSplits)
	remainder := parent.Amount % money.Cents(numSplits)
	if base < 1 {
		return SplitResult{}, errors.ErrInvalidSplit
	}
	sender.RemoveFromQueue(parent.ID)

	children := make([]*domain.Transaction, 0, numSplits)
	for i := 0; i < numSplits; i++ {
		amount := base
		if i == numSplits-1 {
			amount += remainder
		}
		childID := idgen.SplitChildID(parent.ID, i)
		child := domain.NewTransaction(childID, parent.SenderID, parent.ReceiverID, amount, parent.ArrivalTick, parent.DeadlineTick, parent.Priority, parent.Divisible)
		child.ParentID = parent.ID
		children = append(children, child)
	}

	parent.MarkSplit()

	for _, child := range children {
		if _, err := engine.Submit(state, child, tick); err != nil {
			return SplitResult{Children: children}, err
		}
	}

	friction := frictionCostPerSplit * money.Cents(numSplits-1)
	sender.AccumulatedCost += friction

	return SplitResult{Children: children, FrictionCost: friction}, nil
}
