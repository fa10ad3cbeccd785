package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtgscore/internal/clock"
	"rtgscore/internal/domain"
	"rtgscore/internal/rtgs"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
	"rtgscore/pkg/rng"
)

func newTestState() *simstate.SimulationState {
	tm := clock.NewTimeManager(10)
	r := rng.New(1)
	return simstate.New(tm, r)
}

func TestFIFOPolicy_ReleasesAllInOrder(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	state.AddAgent(agent)

	tx1 := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 9, 0, false)
	tx2 := domain.NewTransaction("tx2", "alice", "bob", 200_00, 0, 9, 0, false)
	state.AddTransaction(tx1)
	state.AddTransaction(tx2)
	agent.QueueOutgoing("tx1")
	agent.QueueOutgoing("tx2")

	p := FIFOPolicy{}
	decisions := p.EvaluateQueue(agent, state, 0)
	require.Len(t, decisions, 2)
	assert.Equal(t, "tx1", decisions[0].TxID)
	assert.Equal(t, SubmitFull, decisions[0].Kind)
	assert.Equal(t, "tx2", decisions[1].TxID)
}

func TestDeadlineAwarePolicy_HoldsUntilUrgent(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	state.AddAgent(agent)

	tx := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 10, 0, false)
	state.AddTransaction(tx)
	agent.QueueOutgoing("tx1")

	p := DeadlineAwarePolicy{UrgencyThreshold: 2}
	decisions := p.EvaluateQueue(agent, state, 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, Hold, decisions[0].Kind)

	decisions = p.EvaluateQueue(agent, state, 8)
	require.Len(t, decisions, 1)
	assert.Equal(t, SubmitFull, decisions[0].Kind)
}

func TestLiquidityAwarePolicy_ReleasesWhenComfortable(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	state.AddAgent(agent)

	tx := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 99, 0, false)
	state.AddTransaction(tx)
	agent.QueueOutgoing("tx1")

	p := LiquidityAwarePolicy{UrgencyThreshold: 0, TargetBuffer: 500_00}
	decisions := p.EvaluateQueue(agent, state, 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, SubmitFull, decisions[0].Kind) // 1000-100 = 900 >= 500

	p2 := LiquidityAwarePolicy{UrgencyThreshold: 0, TargetBuffer: 950_00}
	decisions = p2.EvaluateQueue(agent, state, 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, Hold, decisions[0].Kind) // 1000-100 = 900 < 950
}

func TestSplittingPolicy_SplitsWhenLiquidityInsufficientButDivisible(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", 100_00, 0, 0, 0)
	state.AddAgent(agent)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 99, 0, true)
	state.AddTransaction(tx)
	agent.QueueOutgoing("tx1")

	p := SplittingPolicy{UrgencyThreshold: 0, TargetBuffer: 10000_00, MinSplitAmount: 10_00, MaxSplits: 10}
	decisions := p.EvaluateQueue(agent, state, 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, SubmitPartial, decisions[0].Kind)
	assert.GreaterOrEqual(t, decisions[0].NumSplits, 2)
}

func TestSplittingPolicy_HoldsWhenIndivisible(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", 100_00, 0, 0, 0)
	state.AddAgent(agent)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 99, 0, false)
	state.AddTransaction(tx)
	agent.QueueOutgoing("tx1")

	p := SplittingPolicy{UrgencyThreshold: 0, TargetBuffer: 10000_00, MinSplitAmount: 10_00, MaxSplits: 10}
	decisions := p.EvaluateQueue(agent, state, 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, Hold, decisions[0].Kind)
}

func TestApplySplit_ChildrenSumToParentAndSettle(t *testing.T) {
	state := newTestState()
	sender := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	receiver := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(sender)
	state.AddAgent(receiver)

	parent := domain.NewTransaction("tx1", "alice", "bob", 301_00, 0, 99, 0, true)
	state.AddTransaction(parent)
	sender.QueueOutgoing("tx1")

	eng := rtgs.New(nil)
	result, err := ApplySplit(state, eng, parent, 3, 5_00, 0)
	require.NoError(t, err)
	require.Len(t, result.Children, 3)

	var total money.Cents
	for _, c := range result.Children {
		total += c.Amount
	}
	assert.Equal(t, parent.Amount, total)
	assert.Equal(t, domain.StatusSplit, parent.Status)
	assert.False(t, sender.QueueContains("tx1"))
	assert.Equal(t, money.Cents(10_00), result.FrictionCost) // 5_00 * (3-1)
	assert.Equal(t, money.Cents(10_00), sender.AccumulatedCost)

	for _, c := range result.Children {
		assert.Equal(t, domain.StatusSettled, c.Status)
	}
	assert.Equal(t, money.Cents(1000_00-301_00), sender.Balance)
}

func TestApplySplit_RejectsIndivisibleParent(t *testing.T) {
	state := newTestState()
	sender := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	state.AddAgent(sender)
	parent := domain.NewTransaction("tx1", "alice", "bob", 301_00, 0, 99, 0, false)
	state.AddTransaction(parent)

	eng := rtgs.New(nil)
	_, err := ApplySplit(state, eng, parent, 3, 5_00, 0)
	assert.Error(t, err)
}
