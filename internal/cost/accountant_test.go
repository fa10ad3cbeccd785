package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtgscore/internal/clock"
	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
	"rtgscore/pkg/rng"
)

func newTestState() *simstate.SimulationState {
	tm := clock.NewTimeManager(10)
	r := rng.New(1)
	return simstate.New(tm, r)
}

func TestAccrue_OverdraftAndDelayAndCollateral(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", -1000_00, 10000_00, 0, 500_00)
	state.AddAgent(agent)
	state.AddAgent(domain.NewAgent("bob", 0, 0, 0, 0))

	tx := domain.NewTransaction("tx1", "alice", "bob", 200_00, 0, 9, 0, false)
	state.AddTransaction(tx)
	agent.QueueOutgoing("tx1")

	a := New(Config{OverdraftBpsPerTick: 10, DelayBpsPerTick: 5, CollateralCostBpsPerTick: 2})
	total := a.Accrue(state, agent, 0)

	overdraft := money.BpsOfPerTick(1000_00, 10)
	delay := money.BpsOfPerTick(200_00, 5)
	collateral := money.BpsOfPerTick(500_00, 2)
	assert.Equal(t, overdraft+delay+collateral, total)
	assert.Equal(t, total, agent.AccumulatedCost)

	require.Len(t, state.Events, 1)
	assert.Equal(t, domain.EventCostAccrual, state.Events[0].Kind)
}

func TestAccrue_ZeroWhenNothingToCharge(t *testing.T) {
	state := newTestState()
	agent := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	state.AddAgent(agent)

	a := New(Config{OverdraftBpsPerTick: 10, DelayBpsPerTick: 5, CollateralCostBpsPerTick: 2})
	total := a.Accrue(state, agent, 0)

	assert.Equal(t, money.Cents(0), total)
	assert.Empty(t, state.Events)
}

func TestDeadlinePenalty_ChargesSender(t *testing.T) {
	agent := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	a := New(Config{})
	penalty := a.DeadlinePenalty(agent, 50_00)
	assert.Equal(t, money.Cents(50_00), penalty)
	assert.Equal(t, money.Cents(50_00), agent.AccumulatedCost)
}

func TestEndOfDay_ChargesPerActiveTransaction(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 1000_00, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx1 := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 99, 0, false)
	tx2 := domain.NewTransaction("tx2", "alice", "bob", 100_00, 0, 99, 0, false)
	tx3 := domain.NewTransaction("tx3", "bob", "alice", 100_00, 0, 99, 0, false)
	state.AddTransaction(tx1)
	state.AddTransaction(tx2)
	state.AddTransaction(tx3)
	alice.QueueOutgoing("tx1")
	alice.QueueOutgoing("tx2")
	state.EnqueueRtgs("tx3")

	a := New(Config{EodPenaltyPerTransaction: 10_00})
	total := a.EndOfDay(state, 9)

	assert.Equal(t, money.Cents(30_00), total)
	assert.Equal(t, money.Cents(20_00), alice.AccumulatedCost)
	assert.Equal(t, money.Cents(10_00), bob.AccumulatedCost)

	require.Len(t, state.Events, 1)
	assert.Equal(t, domain.EventEndOfDay, state.Events[0].Kind)
}

func TestEndOfDay_SkipsTerminalTransactions(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(domain.NewAgent("bob", 0, 0, 0, 0))

	tx := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 99, 0, false)
	require.NoError(t, tx.Settle(100_00, 5))
	state.AddTransaction(tx)

	a := New(Config{EodPenaltyPerTransaction: 10_00})
	total := a.EndOfDay(state, 9)

	assert.Equal(t, money.Cents(0), total)
	assert.Empty(t, state.Events)
}
