package rtgs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtgscore/internal/clock"
	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/errors"
	"rtgscore/pkg/money"
	"rtgscore/pkg/rng"
)

func newTestState() *simstate.SimulationState {
	tm := clock.NewTimeManager(10)
	r := rng.New(42)
	return simstate.New(tm, r)
}

func TestTrySettle_SucceedsWithSufficientLiquidity(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 9, 0, false)
	state.AddTransaction(tx)

	eng := New(nil)
	err := eng.TrySettle(state, tx, 0)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(500_00), alice.Balance)
	assert.Equal(t, money.Cents(500_00), bob.Balance)
	assert.Equal(t, domain.StatusSettled, tx.Status)
	require.Len(t, state.Events, 1)
	assert.Equal(t, domain.EventSettlementFull, state.Events[0].Kind)
}

func TestTrySettle_InsufficientLiquidityLeavesStateUntouched(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 100_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 9, 0, false)
	state.AddTransaction(tx)

	eng := New(nil)
	err := eng.TrySettle(state, tx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientLiquidity)

	assert.Equal(t, money.Cents(100_00), alice.Balance)
	assert.Equal(t, money.Cents(0), bob.Balance)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Empty(t, state.Events)
}

func TestTrySettle_UsesCreditLimitAndCollateralAsHeadroom(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 0, 200_00, 0, 100_00)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 300_00, 0, 9, 0, false)
	state.AddTransaction(tx)

	eng := New(nil)
	require.NoError(t, eng.TrySettle(state, tx, 0))
	assert.Equal(t, money.Cents(-300_00), alice.Balance)
	assert.Equal(t, domain.StatusSettled, tx.Status)
}

func TestTrySettlePartial_RejectsIndivisible(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 9, 0, false)
	state.AddTransaction(tx)

	eng := New(nil)
	err := eng.TrySettlePartial(state, tx, 100_00, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

func TestTrySettlePartial_SettlesPartialAndLeavesRemainder(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 100_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 9, 0, true)
	state.AddTransaction(tx)

	eng := New(nil)
	require.NoError(t, eng.TrySettlePartial(state, tx, 100_00, 0))

	assert.Equal(t, money.Cents(0), alice.Balance)
	assert.Equal(t, money.Cents(400_00), tx.RemainingAmount)
	assert.Equal(t, domain.StatusPartiallySettled, tx.Status)
	require.Len(t, state.Events, 1)
	assert.Equal(t, domain.EventSettlementPartial, state.Events[0].Kind)
}

func TestSubmit_QueuesOnInsufficientLiquidity(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 0, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 9, 0, false)

	eng := New(nil)
	outcome, err := eng.Submit(state, tx, 0)
	require.NoError(t, err)
	assert.False(t, outcome.Settled)
	assert.Equal(t, 1, outcome.QueuedAt)
	assert.True(t, state.RtgsQueueContains("tx1"))
}

func TestSubmit_SettlesImmediatelyWhenLiquid(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 1000_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 500_00, 0, 9, 0, false)

	eng := New(nil)
	outcome, err := eng.Submit(state, tx, 0)
	require.NoError(t, err)
	assert.True(t, outcome.Settled)
	assert.False(t, state.RtgsQueueContains("tx1"))
}

func TestProcessQueue_RecyclesLiquidityWithinOnePass(t *testing.T) {
	state := newTestState()
	// alice owes bob 100, bob owes carol 100. alice starts with 100, bob with
	// 0. bob's payment to carol cannot clear until alice's payment lands —
	// recycled liquidity within the same drain should clear both.
	alice := domain.NewAgent("alice", 100_00, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	carol := domain.NewAgent("carol", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)
	state.AddAgent(carol)

	tx1 := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 9, 0, false)
	tx2 := domain.NewTransaction("tx2", "bob", "carol", 100_00, 0, 9, 0, false)
	state.AddTransaction(tx1)
	state.AddTransaction(tx2)
	state.EnqueueRtgs("tx2")
	state.EnqueueRtgs("tx1")

	eng := New(nil)
	result, err := eng.ProcessQueue(state, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Settled)
	assert.Equal(t, money.Cents(200_00), result.SettledValue)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, domain.StatusSettled, tx1.Status)
	assert.Equal(t, domain.StatusSettled, tx2.Status)
	assert.Empty(t, state.RtgsQueue)
}

func TestProcessQueue_DropsPastDeadlineEntries(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 0, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 2, 0, false)
	state.AddTransaction(tx)
	state.EnqueueRtgs("tx1")

	eng := New(nil)
	result, err := eng.ProcessQueue(state, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 0, result.Settled)
	assert.Equal(t, domain.StatusDropped, tx.Status)
	assert.Equal(t, "deadline_exceeded", tx.DropReason)
	assert.Empty(t, state.RtgsQueue)
}

func TestProcessQueue_LeavesIlliquidEntriesQueued(t *testing.T) {
	state := newTestState()
	alice := domain.NewAgent("alice", 0, 0, 0, 0)
	bob := domain.NewAgent("bob", 0, 0, 0, 0)
	state.AddAgent(alice)
	state.AddAgent(bob)

	tx := domain.NewTransaction("tx1", "alice", "bob", 100_00, 0, 9, 0, false)
	state.AddTransaction(tx)
	state.EnqueueRtgs("tx1")

	eng := New(nil)
	result, err := eng.ProcessQueue(state, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Settled)
	assert.Equal(t, 1, result.Remaining)
	assert.True(t, state.RtgsQueueContains("tx1"))
	assert.Equal(t, domain.StatusPending, tx.Status)
}
