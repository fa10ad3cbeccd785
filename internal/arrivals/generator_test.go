package arrivals

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

func newTestState(seed uint64) *simstate.SimulationState {
	tm := clock.NewTimeManager(10)
	r := rng.New(seed)
	return simstate.New(tm, r)
}

func TestGenerateForAgent_NoConfigProducesNothing(t *testing.T) {
	state := newTestState(1)
	state.AddAgent(domain.NewAgent("alice", 1000_00, 0, 0, 0))
	g := New(map[string]Config{})
	created := g.GenerateForAgent(state, "alice", 0)
	assert.Empty(t, created)
}

func TestGenerateForAgent_CreatesTransactionsInSenderQueue(t *testing.T) {
	state := newTestState(42)
	state.AddAgent(domain.NewAgent("alice", 1_000_000_00, 0, 0, 0))
	state.AddAgent(domain.NewAgent("bob", 1_000_000_00, 0, 0, 0))
	state.AddAgent(domain.NewAgent("carol", 1_000_000_00, 0, 0, 0))

	cfg := Config{
		RatePerTick: 3.0,
		AmountDistribution: AmountDistribution{
			Kind: Uniform,
			Lo:   100_00,
			Hi:   500_00,
		},
		CounterpartyWeights: map[string]float64{"bob": 1, "carol": 1},
		DeadlineMinTicks:    2,
		DeadlineMaxTicks:    8,
		Priority:            1,
		Divisible:           true,
	}
	g := New(map[string]Config{"alice": cfg})

	created := g.GenerateForAgent(state, "alice", 0)
	alice, err := state.GetAgent("alice")
	require.NoError(t, err)

	for _, tx := range created {
		assert.Equal(t, "alice", tx.SenderID)
		assert.NotEqual(t, "alice", tx.ReceiverID)
		assert.GreaterOrEqual(t, tx.Amount, money.Cents(100_00))
		assert.LessOrEqual(t, tx.Amount, money.Cents(500_00))
		assert.True(t, alice.QueueContains(tx.ID))
		assert.GreaterOrEqual(t, tx.DeadlineTick, 2)
		assert.LessOrEqual(t, tx.DeadlineTick, 8)

		stored, err := state.GetTransaction(tx.ID)
		require.NoError(t, err)
		assert.Same(t, tx, stored)
	}

	arrivalEvents := 0
	for _, e := range state.Events {
		if e.Kind == domain.EventArrival {
			arrivalEvents++
		}
	}
	assert.Equal(t, len(created), arrivalEvents)
}

func TestGenerateForAgent_IsDeterministicForFixedSeed(t *testing.T) {
	cfg := Config{
		RatePerTick: 2.5,
		AmountDistribution: AmountDistribution{
			Kind: Normal,
			Mu:   1000_00,
			Sigma: 200_00,
		},
		CounterpartyWeights: map[string]float64{"bob": 2, "carol": 1},
		DeadlineMinTicks:    1,
		DeadlineMaxTicks:    5,
	}

	run := func() []string {
		state := newTestState(7)
		state.AddAgent(domain.NewAgent("alice", 10_000_000_00, 0, 0, 0))
		state.AddAgent(domain.NewAgent("bob", 0, 0, 0, 0))
		state.AddAgent(domain.NewAgent("carol", 0, 0, 0, 0))
		g := New(map[string]Config{"alice": cfg})
		created := g.GenerateForAgent(state, "alice", 0)
		ids := make([]string, 0, len(created))
		for _, tx := range created {
			ids = append(ids, tx.ID)
		}
		return ids
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestWeightedCounterparties_ExcludesSelfAndNormalizes(t *testing.T) {
	ids, weights := weightedCounterparties(map[string]float64{"alice": 5, "bob": 3, "carol": 1}, "alice")
	require.Equal(t, []string{"bob", "carol"}, ids)
	assert.InDelta(t, 0.75, weights[0], 1e-9)
	assert.InDelta(t, 0.25, weights[1], 1e-9)
}
