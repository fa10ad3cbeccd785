package lsm

import (
	"sort"

	"rtgscore/internal/domain"
	"rtgscore/internal/rtgs"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// PassResult summarizes one run_lsm_pass call.
type PassResult struct {
	Iterations    int
	PairsSettled  int
	CyclesSettled int
	ValueSettled  money.Cents
	QueueDrained  rtgs.DrainResult
}

// RunLsmPass alternates bilateral pass -> queue drain -> cycle pass ->
// queue drain for up to maxIterations rounds (the coordinator's
// documented default is 3), stopping early the first round that settles
// nothing. The rtgs.Engine passed in performs the queue drains between
// LSM phases so freshly-freed liquidity from a bilateral or cycle
// settlement is immediately recycled to any transaction still waiting
// on Queue 2 outside the selected pairs/cycles.
func (e *Engine) RunLsmPass(state *simstate.SimulationState, drain *rtgs.Engine, tick int, maxIterations int) (PassResult, error) {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	var result PassResult
	eventsBefore := len(state.Events)

	for i := 0; i < maxIterations; i++ {
		result.Iterations++
		roundProgress := false

		pairs, pairValue := e.BilateralPass(state, tick)
		if pairs > 0 {
			roundProgress = true
			result.PairsSettled += pairs
			result.ValueSettled += pairValue
		}

		drainResult, err := drain.ProcessQueue(state, tick)
		if err != nil {
			return result, err
		}
		result.QueueDrained.Settled += drainResult.Settled
		result.QueueDrained.SettledValue += drainResult.SettledValue
		result.QueueDrained.Dropped += drainResult.Dropped
		result.QueueDrained.Remaining = drainResult.Remaining
		if drainResult.Settled > 0 {
			roundProgress = true
		}

		cycles, cycleValue := e.CyclePass(state, tick)
		if cycles > 0 {
			roundProgress = true
			result.CyclesSettled += cycles
			result.ValueSettled += cycleValue
		}

		drainResult, err = drain.ProcessQueue(state, tick)
		if err != nil {
			return result, err
		}
		result.QueueDrained.Settled += drainResult.Settled
		result.QueueDrained.SettledValue += drainResult.SettledValue
		result.QueueDrained.Dropped += drainResult.Dropped
		result.QueueDrained.Remaining = drainResult.Remaining
		if drainResult.Settled > 0 {
			roundProgress = true
		}

		if !roundProgress {
			break
		}
	}

	sortTailEvents(state, eventsBefore)
	return result, nil
}

// sortTailEvents orders every event appended during this pass by
// (tick, event-kind, settled-value desc, agents-tuple, tx-ids-tuple), the
// total order the coordinator's determinism discipline requires so two
// runs over the same starting state produce byte-identical logs
// regardless of which internal search order found which settlement
// first.
func sortTailEvents(state *simstate.SimulationState, from int) {
	tail := state.Events[from:]
	sort.SliceStable(tail, func(i, j int) bool {
		a, b := tail[i], tail[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		va, vb := eventValue(a), eventValue(b)
		if va != vb {
			return va > vb // descending settled-value
		}
		ka, kb := eventKey(a), eventKey(b)
		return ka < kb
	})
}

func eventValue(e domain.Event) money.Cents {
	switch v := e.Fields["value"].(type) {
	case money.Cents:
		return v
	}
	switch v := e.Fields["amount"].(type) {
	case money.Cents:
		return v
	}
	switch v := e.Fields["net_amount"].(type) {
	case money.Cents:
		return v
	}
	return 0
}

func eventKey(e domain.Event) string {
	key := ""
	if agents, ok := e.Fields["agents"].([]string); ok {
		key += joinNodes(agents)
	}
	if a, ok := e.Fields["agent_a"].(string); ok {
		key += a
	}
	if b, ok := e.Fields["agent_b"].(string); ok {
		key += "," + b
	}
	if txID, ok := e.Fields["tx_id"].(string); ok {
		key += txID
	}
	return key
}
