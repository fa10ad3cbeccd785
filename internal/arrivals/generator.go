// Package arrivals generates the per-tick stream of new transactions: for
// every agent with a configured arrival rate, sample how many payments it
// originates this tick and the shape of each one. Every sample pulls from
// the simulation's single seeded rng.DeterministicRng — wired directly
// into gonum's stat/distuv samplers as their Src — so two runs of the
// same ArrivalConfig against the same seed produce byte-identical
// arrivals, down to the word.
package arrivals

import (
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/idgen"
	"rtgscore/pkg/money"
	"rtgscore/pkg/rng"
)

// DistributionKind selects the shape an agent's payment amounts follow.
type DistributionKind string

const (
	Uniform     DistributionKind = "uniform"
	Normal      DistributionKind = "normal"
	LogNormal   DistributionKind = "lognormal"
	Exponential DistributionKind = "exponential"
)

// AmountDistribution parameterizes one of the four supported shapes.
// Only the fields relevant to Kind are read.
type AmountDistribution struct {
	Kind      DistributionKind
	Lo, Hi    money.Cents // Uniform
	Mu, Sigma float64     // Normal; also the log-space parameters for LogNormal
	Lambda    float64     // Exponential
}

// Config is one agent's arrival process.
type Config struct {
	RatePerTick         float64
	AmountDistribution  AmountDistribution
	CounterpartyWeights map[string]float64 // renormalized to sum to 1 internally
	DeadlineMinTicks    int
	DeadlineMaxTicks    int
	Priority            int
	Divisible           bool
}

// Generator produces arrivals for a fixed set of per-agent configs.
type Generator struct {
	configs map[string]Config
}

// New builds a Generator from a per-agent config map.
func New(configs map[string]Config) *Generator {
	return &Generator{configs: configs}
}

// GenerateForAgent samples this tick's arrivals for one agent, inserts
// each resulting Transaction into state, enqueues it on the sender's
// Queue 1, and emits one Arrival event per transaction. RNG consumption
// order is fixed: count, then per arrival amount, then receiver, then
// deadline offset — the documented order every replay depends on.
func (g *Generator) GenerateForAgent(state *simstate.SimulationState, agentID string, tick int) []*domain.Transaction {
	cfg, ok := g.configs[agentID]
	if !ok || cfg.RatePerTick <= 0 {
		return nil
	}

	poisson := distuv.Poisson{Lambda: cfg.RatePerTick, Src: state.Rng}
	n := int(poisson.Rand())
	if n <= 0 {
		return nil
	}

	sender, err := state.GetAgent(agentID)
	if err != nil {
		return nil
	}

	candidates, weights := weightedCounterparties(cfg.CounterpartyWeights, agentID)
	created := make([]*domain.Transaction, 0, n)

	for i := 0; i < n; i++ {
		amount := sampleAmount(cfg.AmountDistribution, state.Rng)
		if amount < 1 {
			amount = 1
		}

		receiver := pickReceiver(candidates, weights, state.Rng)
		if receiver == "" {
			continue
		}

		offset := int(state.Rng.GenRange(int64(cfg.DeadlineMinTicks), int64(cfg.DeadlineMaxTicks)))
		deadline := tick + offset

		txID := idgen.TransactionID(agentID, tick, i)
		tx := domain.NewTransaction(txID, agentID, receiver, amount, tick, deadline, cfg.Priority, cfg.Divisible)
		state.AddTransaction(tx)
		sender.QueueOutgoing(tx.ID)
		created = append(created, tx)

		state.AppendEvent(domain.NewEvent(tick, domain.EventArrival, map[string]interface{}{
			"tx_id":    tx.ID,
			"sender":   agentID,
			"receiver": receiver,
			"amount":   amount,
			"deadline": deadline,
		}))
	}

	return created
}

// weightedCounterparties returns the eligible receiver ids (sorted,
// excluding self) and their renormalized weights in the same order.
func weightedCounterparties(raw map[string]float64, self string) ([]string, []float64) {
	ids := make([]string, 0, len(raw))
	for id, w := range raw {
		if id == self || w <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	weights := make([]float64, len(ids))
	var total float64
	for i, id := range ids {
		weights[i] = raw[id]
		total += raw[id]
	}
	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	}
	return ids, weights
}

func pickReceiver(ids []string, weights []float64, src *rng.DeterministicRng) string {
	idx := src.WeightedChoice(weights)
	if idx < 0 {
		return ""
	}
	return ids[idx]
}

func sampleAmount(d AmountDistribution, src *rng.DeterministicRng) money.Cents {
	switch d.Kind {
	case Normal:
		v := distuv.Normal{Mu: d.Mu, Sigma: d.Sigma, Src: src}.Rand()
		return money.Cents(v)
	case LogNormal:
		v := distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: src}.Rand()
		return money.Cents(v)
	case Exponential:
		v := distuv.Exponential{Rate: d.Lambda, Src: src}.Rand()
		return money.Cents(v)
	default: // Uniform
		if d.Hi <= d.Lo {
			return d.Lo
		}
		return money.Cents(src.GenRange(int64(d.Lo), int64(d.Hi)))
	}
}
