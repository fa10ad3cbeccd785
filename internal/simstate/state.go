// Package simstate owns the one SimulationState a tick mutates: every agent,
// every transaction, the central RTGS retry queue (Queue 2), and the
// append-only event log. The orchestrator drives every mutation; the
// subsystems it calls (arrivals, policy splitting, rtgs, lsm, collateral,
// cost) get a reference and mutate the owned records narrowly, but
// SimulationState itself is never copied or sharded.
package simstate

import (
	"sort"

	"rtgscore/internal/clock"
	"rtgscore/internal/domain"
	"rtgscore/pkg/errors"
	"rtgscore/pkg/money"
	"rtgscore/pkg/rng"
)

// SimulationState is the sole source of truth for a running simulation.
type SimulationState struct {
	Agents       map[string]*domain.Agent
	Transactions map[string]*domain.Transaction

	// RtgsQueue is Queue 2: tx-ids awaiting the mechanical liquidity-recycling
	// drain, in FIFO order.
	RtgsQueue []string

	Time *clock.TimeManager
	Rng  *rng.DeterministicRng

	Events []domain.Event
}

// New constructs an empty SimulationState bound to the given clock and RNG.
func New(tm *clock.TimeManager, r *rng.DeterministicRng) *SimulationState {
	return &SimulationState{
		Agents:       make(map[string]*domain.Agent),
		Transactions: make(map[string]*domain.Transaction),
		RtgsQueue:    make([]string, 0),
		Time:         tm,
		Rng:          r,
		Events:       make([]domain.Event, 0),
	}
}

// AddAgent registers an agent at simulation init. Agents are never added or
// removed after construction.
func (s *SimulationState) AddAgent(a *domain.Agent) {
	s.Agents[a.ID] = a
}

// GetAgent looks up an agent by id.
func (s *SimulationState) GetAgent(id string) (*domain.Agent, error) {
	a, ok := s.Agents[id]
	if !ok {
		return nil, errors.ErrAgentNotFound
	}
	return a, nil
}

// AgentIDs returns every agent id in ascending lexicographic order — the
// one deterministic iteration order the whole core relies on.
func (s *SimulationState) AgentIDs() []string {
	ids := make([]string, 0, len(s.Agents))
	for id := range s.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddTransaction registers a new transaction.
func (s *SimulationState) AddTransaction(t *domain.Transaction) {
	s.Transactions[t.ID] = t
}

// GetTransaction looks up a transaction by id.
func (s *SimulationState) GetTransaction(id string) (*domain.Transaction, error) {
	t, ok := s.Transactions[id]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	return t, nil
}

// EnqueueRtgs appends tx_id to Queue 2.
func (s *SimulationState) EnqueueRtgs(txID string) {
	s.RtgsQueue = append(s.RtgsQueue, txID)
}

// RemoveFromRtgsQueue deletes tx_id from Queue 2 by value, preserving order
// of survivors. Reports whether it was present.
func (s *SimulationState) RemoveFromRtgsQueue(txID string) bool {
	for i, id := range s.RtgsQueue {
		if id == txID {
			s.RtgsQueue = append(s.RtgsQueue[:i], s.RtgsQueue[i+1:]...)
			return true
		}
	}
	return false
}

// RtgsQueueContains reports whether tx_id is currently in Queue 2.
func (s *SimulationState) RtgsQueueContains(txID string) bool {
	for _, id := range s.RtgsQueue {
		if id == txID {
			return true
		}
	}
	return false
}

// AppendEvent appends to the log. Events are append-only; nothing in this
// package ever edits or removes a logged event.
func (s *SimulationState) AppendEvent(e domain.Event) {
	s.Events = append(s.Events, e)
}

// AppendEvents appends a batch in order.
func (s *SimulationState) AppendEvents(es []domain.Event) {
	s.Events = append(s.Events, es...)
}

// SumBalances returns the sum of every agent's balance. Settlements must
// preserve this value exactly; it changes only when an external caller
// injects or withdraws funds outside a settlement (which this core does not
// do on its own).
func (s *SimulationState) SumBalances() money.Cents {
	var total money.Cents
	for _, id := range s.AgentIDs() {
		total += s.Agents[id].Balance
	}
	return total
}

// CheckNoNegativeHeadroom verifies -balance <= credit_limit +
// posted_collateral for every agent. A violation is a fatal invariant
// breach per §7/§8 of the settlement contract.
func (s *SimulationState) CheckNoNegativeHeadroom() error {
	for _, id := range s.AgentIDs() {
		if s.Agents[id].Headroom() < 0 {
			return errors.Wrap(errors.ErrBalanceConservationViolation, "agent "+id+" headroom negative")
		}
	}
	return nil
}

// CheckQueueDisjointness verifies no tx-id sits in both a Queue 1 and
// Queue 2 simultaneously.
func (s *SimulationState) CheckQueueDisjointness() error {
	inQueue2 := make(map[string]bool, len(s.RtgsQueue))
	for _, id := range s.RtgsQueue {
		inQueue2[id] = true
	}
	for _, agentID := range s.AgentIDs() {
		for _, txID := range s.Agents[agentID].OutgoingQueue {
			if inQueue2[txID] {
				return errors.Wrap(errors.ErrQueueMembershipViolation, "tx "+txID+" in both queue 1 and queue 2")
			}
		}
	}
	return nil
}
