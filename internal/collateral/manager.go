// Package collateral implements the end-of-tick reactive layer that runs
// independently of whatever strategic collateral calls a Policy made
// earlier in the tick: a cleanup rule that unwinds posted collateral once
// an agent no longer needs it, and an emergency rule that posts collateral
// when Queue 2 is about to miss a deadline for want of liquidity. Grounded
// in the reserve/release pattern of a liquidity pool — post is a reserve
// against the agent's own capacity ceiling, withdrawal is its release.
package collateral

import (
	"rtgscore/internal/domain"
	"rtgscore/internal/policy"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// Config tunes both reactive rules.
type Config struct {
	SafetyMargin       float64 // cleanup requires balance >= SafetyMargin * LiquidityBuffer
	EmergencyThreshold int     // ticks-to-deadline at or below which a Queue 2 entry is "near"
}

// Manager runs the end-of-tick collateral pass over every agent.
type Manager struct {
	cfg Config
}

// New builds a Manager.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Run evaluates both rules for a single agent and applies whichever one
// fires, appending the corresponding event. At most one of the two rules
// can apply in a given tick: cleanup requires zero Queue 2 exposure, and
// the emergency rule only fires when Queue 2 exposure exists.
func (m *Manager) Run(state *simstate.SimulationState, agent *domain.Agent, tick int) {
	if m.tryCleanup(state, agent, tick) {
		return
	}
	m.tryEmergencyPost(state, agent, tick)
}

func (m *Manager) tryCleanup(state *simstate.SimulationState, agent *domain.Agent, tick int) bool {
	if agent.PostedCollateral <= 0 {
		return false
	}
	if m.hasQueue2Exposure(state, agent) {
		return false
	}

	queue1Total := m.queue1RemainingTotal(state, agent)
	if queue1Total > agent.Balance+agent.CreditLimit {
		return false
	}

	threshold := money.Cents(m.cfg.SafetyMargin * float64(agent.LiquidityBuffer))
	if agent.Balance < threshold {
		return false
	}

	amount := agent.PostedCollateral
	if err := agent.WithdrawCollateral(amount); err != nil {
		return false
	}

	state.AppendEvent(domain.NewEvent(tick, domain.EventCollateralWithdraw, map[string]interface{}{
		"agent_id": agent.ID,
		"amount":   amount,
		"reason":   "cleanup",
	}))
	return true
}

func (m *Manager) tryEmergencyPost(state *simstate.SimulationState, agent *domain.Agent, tick int) bool {
	required := m.nearDeadlineQueue2Total(state, agent, tick)
	if required <= 0 {
		return false
	}
	available := agent.AvailableLiquidity()
	if required <= available {
		return false
	}
	capacity := agent.RemainingCollateralCapacity()
	if capacity <= 0 {
		return false
	}

	gap := required - available
	amount := money.Min(gap, capacity)
	if amount <= 0 {
		return false
	}

	if err := agent.PostCollateral(amount); err != nil {
		return false
	}

	state.AppendEvent(domain.NewEvent(tick, domain.EventCollateralPost, map[string]interface{}{
		"agent_id": agent.ID,
		"amount":   amount,
		"reason":   "emergency",
	}))
	return true
}

func (m *Manager) hasQueue2Exposure(state *simstate.SimulationState, agent *domain.Agent) bool {
	for _, txID := range state.RtgsQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil {
			continue
		}
		if tx.SenderID == agent.ID {
			return true
		}
	}
	return false
}

func (m *Manager) queue1RemainingTotal(state *simstate.SimulationState, agent *domain.Agent) money.Cents {
	var total money.Cents
	for _, txID := range agent.OutgoingQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil {
			continue
		}
		total += tx.RemainingAmount
	}
	return total
}

func (m *Manager) nearDeadlineQueue2Total(state *simstate.SimulationState, agent *domain.Agent, tick int) money.Cents {
	var total money.Cents
	for _, txID := range state.RtgsQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil || tx.SenderID != agent.ID {
			continue
		}
		if tx.DeadlineTick-tick <= m.cfg.EmergencyThreshold {
			total += tx.RemainingAmount
		}
	}
	return total
}

// ApplyStrategic executes a CollateralDecision a Policy returned during the
// strategic phase earlier in the tick, emitting the matching event. Hold is
// a no-op.
func ApplyStrategic(state *simstate.SimulationState, agent *domain.Agent, decision policy.CollateralDecision, tick int) error {
	switch decision.Kind {
	case policy.CollateralPost:
		if err := agent.PostCollateral(decision.Amount); err != nil {
			return err
		}
		state.AppendEvent(domain.NewEvent(tick, domain.EventCollateralPost, map[string]interface{}{
			"agent_id": agent.ID,
			"amount":   decision.Amount,
			"reason":   decision.Reason,
		}))
	case policy.CollateralWithdraw:
		if err := agent.WithdrawCollateral(decision.Amount); err != nil {
			return err
		}
		state.AppendEvent(domain.NewEvent(tick, domain.EventCollateralWithdraw, map[string]interface{}{
			"agent_id": agent.ID,
			"amount":   decision.Amount,
			"reason":   decision.Reason,
		}))
	}
	return nil
}
