// Package policy implements the per-agent cash manager capability set: a
// policy decides, every tick, what to do with each transaction sitting
// in an agent's Queue 1 and whether to post or withdraw strategic
// collateral. Every concrete policy below is a deterministic function of
// (agent, state, tick) — no wall-clock, no unseeded randomness — so a
// simulation replays identically given the same seed and config.
package policy

import (
	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// ReleaseKind is the decision a policy makes about one Queue 1 entry.
type ReleaseKind int

const (
	SubmitFull ReleaseKind = iota
	SubmitPartial
	Hold
	Drop
)

// ReleaseDecision is one policy verdict for one transaction id.
type ReleaseDecision struct {
	Kind      ReleaseKind
	TxID      string
	NumSplits int // valid iff Kind == SubmitPartial, must be >= 2
	Reason    string
}

// CollateralKind is the decision a policy makes about posted collateral.
type CollateralKind int

const (
	CollateralHold CollateralKind = iota
	CollateralPost
	CollateralWithdraw
)

// CollateralDecision is one policy verdict for strategic or end-of-tick
// collateral management.
type CollateralDecision struct {
	Kind   CollateralKind
	Amount money.Cents
	Reason string
}

// HoldCollateral is the zero-effort default every baseline policy below
// returns for both collateral hooks unless it overrides one explicitly.
var HoldCollateral = CollateralDecision{Kind: CollateralHold}

// Policy is the capability set every cash manager must satisfy. Hosts
// select policy behavior by which interface methods a type embeds a
// meaningful implementation of — BasePolicy supplies the Hold default
// for both collateral hooks so a policy that only cares about queue
// release can embed it and implement EvaluateQueue alone.
type Policy interface {
	EvaluateQueue(agent *domain.Agent, state *simstate.SimulationState, tick int) []ReleaseDecision
	EvaluateStrategicCollateral(agent *domain.Agent, state *simstate.SimulationState, tick int) CollateralDecision
	EvaluateEndOfTickCollateral(agent *domain.Agent, state *simstate.SimulationState, tick int) CollateralDecision
}

// BasePolicy supplies the Hold default for both collateral hooks.
// Concrete policies embed it and only override what they need.
type BasePolicy struct{}

func (BasePolicy) EvaluateStrategicCollateral(*domain.Agent, *simstate.SimulationState, int) CollateralDecision {
	return HoldCollateral
}

func (BasePolicy) EvaluateEndOfTickCollateral(*domain.Agent, *simstate.SimulationState, int) CollateralDecision {
	return HoldCollateral
}

func ticksToDeadline(tx *domain.Transaction, tick int) int {
	return tx.DeadlineTick - tick
}
