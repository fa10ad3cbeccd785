// Package rtgscore is the public entry point to the settlement core: a
// thin facade over internal/orchestrator, the way the teacher's pkg/
// layer exposes a stable surface over logic that actually lives in
// internal/. Everything here is a direct alias or passthrough — the
// real implementation stays in internal/orchestrator, internal/rtgs,
// internal/lsm, internal/policy, internal/collateral, and internal/cost,
// none of which an importer outside this module can reach directly.
package rtgscore

import (
	"rtgscore/internal/arrivals"
	"rtgscore/internal/collateral"
	"rtgscore/internal/lsm"
	"rtgscore/internal/orchestrator"
	"rtgscore/internal/policy"
	"rtgscore/pkg/logger"
	"rtgscore/pkg/money"
)

type (
	// Config is the full construction contract for a simulation run.
	Config = orchestrator.Config
	// AgentConfig seeds one agent plus its cash-manager policy and
	// optional arrival process.
	AgentConfig = orchestrator.AgentConfig
	// CostRates is the per-tick rate schedule and fixed charges the
	// cost accountant draws from.
	CostRates = orchestrator.CostRates
	// TickResult summarizes one tick's activity.
	TickResult = orchestrator.TickResult
	// Orchestrator drives the nine-step tick loop.
	Orchestrator = orchestrator.Orchestrator

	// PolicyConfig selects and parameterizes an agent's cash-manager
	// policy (FIFO, deadline-aware, liquidity-aware, or splitting).
	PolicyConfig = policy.Config
	// PolicyKind names one of the four baseline policy shapes.
	PolicyKind = policy.Kind

	// ArrivalConfig parameterizes one agent's stochastic arrival
	// process: rate, amount distribution, counterparty weights, and
	// deadline window.
	ArrivalConfig = arrivals.Config
	// AmountDistribution shapes sampled transaction amounts.
	AmountDistribution = arrivals.AmountDistribution

	// CollateralConfig tunes the reactive collateral manager's
	// withdrawal-cleanup and emergency-posting thresholds.
	CollateralConfig = collateral.Config

	// LsmConfig tunes the liquidity-saving optimizer's bilateral and
	// cycle passes.
	LsmConfig = lsm.Config

	// Cents is the module's fixed-point monetary unit; all amounts
	// that cross this facade are int64 cents, never floats.
	Cents = money.Cents

	// Logger is the structured logging interface every subsystem
	// writes through.
	Logger = logger.Logger
)

const (
	PolicyFIFO           = policy.KindFIFO
	PolicyDeadlineAware  = policy.KindDeadlineAware
	PolicyLiquidityAware = policy.KindLiquidityAware
	PolicySplitting      = policy.KindSplitting
)

// New constructs an Orchestrator from cfg. Pass a nil Logger to run
// silently (logger.NewNop is used internally).
func New(cfg Config, log Logger) *Orchestrator {
	return orchestrator.New(cfg, log)
}

// Validate checks cfg's construction-time invariants (positive clock
// shape, non-empty and uniquely-keyed agent list) before it reaches New.
func Validate(cfg Config) error {
	return orchestrator.Validate(cfg)
}

// NewLogger builds the module's structured JSON logger for the named
// service.
func NewLogger(serviceName string) Logger {
	return logger.New(serviceName)
}
