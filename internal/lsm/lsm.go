// Package lsm implements the liquidity-saving optimizer: bilateral pair
// netting and multilateral cycle detection/settlement over Queue 2, both
// two-phase (feasibility check, then atomic execute) the way
// internal/rtgs settles a single transaction. Unlike the mechanical RTGS
// drain, LSM actively searches for combinations of queued transactions
// that can clear together even though none of them can clear alone —
// this is the gridlock-resolution idiom the teacher's GridlockResolver
// sketches, generalized here into the two documented search shapes
// (pair netting, cycle netting) with bounded, deterministic search.
package lsm

import (
	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/logger"
	"rtgscore/pkg/money"
)

// PriorityMode selects how candidate cycles are ranked for settlement
// when more candidates exist than max_cycles_per_tick allows through.
type PriorityMode string

const (
	ThroughputFirst PriorityMode = "throughput_first"
	LiquidityFirst  PriorityMode = "liquidity_first"
)

// Config configures one LsmEngine instance. MaxCycleLength must be in
// [3, 5]; values outside that range are clamped by New.
type Config struct {
	EnableBilateral  bool
	EnableCycles     bool
	MaxCycleLength   int
	MaxCyclesPerTick int
	PriorityMode     PriorityMode
}

// Engine runs bilateral and cycle passes over Queue 2.
type Engine struct {
	cfg Config
	log logger.Logger
}

// New constructs an Engine, clamping MaxCycleLength into [3, 5] and
// defaulting an unset PriorityMode to ThroughputFirst.
func New(cfg Config, log logger.Logger) *Engine {
	if cfg.MaxCycleLength < 3 {
		cfg.MaxCycleLength = 3
	}
	if cfg.MaxCycleLength > 5 {
		cfg.MaxCycleLength = 5
	}
	if cfg.MaxCyclesPerTick <= 0 {
		cfg.MaxCyclesPerTick = 1
	}
	if cfg.PriorityMode == "" {
		cfg.PriorityMode = ThroughputFirst
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

// settleBookkeeping marks tx settled/partially-settled for `amount` and
// drops it from Queue 2 once terminal, without moving any money. LSM
// netting computes one consolidated balance delta per participant across
// an entire pair or cycle (see Agent.ApplyNetDelta) rather than debiting
// and crediting per leg — a leg-by-leg transfer would reject on agents
// that only become liquid once the rest of the batch lands, even though
// the batch as a whole leaves every participant's liquidity unchanged or
// improved. It still emits one Settlement event per leg, the same record
// a direct RTGS settle would produce, alongside the pair/cycle's own
// summary event.
func settleBookkeeping(state *simstate.SimulationState, tx *domain.Transaction, amount money.Cents, tick int) {
	if err := tx.Settle(amount, tick); err != nil {
		panic("lsm: settle failed after feasibility check: " + err.Error())
	}
	if tx.IsTerminal() {
		state.RemoveFromRtgsQueue(tx.ID)
	}

	kind := domain.EventSettlementFull
	if tx.Status == domain.StatusPartiallySettled {
		kind = domain.EventSettlementPartial
	}
	state.AppendEvent(domain.NewEvent(tick, kind, map[string]interface{}{
		"tx_id":     tx.ID,
		"sender":    tx.SenderID,
		"receiver":  tx.ReceiverID,
		"amount":    amount,
		"remaining": tx.RemainingAmount,
	}))
}
