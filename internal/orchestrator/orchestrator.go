// Package orchestrator drives the nine-step tick loop that is the
// settlement core's single entry point: arrivals, strategic collateral,
// Queue 1 policy evaluation, RTGS submission, Queue 2 drain, the LSM pass,
// end-of-tick collateral, cost accrual, and time advance, in that fixed
// order. The ordering is contractual — every external observation (event
// log, TickResult sequence, final balances) depends on it.
package orchestrator

import (
	"fmt"

	"rtgscore/internal/arrivals"
	"rtgscore/internal/clock"
	"rtgscore/internal/collateral"
	"rtgscore/internal/cost"
	"rtgscore/internal/domain"
	"rtgscore/internal/lsm"
	"rtgscore/internal/policy"
	"rtgscore/internal/rtgs"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/errors"
	"rtgscore/pkg/idgen"
	"rtgscore/pkg/logger"
	"rtgscore/pkg/money"
	"rtgscore/pkg/rng"
)

// TickResult summarizes one tick's activity, the return value of Tick and
// the unit Run accumulates into a sequence.
type TickResult struct {
	Tick           int
	NumArrivals    int
	NumSettlements int
	NumLsmReleases int
	TotalCost      money.Cents
	DayBoundary    bool
}

// Orchestrator owns the one SimulationState a simulation run mutates and
// every subsystem that acts on it.
type Orchestrator struct {
	state *simstate.SimulationState

	rtgsEngine  *rtgs.Engine
	lsmEngine   *lsm.Engine
	lsmEnabled  bool
	lsmMaxIters int
	collateral  *collateral.Manager
	accountant  *cost.Accountant
	generator   *arrivals.Generator

	policies map[string]policy.Policy
	rates    CostRates

	externalSeq int
	log         logger.Logger
}

// New constructs an Orchestrator from a Config: seeds the RNG and clock,
// registers every agent, and wires each agent's configured policy and
// arrival process.
func New(cfg Config, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}

	tm := clock.NewTimeManager(cfg.TicksPerDay)
	r := rng.New(cfg.RngSeed)
	state := simstate.New(tm, r)

	policies := make(map[string]policy.Policy, len(cfg.Agents))
	arrivalConfigs := make(map[string]arrivals.Config)

	for _, ac := range cfg.Agents {
		agent := domain.NewAgent(ac.ID, ac.OpeningBalance, ac.CreditLimit, ac.MaxCollateralCapacity, ac.InitialPostedCollateral)
		agent.LiquidityBuffer = ac.LiquidityBuffer
		state.AddAgent(agent)
		policies[ac.ID] = policy.New(ac.Policy)
		if ac.Arrival != nil {
			arrivalConfigs[ac.ID] = *ac.Arrival
		}
	}

	return &Orchestrator{
		state:       state,
		rtgsEngine:  rtgs.New(log),
		lsmEngine:   lsm.New(cfg.Lsm, log),
		lsmEnabled:  cfg.LsmEnabled,
		lsmMaxIters: cfg.LsmMaxIterations,
		collateral:  collateral.New(cfg.Collateral),
		accountant:  cost.New(cost.Config{
			OverdraftBpsPerTick:      cfg.CostRates.OverdraftBpsPerTick,
			DelayBpsPerTick:          cfg.CostRates.DelayBpsPerTick,
			CollateralCostBpsPerTick: cfg.CostRates.CollateralCostBpsPerTick,
			EodPenaltyPerTransaction: cfg.CostRates.EodPenaltyPerTransaction,
		}),
		generator: arrivals.New(arrivalConfigs),
		policies:  policies,
		rates:     cfg.CostRates,
		log:       log,
	}
}

// pendingSubmission is a Queue-1-released transaction awaiting step 4's
// RTGS submission, in the deterministic (sender-id, insertion) order the
// contract requires.
type pendingSubmission struct {
	tx *domain.Transaction
}

// Tick runs the full nine-step loop once and returns its summary. A
// non-nil error is always fatal — a balance-conservation, headroom, or
// queue-disjointness breach — and means the caller must stop calling
// Tick/Run on this Orchestrator; the returned TickResult reflects the
// tick's work up to the point the breach was detected.
func (o *Orchestrator) Tick() (TickResult, error) {
	tick := o.state.Time.CurrentTick()
	var result TickResult
	result.Tick = tick
	balanceBefore := o.state.SumBalances()

	// 1. Arrivals.
	for _, agentID := range o.state.AgentIDs() {
		created := o.generator.GenerateForAgent(o.state, agentID, tick)
		result.NumArrivals += len(created)
	}

	// 2. Strategic collateral.
	for _, agentID := range o.state.AgentIDs() {
		agent := o.state.Agents[agentID]
		decision := o.policies[agentID].EvaluateStrategicCollateral(agent, o.state, tick)
		if err := collateral.ApplyStrategic(o.state, agent, decision, tick); err != nil {
			o.log.Warn("strategic collateral decision skipped", map[string]interface{}{"agent_id": agentID, "error": err.Error()})
		}
	}

	// 3. Queue 1 policy evaluation.
	var pending []pendingSubmission
	var splitFriction money.Cents
	for _, agentID := range o.state.AgentIDs() {
		agent := o.state.Agents[agentID]
		decisions := o.policies[agentID].EvaluateQueue(agent, o.state, tick)
		for _, d := range decisions {
			switch d.Kind {
			case policy.SubmitFull:
				tx, err := o.state.GetTransaction(d.TxID)
				if err != nil {
					continue
				}
				agent.RemoveFromQueue(d.TxID)
				pending = append(pending, pendingSubmission{tx: tx})
				o.state.AppendEvent(domain.NewEvent(tick, domain.EventPolicySubmit, map[string]interface{}{
					"tx_id":  tx.ID,
					"sender": agentID,
				}))

			case policy.SubmitPartial:
				tx, err := o.state.GetTransaction(d.TxID)
				if err != nil {
					continue
				}
				res, err := policy.ApplySplit(o.state, o.rtgsEngine, tx, d.NumSplits, o.rates.SplitFrictionCostPerUnit, tick)
				if err != nil {
					o.log.Warn("split decision skipped", map[string]interface{}{"tx_id": d.TxID, "error": err.Error()})
					continue
				}
				splitFriction += res.FrictionCost
				childIDs := make([]string, 0, len(res.Children))
				for _, c := range res.Children {
					childIDs = append(childIDs, c.ID)
				}
				o.state.AppendEvent(domain.NewEvent(tick, domain.EventPolicySplit, map[string]interface{}{
					"parent_id": tx.ID,
					"children":  childIDs,
					"friction":  res.FrictionCost,
				}))

			case policy.Hold:
				o.state.AppendEvent(domain.NewEvent(tick, domain.EventPolicyHold, map[string]interface{}{
					"tx_id":  d.TxID,
					"reason": d.Reason,
				}))

			case policy.Drop:
				tx, err := o.state.GetTransaction(d.TxID)
				if err != nil {
					continue
				}
				agent.RemoveFromQueue(d.TxID)
				tx.Drop(tick, "policy_drop")
				o.state.AppendEvent(domain.NewEvent(tick, domain.EventPolicyDrop, map[string]interface{}{
					"tx_id":  tx.ID,
					"reason": "policy_drop",
				}))
			}
		}
	}

	eventsBeforeSettlement := len(o.state.Events)

	// 4. Submit to RTGS, in sender-id then insertion order (the order
	// `pending` was built in above). Submit already absorbs
	// InsufficientLiquidity by queueing onto Queue 2; any error surfacing
	// here (AgentNotFound, AlreadySettled) indicates a bug rather than a
	// recoverable liquidity shortfall.
	for _, p := range pending {
		if _, err := o.rtgsEngine.Submit(o.state, p.tx, tick); err != nil {
			o.log.Error("rtgs submit failed", map[string]interface{}{"tx_id": p.tx.ID, "error": err.Error()})
		}
	}

	// 5. Drain Queue 2.
	_, err := o.rtgsEngine.ProcessQueue(o.state, tick)
	if err != nil {
		o.log.Error("queue drain failed", map[string]interface{}{"error": err.Error()})
	}

	// 6. LSM pass.
	var lsmResult lsm.PassResult
	if o.lsmEnabled {
		lsmResult, err = o.lsmEngine.RunLsmPass(o.state, o.rtgsEngine, tick, o.lsmMaxIters)
		if err != nil {
			o.log.Error("lsm pass failed", map[string]interface{}{"error": err.Error()})
		}
	}

	// Deadline penalties: scan every drop this tick's settlement phase
	// produced and charge the configured penalty once per drop.
	var deadlinePenalties money.Cents
	for _, e := range o.state.Events[eventsBeforeSettlement:] {
		if e.Kind != domain.EventPolicyDrop {
			continue
		}
		if e.Fields["reason"] != "deadline_exceeded" {
			continue
		}
		txID, _ := e.Fields["tx_id"].(string)
		tx, err := o.state.GetTransaction(txID)
		if err != nil {
			continue
		}
		sender, err := o.state.GetAgent(tx.SenderID)
		if err != nil {
			continue
		}
		deadlinePenalties += o.accountant.DeadlinePenalty(sender, o.rates.DeadlinePenalty)
	}

	// 7. End-of-tick collateral.
	for _, agentID := range o.state.AgentIDs() {
		o.collateral.Run(o.state, o.state.Agents[agentID], tick)
	}

	// 8. Cost accrual.
	var accrued money.Cents
	for _, agentID := range o.state.AgentIDs() {
		accrued += o.accountant.Accrue(o.state, o.state.Agents[agentID], tick)
	}

	countSettlements := 0
	for _, e := range o.state.Events[eventsBeforeSettlement:] {
		if e.Kind == domain.EventSettlementFull || e.Kind == domain.EventSettlementPartial {
			countSettlements++
		}
	}
	result.NumSettlements = countSettlements
	result.NumLsmReleases = lsmResult.PairsSettled + lsmResult.CyclesSettled
	result.TotalCost = accrued + deadlinePenalties + splitFriction

	// 9. Advance time.
	dayBoundary := o.state.Time.Advance()
	result.DayBoundary = dayBoundary
	if dayBoundary {
		penalty := o.accountant.EndOfDay(o.state, tick)
		result.TotalCost += penalty
	}

	// A breach of the universal invariants here is never recoverable: it
	// means settlement, netting, or collateral logic corrupted shared
	// state this tick, so it halts the simulation rather than being
	// logged and skipped like a policy-level error.
	if balanceAfter := o.state.SumBalances(); balanceAfter != balanceBefore {
		err := errors.Wrap(errors.ErrBalanceConservationViolation, fmt.Sprintf("tick %d: balance sum %d before, %d after", tick, balanceBefore, balanceAfter))
		o.log.Error("fatal invariant violation", map[string]interface{}{
			"error":          err.Error(),
			"tick":           tick,
			"balance_before": balanceBefore.Decimal(),
			"balance_after":  balanceAfter.Decimal(),
		})
		return result, err
	}
	if err := o.state.CheckNoNegativeHeadroom(); err != nil {
		o.log.Error("fatal invariant violation", map[string]interface{}{"error": err.Error(), "tick": tick})
		return result, err
	}
	if err := o.state.CheckQueueDisjointness(); err != nil {
		o.log.Error("fatal invariant violation", map[string]interface{}{"error": err.Error(), "tick": tick})
		return result, err
	}

	return result, nil
}

// Run executes up to n ticks in sequence, returning one TickResult per
// completed tick. It halts immediately on a fatal invariant violation,
// returning the results gathered so far alongside the error.
func (o *Orchestrator) Run(n int) ([]TickResult, error) {
	results := make([]TickResult, 0, n)
	for i := 0; i < n; i++ {
		result, err := o.Tick()
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// CurrentTick returns the tick about to run (or just completed, between
// calls to Tick).
func (o *Orchestrator) CurrentTick() int { return o.state.Time.CurrentTick() }

// CurrentDay returns the current day counter.
func (o *Orchestrator) CurrentDay() int { return o.state.Time.CurrentDay() }

// GetAgentBalance returns an agent's current balance.
func (o *Orchestrator) GetAgentBalance(id string) (money.Cents, error) {
	agent, err := o.state.GetAgent(id)
	if err != nil {
		return 0, err
	}
	return agent.Balance, nil
}

// GetQueue1Size returns the length of one agent's Queue 1.
func (o *Orchestrator) GetQueue1Size(id string) (int, error) {
	agent, err := o.state.GetAgent(id)
	if err != nil {
		return 0, err
	}
	return len(agent.OutgoingQueue), nil
}

// GetQueue2Size returns the length of the shared Queue 2.
func (o *Orchestrator) GetQueue2Size() int { return len(o.state.RtgsQueue) }

// GetAgentIDs returns every registered agent id in sorted order.
func (o *Orchestrator) GetAgentIDs() []string { return o.state.AgentIDs() }

// SubmitTransaction injects a transaction directly, behaving as if the
// arrival generator had produced it: it lands in the sender's Queue 1 for
// the next tick's policy evaluation to pick up.
func (o *Orchestrator) SubmitTransaction(sender, receiver string, amount money.Cents, deadlineTick, priority int, divisible bool) (string, error) {
	senderAgent, err := o.state.GetAgent(sender)
	if err != nil {
		return "", err
	}
	if _, err := o.state.GetAgent(receiver); err != nil {
		return "", err
	}

	txID := idgen.ExternalID(o.externalSeq)
	o.externalSeq++

	tx := domain.NewTransaction(txID, sender, receiver, amount, o.state.Time.CurrentTick(), deadlineTick, priority, divisible)
	o.state.AddTransaction(tx)
	senderAgent.QueueOutgoing(tx.ID)
	return tx.ID, nil
}

// GetAllEvents returns the full append-only event log.
func (o *Orchestrator) GetAllEvents() []domain.Event { return o.state.Events }
