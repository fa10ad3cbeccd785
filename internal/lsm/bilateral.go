package lsm

import (
	"sort"

	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// pairFlow is the aggregated remaining amount and ordered tx-id list for
// one ordered (from, to) pair of agents, built from Queue 2.
type pairFlow struct {
	from, to string
	sum      money.Cents
	txIDs    []string // Queue 2 enqueue order preserved
}

// buildPairIndex scans Queue 2 once and groups transactions by (sender,
// receiver), preserving each pair's enqueue order. Uses remaining_amount
// per the documented convention for partially-settled transactions.
func buildPairIndex(state *simstate.SimulationState) map[[2]string]*pairFlow {
	idx := make(map[[2]string]*pairFlow)
	for _, txID := range state.RtgsQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil || !tx.IsActive() {
			continue
		}
		key := [2]string{tx.SenderID, tx.ReceiverID}
		pf, ok := idx[key]
		if !ok {
			pf = &pairFlow{from: tx.SenderID, to: tx.ReceiverID}
			idx[key] = pf
		}
		pf.sum += tx.RemainingAmount
		pf.txIDs = append(pf.txIDs, txID)
	}
	return idx
}

// readyPair is one candidate (a, b) with both directions non-empty.
type readyPair struct {
	a, b       string
	aToB, bToA *pairFlow
}

func minCents(x, y money.Cents) money.Cents {
	if x < y {
		return x
	}
	return y
}

// BilateralPass nets every ready (a, b) pair in Queue 2: both a→b and
// b→a carry positive remaining value. The net payer's transactions
// settle up to the net amount consumed; the net receiver's transactions
// settle in full, covered by the counterflow. Returns the number of
// pairs settled and the total value moved.
func (e *Engine) BilateralPass(state *simstate.SimulationState, tick int) (pairsSettled int, valueSettled money.Cents) {
	if !e.cfg.EnableBilateral {
		return 0, 0
	}

	idx := buildPairIndex(state)
	seen := make(map[[2]string]bool)
	var candidates []readyPair

	for key, pf := range idx {
		a, b := key[0], key[1]
		if a >= b {
			continue // canonical pair visited once, as (min, max)
		}
		revKey := [2]string{b, a}
		revPf, ok := idx[revKey]
		if !ok || pf.sum <= 0 || revPf.sum <= 0 {
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, readyPair{a: a, b: b, aToB: pf, bToA: revPf})
	}

	sort.Slice(candidates, func(i, j int) bool {
		mi := minCents(candidates[i].aToB.sum, candidates[i].bToA.sum)
		mj := minCents(candidates[j].aToB.sum, candidates[j].bToA.sum)
		if mi != mj {
			return mi > mj // descending: largest liquidity release first
		}
		if candidates[i].a != candidates[j].a {
			return candidates[i].a < candidates[j].a
		}
		return candidates[i].b < candidates[j].b
	})

	for _, c := range candidates {
		settled, value := e.settlePair(state, c, tick)
		if settled {
			pairsSettled++
			valueSettled += value
		}
	}
	return pairsSettled, valueSettled
}

// settlePair nets one ready pair. The smaller side always settles in
// full (that is what "ready" guarantees: the counterflow covers it); the
// larger side settles a covered prefix, capped by the smaller side's sum
// plus whatever net amount the larger side's sender can actually fund.
// Money moves once, as a single net delta per participant, computed from
// the amounts actually settled on each side — never as a per-transaction
// debit/credit, which would reject on the smaller side's sender before
// the counterflow that covers it has landed.
func (e *Engine) settlePair(state *simstate.SimulationState, c readyPair, tick int) (bool, money.Cents) {
	aToB, bToA := c.aToB, c.bToA

	var netPayer string
	var larger, smaller *pairFlow
	if aToB.sum >= bToA.sum {
		netPayer = c.a
		larger, smaller = aToB, bToA
	} else {
		netPayer = c.b
		larger, smaller = bToA, aToB
	}
	netAmount := larger.sum - smaller.sum
	if netAmount < 0 {
		netAmount = 0
	}

	payer, err := state.GetAgent(netPayer)
	if err != nil {
		return false, 0
	}
	if netAmount > 0 && !payer.CanPay(netAmount) {
		return false, 0 // Phase 1 fails: skip this pair, continue the pass
	}
	smallSender, err := state.GetAgent(smaller.from)
	if err != nil {
		return false, 0
	}

	// Phase 2: book the smaller side in full, then a covered prefix of
	// the larger side. Both are bookkeeping only — no balance movement
	// happens per transaction.
	var settledSmaller money.Cents
	for _, txID := range smaller.txIDs {
		tx, err := state.GetTransaction(txID)
		if err != nil || !tx.IsActive() {
			continue
		}
		amt := tx.RemainingAmount
		settleBookkeeping(state, tx, amt, tick)
		settledSmaller += amt
	}

	covered := settledSmaller + netAmount
	var settledLarger money.Cents
	for _, txID := range larger.txIDs {
		tx, err := state.GetTransaction(txID)
		if err != nil || !tx.IsActive() {
			continue
		}
		remaining := covered - settledLarger
		if remaining <= 0 {
			break
		}
		amt := tx.RemainingAmount
		if amt > remaining {
			if !tx.Divisible {
				// Indivisible tx larger than the remaining covered amount:
				// it cannot be partially settled, so it stays queued as
				// residual — the documented open-question resolution.
				continue
			}
			amt = remaining
		}
		settleBookkeeping(state, tx, amt, tick)
		settledLarger += amt
	}

	// One consolidated transfer per participant: the smaller side's
	// sender received settledLarger and paid settledSmaller; the larger
	// side's sender is the mirror image. Exact by construction — the sum
	// of both deltas is always zero.
	smallSender.ApplyNetDelta(settledLarger - settledSmaller)
	payer.ApplyNetDelta(settledSmaller - settledLarger)

	state.AppendEvent(domain.NewEvent(tick, domain.EventLsmBilateralOffset, map[string]interface{}{
		"agent_a":    c.a,
		"agent_b":    c.b,
		"net_payer":  netPayer,
		"net_amount": netAmount,
		"value":      settledSmaller + settledLarger,
	}))
	return true, settledSmaller + settledLarger
}
