package lsm

import (
	"sort"

	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/money"
)

// edgeFlow is one directed aggregated edge of the Queue 2 graph.
type edgeFlow struct {
	to    string
	sum   money.Cents
	txIDs []string
}

// buildGraph aggregates Queue 2 into adjacency lists keyed by sender,
// with neighbors later iterated in sorted id order per the determinism
// discipline.
func buildGraph(state *simstate.SimulationState) map[string]map[string]*edgeFlow {
	g := make(map[string]map[string]*edgeFlow)
	for _, txID := range state.RtgsQueue {
		tx, err := state.GetTransaction(txID)
		if err != nil || !tx.IsActive() {
			continue
		}
		if tx.RemainingAmount <= 0 {
			continue
		}
		nbrs, ok := g[tx.SenderID]
		if !ok {
			nbrs = make(map[string]*edgeFlow)
			g[tx.SenderID] = nbrs
		}
		e, ok := nbrs[tx.ReceiverID]
		if !ok {
			e = &edgeFlow{to: tx.ReceiverID}
			nbrs[tx.ReceiverID] = e
		}
		e.sum += tx.RemainingAmount
		e.txIDs = append(e.txIDs, txID)
	}
	return g
}

func sortedNeighbors(nbrs map[string]*edgeFlow) []string {
	ns := make([]string, 0, len(nbrs))
	for n := range nbrs {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

// tarjanSCC computes strongly connected components over the queue graph,
// restricted to nodes that appear as either a sender or a receiver of a
// queued edge, visited in ascending id order for determinism.
func tarjanSCC(g map[string]map[string]*edgeFlow) [][]string {
	allNodes := make(map[string]bool)
	for n, nbrs := range g {
		allNodes[n] = true
		for to := range nbrs {
			allNodes[to] = true
		}
	}
	ids := make([]string, 0, len(allNodes))
	for n := range allNodes {
		ids = append(ids, n)
	}
	sort.Strings(ids)

	index := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	counter := 0
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range sortedNeighbors(g[v]) {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var comp []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			sccs = append(sccs, comp)
		}
	}

	for _, v := range ids {
		if _, seen := index[v]; !seen {
			strongconnect(v)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// cycleCandidate is one simple cycle found within an SCC, in visiting
// order a1 -> a2 -> ... -> ak -> a1.
type cycleCandidate struct {
	nodes         []string
	maxNetOutflow money.Cents
	totalValue    money.Cents
}

// enumerateCycles finds every simple cycle of length in
// [3, maxLen] within the SCC, neighbors iterated in sorted order, using
// a bounded DFS that only continues through nodes in the SCC's member
// set and never revisits a node already on the current path.
func enumerateCycles(g map[string]map[string]*edgeFlow, scc []string, maxLen int) []cycleCandidate {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	var candidates []cycleCandidate
	var path []string
	onPath := make(map[string]bool)

	var dfs func(start, current string)
	dfs = func(start, current string) {
		if len(path) > maxLen {
			return
		}
		for _, next := range sortedNeighbors(g[current]) {
			if !member[next] {
				continue
			}
			if next == start && len(path) >= 3 {
				cycle := make([]string, len(path))
				copy(cycle, path)
				candidates = append(candidates, buildCandidate(g, cycle))
				continue
			}
			if onPath[next] || next < start {
				// next < start: every cycle is discovered once, starting
				// from its lexicographically smallest member.
				continue
			}
			if len(path) >= maxLen {
				continue
			}
			path = append(path, next)
			onPath[next] = true
			dfs(start, next)
			onPath[next] = false
			path = path[:len(path)-1]
		}
	}

	for _, start := range scc {
		path = []string{start}
		onPath[start] = true
		dfs(start, start)
		onPath[start] = false
	}

	return candidates
}

func buildCandidate(g map[string]map[string]*edgeFlow, nodes []string) cycleCandidate {
	c := cycleCandidate{nodes: nodes}
	for i, from := range nodes {
		to := nodes[(i+1)%len(nodes)]
		e := g[from][to]
		c.totalValue += e.sum
		if e.sum > c.maxNetOutflow {
			c.maxNetOutflow = e.sum
		}
	}
	return c
}

// CyclePass finds and settles up to max_cycles_per_tick simple cycles in
// the Queue 2 graph, ranked by priority_mode. Returns the number of
// cycles settled and the total value moved.
func (e *Engine) CyclePass(state *simstate.SimulationState, tick int) (cyclesSettled int, valueSettled money.Cents) {
	if !e.cfg.EnableCycles {
		return 0, 0
	}

	g := buildGraph(state)
	var candidates []cycleCandidate
	for _, scc := range tarjanSCC(g) {
		if len(scc) < 3 {
			continue
		}
		candidates = append(candidates, enumerateCycles(g, scc, e.cfg.MaxCycleLength)...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch e.cfg.PriorityMode {
		case LiquidityFirst:
			if a.maxNetOutflow != b.maxNetOutflow {
				return a.maxNetOutflow < b.maxNetOutflow
			}
			if a.totalValue != b.totalValue {
				return a.totalValue > b.totalValue
			}
		default: // ThroughputFirst
			if a.totalValue != b.totalValue {
				return a.totalValue > b.totalValue
			}
			if a.maxNetOutflow != b.maxNetOutflow {
				return a.maxNetOutflow < b.maxNetOutflow
			}
		}
		return joinNodes(a.nodes) < joinNodes(b.nodes)
	})

	for _, c := range candidates {
		if cyclesSettled >= e.cfg.MaxCyclesPerTick {
			break
		}
		settled, value := e.settleCycle(state, g, c, tick)
		if settled {
			cyclesSettled++
			valueSettled += value
		}
	}
	return cyclesSettled, valueSettled
}

func joinNodes(nodes []string) string {
	s := ""
	for i, n := range nodes {
		if i > 0 {
			s += ","
		}
		s += n
	}
	return s
}

// plannedLeg is one edge's dry-run outcome: the tx-ids it will settle and
// for how much, capped at target and skipping any indivisible tx that
// would overshoot it — computed without touching state so feasibility
// can be checked before anything moves.
type plannedLeg struct {
	txIDs   []string
	amounts []money.Cents
	total   money.Cents
}

func planLeg(state *simstate.SimulationState, edge *edgeFlow, target money.Cents) plannedLeg {
	var plan plannedLeg
	for _, txID := range edge.txIDs {
		if plan.total >= target {
			break
		}
		tx, err := state.GetTransaction(txID)
		if err != nil || !tx.IsActive() {
			continue
		}
		remaining := target - plan.total
		amt := tx.RemainingAmount
		if amt > remaining {
			if !tx.Divisible {
				continue
			}
			amt = remaining
		}
		plan.txIDs = append(plan.txIDs, txID)
		plan.amounts = append(plan.amounts, amt)
		plan.total += amt
	}
	return plan
}

// settleCycle re-checks feasibility against current balances (candidates
// were scored against a snapshot that may have been consumed by an
// earlier cycle or the bilateral pass in this same run_lsm_pass
// iteration), plans every edge's achievable amount without mutating
// state, then verifies each participant's actual net exposure — inflow
// minus outflow, which can fall short of target on either side if an
// indivisible transaction blocks a leg — before applying anything. Money
// moves once per participant as a consolidated net delta, the same
// reasoning BilateralPass uses: per-leg debit/credit would reject on a
// participant whose cover only lands earlier in the same cycle.
func (e *Engine) settleCycle(state *simstate.SimulationState, g map[string]map[string]*edgeFlow, c cycleCandidate, tick int) (bool, money.Cents) {
	n := len(c.nodes)
	edges := make([]*edgeFlow, n)
	for i, from := range c.nodes {
		to := c.nodes[(i+1)%n]
		nbrs, ok := g[from]
		if !ok {
			return false, 0
		}
		e, ok := nbrs[to]
		if !ok || e.sum <= 0 {
			return false, 0
		}
		edges[i] = e
	}

	target := edges[0].sum
	for _, e := range edges[1:] {
		target = minCents(target, e.sum)
	}
	if target <= 0 {
		return false, 0
	}

	plans := make([]plannedLeg, n)
	for i, edge := range edges {
		plans[i] = planLeg(state, edge, target)
		if plans[i].total <= 0 {
			return false, 0
		}
	}

	// netDelta[i] = inflow from the previous edge (plans[i-1]) minus
	// outflow on this node's own edge (plans[i]).
	netDelta := make([]money.Cents, n)
	for i := range c.nodes {
		prev := (i - 1 + n) % n
		netDelta[i] = plans[prev].total - plans[i].total
	}
	for i, node := range c.nodes {
		if netDelta[i] < 0 {
			agent, err := state.GetAgent(node)
			if err != nil || !agent.CanPay(-netDelta[i]) {
				return false, 0
			}
		}
	}

	var moved money.Cents
	for i := range c.nodes {
		for j, txID := range plans[i].txIDs {
			tx, err := state.GetTransaction(txID)
			if err != nil {
				continue
			}
			settleBookkeeping(state, tx, plans[i].amounts[j], tick)
		}
		moved += plans[i].total
	}
	for i, node := range c.nodes {
		agent, err := state.GetAgent(node)
		if err != nil {
			continue
		}
		agent.ApplyNetDelta(netDelta[i])
	}

	state.AppendEvent(domain.NewEvent(tick, domain.EventLsmCycleSettlement, map[string]interface{}{
		"agents": c.nodes,
		"value":  moved,
	}))
	return true, moved
}
