// Command simulate runs the settlement core's seed scenarios end to end
// and prints a per-tick report. It exists to exercise the orchestrator
// the way a human would drive it from a terminal, the same role the
// teacher's cmd/ binaries play for the HTTP API.
package main

import (
	"flag"
	"fmt"

	"rtgscore/internal/collateral"
	"rtgscore/internal/lsm"
	"rtgscore/internal/orchestrator"
	"rtgscore/internal/policy"
	"rtgscore/pkg/config"
	"rtgscore/pkg/logger"
	"rtgscore/pkg/money"
)

func main() {
	scenario := flag.String("scenario", "A", "seed scenario to run: A, B, C, D, or F")
	ticks := flag.Int("ticks", 10, "number of ticks to run")
	flag.Parse()

	log := logger.New("rtgscore-simulate")
	cfg := config.Load()

	oc, err := buildScenario(*scenario, cfg)
	if err != nil {
		log.Fatal("failed to build scenario", map[string]interface{}{"error": err, "scenario": *scenario})
	}

	if verr := orchestrator.Validate(oc); verr != nil {
		log.Fatal("invalid orchestrator config", map[string]interface{}{"error": verr})
	}

	o := orchestrator.New(oc, log)
	if err := seedTransactions(o, *scenario); err != nil {
		log.Fatal("failed to seed scenario transactions", map[string]interface{}{"error": err, "scenario": *scenario})
	}
	results, err := o.Run(*ticks)
	if err != nil {
		log.Error("simulation halted on fatal invariant violation", map[string]interface{}{"error": err})
	}

	for _, r := range results {
		fmt.Printf("tick=%d arrivals=%d settlements=%d lsm_releases=%d total_cost=%s day_boundary=%t\n",
			r.Tick, r.NumArrivals, r.NumSettlements, r.NumLsmReleases, r.TotalCost.String(), r.DayBoundary)
	}

	fmt.Println("--- final balances ---")
	for _, id := range o.GetAgentIDs() {
		bal, _ := o.GetAgentBalance(id)
		fmt.Printf("%s: %s\n", id, bal.String())
	}
}

// buildScenario seeds one of the documented end-to-end scenarios. Each
// mirrors the hand-verified numbers in internal/orchestrator's tests.
func buildScenario(name string, cfg *config.Config) (orchestrator.Config, error) {
	costRates := orchestrator.CostRates{
		OverdraftBpsPerTick:      cfg.CostRates.OverdraftBpsPerTick,
		DelayBpsPerTick:          cfg.CostRates.DelayBpsPerTick,
		CollateralCostBpsPerTick: cfg.CostRates.CollateralCostBpsPerTick,
		EodPenaltyPerTransaction: cfg.CostRates.EodPenaltyPerTransaction,
		DeadlinePenalty:          cfg.CostRates.DeadlinePenalty,
		SplitFrictionCostPerUnit: cfg.CostRates.SplitFrictionCostPerUnit,
	}

	base := orchestrator.Config{
		TicksPerDay: cfg.Clock.TicksPerDay,
		NumDays:     cfg.Clock.NumDays,
		RngSeed:     cfg.Rng.Seed,
		CostRates:   costRates,
		Collateral: collateral.Config{
			SafetyMargin:       cfg.Collateral.SafetyMargin,
			EmergencyThreshold: cfg.Collateral.EmergencyThreshold,
		},
	}

	switch name {
	case "A":
		base.Agents = []orchestrator.AgentConfig{
			fifoAgent("A", 1_000_000_00, 0),
			fifoAgent("B", 0, 0),
		}
		return base, nil
	case "B":
		base.Agents = []orchestrator.AgentConfig{
			fifoAgent("A", 300_000_00, 0),
			fifoAgent("B", 0, 0),
		}
		return base, nil
	case "C":
		base.Agents = []orchestrator.AgentConfig{
			fifoAgent("A", 100_000_00, 0),
			fifoAgent("B", 100_000_00, 0),
		}
		base.LsmEnabled = true
		base.Lsm = lsm.Config{EnableBilateral: true, MaxCycleLength: 3, MaxCyclesPerTick: 1}
		return base, nil
	case "D":
		base.Agents = []orchestrator.AgentConfig{
			fifoAgent("A", 100_000_00, 0),
			fifoAgent("B", 100_000_00, 0),
			fifoAgent("C", 100_000_00, 0),
			fifoAgent("D", 100_000_00, 0),
		}
		base.LsmEnabled = true
		base.Lsm = lsm.Config{EnableCycles: true, MaxCycleLength: 5, MaxCyclesPerTick: 4}
		return base, nil
	case "F":
		base.Agents = []orchestrator.AgentConfig{
			fifoAgent("A", 100_000_00, 0),
			fifoAgent("B", 0, 0),
		}
		return base, nil
	default:
		return orchestrator.Config{}, fmt.Errorf("unknown scenario %q", name)
	}
}

// seedTransactions injects the one-shot transaction(s) each scenario
// describes, the same way an external payment-initiation request would
// arrive mid-run via Orchestrator.SubmitTransaction.
func seedTransactions(o *orchestrator.Orchestrator, name string) error {
	switch name {
	case "A":
		_, err := o.SubmitTransaction("A", "B", 500_000_00, 10, 0, false)
		return err
	case "B":
		_, err := o.SubmitTransaction("A", "B", 500_000_00, 20, 0, false)
		return err
	case "C":
		if _, err := o.SubmitTransaction("A", "B", 500_000_00, 99, 0, false); err != nil {
			return err
		}
		_, err := o.SubmitTransaction("B", "A", 400_000_00, 99, 0, false)
		return err
	case "D":
		edges := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "A"}}
		for _, e := range edges {
			if _, err := o.SubmitTransaction(e[0], e[1], 500_000_00, 99, 0, false); err != nil {
				return err
			}
		}
		return nil
	case "F":
		_, err := o.SubmitTransaction("A", "B", 1_000_000_00, 5, 0, false)
		return err
	default:
		return fmt.Errorf("unknown scenario %q", name)
	}
}

func fifoAgent(id string, balance, creditLimit money.Cents) orchestrator.AgentConfig {
	return orchestrator.AgentConfig{
		ID:             id,
		OpeningBalance: balance,
		CreditLimit:    creditLimit,
		Policy:         policy.Config{Kind: policy.KindFIFO},
	}
}
