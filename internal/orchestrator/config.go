package orchestrator

import (
	"rtgscore/internal/arrivals"
	"rtgscore/internal/collateral"
	"rtgscore/internal/cost"
	"rtgscore/internal/lsm"
	"rtgscore/internal/policy"
	"rtgscore/pkg/money"
	"rtgscore/pkg/validator"
)

// AgentConfig seeds one agent plus its cash-manager policy and (optional)
// arrival process.
type AgentConfig struct {
	ID                      string `validate:"required"`
	OpeningBalance          money.Cents
	CreditLimit             money.Cents `validate:"gte=0"`
	MaxCollateralCapacity   money.Cents // 0 defers to domain.NewAgent's 10x-credit-limit default
	InitialPostedCollateral money.Cents
	LiquidityBuffer         money.Cents
	Policy                  policy.Config
	Arrival                 *arrivals.Config // nil: agent never originates arrivals
}

// CostRates is the full set of per-tick rates and fixed charges the cost
// accountant and split mechanics draw from.
type CostRates struct {
	OverdraftBpsPerTick      int64
	DelayBpsPerTick          int64
	CollateralCostBpsPerTick int64
	EodPenaltyPerTransaction money.Cents
	DeadlinePenalty          money.Cents
	SplitFrictionCostPerUnit money.Cents
}

// Config is the full construction contract for an Orchestrator.
type Config struct {
	TicksPerDay      int `validate:"gt=0"`
	NumDays          int `validate:"gt=0"`
	RngSeed          uint64
	Agents           []AgentConfig `validate:"required,min=1,uniqueagentid,dive"`
	CostRates        CostRates
	Collateral       collateral.Config
	Lsm              lsm.Config
	LsmEnabled       bool
	LsmMaxIterations int
}

// Validate checks a Config's struct tags before it reaches New, catching
// a zero clock or a duplicate agent id with a readable message instead
// of a panic mid-run.
func Validate(cfg Config) error {
	return validator.New().Validate(cfg)
}
