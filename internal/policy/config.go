package policy

import "rtgscore/pkg/money"

// Kind selects which baseline policy shape a Config builds.
type Kind string

const (
	KindFIFO           Kind = "fifo"
	KindDeadlineAware  Kind = "deadline_aware"
	KindLiquidityAware Kind = "liquidity_aware"
	KindSplitting      Kind = "splitting"
)

// Config is a tagged union describing one agent's cash manager. Only the
// fields relevant to Kind are read; the rest are ignored.
type Config struct {
	Kind             Kind
	UrgencyThreshold int
	TargetBuffer     money.Cents
	MinSplitAmount   money.Cents
	MaxSplits        int
}

// New builds the Policy a Config describes. An unrecognized Kind falls
// back to FIFO, the safest (most liquidity-hungry but simplest and
// always-progressing) baseline.
func New(cfg Config) Policy {
	switch cfg.Kind {
	case KindDeadlineAware:
		return DeadlineAwarePolicy{UrgencyThreshold: cfg.UrgencyThreshold}
	case KindLiquidityAware:
		return LiquidityAwarePolicy{UrgencyThreshold: cfg.UrgencyThreshold, TargetBuffer: cfg.TargetBuffer}
	case KindSplitting:
		return SplittingPolicy{
			UrgencyThreshold: cfg.UrgencyThreshold,
			TargetBuffer:     cfg.TargetBuffer,
			MinSplitAmount:   cfg.MinSplitAmount,
			MaxSplits:        cfg.MaxSplits,
		}
	default:
		return FIFOPolicy{}
	}
}
