// Package errors provides common, reusable error values and helpers for the
// settlement core and its satellite packages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. These form the exit-code taxonomy a host process matches
// against at the orchestrator boundary.
var (
	ErrInsufficientLiquidity          = errors.New("insufficient liquidity")
	ErrAgentNotFound                  = errors.New("agent not found")
	ErrTransactionNotFound            = errors.New("transaction not found")
	ErrInvalidAmount                  = errors.New("invalid amount")
	ErrAlreadySettled                 = errors.New("transaction already settled or dropped")
	ErrInsufficientCollateralCapacity = errors.New("insufficient collateral capacity")
	ErrInsufficientCollateral         = errors.New("insufficient posted collateral")
	ErrInvalidSplit                   = errors.New("invalid split")
	ErrBalanceConservationViolation   = errors.New("balance conservation violated")
	ErrQueueMembershipViolation       = errors.New("queue membership invariant violated")
)

// New returns a new error with the given text.
func New(text string) error {
	return errors.New(text)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// InsufficientLiquidityError carries the shortfall context callers need to
// decide whether to queue, log, or surface the failure.
type InsufficientLiquidityError struct {
	AgentID   string
	Required  int64
	Available int64
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity for %s: required %d, available %d", e.AgentID, e.Required, e.Available)
}

func (e *InsufficientLiquidityError) Unwrap() error { return ErrInsufficientLiquidity }

// InsufficientLiquidity constructs an InsufficientLiquidityError.
func InsufficientLiquidity(agentID string, required, available int64) error {
	return &InsufficientLiquidityError{AgentID: agentID, Required: required, Available: available}
}

// CapacityError carries the requested vs. available capacity for collateral
// post/withdraw rejections.
type CapacityError struct {
	Kind      error
	AgentID   string
	Requested int64
	Available int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s for %s: requested %d, available %d", e.Kind, e.AgentID, e.Requested, e.Available)
}

func (e *CapacityError) Unwrap() error { return e.Kind }

// InsufficientCollateralCapacity constructs the Post-side capacity error.
func InsufficientCollateralCapacity(agentID string, requested, available int64) error {
	return &CapacityError{Kind: ErrInsufficientCollateralCapacity, AgentID: agentID, Requested: requested, Available: available}
}

// InsufficientCollateral constructs the Withdraw-side capacity error.
func InsufficientCollateral(agentID string, requested, available int64) error {
	return &CapacityError{Kind: ErrInsufficientCollateral, AgentID: agentID, Requested: requested, Available: available}
}
