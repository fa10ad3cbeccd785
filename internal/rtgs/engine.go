// Package rtgs implements the atomic settle primitive and the FIFO
// liquidity-recycling drain of Queue 2, the central RTGS retry queue.
package rtgs

import (
	stderrors "errors"
	"fmt"

	"rtgscore/internal/domain"
	"rtgscore/internal/simstate"
	"rtgscore/pkg/errors"
	"rtgscore/pkg/logger"
	"rtgscore/pkg/money"
)

// Engine is the RTGS settlement primitive (C6 in the design).
type Engine struct {
	log logger.Logger
}

// New constructs an Engine. A nil logger is replaced with a no-op sink.
func New(log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{log: log}
}

// SubmitOutcome reports what Submit did with a transaction.
type SubmitOutcome struct {
	Settled  bool
	QueuedAt int // position in Queue 2 after insertion, valid iff !Settled
}

// TrySettle attempts to settle a transaction's entire remaining amount.
// On InsufficientLiquidity it makes no state changes at all.
func (e *Engine) TrySettle(state *simstate.SimulationState, tx *domain.Transaction, tick int) error {
	if tx.IsTerminal() {
		return errors.ErrAlreadySettled
	}
	if !tx.Divisible && tx.Status == domain.StatusPartiallySettled {
		return errors.ErrInvalidAmount
	}
	return e.trySettleAmount(state, tx, tx.RemainingAmount, tick)
}

// TrySettlePartial attempts to settle exactly `amount` of a divisible
// transaction's remaining balance.
func (e *Engine) TrySettlePartial(state *simstate.SimulationState, tx *domain.Transaction, amount money.Cents, tick int) error {
	if tx.IsTerminal() {
		return errors.ErrAlreadySettled
	}
	if !tx.Divisible {
		return errors.ErrInvalidAmount
	}
	if amount <= 0 || amount > tx.RemainingAmount {
		return errors.ErrInvalidAmount
	}
	return e.trySettleAmount(state, tx, amount, tick)
}

// trySettleAmount is the shared atomic core: precheck liquidity, then
// debit/credit/settle as a single all-or-nothing step. Debit is rechecked
// right before mutating state (single-threaded, so this cannot race) —
// the precheck and the mutation are kept adjacent deliberately so nothing
// can observe a half-settled transaction.
func (e *Engine) trySettleAmount(state *simstate.SimulationState, tx *domain.Transaction, amount money.Cents, tick int) error {
	sender, err := state.GetAgent(tx.SenderID)
	if err != nil {
		return err
	}
	receiver, err := state.GetAgent(tx.ReceiverID)
	if err != nil {
		return err
	}

	if !sender.CanPay(amount) {
		return errors.InsufficientLiquidity(sender.ID, int64(amount), int64(sender.AvailableLiquidity()))
	}

	if err := sender.Debit(amount); err != nil {
		// Cannot happen given the CanPay precheck above in a single-threaded
		// tick; if it does, state has diverged from its own invariants.
		panic(fmt.Sprintf("rtgs: debit failed after liquidity precheck: %v", err))
	}
	receiver.Credit(amount)
	if err := tx.Settle(amount, tick); err != nil {
		panic(fmt.Sprintf("rtgs: settle failed after debit/credit applied: %v", err))
	}

	kind := domain.EventSettlementFull
	if tx.Status == domain.StatusPartiallySettled {
		kind = domain.EventSettlementPartial
	}
	state.AppendEvent(domain.NewEvent(tick, kind, map[string]interface{}{
		"tx_id":     tx.ID,
		"sender":    sender.ID,
		"receiver":  receiver.ID,
		"amount":    amount,
		"remaining": tx.RemainingAmount,
	}))
	return nil
}

// Submit registers a transaction (if not already known) and attempts an
// immediate settlement. On InsufficientLiquidity it queues the transaction
// onto Queue 2 instead of propagating the error. Any other error (agent
// lookup failure, already-settled) propagates to the caller.
func (e *Engine) Submit(state *simstate.SimulationState, tx *domain.Transaction, tick int) (SubmitOutcome, error) {
	if _, ok := state.Transactions[tx.ID]; !ok {
		state.AddTransaction(tx)
	}

	err := e.TrySettle(state, tx, tick)
	if err == nil {
		return SubmitOutcome{Settled: true}, nil
	}

	if stderrors.Is(err, errors.ErrInsufficientLiquidity) {
		state.EnqueueRtgs(tx.ID)
		pos := len(state.RtgsQueue)
		state.AppendEvent(domain.NewEvent(tick, domain.EventQueuedRtgs, map[string]interface{}{
			"tx_id":    tx.ID,
			"sender":   tx.SenderID,
			"receiver": tx.ReceiverID,
			"amount":   tx.RemainingAmount,
			"position": pos,
		}))
		return SubmitOutcome{Settled: false, QueuedAt: pos}, nil
	}
	return SubmitOutcome{}, err
}

// DrainResult summarizes one ProcessQueue call.
type DrainResult struct {
	Settled      int
	SettledValue money.Cents
	Dropped      int
	Remaining    int
}

// ProcessQueue drains Queue 2 in FIFO order, recycling liquidity freed by
// each settlement back into the same pass: a settlement can unblock an
// entry further down the queue that failed earlier in this same call, so
// the queue is walked repeatedly until a full pass makes no progress.
// Entries past their deadline are dropped rather than retried. Queue 2 is
// mechanically governed — there is no policy hook here, every entry is
// retried purely on liquidity.
func (e *Engine) ProcessQueue(state *simstate.SimulationState, tick int) (DrainResult, error) {
	var result DrainResult

	for {
		progressed := false
		remaining := state.RtgsQueue[:0:0]

		for _, txID := range state.RtgsQueue {
			tx, err := state.GetTransaction(txID)
			if err != nil {
				return result, err
			}

			if tx.IsPastDeadline(tick) {
				tx.Drop(tick, "deadline_exceeded")
				result.Dropped++
				progressed = true
				state.AppendEvent(domain.NewEvent(tick, domain.EventPolicyDrop, map[string]interface{}{
					"tx_id":  tx.ID,
					"reason": "deadline_exceeded",
				}))
				continue
			}

			settledAmount := tx.RemainingAmount
			if err := e.TrySettle(state, tx, tick); err != nil {
				if stderrors.Is(err, errors.ErrInsufficientLiquidity) {
					remaining = append(remaining, txID)
					continue
				}
				return result, err
			}

			result.Settled++
			result.SettledValue += settledAmount
			progressed = true
		}

		state.RtgsQueue = remaining
		if !progressed || len(state.RtgsQueue) == 0 {
			break
		}
	}

	result.Remaining = len(state.RtgsQueue)
	return result, nil
}
