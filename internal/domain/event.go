package domain

// EventKind identifies the shape of an Event's Fields payload. The set
// covers every tick-loop step that can emit an event, grouped by the
// subsystem that emits it: arrivals, policy, collateral (strategic and
// end-of-tick), settlement, LSM, cost, and end-of-day.
type EventKind string

const (
	EventArrival            EventKind = "arrival"
	EventPolicySubmit       EventKind = "policy_submit"
	EventPolicyHold         EventKind = "policy_hold"
	EventPolicyDrop         EventKind = "policy_drop"
	EventPolicySplit        EventKind = "policy_split"
	EventCollateralPost     EventKind = "collateral_post"
	EventCollateralWithdraw EventKind = "collateral_withdraw"
	EventQueuedRtgs         EventKind = "queued_rtgs"
	EventSettlementFull     EventKind = "settlement_full"
	EventSettlementPartial  EventKind = "settlement_partial"
	EventLsmBilateralOffset EventKind = "lsm_bilateral_offset"
	EventLsmCycleSettlement EventKind = "lsm_cycle_settlement"
	EventCostAccrual        EventKind = "cost_accrual"
	EventEndOfDay           EventKind = "end_of_day"
)

// Event is one append-only record in the deterministic event log. Fields
// carries kind-specific scalar data (strings, ints, money.Cents) copied out
// of the agents/transactions involved — events never hold references, so a
// persistence layer can serialize them without touching live state.
type Event struct {
	Tick   int
	Kind   EventKind
	Fields map[string]interface{}
}

// NewEvent constructs an Event, defaulting Fields to an empty map if nil was
// passed so callers can always safely range over it.
func NewEvent(tick int, kind EventKind, fields map[string]interface{}) Event {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return Event{Tick: tick, Kind: kind, Fields: fields}
}
