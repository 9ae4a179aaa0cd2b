package domain

// List of possible parcel statuses
const (
	StatusInWarehouse ParcelStatus = "IN_WAREHOUSE"
	StatusOnRoute     ParcelStatus = "ON_ROUTE"
	StatusDelivered   ParcelStatus = "DELIVERED"
	StatusSucceeded   ParcelStatus = "SUCCEEDED"
	StatusFailed      ParcelStatus = "FAILED"
	StatusDelayed     ParcelStatus = "DELAYED"
	StatusDispute     ParcelStatus = "DISPUTE"
	StatusLost        ParcelStatus = "LOST"
)

// List of possible parcel events
const (
	EventOnRoute EventType = "ON_ROUTE"
	EventDeliver EventType = "DELIVER"
	EventFail    EventType = "FAIL"
	EventDelay   EventType = "DELAY"
	EventDispute EventType = "DISPUTE"
	EventResolve EventType = "RESOLVE"
	EventLose    EventType = "LOSE"
	EventReturn  EventType = "RETURN"
)

var allowedStatuses = [...]ParcelStatus{
	StatusInWarehouse, StatusOnRoute, StatusDelivered, StatusSucceeded,
	StatusFailed, StatusDelayed, StatusDispute, StatusLost,
}

var allowedEvents = [...]EventType{
	EventOnRoute, EventDeliver, EventFail, EventDelay,
	EventDispute, EventResolve, EventLose, EventReturn,
}

// Valid checks if the ParcelStatus is valid
func (s ParcelStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid checks if the EventType is valid
func (e EventType) Valid() bool {
	for _, v := range allowedEvents {
		if e == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s ParcelStatus) Terminal() bool {
	return s == StatusFailed || s == StatusSucceeded || s == StatusLost
}

// Next computes the status that applying event to s yields. When the event
// does not apply to the current status it returns s unchanged; a no-op
// result is an idempotent acknowledgment, not an error. The per-status
// match here and the transition table in CanTransition are deliberately
// independent: every result of Next other than a no-op must also pass
// CanTransition before being persisted.
func (s ParcelStatus) Next(event EventType) ParcelStatus {
	switch s {
	case StatusInWarehouse:
		if event == EventOnRoute {
			return StatusOnRoute
		}
	case StatusOnRoute:
		switch event {
		case EventDeliver:
			return StatusDelivered
		case EventFail:
			return StatusFailed
		case EventDelay:
			return StatusDelayed
		}
	case StatusDelivered:
		switch event {
		case EventResolve:
			return StatusSucceeded
		case EventFail:
			return StatusFailed
		case EventDispute:
			return StatusDispute
		}
	case StatusDispute:
		switch event {
		case EventResolve:
			return StatusSucceeded
		case EventLose:
			return StatusLost
		}
	case StatusDelayed:
		if event == EventReturn {
			return StatusInWarehouse
		}
	case StatusFailed, StatusSucceeded, StatusLost:
		// terminal, every event is a no-op
	}
	return s
}

// transitions is the single auditable source of truth for legal status
// changes, checked independently of the per-status Next match.
var transitions = map[ParcelStatus][]ParcelStatus{
	StatusInWarehouse: {StatusOnRoute},
	StatusOnRoute:     {StatusDelivered, StatusFailed, StatusDelayed},
	StatusDelivered:   {StatusSucceeded, StatusFailed, StatusDispute},
	StatusDispute:     {StatusSucceeded, StatusLost},
	StatusDelayed:     {StatusInWarehouse},
}

// CanTransition reports whether the (from, to) status change is allowed
// by the global transition table.
func CanTransition(from, to ParcelStatus) bool {
	for _, v := range transitions[from] {
		if v == to {
			return true
		}
	}
	return false
}
