package domain

import "time"

// Transition event names, also used as the last token of the NATS subject.
const (
	EventSubmitted = "submitted"
	EventApproved  = "approved"
	EventDeclined  = "declined"
	EventSplit     = "split"
)

// TransitionEvent describes a state change of a requisition for downstream notification.
type TransitionEvent struct {
	Event          string            `json:"event"`
	RequisitionID  string            `json:"requisitionId"`
	TransactionID  string            `json:"transactionId"`
	Action         string            `json:"action"`
	Actor          string            `json:"actor"`
	Role           ApproverRole      `json:"role,omitempty"`
	Status         RequisitionStatus `json:"status"`
	Department     string            `json:"department"`
	RequesterEmail string            `json:"requesterEmail"`
	TotalAmount    string            `json:"totalAmount"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// NewTransitionEvent builds the event for rec after action by actor.
func NewTransitionEvent(event string, rec *Requisition, action, actor string, role ApproverRole) TransitionEvent {
	return TransitionEvent{
		Event:          event,
		RequisitionID:  rec.ID,
		TransactionID:  rec.TransactionID,
		Action:         action,
		Actor:          actor,
		Role:           role,
		Status:         rec.Status,
		Department:     rec.RequestedByDepartment,
		RequesterEmail: rec.RequesterEmail,
		TotalAmount:    rec.TotalAmount.StringFixed(2),
		OccurredAt:     rec.UpdatedAt,
	}
}
