// Package workflow holds the charge range approval state machine. Apply is
// pure: it computes the post-transition fields and the events to emit, and
// leaves persistence and delivery to the caller.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"chargedesk/internal/apperror"
	"chargedesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionSubmit         Action = "submit"
	ActionApproveFinance Action = "approve_finance"
	ActionApproveCEO     Action = "approve_ceo"
	ActionReject         Action = "reject"
)

// Audience addresses an event either to every holder of a role or to one user.
type Audience struct {
	Role   string
	UserID *uuid.UUID
}

// Event is a notification-worthy fact produced by a transition.
type Event struct {
	Kind            string
	ChargeRangeID   uuid.UUID
	TransactionType string
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	RejectionReason string
	Actor           uuid.UUID
	Audience        Audience
	OccurredAt      time.Time
}

// Transition is the outcome of a successful Apply.
type Transition struct {
	Action  Action
	From    string
	To      string
	Changes map[string]interface{}
	Result  model.ChargeRange
	Events  []Event
}

var sourceStates = map[Action][]string{
	ActionSubmit:         {model.ApprovalDraft},
	ActionApproveFinance: {model.ApprovalPendingFinance},
	ActionApproveCEO:     {model.ApprovalPendingCEO},
	ActionReject:         {model.ApprovalPendingFinance, model.ApprovalPendingCEO},
}

var requiredPermissions = map[Action][]string{
	ActionSubmit:         {model.PermSubmitForApproval},
	ActionApproveFinance: {model.PermApproveFinance},
	ActionApproveCEO:     {model.PermApproveCEO},
	ActionReject:         {model.PermApproveFinance, model.PermApproveCEO, model.PermRejectChargeRange},
}

// RequiredPermissions returns the permissions of which an actor must hold at least one.
func RequiredPermissions(action Action) []string {
	return requiredPermissions[action]
}

// CanApply reports whether action is allowed from status.
func CanApply(action Action, status string) bool {
	for _, s := range sourceStates[action] {
		if s == status {
			return true
		}
	}
	return false
}

// Apply computes the transition of r under action. It fails with
// apperror.ErrInvalidTransition when r is not in a source state of action.
func Apply(r model.ChargeRange, action Action, actor uuid.UUID, reason string, now time.Time) (Transition, error) {
	if _, ok := sourceStates[action]; !ok {
		return Transition{}, fmt.Errorf("unknown workflow action %q", action)
	}
	reason = strings.TrimSpace(reason)
	if action == ActionReject && reason == "" {
		return Transition{}, apperror.Validation(map[string][]string{
			"rejection_reason": {"The rejection reason field is required."},
		})
	}
	if !CanApply(action, r.ApprovalStatus) {
		return Transition{}, apperror.InvalidTransition(string(action), r.ApprovalStatus)
	}

	t := Transition{Action: action, From: r.ApprovalStatus, Changes: map[string]interface{}{}}
	next := r
	actorID := actor
	stamp := now

	switch action {
	case ActionSubmit:
		next.ApprovalStatus = model.ApprovalPendingFinance
		next.CreatedBy = &actorID
		t.Changes["created_by"] = actorID
		t.Events = append(t.Events, newEvent(next, model.EventChargeRangeSubmitted, actor, now, Audience{Role: model.RoleFinanceApprover}))

	case ActionApproveFinance:
		next.ApprovalStatus = model.ApprovalPendingCEO
		next.FinanceApprovedBy = &actorID
		next.FinanceApprovedAt = &stamp
		t.Changes["finance_approved_by"] = actorID
		t.Changes["finance_approved_at"] = stamp
		t.Events = append(t.Events, newEvent(next, model.EventChargeRangeFinanceApproved, actor, now, Audience{Role: model.RoleCEO}))

	case ActionApproveCEO:
		next.ApprovalStatus = model.ApprovalApproved
		next.CeoApprovedBy = &actorID
		next.CeoApprovedAt = &stamp
		next.IsActive = true
		t.Changes["ceo_approved_by"] = actorID
		t.Changes["ceo_approved_at"] = stamp
		t.Changes["is_active"] = true
		if next.CreatedBy != nil {
			t.Events = append(t.Events, newEvent(next, model.EventChargeRangeApproved, actor, now, Audience{UserID: next.CreatedBy}))
		}

	case ActionReject:
		next.ApprovalStatus = model.ApprovalRejected
		next.RejectionReason = &reason
		next.IsActive = false
		t.Changes["rejection_reason"] = reason
		t.Changes["is_active"] = false
		if next.CreatedBy != nil {
			ev := newEvent(next, model.EventChargeRangeRejected, actor, now, Audience{UserID: next.CreatedBy})
			ev.RejectionReason = reason
			t.Events = append(t.Events, ev)
		}
	}

	t.To = next.ApprovalStatus
	t.Changes["approval_status"] = next.ApprovalStatus
	t.Result = next
	return t, nil
}

func newEvent(r model.ChargeRange, kind string, actor uuid.UUID, now time.Time, audience Audience) Event {
	typeName := ""
	if r.TransactionType != nil {
		typeName = r.TransactionType.Name
	}
	return Event{
		Kind:            kind,
		ChargeRangeID:   r.ID,
		TransactionType: typeName,
		MinAmount:       r.MinAmount,
		MaxAmount:       r.MaxAmount,
		Actor:           actor,
		Audience:        audience,
		OccurredAt:      now,
	}
}
