package notification

import (
	"fmt"

	"chargedesk/internal/model"
	"chargedesk/internal/workflow"
)

// Message is the rendered form of a workflow event for one channel-independent inbox entry.
type Message struct {
	Title string
	Body  string
	Data  map[string]interface{}
}

// AmountRange renders bounds as "TZS 500.00 - 10000.00".
func AmountRange(currency string, ev workflow.Event) string {
	return fmt.Sprintf("%s %s - %s", currency, ev.MinAmount.StringFixed(2), ev.MaxAmount.StringFixed(2))
}

// Compose renders an event. Unknown kinds get a generic title.
func Compose(ev workflow.Event, currency string) Message {
	amountRange := AmountRange(currency, ev)

	var title, body string
	switch ev.Kind {
	case model.EventChargeRangeSubmitted:
		title = "New Charge Range Awaiting Finance Approval"
		body = fmt.Sprintf("A new charge range for %s (%s) has been submitted and requires your approval.", ev.TransactionType, amountRange)
	case model.EventChargeRangeFinanceApproved:
		title = "Charge Range Awaiting CEO Approval"
		body = fmt.Sprintf("The charge range for %s (%s) was approved by finance and requires your approval.", ev.TransactionType, amountRange)
	case model.EventChargeRangeApproved:
		title = "Charge Range Approved"
		body = fmt.Sprintf("Your charge range for %s (%s) has been approved and is now active.", ev.TransactionType, amountRange)
	case model.EventChargeRangeRejected:
		title = "Charge Range Rejected"
		body = fmt.Sprintf("Your charge range for %s (%s) was rejected. Reason: %s", ev.TransactionType, amountRange, ev.RejectionReason)
	default:
		title = "Charge Range Update"
		body = fmt.Sprintf("The charge range for %s (%s) was updated.", ev.TransactionType, amountRange)
	}

	data := map[string]interface{}{
		"event":            ev.Kind,
		"charge_range_id":  ev.ChargeRangeID.String(),
		"transaction_type": ev.TransactionType,
		"amount_range":     amountRange,
		"message":          body,
	}
	if ev.RejectionReason != "" {
		data["rejection_reason"] = ev.RejectionReason
	}

	return Message{Title: title, Body: body, Data: data}
}
