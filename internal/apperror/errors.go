package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an Error for propagation and HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindInvalidTransition
	KindConflict
	KindPersistence
	KindNotification
)

// Error is the domain error carried from services up to handlers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinels survive being re-created with extra detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrTransactionTypeNotFound = &Error{Kind: KindNotFound, Code: "TRANSACTION_TYPE_NOT_FOUND", Message: "transaction type not found"}
	ErrTransactionTypeInactive = &Error{Kind: KindNotFound, Code: "TRANSACTION_TYPE_INACTIVE", Message: "transaction type is not active"}
	ErrNoMatchingRange         = &Error{Kind: KindNotFound, Code: "NO_MATCHING_RANGE", Message: "no charge range covers this amount"}
	ErrChargeRangeNotFound     = &Error{Kind: KindNotFound, Code: "CHARGE_RANGE_NOT_FOUND", Message: "charge range not found"}
	ErrNotificationNotFound    = &Error{Kind: KindNotFound, Code: "NOTIFICATION_NOT_FOUND", Message: "notification not found"}
	ErrForbidden               = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "access denied"}
	ErrInvalidTransition       = &Error{Kind: KindInvalidTransition, Code: "INVALID_TRANSITION", Message: "charge range is not in a state that allows this action"}
	ErrNotEditable             = &Error{Kind: KindInvalidTransition, Code: "NOT_EDITABLE", Message: "charge range can only be changed while draft or rejected"}
	ErrNotApproved             = &Error{Kind: KindInvalidTransition, Code: "NOT_APPROVED", Message: "only approved charge ranges can be activated or deactivated"}
	ErrOverlappingRange        = &Error{Kind: KindConflict, Code: "OVERLAPPING_RANGE", Message: "amount interval overlaps another active approved range of this transaction type"}
	ErrTransactionTypeInUse    = &Error{Kind: KindConflict, Code: "TRANSACTION_TYPE_IN_USE", Message: "transaction type still has charge ranges"}
)

// Validation builds a field-level validation error.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: "the given data was invalid", Fields: fields}
}

// Forbidden names the missing permission.
func Forbidden(permission string) *Error {
	return &Error{Kind: KindForbidden, Code: ErrForbidden.Code, Message: "access denied: missing permission '" + permission + "'"}
}

// InvalidTransition reports the action attempted and the state the range was in.
func InvalidTransition(action, status string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    ErrInvalidTransition.Code,
		Message: "cannot " + action + " a charge range in status '" + status + "'",
	}
}

// StaleTransition reports a transition that lost a race with another one on the same range.
func StaleTransition(action string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    ErrInvalidTransition.Code,
		Message: "cannot " + action + ": charge range status changed concurrently",
	}
}

// Persistence wraps a store failure.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: "PERSISTENCE_FAILED", Message: "failed to " + op, Err: err}
}

// Notification wraps a delivery failure. It is logged, never returned to callers.
func Notification(channel string, err error) *Error {
	return &Error{Kind: KindNotification, Code: "NOTIFICATION_FAILED", Message: channel + " delivery failed", Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides internal detail for persistence and unknown errors.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	if appErr.Kind == KindPersistence || appErr.Kind == KindInternal {
		return "internal server error"
	}
	return appErr.Message
}
