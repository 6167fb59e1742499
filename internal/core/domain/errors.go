package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a checkout failure for callers.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindAlreadyCheckedOut    Kind = "already_checked_out"
	KindInsufficientQuantity Kind = "insufficient_quantity"
	KindCostTooLow           Kind = "cost_too_low"
	KindCostTooHigh          Kind = "cost_too_high"
	KindInvalidInput         Kind = "invalid_input"
	KindInternal             Kind = "internal"

	// kindCostOutOfPolicy only exists to match both cost kinds with errors.Is.
	kindCostOutOfPolicy Kind = "cost_out_of_policy"
)

const (
	MsgIDNotProvided        = "id is not provided"
	MsgUserNotFound         = "User with ID %d is not found"
	MsgItemNotFound         = "Item with ID %d is not found"
	MsgBasketNotFound       = "Basket with ID %d is not found"
	MsgBasketContentMissing = "Basket content with ID %d is not found"
	MsgAlreadyCheckedOut    = "Basket with ID %d has already been checked out"
	MsgInsufficientQuantity = "Insufficient quantity of %s"
	MsgLowMoneyValue        = "Money value below %g"
	MsgHighMoneyValue       = "Fraud user, money value above %g"
	MsgFirstNameBlank       = "First name is not provided"
	MsgLastNameBlank        = "Last name is not provided"
	MsgUsernameBlank        = "Username is not provided"
	MsgEmailBlank           = "eMail is not provided"
	MsgEmailInvalid         = "eMail is invalid"
	MsgNameBlank            = "Name is not provided"
	MsgPriceNegative        = "Price should be greater than 0"
	MsgStockNegative        = "Stock should not be negative"
	MsgQuantityNegative     = "Quantity should be greater than 0"
)

// Error is a user-visible failure. Sentinels carry only a Kind and match any
// Error of the same kind through errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	if t.Kind == kindCostOutOfPolicy {
		return e.Kind == KindCostTooLow || e.Kind == KindCostTooHigh
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrAlreadyCheckedOut    = &Error{Kind: KindAlreadyCheckedOut}
	ErrInsufficientQuantity = &Error{Kind: KindInsufficientQuantity}
	ErrCostTooLow           = &Error{Kind: KindCostTooLow}
	ErrCostTooHigh          = &Error{Kind: KindCostTooHigh}
	ErrCostOutOfPolicy      = &Error{Kind: kindCostOutOfPolicy}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func UserNotFound(id int64) error   { return newError(KindNotFound, MsgUserNotFound, id) }
func ItemNotFound(id int64) error   { return newError(KindNotFound, MsgItemNotFound, id) }
func BasketNotFound(id int64) error { return newError(KindNotFound, MsgBasketNotFound, id) }

func BasketContentNotFound(id int64) error {
	return newError(KindNotFound, MsgBasketContentMissing, id)
}

func AlreadyCheckedOut(basketID int64) error {
	return newError(KindAlreadyCheckedOut, MsgAlreadyCheckedOut, basketID)
}

func InsufficientQuantity(itemName string) error {
	return newError(KindInsufficientQuantity, MsgInsufficientQuantity, itemName)
}

func InvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

// KindOf reports the kind of err, or KindInternal when err carries no domain
// error in its chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the user-visible message of a domain error. Internal
// errors are not exposed verbatim.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return "internal error"
}
