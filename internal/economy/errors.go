package economy

import (
	"errors"
	"fmt"
	"time"

	"fishbot-economy-api/internal/account"
	"fishbot-economy-api/internal/catalog"
)

// Sentinel errors matched with errors.Is against any *Error of the same kind.
var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientFunds = account.ErrInsufficientFunds
	ErrNotYetEligible    = errors.New("daily reward not yet available")
	ErrInvalidAmount     = account.ErrInvalidAmount
	ErrInvalidUser       = account.ErrInvalidUser
)

// Kind classifies an operation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindItemNotFound
	KindInsufficientFunds
	KindNotYetEligible
	KindInvalidAmount
	KindInvalidUser
)

func (k Kind) String() string {
	switch k {
	case KindItemNotFound:
		return "ItemNotFound"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindNotYetEligible:
		return "NotYetEligible"
	case KindInvalidAmount:
		return "InvalidAmount"
	case KindInvalidUser:
		return "InvalidUser"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindItemNotFound:
		return ErrItemNotFound
	case KindInsufficientFunds:
		return ErrInsufficientFunds
	case KindNotYetEligible:
		return ErrNotYetEligible
	case KindInvalidAmount:
		return ErrInvalidAmount
	case KindInvalidUser:
		return ErrInvalidUser
	default:
		return nil
	}
}

// Error is returned by every engine operation that did not succeed.
type Error struct {
	Kind   Kind
	Op     string
	UserID string
	Item   string
	// Remaining is set for KindNotYetEligible.
	Remaining time.Duration
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.UserID, e.Kind)
	if e.Item != "" {
		msg += fmt.Sprintf(" (%q)", e.Item)
	}
	if e.Kind == KindNotYetEligible {
		msg += fmt.Sprintf(" (%s remaining)", e.Remaining.Round(time.Second))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, catalog.ErrItemNotFound), errors.Is(err, account.ErrItemNotFound):
		return KindItemNotFound
	case errors.Is(err, account.ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, account.ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, account.ErrInvalidUser):
		return KindInvalidUser
	default:
		return KindUnknown
	}
}

func opError(op, userID, item string, err error) *Error {
	return &Error{Kind: classify(err), Op: op, UserID: userID, Item: item, Err: err}
}
