package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ExchangeError wraps a failed exchange call with the operation that failed.
// The message text is what the exchange returned; retry classification
// inspects it because the API reports everything as strings.
type ExchangeError struct {
	Op      string
	Message string
	Err     error
}

func (e *ExchangeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("exchange %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("exchange %s: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// nonRetryable markers: authentication, nonce and argument errors are fatal
// for the current call and must never be retried.
var nonRetryable = []string{
	"invalid key",
	"invalid signature",
	"invalid nonce",
	"invalid arguments",
	"permission denied",
}

// IsNonRetryable reports whether err must fail immediately without retry.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryable {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Domain-insufficiency markers: the order was rejected for account reasons.
// The attempt failed but the process carries on.
var insufficiency = []string{
	"insufficient funds",
	"insufficient initial margin",
	"invalid leverage",
	"margin allowance exceeded",
}

// IsInsufficiency reports whether err is an account-level rejection
// (insufficient funds, leverage not permitted) rather than a transport fault.
func IsInsufficiency(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range insufficiency {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ErrPositionExists signals an attempt to open a second position on a symbol.
// This is a programming defect if the state machine is respected.
var ErrPositionExists = errors.New("position already exists for symbol")
