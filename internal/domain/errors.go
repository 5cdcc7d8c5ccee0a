package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice        = errors.New("price outside (0,1)")
	ErrInvalidUpdate       = errors.New("malformed book update")
	ErrUnknownInstrument   = errors.New("unknown instrument")
	ErrStaleQuote          = errors.New("missing or stale quote")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
)

// GatewayError wraps a transport or auth failure from a venue gateway.
// Callers distinguish it from strategy-level errors because a gateway
// failure mid-opportunity changes execution semantics.
type GatewayError struct {
	Venue Venue
	Op    string // "get_balance" or "place_order"
	Err   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %s: %v", e.Venue, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err is (or wraps) a GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
