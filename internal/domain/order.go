package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderAction indicates whether an order opens or closes exposure.
type OrderAction string

const (
	ActionBuy  OrderAction = "buy"
	ActionSell OrderAction = "sell"
)

// Outcome is the venue-facing contract side of an order. Kalshi quotes
// yes/no; Polymarket US quotes long/short.
type Outcome string

const (
	OutcomeYes   Outcome = "yes"
	OutcomeNo    Outcome = "no"
	OutcomeLong  Outcome = "long"
	OutcomeShort Outcome = "short"
)

// OrderStatus tracks the order lifecycle as reported by the venue.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusResting  OrderStatus = "resting"
	OrderStatusExecuted OrderStatus = "executed"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusCanceled OrderStatus = "canceled"
)

// OrderRequest is a single limit order submitted through an execution
// gateway. ClientOrderID is a UUID generated by the caller for idempotent
// submission.
type OrderRequest struct {
	InstrumentID  string
	Venue         Venue
	Action        OrderAction
	Outcome       Outcome
	Size          decimal.Decimal
	LimitPrice    decimal.Decimal
	ClientOrderID string
}

// OrderConfirmation is the venue's acknowledgement of a placed order.
type OrderConfirmation struct {
	OrderID       string
	ClientOrderID string
	Status        OrderStatus
	FilledSize    decimal.Decimal
	PlacedAt      time.Time
}
