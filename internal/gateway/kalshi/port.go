package kalshi

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var centsPerDollar = decimal.NewFromInt(100)

// Port adapts Client to the engine's ExecutionPort. Prices cross the
// boundary here: the engine works in dollar decimals, the venue in integer
// cents.
type Port struct {
	client *Client
}

// NewPort wraps client as an execution port.
func NewPort(client *Client) *Port {
	return &Port{client: client}
}

// GetBalance returns the available balance in dollars.
func (p *Port) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	resp, err := p.client.GetBalance(ctx)
	if err != nil {
		return decimal.Zero, &domain.GatewayError{Venue: domain.VenueKalshi, Op: "get_balance", Err: err}
	}
	return decimal.NewFromInt(resp.Balance).Div(centsPerDollar), nil
}

// PlaceOrder submits a limit order. The request's outcome must be yes or no;
// long/short belong to the other venue.
func (p *Port) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderConfirmation, error) {
	order := Order{
		Ticker:        req.InstrumentID,
		Action:        string(req.Action),
		Count:         req.Size.IntPart(),
		Type:          "limit",
		ClientOrderID: req.ClientOrderID,
	}

	priceCents := req.LimitPrice.Mul(centsPerDollar).Round(0).IntPart()
	switch req.Outcome {
	case domain.OutcomeYes:
		order.Side = "yes"
		order.YesPrice = priceCents
	case domain.OutcomeNo:
		order.Side = "no"
		order.NoPrice = priceCents
	default:
		return domain.OrderConfirmation{}, &domain.GatewayError{
			Venue: domain.VenueKalshi,
			Op:    "place_order",
			Err:   fmt.Errorf("unsupported outcome %q", req.Outcome),
		}
	}

	resp, err := p.client.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderConfirmation{}, &domain.GatewayError{Venue: domain.VenueKalshi, Op: "place_order", Err: err}
	}

	return domain.OrderConfirmation{
		OrderID:       resp.Order.OrderID,
		ClientOrderID: resp.Order.ClientOrderID,
		Status:        mapStatus(resp.Order.Status),
		FilledSize:    decimal.NewFromInt(resp.Order.Count - resp.Order.RemainingCount),
		PlacedAt:      time.Now().UTC(),
	}, nil
}

func mapStatus(s string) domain.OrderStatus {
	switch s {
	case "resting":
		return domain.OrderStatusResting
	case "executed":
		return domain.OrderStatusExecuted
	case "canceled":
		return domain.OrderStatusCanceled
	case "pending":
		return domain.OrderStatusPending
	default:
		return domain.OrderStatusRejected
	}
}
