package polymarketus

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Port adapts Client to the engine's ExecutionPort.
type Port struct {
	client *Client
}

// NewPort wraps a Client as an execution port.
func NewPort(client *Client) *Port {
	return &Port{client: client}
}

// GetBalance returns the available USD cash balance in dollars.
func (p *Port) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	resp, err := p.client.GetBalances(ctx)
	if err != nil {
		return decimal.Zero, &domain.GatewayError{Venue: domain.VenuePolymarketUS, Op: "get_balance", Err: err}
	}
	for _, b := range resp.Balances {
		if strings.EqualFold(b.Currency, "USD") {
			d, err := decimal.NewFromString(b.Available)
			if err != nil {
				return decimal.Zero, &domain.GatewayError{
					Venue: domain.VenuePolymarketUS,
					Op:    "get_balance",
					Err:   fmt.Errorf("parse available balance %q: %w", b.Available, err),
				}
			}
			return d, nil
		}
	}
	return decimal.Zero, nil
}

// PlaceOrder submits a good-till-cancel limit order.
func (p *Port) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderConfirmation, error) {
	intent, err := orderIntent(req.Action, req.Outcome)
	if err != nil {
		return domain.OrderConfirmation{}, &domain.GatewayError{Venue: domain.VenuePolymarketUS, Op: "place_order", Err: err}
	}

	order := OrderRequest{
		MarketSlug:  req.InstrumentID,
		Type:        OrderTypeLimit,
		Intent:      intent,
		Price:       Price{Value: req.LimitPrice.StringFixed(4), Currency: "USD"},
		Quantity:    req.Size.String(),
		TimeInForce: TIFGoodTillCancel,
	}
	if req.ClientOrderID != "" {
		order.ClientOrderID = req.ClientOrderID
	}

	resp, err := p.client.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderConfirmation{}, &domain.GatewayError{Venue: domain.VenuePolymarketUS, Op: "place_order", Err: err}
	}

	filled, err := decimal.NewFromString(resp.Order.FilledQuantity)
	if err != nil {
		filled = decimal.Zero
	}
	return domain.OrderConfirmation{
		OrderID:       resp.Order.ID,
		ClientOrderID: resp.Order.ClientOrderID,
		Status:        mapStatus(resp.Order.Status),
		FilledSize:    filled,
	}, nil
}

func orderIntent(action domain.OrderAction, outcome domain.Outcome) (string, error) {
	switch {
	case action == domain.ActionBuy && outcome == domain.OutcomeLong:
		return IntentBuyLong, nil
	case action == domain.ActionBuy && outcome == domain.OutcomeShort:
		return IntentBuyShort, nil
	case action == domain.ActionSell && outcome == domain.OutcomeLong:
		return IntentSellLong, nil
	case action == domain.ActionSell && outcome == domain.OutcomeShort:
		return IntentSellShort, nil
	}
	return "", fmt.Errorf("unsupported action/outcome: %s/%s", action, outcome)
}

func mapStatus(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "ORDER_STATUS_FILLED", "FILLED", "MATCHED":
		return domain.OrderStatusExecuted
	case "ORDER_STATUS_OPEN", "OPEN", "LIVE", "RESTING":
		return domain.OrderStatusResting
	case "ORDER_STATUS_CANCELED", "CANCELED":
		return domain.OrderStatusCanceled
	case "ORDER_STATUS_REJECTED", "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusPending
	}
}
