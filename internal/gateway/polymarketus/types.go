package polymarketus

// Order intent enums as expected by the /v1/orders endpoint.
const (
	IntentBuyLong   = "ORDER_INTENT_BUY_LONG"
	IntentBuyShort  = "ORDER_INTENT_BUY_SHORT"
	IntentSellLong  = "ORDER_INTENT_SELL_LONG"
	IntentSellShort = "ORDER_INTENT_SELL_SHORT"

	OrderTypeLimit = "ORDER_TYPE_LIMIT"

	TIFGoodTillCancel = "TIME_IN_FORCE_GOOD_TILL_CANCEL"
)

// Price carries a decimal price as a string value plus its currency.
type Price struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// OrderRequest is the body of POST /v1/orders.
type OrderRequest struct {
	MarketSlug    string `json:"marketSlug"`
	Type          string `json:"type"`
	Intent        string `json:"intent"`
	Price         Price  `json:"price"`
	Quantity      string `json:"quantity"`
	TimeInForce   string `json:"timeInForce"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
}

// OrderResponse is returned by POST /v1/orders.
type OrderResponse struct {
	Order OrderState `json:"order"`
}

// OrderState describes a resting or filled order.
type OrderState struct {
	ID             string `json:"id"`
	MarketSlug     string `json:"marketSlug"`
	Status         string `json:"status"`
	FilledQuantity string `json:"filledQuantity"`
	ClientOrderID  string `json:"clientOrderId"`
}

// Balance is a single currency balance on the account.
type Balance struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Total     string `json:"total"`
}

// BalancesResponse is returned by GET /v1/account/balances.
type BalancesResponse struct {
	Balances []Balance `json:"balances"`
}
