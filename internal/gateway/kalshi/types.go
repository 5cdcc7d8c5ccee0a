package kalshi

// BalanceResponse is the GET /portfolio/balance payload. Balance is in
// cents.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// Order is the POST /portfolio/orders request. Limit prices are in cents
// (1-99) on the side being traded.
type Order struct {
	Ticker        string `json:"ticker"`
	Action        string `json:"action"` // "buy" or "sell"
	Side          string `json:"side"`   // "yes" or "no"
	Count         int64  `json:"count"`
	Type          string `json:"type"` // "limit" or "market"
	ClientOrderID string `json:"client_order_id"`
	YesPrice      int64  `json:"yes_price,omitempty"`
	NoPrice       int64  `json:"no_price,omitempty"`
}

// OrderResponse wraps the created order.
type OrderResponse struct {
	Order OrderState `json:"order"`
}

// OrderState is the venue's view of a placed order.
type OrderState struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Ticker        string `json:"ticker"`
	Status        string `json:"status"` // "resting", "executed", "canceled"
	YesPrice      int64  `json:"yes_price"`
	NoPrice       int64  `json:"no_price"`
	Count         int64  `json:"count"`
	RemainingCount int64 `json:"remaining_count"`
	CreatedTime   string `json:"created_time"`
}

// ErrorResponse is the API's error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
