package types

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order represents a transient order request. Orders are consumed immediately
// by the engine's fill model: there is no resting order book in this design,
// every order fills at the current bar's close adjusted by slippage.
type Order struct {
	Side   OrderSide `json:"side"`
	Size   float64   `json:"size"`
	Reason string    `json:"reason"`
}

// NewOrder creates a new order with the rule name that produced it.
func NewOrder(side OrderSide, size float64, reason string) Order {
	return Order{
		Side:   side,
		Size:   size,
		Reason: reason,
	}
}

// IsBuy returns true if this is a buy order
func (o Order) IsBuy() bool {
	return o.Side == OrderSideBuy
}

// IsSell returns true if this is a sell order
func (o Order) IsSell() bool {
	return o.Side == OrderSideSell
}
