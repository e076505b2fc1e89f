package types

// Instrument is a tradable symbol as the gateway knows it. Exchange is the
// routing class (SMART, NSE, ...). ConID is filled in by qualification when
// the gateway assigns one.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	ConID    int64  `json:"con_id,omitempty"`
}

// OrderSpec is one order as submitted to the gateway.
type OrderSpec struct {
	OrderID    int64     `json:"order_id"`
	ParentID   int64     `json:"parent_id,omitempty"`
	Action     Direction `json:"action"`
	Type       OrderType `json:"type"`
	Quantity   int       `json:"quantity"`
	LimitPrice float64   `json:"limit_price"`
	StopPrice  float64   `json:"stop_price"`
	Transmit   bool      `json:"transmit"`
}

// OrderStatus is the gateway's answer to one submission.
type OrderStatus struct {
	OrderID  int64    `json:"order_id"`
	Status   string   `json:"status"`
	Rejected bool     `json:"rejected"`
	Log      []string `json:"log,omitempty"`
}

// Gateway status strings shared by the backends.
const (
	StatusPreSubmitted = "PreSubmitted"
	StatusSubmitted    = "Submitted"
	StatusRejected     = "Rejected"
)

// LastMessage returns the most recent gateway log line, or the status when
// the gateway logged nothing.
func (s OrderStatus) LastMessage() string {
	if len(s.Log) == 0 {
		return s.Status
	}
	return s.Log[len(s.Log)-1]
}

// WorkingOrder is an order the gateway still holds open.
type WorkingOrder struct {
	Instrument Instrument `json:"instrument"`
	Spec       OrderSpec  `json:"spec"`
	Status     string     `json:"status"`
}

// BracketRequest asks for an entry order with linked take-profit and
// stop-loss exits. Zero exit prices are passed through unchanged.
type BracketRequest struct {
	Symbol     string
	Quantity   int
	Direction  Direction
	TakeProfit float64
	StopLoss   float64
}

// MarketRequest asks for a single transmitted market order.
type MarketRequest struct {
	Symbol    string
	Quantity  int
	Direction Direction
}

// ModifyRequest replaces the exit prices of a working order.
type ModifyRequest struct {
	Symbol     string
	OrderID    int64
	TakeProfit float64
	StopLoss   float64
}
