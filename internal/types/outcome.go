package types

import (
	"fmt"
	"strconv"
)

type OutcomeKind uint8

const (
	OutcomePlaced OutcomeKind = iota + 1
	OutcomeUpdated
	OutcomeRejected
	OutcomeNotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePlaced:
		return "placed"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNotFound:
		return "not_found"
	}
	return "unknown"
}

// Outcome is what the gateway made of a placement or modification request.
// Bracket is false for a bare market order.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Modify     bool        `json:"modify,omitempty"`
	Bracket    bool        `json:"bracket,omitempty"`
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction,omitempty"`
	Quantity   int         `json:"quantity,omitempty"`
	OrderID    int64       `json:"order_id,omitempty"`
	TakeProfit float64     `json:"take_profit"`
	StopLoss   float64     `json:"stop_loss"`
	Message    string      `json:"message,omitempty"`
}

// Text renders the outcome as the single chat reply.
func (o Outcome) Text() string {
	switch o.Kind {
	case OutcomePlaced:
		if !o.Bracket {
			return fmt.Sprintf("%s order placed for %d shares of %s at market price",
				o.Direction, o.Quantity, o.Symbol)
		}
		return fmt.Sprintf("%s order placed for %d shares of %s at market price with TP %s and SL %s",
			o.Direction, o.Quantity, o.Symbol, FormatPrice(o.TakeProfit), FormatPrice(o.StopLoss))
	case OutcomeUpdated:
		return fmt.Sprintf("Order %d for %s updated with TP %s and SL %s",
			o.OrderID, o.Symbol, FormatPrice(o.TakeProfit), FormatPrice(o.StopLoss))
	case OutcomeRejected:
		if o.Modify {
			return "Order modification rejected: " + o.Message
		}
		return "Order rejected: " + o.Message
	case OutcomeNotFound:
		return fmt.Sprintf("No order found with ID %d for %s", o.OrderID, o.Symbol)
	}
	return o.Message
}

// FormatPrice prints a price with the fewest digits that round-trip.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
