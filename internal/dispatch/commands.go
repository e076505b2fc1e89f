package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"trade-relay-bot/internal/store"
	"trade-relay-bot/internal/types"
)

const (
	usageBuy     = "Usage: /buy <symbol> <quantity> <take_profit> <stop_loss>"
	usageSell    = "Usage: /sell <symbol> <quantity>"
	usageReplace = "Usage: /replace <symbol> <order_id> <new_take_profit> <new_stop_loss>"
)

var errInvalidArg = errors.New("invalid argument")

func (d *Dispatcher) buy(ctx context.Context, args []string) (string, string) {
	if len(args) != 4 {
		return usageBuy, resultUsage
	}
	qty, err1 := parseQuantity(args[1])
	tp, err2 := parsePrice(args[2])
	sl, err3 := parsePrice(args[3])
	if err := errors.Join(err1, err2, err3); err != nil {
		return usageBuy, resultUsage
	}

	out, err := d.eng.PlaceBracket(ctx, types.BracketRequest{
		Symbol:     args[0],
		Quantity:   qty,
		Direction:  types.Buy,
		TakeProfit: tp,
		StopLoss:   sl,
	})
	if err != nil {
		return renderError(err, "placing")
	}
	return render(out)
}

func (d *Dispatcher) sell(ctx context.Context, args []string) (string, string) {
	if len(args) != 2 {
		return usageSell, resultUsage
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return usageSell, resultUsage
	}

	var out types.Outcome
	if d.p.SellMode == store.SellModeMarket {
		out, err = d.eng.PlaceMarket(ctx, types.MarketRequest{Symbol: args[0], Quantity: qty, Direction: types.Sell})
	} else {
		out, err = d.eng.PlaceBracket(ctx, types.BracketRequest{Symbol: args[0], Quantity: qty, Direction: types.Sell})
	}
	if err != nil {
		return renderError(err, "placing")
	}
	return render(out)
}

func (d *Dispatcher) replace(ctx context.Context, args []string) (string, string) {
	if len(args) != 4 {
		return usageReplace, resultUsage
	}
	orderID, err1 := strconv.ParseInt(args[1], 10, 64)
	tp, err2 := parsePrice(args[2])
	sl, err3 := parsePrice(args[3])
	if err := errors.Join(err1, err2, err3); err != nil || orderID <= 0 {
		return usageReplace, resultUsage
	}

	out, err := d.eng.ModifyExitLegs(ctx, types.ModifyRequest{
		Symbol:     args[0],
		OrderID:    orderID,
		TakeProfit: tp,
		StopLoss:   sl,
	})
	if err != nil {
		return renderError(err, "replacing")
	}
	return render(out)
}

func (d *Dispatcher) help(ctx context.Context, args []string) (string, string) {
	sell := "Sells <quantity> shares at market price. The order goes out as a bracket with zero exit prices."
	if d.p.SellMode == store.SellModeMarket {
		sell = "Sells <quantity> shares with a single market order."
	}
	return fmt.Sprintf(helpText, sell), resultOK
}

const helpText = `Trading relay commands:

/buy <symbol> <quantity> <take_profit> <stop_loss>
  Buys <quantity> shares at market price and attaches a take-profit limit and a stop-loss stop at the given absolute prices.
  Example: /buy AAPL 10 150.50 140.25

/sell <symbol> <quantity>
  %s
  Example: /sell AAPL 10

/replace <symbol> <order_id> <new_take_profit> <new_stop_loss>
  Overwrites the limit and stop price of the open order <order_id> and resubmits it. Order ids are shown in the trading terminal.
  Example: /replace AAPL 12345 155.00 135.00

/help
  Shows this message.

Only the configured chat may issue commands.`

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errInvalidArg
	}
	return n, nil
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errInvalidArg
	}
	f, _ := d.Float64()
	return f, nil
}

func render(out types.Outcome) (string, string) {
	switch out.Kind {
	case types.OutcomeRejected:
		return out.Text(), resultRejected
	case types.OutcomeNotFound:
		return out.Text(), resultNotFound
	}
	return out.Text(), resultOK
}

func renderError(err error, verb string) (string, string) {
	var rerr *types.Error
	if errors.As(err, &rerr) {
		if rerr.Kind == types.ErrorUnknownSymbol {
			return fmt.Sprintf("Invalid symbol: %s. Check if the stock ticker is correct.", rerr.Msg), resultBadSymbol
		}
		return fmt.Sprintf("Error %s order: %s", verb, rerr.Message()), resultError
	}
	return fmt.Sprintf("Error %s order: %v", verb, err), resultError
}
