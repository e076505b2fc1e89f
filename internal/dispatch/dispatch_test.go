package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-relay-bot/internal/store"
	"trade-relay-bot/internal/types"
)

const allowed = "424242"

// mockEngine records calls and answers from its fields.
type mockEngine struct {
	calls    []string
	brackets []types.BracketRequest
	markets  []types.MarketRequest
	modifies []types.ModifyRequest

	out   types.Outcome
	err   error
	panic any
}

func (m *mockEngine) ResolveInstrument(ctx context.Context, symbol string) (types.Instrument, error) {
	m.calls = append(m.calls, "ResolveInstrument")
	return types.Instrument{Symbol: symbol}, m.err
}

func (m *mockEngine) PlaceBracket(ctx context.Context, req types.BracketRequest) (types.Outcome, error) {
	m.calls = append(m.calls, "PlaceBracket")
	m.brackets = append(m.brackets, req)
	if m.panic != nil {
		panic(m.panic)
	}
	return m.out, m.err
}

func (m *mockEngine) PlaceMarket(ctx context.Context, req types.MarketRequest) (types.Outcome, error) {
	m.calls = append(m.calls, "PlaceMarket")
	m.markets = append(m.markets, req)
	return m.out, m.err
}

func (m *mockEngine) ModifyExitLegs(ctx context.Context, req types.ModifyRequest) (types.Outcome, error) {
	m.calls = append(m.calls, "ModifyExitLegs")
	m.modifies = append(m.modifies, req)
	return m.out, m.err
}

func newDispatcher(eng *mockEngine) *Dispatcher {
	return New(eng, Params{AllowedCaller: allowed})
}

func TestUnauthorizedCallerNeverReachesEngine(t *testing.T) {
	eng := &mockEngine{}
	d := newDispatcher(eng)

	cmds := []Command{
		{Name: "/buy", Args: []string{"AAPL", "10", "150.5", "140.25"}},
		{Name: "/sell", Args: []string{"AAPL", "10"}},
		{Name: "/replace", Args: []string{"AAPL", "12345", "155", "135"}},
		{Name: "/help"},
		{Name: "/nonsense"},
		{Name: "/buy", Args: []string{"AAPL"}},
	}
	for _, c := range cmds {
		c.Caller = "1"
		assert.Equal(t, "Unauthorized access", d.Handle(context.Background(), c), c.Name)
	}
	assert.Empty(t, eng.calls)
}

func TestUsageOnBadArguments(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"/buy", []string{"AAPL", "10", "150.5"}, usageBuy},
		{"/buy", []string{"AAPL", "ten", "150.5", "140"}, usageBuy},
		{"/buy", []string{"AAPL", "10", "abc", "140"}, usageBuy},
		{"/buy", []string{"AAPL", "0", "150.5", "140"}, usageBuy},
		{"/buy", []string{"AAPL", "10", "-1", "140"}, usageBuy},
		{"/sell", []string{"AAPL"}, usageSell},
		{"/sell", []string{"AAPL", "1.5"}, usageSell},
		{"/replace", []string{"AAPL", "12345", "155"}, usageReplace},
		{"/replace", []string{"AAPL", "x", "155", "135"}, usageReplace},
		{"/replace", []string{"AAPL", "12345", "155", "nan"}, usageReplace},
	}
	for _, tc := range cases {
		eng := &mockEngine{}
		d := newDispatcher(eng)
		got := d.Handle(context.Background(), Command{Caller: allowed, Name: tc.name, Args: tc.args})
		assert.Equal(t, tc.want, got, "%s %v", tc.name, tc.args)
		assert.Empty(t, eng.calls, "%s %v", tc.name, tc.args)
	}
}

func TestBuyPlacesBracket(t *testing.T) {
	eng := &mockEngine{out: types.Outcome{
		Kind: types.OutcomePlaced, Bracket: true, Symbol: "AAPL", Direction: types.Buy,
		Quantity: 10, TakeProfit: 150.5, StopLoss: 140.25,
	}}
	d := newDispatcher(eng)

	got := d.Handle(context.Background(), Command{Caller: allowed, Name: "/buy@RelayBot", Args: []string{"AAPL", "10", "150.50", "140.25"}})
	assert.Equal(t, "BUY order placed for 10 shares of AAPL at market price with TP 150.5 and SL 140.25", got)

	require.Len(t, eng.brackets, 1)
	assert.Equal(t, types.BracketRequest{Symbol: "AAPL", Quantity: 10, Direction: types.Buy, TakeProfit: 150.5, StopLoss: 140.25}, eng.brackets[0])
}

func TestSellModes(t *testing.T) {
	eng := &mockEngine{out: types.Outcome{Kind: types.OutcomePlaced, Symbol: "AAPL", Direction: types.Sell, Quantity: 3}}
	d := newDispatcher(eng)
	d.Handle(context.Background(), Command{Caller: allowed, Name: "sell", Args: []string{"AAPL", "3"}})
	require.Len(t, eng.brackets, 1)
	assert.Equal(t, types.BracketRequest{Symbol: "AAPL", Quantity: 3, Direction: types.Sell}, eng.brackets[0])

	eng = &mockEngine{out: types.Outcome{Kind: types.OutcomePlaced, Symbol: "AAPL", Direction: types.Sell, Quantity: 3}}
	d = New(eng, Params{AllowedCaller: allowed, SellMode: store.SellModeMarket})
	got := d.Handle(context.Background(), Command{Caller: allowed, Name: "sell", Args: []string{"AAPL", "3"}})
	assert.Equal(t, "SELL order placed for 3 shares of AAPL at market price", got)
	assert.Equal(t, []string{"PlaceMarket"}, eng.calls)
}

func TestReplace(t *testing.T) {
	eng := &mockEngine{out: types.Outcome{Kind: types.OutcomeUpdated, Symbol: "AAPL", OrderID: 12345, TakeProfit: 155, StopLoss: 135}}
	d := newDispatcher(eng)

	got := d.Handle(context.Background(), Command{Caller: allowed, Name: "/replace", Args: []string{"AAPL", "12345", "155.00", "135.00"}})
	assert.Equal(t, "Order 12345 for AAPL updated with TP 155 and SL 135", got)
	require.Len(t, eng.modifies, 1)
	assert.Equal(t, types.ModifyRequest{Symbol: "AAPL", OrderID: 12345, TakeProfit: 155, StopLoss: 135}, eng.modifies[0])
}

func TestEngineErrorsRender(t *testing.T) {
	ctx := context.Background()

	eng := &mockEngine{err: types.UnknownSymbol("XYZ")}
	got := newDispatcher(eng).Handle(ctx, Command{Caller: allowed, Name: "/buy", Args: []string{"xyz", "1", "1", "1"}})
	assert.Equal(t, "Invalid symbol: XYZ. Check if the stock ticker is correct.", got)

	eng = &mockEngine{err: types.ProtocolError("place entry", errors.New("socket closed"))}
	got = newDispatcher(eng).Handle(ctx, Command{Caller: allowed, Name: "/sell", Args: []string{"XYZ", "1"}})
	assert.Equal(t, "Error placing order: socket closed", got)

	got = newDispatcher(eng).Handle(ctx, Command{Caller: allowed, Name: "/replace", Args: []string{"XYZ", "1", "1", "1"}})
	assert.Equal(t, "Error replacing order: socket closed", got)

	eng = &mockEngine{out: types.Outcome{Kind: types.OutcomeNotFound, Symbol: "XYZ", OrderID: 9}}
	got = newDispatcher(eng).Handle(ctx, Command{Caller: allowed, Name: "/replace", Args: []string{"XYZ", "9", "1", "1"}})
	assert.Equal(t, "No order found with ID 9 for XYZ", got)
}

func TestPanicIsRecovered(t *testing.T) {
	eng := &mockEngine{panic: "boom"}
	d := newDispatcher(eng)

	got := d.Handle(context.Background(), Command{Caller: allowed, Name: "/buy", Args: []string{"AAPL", "1", "2", "1"}})
	assert.Equal(t, "Error: boom", got)
}

func TestHelpAndUnknown(t *testing.T) {
	eng := &mockEngine{}
	d := newDispatcher(eng)

	help := d.Handle(context.Background(), Command{Caller: allowed, Name: "/help"})
	assert.Contains(t, help, "/buy <symbol> <quantity> <take_profit> <stop_loss>")
	assert.Contains(t, help, "bracket with zero exit prices")

	got := d.Handle(context.Background(), Command{Caller: allowed, Name: "/cancel"})
	assert.Equal(t, "Unknown command: /cancel. Send /help for usage.", got)
	assert.Empty(t, eng.calls)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "buy", commandName("/buy"))
	assert.Equal(t, "buy", commandName("/BUY@RelayBot"))
	assert.Equal(t, "help", commandName("help"))
}

func commandLabels(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	labels := make(map[string]bool)
	for _, mf := range families {
		if mf.GetName() != "relay_commands_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "command" {
					labels[lp.GetValue()] = true
				}
			}
		}
	}
	return labels
}

func TestCommandMetricLabelsStayBounded(t *testing.T) {
	eng := &mockEngine{}
	d := newDispatcher(eng)

	for i := 0; i < 200; i++ {
		d.Handle(context.Background(), Command{Caller: "1", Name: fmt.Sprintf("/junk%d", i)})
		d.Handle(context.Background(), Command{Caller: allowed, Name: fmt.Sprintf("/junk%d", i)})
	}
	d.Handle(context.Background(), Command{Caller: "1", Name: "/buy"})
	d.Handle(context.Background(), Command{Caller: allowed, Name: "/help"})

	known := map[string]bool{"buy": true, "sell": true, "replace": true, "help": true, "start": true, "other": true}
	labels := commandLabels(t)
	assert.True(t, labels["other"])
	assert.True(t, labels["buy"])
	for l := range labels {
		assert.True(t, known[l], "unexpected command label %q", l)
	}
	assert.LessOrEqual(t, len(labels), len(known))
}
