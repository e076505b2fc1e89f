package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-relay-bot/internal/types"
)

func dial(t *testing.T, g *Gateway, id int) *link {
	t.Helper()
	l, err := g.Dial(context.Background(), "127.0.0.1", 7497, id)
	require.NoError(t, err)
	return l.(*link)
}

func TestDialRefusesClaimedAndStaleIDs(t *testing.T) {
	g := New(Params{StaleClientIDs: []int{2}})
	ctx := context.Background()

	first := dial(t, g, 1)
	assert.True(t, first.IsConnected())

	_, err := g.Dial(ctx, "127.0.0.1", 7497, 1)
	assert.ErrorIs(t, err, types.ErrClientIDInUse)

	_, err = g.Dial(ctx, "127.0.0.1", 7497, 2)
	assert.ErrorIs(t, err, types.ErrClientIDInUse)

	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	assert.False(t, first.IsConnected())

	again := dial(t, g, 1)
	assert.Equal(t, 1, again.ClientID())

	g.ReleaseStale(2)
	dial(t, g, 2)
}

func TestDialHonoursContext(t *testing.T) {
	g := New(Params{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Dial(ctx, "127.0.0.1", 7497, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQualify(t *testing.T) {
	ctx := context.Background()

	t.Run("configured universe", func(t *testing.T) {
		l := dial(t, New(Params{Symbols: []string{"AAPL", "msft"}}), 1)

		got, err := l.Qualify(ctx, types.Instrument{Symbol: "msft", Exchange: "SMART", Currency: "USD"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "MSFT", got[0].Symbol)
		assert.Equal(t, "SMART", got[0].Exchange)
		assert.NotZero(t, got[0].ConID)

		got, err = l.Qualify(ctx, types.Instrument{Symbol: "XYZ"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("open universe", func(t *testing.T) {
		l := dial(t, New(Params{}), 1)

		got, err := l.Qualify(ctx, types.Instrument{Symbol: "XYZ"})
		require.NoError(t, err)
		require.Len(t, got, 1)

		again, err := l.Qualify(ctx, types.Instrument{Symbol: "XYZ"})
		require.NoError(t, err)
		assert.Equal(t, got[0].ConID, again[0].ConID)

		got, err = l.Qualify(ctx, types.Instrument{Symbol: "NOT A TICKER"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("dropped link", func(t *testing.T) {
		g := New(Params{})
		l := dial(t, g, 3)
		g.Drop(3)

		assert.False(t, l.IsConnected())
		_, err := l.Qualify(ctx, types.Instrument{Symbol: "XYZ"})
		assert.ErrorIs(t, err, types.ErrNotConnected)
	})
}

func TestBracketIsHeldUntilTransmit(t *testing.T) {
	ctx := context.Background()
	l := dial(t, New(Params{Symbols: []string{"XYZ"}}), 1)

	insts, err := l.Qualify(ctx, types.Instrument{Symbol: "XYZ"})
	require.NoError(t, err)
	inst := insts[0]

	parent, err := l.NextOrderID(ctx)
	require.NoError(t, err)

	entry, err := l.PlaceOrder(ctx, inst, types.OrderSpec{
		OrderID: parent, Action: types.Buy, Type: types.OrderTypeMarket, Quantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPreSubmitted, entry.Status)

	tpID, _ := l.NextOrderID(ctx)
	tp, err := l.PlaceOrder(ctx, inst, types.OrderSpec{
		OrderID: tpID, ParentID: parent, Action: types.Sell, Type: types.OrderTypeLimit,
		Quantity: 10, LimitPrice: 150.5,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPreSubmitted, tp.Status)

	slID, _ := l.NextOrderID(ctx)
	sl, err := l.PlaceOrder(ctx, inst, types.OrderSpec{
		OrderID: slID, ParentID: parent, Action: types.Sell, Type: types.OrderTypeStop,
		Quantity: 10, StopPrice: 140.25, Transmit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, sl.Status)
	assert.False(t, sl.Rejected)

	open, err := l.OpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 3)
	for _, o := range open {
		assert.Equal(t, types.StatusSubmitted, o.Status, "order %d", o.Spec.OrderID)
	}
	assert.Equal(t, []int64{parent, tpID, slID}, []int64{open[0].Spec.OrderID, open[1].Spec.OrderID, open[2].Spec.OrderID})
}

func TestPlaceOrderRejections(t *testing.T) {
	ctx := context.Background()
	l := dial(t, New(Params{Symbols: []string{"XYZ"}}), 1)
	inst := types.Instrument{Symbol: "XYZ"}
	_, err := l.Qualify(ctx, inst)
	require.NoError(t, err)

	cases := []struct {
		name string
		spec types.OrderSpec
		want string
	}{
		{"zero quantity", types.OrderSpec{OrderID: 1, Action: types.Buy, Type: types.OrderTypeMarket}, "Order quantity 0 must be positive"},
		{"negative price", types.OrderSpec{OrderID: 1, Action: types.Sell, Type: types.OrderTypeLimit, Quantity: 1, LimitPrice: -1}, "Order price must not be negative"},
		{"unknown parent", types.OrderSpec{OrderID: 1, ParentID: 99, Action: types.Sell, Type: types.OrderTypeStop, Quantity: 1}, "Invalid parent order id 99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := l.PlaceOrder(ctx, inst, tc.spec)
			require.NoError(t, err)
			assert.True(t, st.Rejected)
			assert.Equal(t, types.StatusRejected, st.Status)
			assert.Equal(t, tc.want, st.LastMessage())
		})
	}

	open, err := l.OpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestResubmitReplacesOrder(t *testing.T) {
	ctx := context.Background()
	l := dial(t, New(Params{Symbols: []string{"XYZ"}}), 1)
	inst := types.Instrument{Symbol: "XYZ"}

	spec := types.OrderSpec{OrderID: 5, Action: types.Sell, Type: types.OrderTypeLimit, Quantity: 10, LimitPrice: 150, Transmit: true}
	_, err := l.PlaceOrder(ctx, inst, spec)
	require.NoError(t, err)

	spec.LimitPrice = 155
	st, err := l.PlaceOrder(ctx, inst, spec)
	require.NoError(t, err)
	assert.False(t, st.Rejected)
	assert.Equal(t, "Order 5 modified", st.LastMessage())

	open, err := l.OpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 155.0, open[0].Spec.LimitPrice)

	next, err := l.NextOrderID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)

	st, err = l.PlaceOrder(ctx, types.Instrument{Symbol: "OTHER"}, spec)
	require.NoError(t, err)
	assert.True(t, st.Rejected)
}
