package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/scanner"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/state"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

func TestCheckCircuitBreaker_AllowsWhenNoLosses(t *testing.T) {
	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	pnl := &state.PnL{Daily: map[string]state.PnLBucket{}, Weeks: map[string]state.PnLBucket{}}
	d := &state.Daemon{}

	result := CheckCircuitBreaker(pnl, d, now)
	assert.True(t, result.CanTrade)
}

func TestCheckCircuitBreaker_TripsOnDailyLoss(t *testing.T) {
	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	pnl := &state.PnL{
		Daily: map[string]state.PnLBucket{"2026-07-30": {PnLCents: -600}},
		Weeks: map[string]state.PnLBucket{},
	}
	d := &state.Daemon{}

	result := CheckCircuitBreaker(pnl, d, now)
	assert.False(t, result.CanTrade)
	assert.Contains(t, result.Reason, "daily loss limit")
}

func TestCheckCircuitBreaker_CountsTodayExposureAgainstLoss(t *testing.T) {
	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	pnl := &state.PnL{
		Daily: map[string]state.PnLBucket{"2026-07-30": {PnLCents: -400}},
		Weeks: map[string]state.PnLBucket{},
	}
	d := &state.Daemon{
		Positions: []state.Position{
			{Count: 2, Price: 50, TradeTime: now}, // 100 cents at risk today
		},
	}

	result := CheckCircuitBreaker(pnl, d, now)
	assert.False(t, result.CanTrade)
}

type fakeVenue struct {
	balance   int
	positions []rest.EventPosition
	orders    []*rest.Order
	failTimes int
}

func (f *fakeVenue) GetBalance(ctx context.Context) (*rest.Balance, error) {
	return &rest.Balance{Balance: f.balance}, nil
}

func (f *fakeVenue) GetPositions(ctx context.Context) ([]rest.Position, []rest.EventPosition, error) {
	return nil, f.positions, nil
}

func (f *fakeVenue) CreateOrder(ctx context.Context, req *rest.CreateOrderRequest) (*rest.Order, error) {
	order := &rest.Order{OrderID: "ORD-1", Status: rest.OrderStatusExecuted, TakerFillCount: req.Count}
	f.orders = append(f.orders, order)
	return order, nil
}

func TestExecuteTrades_PaperJournalsAndUpdatesState(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewStore(dir)
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	exec := New(&fakeVenue{balance: 100000}, store, true, nil, nil)

	opps := []scanner.Opportunity{
		{City: "PHX", Ticker: "KXHIGHTPHX-26Jul31-T90", EventTicker: "KXHIGHTPHX-26Jul31",
			Side: scanner.SideYes, Price: 20, Fair: 40, ModelFair: 40, AdjustedEdge: 20,
			TargetDate: now.Add(24 * time.Hour)},
	}

	n, err := exec.ExecuteTrades(context.Background(), opps, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := store.LoadDaemonState()
	require.NoError(t, err)
	require.Len(t, d.Positions, 1)
	assert.Equal(t, 1, d.DailyTrades)

	journal, err := os.ReadFile(filepath.Join(dir, "paper_trades.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, journal)
}

func TestExecuteTrades_SkipsDuplicateCityDate(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	target := now.Add(24 * time.Hour)
	exec := New(&fakeVenue{balance: 100000}, store, true, nil, nil)

	opps := []scanner.Opportunity{
		{City: "PHX", Ticker: "A", EventTicker: "EVA", Side: scanner.SideYes, Price: 20,
			ModelFair: 40, AdjustedEdge: 20, TargetDate: target},
		{City: "PHX", Ticker: "B", EventTicker: "EVB", Side: scanner.SideYes, Price: 20,
			ModelFair: 40, AdjustedEdge: 15, TargetDate: target},
	}

	n, err := exec.ExecuteTrades(context.Background(), opps, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExecuteTrades_LiveModePlacesOrder(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	venue := &fakeVenue{balance: 100000}
	exec := New(venue, store, false, nil, nil)

	opps := []scanner.Opportunity{
		{City: "PHX", Ticker: "KXHIGHTPHX-26Jul31-T90", EventTicker: "KXHIGHTPHX-26Jul31",
			Side: scanner.SideYes, Price: 20, ModelFair: 40, AdjustedEdge: 20,
			TargetDate: now.Add(24 * time.Hour)},
	}

	n, err := exec.ExecuteTrades(context.Background(), opps, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, venue.orders, 1)
}

func TestExecuteTrades_CircuitBreakerBlocksAll(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePnL(&state.PnL{
		Daily: map[string]state.PnLBucket{"2026-07-30": {PnLCents: -600}},
		Weeks: map[string]state.PnLBucket{},
	}))

	var alerted bool
	exec := New(&fakeVenue{balance: 100000}, store, true, func(level, title, message string) { alerted = true }, nil)

	opps := []scanner.Opportunity{
		{City: "PHX", Ticker: "A", EventTicker: "EVA", Side: scanner.SideYes, Price: 20,
			ModelFair: 40, AdjustedEdge: 20, TargetDate: now.Add(24 * time.Hour)},
	}

	n, err := exec.ExecuteTrades(context.Background(), opps, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, alerted)
}

func TestExecuteTrades_SkipsMarketUnderAlreadyHeldEvent(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	venue := &fakeVenue{
		balance:   100000,
		positions: []rest.EventPosition{{EventTicker: "KXHIGHTPHX-26Jul31", EventExposure: 100}},
	}
	exec := New(venue, store, true, nil, nil)

	opps := []scanner.Opportunity{
		// Not in d.Positions (no local record), but its event already has
		// exposure per the venue, and its ticker falls under that event.
		{City: "PHX", Ticker: "KXHIGHTPHX-26Jul31-T90", EventTicker: "KXHIGHTPHX-26Jul31",
			Side: scanner.SideYes, Price: 20, ModelFair: 40, AdjustedEdge: 20,
			TargetDate: now.Add(24 * time.Hour)},
	}

	n, err := exec.ExecuteTrades(context.Background(), opps, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExecuteTrades_FiresTradeAlertOnPlacement(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	var gotTicker, gotOrderID string
	var gotPaper bool
	exec := New(&fakeVenue{balance: 100000}, store, true, nil,
		func(city, ticker, side string, priceCents, quantity, costCents int, forecast float64, orderID string, isPaper bool) {
			gotTicker, gotOrderID, gotPaper = ticker, orderID, isPaper
		})

	opps := []scanner.Opportunity{
		{City: "PHX", Ticker: "KXHIGHTPHX-26Jul31-T90", EventTicker: "KXHIGHTPHX-26Jul31",
			Side: scanner.SideYes, Price: 20, ModelFair: 40, AdjustedEdge: 20,
			TargetDate: now.Add(24 * time.Hour)},
	}

	n, err := exec.ExecuteTrades(context.Background(), opps, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "KXHIGHTPHX-26Jul31-T90", gotTicker)
	assert.NotEmpty(t, gotOrderID)
	assert.True(t, gotPaper)
}
