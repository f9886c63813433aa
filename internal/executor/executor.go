// Package executor turns ranked opportunities into trades, subject to the
// circuit breaker, position limits, correlation-group caps, and
// Kelly-criterion sizing. The circuit breaker runs identically in paper and
// live modes so paper results mirror what live trading would have done.
package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/config"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/probability"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/scanner"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/state"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

// Venue is the subset of the REST client the executor needs.
type Venue interface {
	GetBalance(ctx context.Context) (*rest.Balance, error)
	GetPositions(ctx context.Context) ([]rest.Position, []rest.EventPosition, error)
	CreateOrder(ctx context.Context, req *rest.CreateOrderRequest) (*rest.Order, error)
}

// AlertFunc sends a system-level alert, e.g. to Slack/Discord/Telegram.
type AlertFunc func(level, title, message string)

// TradeAlertFunc notifies the operator that a trade was opened, paper or live.
type TradeAlertFunc func(city, ticker, side string, priceCents, quantity, costCents int, forecast float64, orderID string, isPaper bool)

// Executor places (or paper-simulates) trades from a ranked opportunity list.
type Executor struct {
	venue      Venue
	store      *state.Store
	paper      bool
	params     config.TradingParams
	alert      AlertFunc
	tradeAlert TradeAlertFunc

	maxRetries int
	retryDelay time.Duration

	lastCircuitBreakerAlert time.Time
}

// New returns an Executor. Paper mode still reads the real account balance
// and positions for sizing and dedup — only order placement is simulated.
func New(venue Venue, store *state.Store, paper bool, alert AlertFunc, tradeAlert TradeAlertFunc) *Executor {
	return &Executor{
		venue:      venue,
		store:      store,
		paper:      paper,
		params:     config.Params(paper),
		alert:      alert,
		tradeAlert: tradeAlert,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

// CircuitBreakerResult reports whether trading may proceed.
type CircuitBreakerResult struct {
	CanTrade bool
	Reason   string
}

// CheckCircuitBreaker evaluates daily/weekly loss limits against the P&L
// ledger plus today's at-risk exposure from open positions, checking both
// the local-date and UTC-date boundary so a position opened just before or
// after midnight in either zone is still counted as "today's" exposure.
func CheckCircuitBreaker(pnl *state.PnL, d *state.Daemon, now time.Time) CircuitBreakerResult {
	today := now.Format("2006-01-02")
	todayUTC := now.UTC().Format("2006-01-02")
	_, isoWeek := now.ISOWeek()
	weekKey := now.Format("2006") + "-W" + pad2(isoWeek)

	dailyPnL := pnl.Daily[today].PnLCents
	weeklyPnL := pnl.Weeks[weekKey].PnLCents

	var todayExposure int
	for _, p := range d.Positions {
		tt := p.TradeTime.Format("2006-01-02")
		ttUTC := p.TradeTime.UTC().Format("2006-01-02")
		if tt == today || ttUTC == todayUTC {
			todayExposure += p.Count * p.Price
		}
	}

	effectiveDaily := dailyPnL - todayExposure
	if effectiveDaily <= -config.MaxDailyLossCents {
		return CircuitBreakerResult{false, fmt.Sprintf(
			"daily loss limit (incl. $%.2f at-risk): $%.2f", float64(todayExposure)/100, float64(effectiveDaily)/100)}
	}
	if weeklyPnL-todayExposure <= -config.MaxWeeklyLossCents {
		return CircuitBreakerResult{false, fmt.Sprintf(
			"weekly loss limit (incl. exposure): $%.2f", float64(weeklyPnL-todayExposure)/100)}
	}
	return CircuitBreakerResult{true, ""}
}

// isHeld reports whether opp's market is already covered by an open
// position: its own ticker is held, its event ticker has open exposure, or
// its ticker falls under an already-held event (a market ticker is always
// prefixed by its event ticker).
func isHeld(opp scanner.Opportunity, heldTickers, heldEventTickers map[string]bool) bool {
	if heldTickers[opp.Ticker] {
		return true
	}
	if heldEventTickers[opp.EventTicker] {
		return true
	}
	for et := range heldEventTickers {
		if strings.HasPrefix(opp.Ticker, et) {
			return true
		}
	}
	return false
}

func pad2(n int) string {
	if n < 10 {
		return "0" + fmt.Sprint(n)
	}
	return fmt.Sprint(n)
}

// ExecuteTrades evaluates ranked opportunities against the circuit breaker
// and all position limits, then places (or paper-logs) trades for as many
// as the limits allow. Returns the number of trades placed.
func (e *Executor) ExecuteTrades(ctx context.Context, opportunities []scanner.Opportunity, now time.Time) (int, error) {
	pnl, err := e.store.LoadPnL()
	if err != nil {
		return 0, err
	}
	d, err := e.store.LoadDaemonState()
	if err != nil {
		return 0, err
	}

	cb := CheckCircuitBreaker(pnl, d, now)
	if !cb.CanTrade {
		mode := ""
		if e.paper {
			mode = "PAPER "
		}
		log.Printf("%sCIRCUIT BREAKER: %s — stopping trades", mode, cb.Reason)
		if now.Sub(e.lastCircuitBreakerAlert) >= config.CircuitBreakerAlertIntervalS*time.Second {
			if e.alert != nil {
				e.alert("critical", "Circuit Breaker Activated", cb.Reason+"\nTrading paused for the period.")
			}
			e.lastCircuitBreakerAlert = now
		}
		return 0, nil
	}

	today := now.Format("2006-01-02")
	if d.LastTradeDate != today {
		d.DailyTrades = 0
		d.LastTradeDate = today
	}

	bal, err := e.venue.GetBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("executor: get balance: %w", err)
	}
	balanceCents := bal.Balance

	openCount := 0
	heldTickers := map[string]bool{}
	heldEventTickers := map[string]bool{}
	_, eventPositions, err := e.venue.GetPositions(ctx)
	if err != nil {
		return 0, fmt.Errorf("executor: get positions: %w", err)
	}
	for _, ep := range eventPositions {
		if ep.EventExposure > 0 {
			openCount++
			heldEventTickers[ep.EventTicker] = true
		}
	}
	for _, p := range d.Positions {
		heldTickers[p.Ticker] = true
	}

	cityDateTraded := map[string]bool{}
	existingCityDate := map[string]bool{}
	for _, p := range d.Positions {
		if p.CityDate != "" {
			cityDateTraded[p.CityDate] = true
		}
		if p.City != "" && p.TargetDate != "" {
			existingCityDate[p.City+"|"+p.TargetDate] = true
		}
	}

	groupCounts := map[string]int{}
	for _, p := range d.Positions {
		groupCounts[cities.CorrelationGroup(p.City)]++
	}

	tradesMade := 0
	for _, opp := range opportunities {
		if d.DailyTrades >= config.MaxDailyTrades {
			log.Printf("daily trade limit reached")
			break
		}
		if openCount+tradesMade >= config.MaxOpenPositions {
			log.Printf("max open positions reached")
			break
		}

		if isHeld(opp, heldTickers, heldEventTickers) {
			continue
		}

		group := cities.CorrelationGroup(opp.City)
		if groupCounts[group] >= config.MaxPerGroup {
			continue
		}

		targetDateStr := opp.TargetDate.Format("2006-01-02")
		cityDateKey := opp.City + "|" + targetDateStr
		if existingCityDate[opp.City+"|"+targetDateStr] || cityDateTraded[cityDateKey] {
			continue
		}

		kellyFairP := float64(opp.ModelFair) / 100.0
		count := probability.KellySize(kellyFairP, opp.Price, balanceCents, 0.25)
		if count < 1 {
			continue
		}

		costCents := count * opp.Price
		if costCents > config.MaxCostPerTrade {
			count = config.MaxCostPerTrade / opp.Price
			if count < 1 {
				continue
			}
		}

		totalCost := count * opp.Price
		if totalCost > balanceCents-500 {
			continue
		}

		record := state.Position{
			Ticker: opp.Ticker, Side: string(opp.Side), Count: count, Price: opp.Price,
			Fair: opp.Fair, RawEdge: opp.RawEdge, AdjustedEdge: opp.AdjustedEdge,
			Confidence: opp.Confidence, City: opp.City, Forecast: opp.Forecast,
			EnsembleDetails: ensembleDetailsOf(opp),
			TradeTime:       now.UTC(), CityDate: cityDateKey, TargetDate: targetDateStr,
			PaperTrade: e.paper,
		}

		var placed bool
		var orderID string
		if e.paper {
			placed, orderID = e.executePaper(opp, count, totalCost)
		} else {
			placed, orderID = e.executeLive(ctx, opp, count)
		}

		if !placed {
			continue
		}

		if e.tradeAlert != nil {
			e.tradeAlert(opp.City, opp.Ticker, string(opp.Side), opp.Price, count, totalCost, opp.Forecast, orderID, e.paper)
		}

		d.DailyTrades++
		d.Positions = append(d.Positions, record)
		cityDateTraded[cityDateKey] = true
		heldTickers[opp.Ticker] = true
		groupCounts[group]++
		balanceCents -= totalCost
		tradesMade++
	}

	if err := e.store.SaveDaemonState(d); err != nil {
		return tradesMade, err
	}
	return tradesMade, nil
}

// ensembleDetailsOf converts an opportunity's per-provider forecasts into
// the JSON shape state.Position.EnsembleDetails carries, so settlement can
// feed them back into the ensemble's accuracy history once the trade
// resolves. Returns nil when no per-provider breakdown is available.
func ensembleDetailsOf(opp scanner.Opportunity) map[string]any {
	if len(opp.IndividualForecasts) == 0 {
		return nil
	}
	individual := make(map[string]any, len(opp.IndividualForecasts))
	for provider, temp := range opp.IndividualForecasts {
		individual[provider] = temp
	}
	return map[string]any{"individual_forecasts": individual}
}

func (e *Executor) executePaper(opp scanner.Opportunity, count, totalCost int) (bool, string) {
	orderID := "PAPER-" + uuid.NewString()
	log.Printf("PAPER TRADE: would buy %dx %s %s @ %d¢ (cost=$%.2f) -> %s",
		count, opp.Ticker, opp.Side, opp.Price, float64(totalCost)/100, orderID)

	_ = e.store.AppendPaperTrade(map[string]any{
		"order_id": orderID,
		"ticker":   opp.Ticker,
		"side":     opp.Side,
		"price":    opp.Price,
		"count":    count,
		"cost":     totalCost,
		"forecast": opp.Forecast,
		"fair":     opp.Fair,
		"edge":     opp.AdjustedEdge,
		"status":   "open",
	})
	return true, orderID
}

func (e *Executor) executeLive(ctx context.Context, opp scanner.Opportunity, count int) (bool, string) {
	req := &rest.CreateOrderRequest{
		Ticker: opp.Ticker,
		Action: rest.OrderActionBuy,
		Type:   rest.OrderTypeLimit,
		Count:  count,
	}
	if opp.Side == scanner.SideYes {
		req.Side = rest.SideYes
		req.YesPrice = opp.Price
	} else {
		req.Side = rest.SideNo
		req.NoPrice = opp.Price
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		order, err := e.venue.CreateOrder(ctx, req)
		if err == nil {
			log.Printf("order %s: %s filled=%d", order.OrderID, order.Status, order.TakerFillCount+order.MakerFillCount)
			return true, order.OrderID
		}
		lastErr = err
		log.Printf("order attempt %d/%d failed: %v", attempt, e.maxRetries, err)
		if attempt < e.maxRetries {
			select {
			case <-time.After(e.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return false, ""
			}
		}
	}
	log.Printf("order failed after %d attempts: %v", e.maxRetries, lastErr)
	return false, ""
}
