// Package settlement polls for resolved markets, computes P&L, fetches the
// actual observed high temperature for the accuracy feedback loop, and
// journals the outcome. Each position is resolved independently so one
// bad lookup never blocks the rest of the batch.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/ensemble"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/state"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

// AlertFunc sends a settlement notification.
type AlertFunc func(ticker string, won bool, pnlCents, totalPnLCents int, actualTemp float64, haveActual bool, isPaper bool)

// MarketGetter is the subset of the venue client settlement needs.
type MarketGetter interface {
	GetMarket(ctx context.Context, ticker string) (*rest.Market, error)
}

// Checker resolves open positions against settled markets.
type Checker struct {
	venue    MarketGetter
	store    *state.Store
	ensemble *ensemble.Ensemble
	observer *Observer
	alert    AlertFunc
}

// New returns a settlement Checker.
func New(venue MarketGetter, store *state.Store, ens *ensemble.Ensemble, alert AlertFunc) *Checker {
	return &Checker{venue: venue, store: store, ensemble: ens, observer: NewObserver(), alert: alert}
}

// CheckSettled walks open positions, resolves any that have settled, and
// rewrites the daemon state with only the still-open ones.
func (c *Checker) CheckSettled(ctx context.Context, now time.Time) error {
	d, err := c.store.LoadDaemonState()
	if err != nil {
		return err
	}

	var remaining []state.Position
	for _, pos := range d.Positions {
		stillOpen, err := c.resolveOne(ctx, d, pos, now)
		if err != nil {
			log.Printf("settlement: error checking %s: %v", pos.Ticker, err)
			remaining = append(remaining, pos)
			continue
		}
		if stillOpen {
			remaining = append(remaining, pos)
		}
	}

	d.Positions = remaining
	return c.store.SaveDaemonState(d)
}

// resolveOne returns true if the position is still open (not yet settled).
func (c *Checker) resolveOne(ctx context.Context, d *state.Daemon, pos state.Position, now time.Time) (bool, error) {
	m, err := c.venue.GetMarket(ctx, pos.Ticker)
	if err != nil {
		return true, err
	}
	if m.Result == "" {
		return true, nil
	}

	won := m.Result == pos.Side
	var pnl int
	if won {
		pnl = (100 - pos.Price) * pos.Count
	} else {
		pnl = -(pos.Price * pos.Count)
	}
	d.TotalPnLCents += pnl

	actualTemp, haveActual := c.recordAccuracy(ctx, pos, now)

	if err := c.store.AppendSettlement(settlementEntry(pos, m.Result, won, pnl, d.TotalPnLCents, actualTemp, haveActual)); err != nil {
		log.Printf("settlement: journal write failed for %s: %v", pos.Ticker, err)
	}
	if pos.PaperTrade {
		_ = c.store.AppendPaperTrade(settlementEntry(pos, m.Result, won, pnl, d.TotalPnLCents, actualTemp, haveActual))
	}

	label := ""
	if pos.PaperTrade {
		label = "PAPER "
	}
	outcome := "LOSS"
	if won {
		outcome = "WIN"
	}
	log.Printf("%sSETTLED: %s -> %s $%.2f (total: $%.2f)", label, pos.Ticker, outcome, float64(pnl)/100, float64(d.TotalPnLCents)/100)

	if c.alert != nil {
		c.alert(pos.Ticker, won, pnl, d.TotalPnLCents, actualTemp, haveActual, pos.PaperTrade)
	}

	if err := c.store.RecordPnL(pnl, now); err != nil {
		log.Printf("settlement: record pnl failed for %s: %v", pos.Ticker, err)
	}

	return false, nil
}

func settlementEntry(pos state.Position, result string, won bool, pnl, totalPnL int, actualTemp float64, haveActual bool) map[string]any {
	entry := map[string]any{
		"ticker":           pos.Ticker,
		"city":             pos.City,
		"side":             pos.Side,
		"count":            pos.Count,
		"price_cents":      pos.Price,
		"cost_cents":       pos.Price * pos.Count,
		"result":           result,
		"won":              won,
		"pnl_cents":        pnl,
		"total_pnl_cents":  totalPnL,
		"forecast":         pos.Forecast,
		"fair_cents":       pos.Fair,
		"raw_edge":         pos.RawEdge,
		"adjusted_edge":    pos.AdjustedEdge,
		"confidence":       pos.Confidence,
		"ensemble_details": pos.EnsembleDetails,
		"trade_time":       pos.TradeTime,
		"paper_trade":      pos.PaperTrade,
	}
	if haveActual {
		entry["actual_temp"] = actualTemp
	}
	return entry
}

// recordAccuracy parses the settlement date off the position, fetches the
// observed high, and feeds each contributing provider's forecast error back
// into the ensemble's accuracy history.
func (c *Checker) recordAccuracy(ctx context.Context, pos state.Position, now time.Time) (float64, bool) {
	city := cities.Get(pos.City)
	if city == nil {
		return 0, false
	}

	settlementDate, ok := parseSettlementDate(pos.Ticker, pos.TargetDate)
	if !ok {
		log.Printf("settlement: could not determine settlement date for %s", pos.Ticker)
		return 0, false
	}

	actualTemp, err := c.observer.ActualHighTemp(ctx, city, settlementDate)
	if err != nil {
		log.Printf("settlement: error fetching actual temp for %s: %v", pos.City, err)
		return 0, false
	}

	if forecasts, ok := extractForecasts(pos.EnsembleDetails); ok {
		for provider, predicted := range forecasts {
			c.ensemble.RecordAccuracy(provider, predicted, actualTemp, now)
			log.Printf("  recorded %s: predicted=%.1f actual=%.1f", provider, predicted, actualTemp)
		}
	}

	return actualTemp, true
}

func extractForecasts(details map[string]any) (map[string]float64, bool) {
	if details == nil {
		return nil, false
	}
	raw, ok := details["individual_forecasts"]
	if !ok {
		return nil, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	out := map[string]float64{}
	for k, v := range m {
		switch n := v.(type) {
		case float64:
			out[k] = n
		}
	}
	return out, len(out) > 0
}

var settlementTickerRe = regexp.MustCompile(`(?i)-(\d{2})(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)(\d{2})-`)

var settlementMonthMap = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseSettlementDate extracts the settlement date from a ticker's embedded
// "-YYMMMDD-" date (two-digit year, month abbreviation, two-digit day),
// falling back to the target_date recorded at trade time
// if the ticker format doesn't match.
func parseSettlementDate(ticker, targetDateStr string) (time.Time, bool) {
	if m := settlementTickerRe.FindStringSubmatch(ticker); m != nil {
		monthStr := m[2][:3]
		if month, ok := settlementMonthMap[lowerASCII(monthStr)]; ok {
			yy, errYY := strconv.Atoi(m[1])
			dd, errDD := strconv.Atoi(m[3])
			if errYY == nil && errDD == nil {
				t := time.Date(2000+yy, month, dd, 0, 0, 0, 0, time.UTC)
				if t.Month() == month {
					return t, true
				}
			}
		}
	}

	if targetDateStr != "" {
		if t, err := time.Parse("2006-01-02", targetDateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// Observer fetches the actual observed high temperature from NOAA station
// observations, used to feed the per-provider accuracy history.
type Observer struct {
	httpClient *http.Client
}

// NewObserver returns an Observer using a 15-second HTTP timeout.
func NewObserver() *Observer {
	return &Observer{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// ActualHighTemp fetches NOAA station observations for a city's date and
// returns the maximum observed temperature in Fahrenheit.
func (o *Observer) ActualHighTemp(ctx context.Context, city *cities.City, date time.Time) (float64, error) {
	if city.Station == "" {
		return 0, fmt.Errorf("settlement: no station configured for %s", city.Code)
	}

	dateStr := date.Format("2006-01-02")
	v := url.Values{}
	v.Set("start", dateStr+"T00:00:00Z")
	v.Set("end", dateStr+"T23:59:59Z")

	endpoint := fmt.Sprintf("https://api.weather.gov/stations/%s/observations?%s", city.Station, v.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "weatherd/1.0 (+https://github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon)")
	req.Header.Set("Accept", "application/geo+json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("settlement: observations request failed: %s", resp.Status)
	}

	var payload struct {
		Features []struct {
			Properties struct {
				Temperature struct {
					Value *float64 `json:"value"`
				} `json:"temperature"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return 0, err
	}

	var max float64
	have := false
	for _, f := range payload.Features {
		if f.Properties.Temperature.Value == nil {
			continue
		}
		tempF := (*f.Properties.Temperature.Value)*9/5 + 32
		if !have || tempF > max {
			max = tempF
			have = true
		}
	}
	if !have {
		return 0, fmt.Errorf("settlement: no observations for %s on %s", city.Station, dateStr)
	}
	return max, nil
}

func decodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
