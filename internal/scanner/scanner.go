// Package scanner iterates over every tradeable city and event, blends
// forecasts into fair probabilities, and applies the filter cascade that
// turns a raw market quote into a ranked list of trading opportunities.
package scanner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/config"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/ensemble"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/market"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/probability"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/state"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

// Side is the trade side of an opportunity.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opportunity is one ranked, fully-evaluated trading candidate.
type Opportunity struct {
	City                string
	Ticker              string
	EventTicker         string
	Side                Side
	Price               int // cents
	Fair                int // blended fair value, cents
	ModelFair           int // pre-blend model fair value, cents
	RawEdge             float64
	AdjustedEdge        float64
	Confidence          float64
	Volume              int
	Forecast            float64
	Floor               float64
	Cap                 float64
	TargetDate          time.Time
	IndividualForecasts map[string]float64
}

// EventsProvider abstracts the venue event/market listing call the scanner
// needs, so tests can supply a fake without a live client.
type EventsProvider interface {
	GetOpenEvents(ctx context.Context, seriesTicker string, limit int) ([]rest.Event, error)
}

// Scanner scans every registered city's open events for trading opportunities.
type Scanner struct {
	events   EventsProvider
	ensemble *ensemble.Ensemble
	paper    bool
	params   config.TradingParams
	store    *state.Store

	forecastCache map[string]cachedForecast
}

type cachedForecast struct {
	temp       float64
	details    probability.EnsembleDetails
	confidence float64
	ok         bool
}

// New returns a Scanner backed by the given venue client and ensemble. store
// may be nil (e.g. in tests); when set, each spread, strike-proximity and
// per-side skip, and each trade, is journaled to backtest.jsonl for later
// analysis. Events dropped before their markets are scanned (no target
// date, low confidence, wide provider spread), contracts that fail to parse
// or lack quotes or volume, and sides whose quote is outside the tradable
// range are not journaled.
func New(events EventsProvider, ens *ensemble.Ensemble, paper bool, store *state.Store) *Scanner {
	return &Scanner{
		events:        events,
		ensemble:      ens,
		paper:         paper,
		params:        config.Params(paper),
		store:         store,
		forecastCache: map[string]cachedForecast{},
	}
}

// FindOpportunities scans every city's open events and returns trading
// opportunities ranked by descending adjusted edge.
func (s *Scanner) FindOpportunities(ctx context.Context, now time.Time) []Opportunity {
	var opportunities []Opportunity
	// Forecasts are cached per (city, date) for this scan only.
	s.forecastCache = map[string]cachedForecast{}

	for _, c := range cities.All() {
		events, err := s.events.GetOpenEvents(ctx, c.Series, 5)
		if err != nil {
			continue
		}
		for _, event := range events {
			opportunities = append(opportunities, s.scanEvent(ctx, c, event, now)...)
		}
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].AdjustedEdge > opportunities[j].AdjustedEdge
	})
	return opportunities
}

func (s *Scanner) scanEvent(ctx context.Context, city *cities.City, event rest.Event, now time.Time) []Opportunity {
	targetDate, ok := market.TargetDate(event.Title, now)
	if !ok {
		return nil
	}
	daysAhead := market.DaysAhead(targetDate, now)
	citystd := city.StdDev(targetDate, config.ForecastStdDev)

	cacheKey := city.Code + "|" + targetDate.Format("2006-01-02")
	cached, have := s.forecastCache[cacheKey]
	if !have {
		cached = s.fetchForecast(ctx, city, targetDate, now)
		s.forecastCache[cacheKey] = cached
	}
	if !cached.ok || cached.confidence < s.params.MinConfidenceScore {
		return nil
	}

	var providerSpread float64
	haveSpread := false
	if len(cached.details.IndividualForecasts) >= 2 {
		providerSpread = providerSpread2(cached.details.IndividualForecasts)
		haveSpread = true
		if providerSpread > 6.0 {
			return nil
		}
	}

	var opportunities []Opportunity
	for _, m := range event.Markets {
		opportunities = append(opportunities, s.scanMarket(m, city.Code, event.EventTicker, citystd, targetDate, daysAhead, cached, providerSpread, haveSpread)...)
	}
	return opportunities
}

func (s *Scanner) fetchForecast(ctx context.Context, city *cities.City, targetDate, now time.Time) cachedForecast {
	f, err := s.ensemble.GetEnsembleForecast(ctx, city, targetDate, nil)
	if err == nil && f != nil {
		// The first run refreshes NOAA's product updateTime; if that product
		// is stale, rerun with NOAA's weight reduced for this call only.
		if overrides := s.ensemble.NOAAWeightOverrideIfStale(now); overrides != nil {
			f, err = s.ensemble.GetEnsembleForecast(ctx, city, targetDate, overrides)
		}
	}
	if err != nil || f == nil {
		return cachedForecast{}
	}
	citystd := city.StdDev(targetDate, config.ForecastStdDev)
	confidence := probability.ConfidenceScore(&f.Details)
	_ = citystd
	return cachedForecast{temp: f.Temp, details: f.Details, confidence: confidence, ok: true}
}

func providerSpread2(forecasts map[string]float64) float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range forecasts {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

// ensembleDetailsMap converts the ensemble's individual forecasts into the
// JSON-friendly shape written as a backtest entry's ensemble_details.
func ensembleDetailsMap(details probability.EnsembleDetails) map[string]any {
	if len(details.IndividualForecasts) == 0 {
		return nil
	}
	individual := make(map[string]any, len(details.IndividualForecasts))
	for provider, temp := range details.IndividualForecasts {
		individual[provider] = temp
	}
	return map[string]any{
		"individual_forecasts": individual,
		"provider_count":       details.ProviderCount,
	}
}

// btEntry is one backtest.jsonl record: a skip or trade outcome for a
// contract or one of its sides (see New for the outcomes not journaled).
type btEntry struct {
	ticker         string
	city           string
	forecast       float64
	details        probability.EnsembleDetails
	confidence     float64
	fairCents      int
	yesAsk         int
	yesBid         int
	floorStrike    float64
	capStrike      float64
	strikeType     probability.StrikeType
	rawEdge        *float64
	adjustedEdge   *float64
	side           string
	price          int
	action         string
	skipReason     string
	daysAhead      int
	stdDevUsed     float64
	providerSpread *float64
	modelFair      *int
	marketPrice    *int
	blendedFair    *int
}

// recordBacktest journals one filter outcome. A nil store (as in tests) is
// a silent no-op; a journal write failure is logged but never blocks
// scanning.
func (s *Scanner) recordBacktest(e btEntry) {
	if s.store == nil {
		return
	}
	entry := map[string]any{
		"ts":               time.Now().UTC().Format(time.RFC3339),
		"ticker":           e.ticker,
		"city":             e.city,
		"forecast":         e.forecast,
		"ensemble_details": ensembleDetailsMap(e.details),
		"confidence":       e.confidence,
		"fair_cents":       e.fairCents,
		"market_yes_ask":   e.yesAsk,
		"market_yes_bid":   e.yesBid,
		"floor_strike":     e.floorStrike,
		"cap_strike":       e.capStrike,
		"strike_type":      e.strikeType,
		"side":             e.side,
		"price":            e.price,
		"action":           e.action,
		"days_ahead":       e.daysAhead,
		"std_dev_used":     e.stdDevUsed,
	}
	if e.skipReason != "" {
		entry["skip_reason"] = e.skipReason
	}
	if e.rawEdge != nil {
		entry["raw_edge"] = *e.rawEdge
	}
	if e.adjustedEdge != nil {
		entry["adjusted_edge"] = *e.adjustedEdge
	}
	if e.providerSpread != nil {
		entry["provider_spread"] = *e.providerSpread
	}
	if e.modelFair != nil {
		entry["model_fair"] = *e.modelFair
	}
	if e.marketPrice != nil {
		entry["market_price"] = *e.marketPrice
	}
	if e.blendedFair != nil {
		entry["blended_fair"] = *e.blendedFair
	}

	if err := s.store.AppendBacktest(entry); err != nil {
		fmt.Printf("scanner: backtest journal write failed for %s: %v\n", e.ticker, err)
	}
}

func (s *Scanner) scanMarket(m rest.Market, city, eventTicker string, citystd float64, targetDate time.Time, daysAhead int, cached cachedForecast, providerSpread float64, haveSpread bool) []Opportunity {
	contract, err := market.ParseContract(m, eventTicker)
	if err != nil {
		return nil
	}

	var spreadPtr *float64
	if haveSpread {
		spreadPtr = &providerSpread
	}
	base := btEntry{
		ticker: contract.Ticker, city: city, forecast: cached.temp, details: cached.details,
		confidence: cached.confidence, yesAsk: contract.YesAsk, yesBid: contract.YesBid,
		floorStrike: contract.FloorStrike, capStrike: contract.CapStrike, strikeType: contract.StrikeType,
		daysAhead: daysAhead, stdDevUsed: citystd, providerSpread: spreadPtr,
	}

	if (contract.YesAsk == 0 && contract.YesBid == 0) || contract.Volume < config.MinVolume {
		return nil
	}
	if spread := contract.Spread(); spread > config.MaxSpread {
		e := base
		e.action, e.skipReason = "skip", fmt.Sprintf("spread=%d", spread)
		s.recordBacktest(e)
		return nil
	}

	proximityThreshold := 1.5
	if s.paper {
		proximityThreshold = 0.2
	}
	if dist, ok := contract.StrikeDistance(cached.temp); ok && dist < proximityThreshold {
		e := base
		e.action, e.skipReason = "skip", fmt.Sprintf("strike_proximity=%.1f", dist)
		s.recordBacktest(e)
		return nil
	}

	fairP := probability.FairProbability(probability.FairProbabilityInput{
		ForecastTemp:   cached.temp,
		HaveForecast:   true,
		Details:        &cached.details,
		FloorStrike:    contract.FloorStrike,
		CapStrike:      contract.CapStrike,
		DefaultStdDev:  citystd,
		HaveTargetDate: false,
		DaysAhead:      daysAhead,
		StrikeType:     contract.StrikeType,
	})
	modelFairCents := int(math.Round(fairP * 100))
	halfSpread := contract.HalfSpread()

	var out []Opportunity
	skipContract := false

	if yes, skip := s.evaluateYes(contract, city, eventTicker, fairP, modelFairCents, halfSpread, cached, targetDate, base); skip {
		skipContract = true
	} else if yes != nil {
		out = append(out, *yes)
	}

	if !skipContract {
		if no, _ := s.evaluateNo(contract, city, eventTicker, fairP, modelFairCents, halfSpread, cached, targetDate, base); no != nil {
			out = append(out, *no)
		}
	}

	return out
}

// evaluateYes evaluates the YES side. The bool return reports whether a
// disagreement/ratio failure should also kill the NO side for this contract
// (the upstream model treats those as a judgment about the whole contract,
// not just one side). A YES-price-floor miss does not set skip — the NO
// side is still evaluated for that case.
func (s *Scanner) evaluateYes(c *market.Contract, city, eventTicker string, fairP float64, modelFairCents int, halfSpread float64, cached cachedForecast, targetDate time.Time, base btEntry) (*Opportunity, bool) {
	yesAsk := c.YesAsk
	if yesAsk <= 0 || yesAsk >= 95 {
		return nil, false
	}
	if yesAsk < s.params.MinYesPrice {
		e := base
		e.side, e.price, e.action = "yes", yesAsk, "skip"
		e.skipReason = fmt.Sprintf("yes_price_floor=%d", yesAsk)
		e.modelFair, e.marketPrice = &modelFairCents, &yesAsk
		e.fairCents = modelFairCents
		s.recordBacktest(e)
		return nil, false
	}

	modelDisagreement := math.Abs(float64(modelFairCents - yesAsk))
	if modelDisagreement > float64(s.params.MaxDisagreementCents) {
		e := base
		e.side, e.price, e.action = "yes", yesAsk, "skip"
		e.skipReason = fmt.Sprintf("model_disagreement=%.0f", modelDisagreement)
		e.modelFair, e.marketPrice = &modelFairCents, &yesAsk
		e.fairCents = modelFairCents
		s.recordBacktest(e)
		return nil, true
	}

	marketPYes := float64(yesAsk) / 100.0
	blendedP := probability.MarketAdjustedFair(fairP, marketPYes, s.params.ModelWeight)
	fairCents := int(math.Round(blendedP * 100))

	disagreement := math.Abs(float64(fairCents - yesAsk))
	if disagreement > float64(s.params.MaxDisagreementCents) {
		e := base
		e.side, e.price, e.action = "yes", yesAsk, "skip"
		e.skipReason = fmt.Sprintf("disagreement=%.0f", disagreement)
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairCents, &yesAsk, &fairCents
		e.fairCents = fairCents
		s.recordBacktest(e)
		return nil, true
	}

	if yesAsk > 0 && float64(fairCents)/float64(yesAsk) > s.params.MaxFairMarketRatio {
		e := base
		e.side, e.price, e.action = "yes", yesAsk, "skip"
		e.skipReason = fmt.Sprintf("ratio=%.1fx", float64(fairCents)/float64(yesAsk))
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairCents, &yesAsk, &fairCents
		e.fairCents = fairCents
		s.recordBacktest(e)
		return nil, true
	}

	rawEdge := float64(fairCents-yesAsk) - halfSpread
	adjustedEdge := rawEdge * cached.confidence

	if adjustedEdge < float64(s.params.MinEdgeCents) {
		e := base
		e.side, e.price, e.action = "yes", yesAsk, "skip"
		e.skipReason = fmt.Sprintf("edge_low=%.1f", adjustedEdge)
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairCents, &yesAsk, &fairCents
		e.fairCents, e.rawEdge, e.adjustedEdge = fairCents, &rawEdge, &adjustedEdge
		s.recordBacktest(e)
		return nil, false
	}
	if adjustedEdge > config.MaxEdgeCents {
		e := base
		e.side, e.price, e.action = "yes", yesAsk, "skip"
		e.skipReason = fmt.Sprintf("edge_cap=%.0f", adjustedEdge)
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairCents, &yesAsk, &fairCents
		e.fairCents, e.rawEdge, e.adjustedEdge = fairCents, &rawEdge, &adjustedEdge
		s.recordBacktest(e)
		return nil, false
	}

	e := base
	e.side, e.price, e.action = "yes", yesAsk, "trade"
	e.modelFair, e.marketPrice, e.blendedFair = &modelFairCents, &yesAsk, &fairCents
	e.fairCents, e.rawEdge, e.adjustedEdge = fairCents, &rawEdge, &adjustedEdge
	s.recordBacktest(e)

	return &Opportunity{
		City: city, Ticker: c.Ticker, EventTicker: eventTicker,
		Side: SideYes, Price: yesAsk, Fair: fairCents, ModelFair: modelFairCents,
		RawEdge: rawEdge, AdjustedEdge: adjustedEdge, Confidence: cached.confidence,
		Volume: c.Volume, Forecast: cached.temp, Floor: c.FloorStrike, Cap: c.CapStrike,
		TargetDate: targetDate, IndividualForecasts: cached.details.IndividualForecasts,
	}, false
}

// evaluateNo evaluates the NO side, priced off yes_bid since buying NO is
// economically equivalent to selling YES at the bid.
func (s *Scanner) evaluateNo(c *market.Contract, city, eventTicker string, fairP float64, modelFairCents int, halfSpread float64, cached cachedForecast, targetDate time.Time, base btEntry) (*Opportunity, bool) {
	yesBid := c.YesBid
	if yesBid <= 0 || yesBid <= 5 {
		return nil, false
	}

	noPrice := 100 - yesBid
	if noPrice < s.params.MinNoPrice {
		e := base
		e.side, e.price, e.action = "no", noPrice, "skip"
		e.skipReason = fmt.Sprintf("no_price_floor=%d", noPrice)
		e.modelFair, e.marketPrice = &modelFairCents, &yesBid
		e.fairCents = modelFairCents
		s.recordBacktest(e)
		return nil, false
	}

	modelFairNo := 100 - modelFairCents
	modelDisagreement := math.Abs(float64(modelFairNo - noPrice))
	if modelDisagreement > float64(s.params.MaxDisagreementCents) {
		e := base
		e.side, e.price, e.action = "no", noPrice, "skip"
		e.skipReason = fmt.Sprintf("model_disagreement=%.0f", modelDisagreement)
		e.modelFair, e.marketPrice = &modelFairNo, &noPrice
		e.fairCents = modelFairNo
		s.recordBacktest(e)
		return nil, false
	}

	marketPYes := float64(yesBid) / 100.0
	blendedP := probability.MarketAdjustedFair(fairP, marketPYes, s.params.ModelWeight)
	fairCentsYes := int(math.Round(blendedP * 100))
	fairCentsNo := 100 - fairCentsYes

	disagreement := math.Abs(float64(fairCentsNo - noPrice))
	if disagreement > float64(s.params.MaxDisagreementCents) {
		e := base
		e.side, e.price, e.action = "no", noPrice, "skip"
		e.skipReason = fmt.Sprintf("disagreement=%.0f", disagreement)
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairNo, &noPrice, &fairCentsNo
		e.fairCents = fairCentsNo
		s.recordBacktest(e)
		return nil, false
	}

	if noPrice > 0 && float64(fairCentsNo)/float64(noPrice) > s.params.MaxFairMarketRatio {
		e := base
		e.side, e.price, e.action = "no", noPrice, "skip"
		e.skipReason = fmt.Sprintf("ratio=%.1fx", float64(fairCentsNo)/float64(noPrice))
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairNo, &noPrice, &fairCentsNo
		e.fairCents = fairCentsNo
		s.recordBacktest(e)
		return nil, false
	}

	rawEdge := float64(yesBid-fairCentsYes) - halfSpread
	adjustedEdge := rawEdge * cached.confidence

	if adjustedEdge < float64(s.params.MinEdgeCents) {
		e := base
		e.side, e.price, e.action = "no", noPrice, "skip"
		e.skipReason = fmt.Sprintf("edge_low=%.1f", adjustedEdge)
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairNo, &noPrice, &fairCentsNo
		e.fairCents, e.rawEdge, e.adjustedEdge = fairCentsNo, &rawEdge, &adjustedEdge
		s.recordBacktest(e)
		return nil, false
	}
	if adjustedEdge > config.MaxEdgeCents {
		e := base
		e.side, e.price, e.action = "no", noPrice, "skip"
		e.skipReason = fmt.Sprintf("edge_cap=%.0f", adjustedEdge)
		e.modelFair, e.marketPrice, e.blendedFair = &modelFairNo, &noPrice, &fairCentsNo
		e.fairCents, e.rawEdge, e.adjustedEdge = fairCentsNo, &rawEdge, &adjustedEdge
		s.recordBacktest(e)
		return nil, false
	}

	e := base
	e.side, e.price, e.action = "no", noPrice, "trade"
	e.modelFair, e.marketPrice, e.blendedFair = &modelFairNo, &noPrice, &fairCentsNo
	e.fairCents, e.rawEdge, e.adjustedEdge = fairCentsNo, &rawEdge, &adjustedEdge
	s.recordBacktest(e)

	return &Opportunity{
		City: city, Ticker: c.Ticker, EventTicker: eventTicker,
		Side: SideNo, Price: noPrice, Fair: fairCentsNo, ModelFair: modelFairNo,
		RawEdge: rawEdge, AdjustedEdge: adjustedEdge, Confidence: cached.confidence,
		Volume: c.Volume, Forecast: cached.temp, Floor: c.FloorStrike, Cap: c.CapStrike,
		TargetDate: targetDate, IndividualForecasts: cached.details.IndividualForecasts,
	}, false
}
