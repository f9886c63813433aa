// Package ensemble blends forecasts from multiple weather.Provider
// implementations into a single weighted forecast, tracking each
// provider's historical accuracy to adjust its influence over time.
package ensemble

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/config"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/probability"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/weather"
)

type weightedProvider struct {
	provider weather.Provider
	weight   float64
}

// accuracySample is one recorded (predicted, actual) error observation for
// a provider, bounded to the most recent 100 per provider.
type accuracySample struct {
	ErrorF    float64 `json:"error_f"`
	Timestamp int64   `json:"timestamp"` // unix seconds
}

// Ensemble combines weighted forecasts from multiple providers and tracks
// each provider's rolling forecast-error history.
type Ensemble struct {
	providers []weightedProvider

	accuracyPath string
	mu           sync.Mutex
	accuracy     map[string][]accuracySample
}

// New returns an empty ensemble; providers are added with AddProvider.
// accuracyPath is the JSON file used to persist accuracy history across
// restarts.
func New(accuracyPath string) *Ensemble {
	e := &Ensemble{accuracyPath: accuracyPath, accuracy: map[string][]accuracySample{}}
	e.loadAccuracy()
	return e
}

// AddProvider registers a provider with its base ensemble weight.
func (e *Ensemble) AddProvider(p weather.Provider, weight float64) {
	e.providers = append(e.providers, weightedProvider{provider: p, weight: weight})
	if _, ok := e.accuracy[p.Name()]; !ok {
		e.accuracy[p.Name()] = nil
	}
}

// Forecast is the blended result of a single ensemble run.
type Forecast struct {
	Temp    float64
	Details probability.EnsembleDetails
}

// GetEnsembleForecast queries every registered provider concurrently and
// blends the results into a single weighted forecast. city is required and
// selects the per-provider model-bias correction. weightOverrides may be
// nil; it lets a caller scale an individual provider's
// weight for this call only (e.g. halving NOAA's weight when its forecast
// product is stale).
func (e *Ensemble) GetEnsembleForecast(ctx context.Context, city *cities.City, targetDate time.Time, weightOverrides map[string]float64) (*Forecast, error) {
	type result struct {
		name   string
		temp   float64
		ok     bool
		weight float64
	}

	results := make([]result, len(e.providers))
	g, gctx := errgroup.WithContext(ctx)

	for i, wp := range e.providers {
		i, wp := i, wp
		g.Go(func() error {
			temp, ok, err := wp.provider.ForecastHigh(gctx, city, targetDate)
			if err != nil || !ok {
				// A single provider failing or lacking data is not fatal to
				// the ensemble; the others can still produce a forecast.
				return nil
			}

			if bias := cities.Bias(wp.provider.Name(), city.Code); bias != 0 {
				temp -= bias
			}

			adjustedWeight := e.adjustedWeight(wp.provider.Name(), wp.weight, time.Now())
			if override, ok := weightOverrides[wp.provider.Name()]; ok {
				adjustedWeight *= override
			}

			results[i] = result{name: wp.provider.Name(), temp: temp, ok: true, weight: adjustedWeight}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	forecasts := map[string]float64{}
	weights := map[string]float64{}
	var totalWeight float64

	for _, r := range results {
		if !r.ok {
			continue
		}
		forecasts[r.name] = r.temp
		weights[r.name] = r.weight
		totalWeight += r.weight
	}

	if len(forecasts) == 0 || totalWeight == 0 {
		return nil, nil
	}

	var weighted float64
	for name, temp := range forecasts {
		weighted += temp * weights[name]
	}
	ensembleTemp := weighted / totalWeight

	return &Forecast{
		Temp: ensembleTemp,
		Details: probability.EnsembleDetails{
			ProviderCount:       len(forecasts),
			IndividualForecasts: forecasts,
		},
	}, nil
}

// NOAAStaleness reports how stale the NOAA provider's last forecast product
// is, if a NOAA provider is registered and has made at least one
// successful call.
func (e *Ensemble) NOAAStaleness(now time.Time) (time.Duration, bool) {
	for _, wp := range e.providers {
		if noaa, ok := wp.provider.(*weather.NOAAProvider); ok {
			return noaa.UpdateAge(now)
		}
	}
	return 0, false
}

// NOAAWeightOverrideIfStale returns a weight-override map that halves
// NOAA's contribution when its forecast product is older than
// config.NOAAStaleHours, matching the upstream staleness penalty.
func (e *Ensemble) NOAAWeightOverrideIfStale(now time.Time) map[string]float64 {
	age, ok := e.NOAAStaleness(now)
	if !ok || age < config.NOAAStaleHours*time.Hour {
		return nil
	}
	return map[string]float64{"NOAA": config.NOAAStalePenalty}
}

// RecordAccuracy records a (predicted, actual) observation for a provider
// and persists the updated history, bounded to the most recent 100 samples.
func (e *Ensemble) RecordAccuracy(providerName string, predicted, actual float64, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample := accuracySample{ErrorF: math.Abs(predicted - actual), Timestamp: now.Unix()}
	history := append(e.accuracy[providerName], sample)
	if len(history) > 100 {
		history = history[len(history)-100:]
	}
	e.accuracy[providerName] = history

	e.saveAccuracyLocked()
}

// adjustedWeight scales base_weight by recent (30-day) accuracy history,
// clamped to [0.25, 2.0] so neither a hot streak nor a cold one can swing
// the ensemble beyond that range.
func (e *Ensemble) adjustedWeight(providerName string, baseWeight float64, now time.Time) float64 {
	e.mu.Lock()
	history := e.accuracy[providerName]
	e.mu.Unlock()

	if len(history) < 5 {
		return baseWeight
	}

	cutoff := now.Add(-30 * 24 * time.Hour).Unix()
	var sum float64
	var n int
	for _, s := range history {
		if s.Timestamp > cutoff {
			sum += s.ErrorF
			n++
		}
	}
	if n == 0 {
		return baseWeight
	}

	avgError := sum / float64(n)
	if avgError < 0.5 {
		avgError = 0.5
	}
	multiplier := 1.0 / avgError
	if multiplier > 2.0 {
		multiplier = 2.0
	}
	if multiplier < 0.25 {
		multiplier = 0.25
	}

	return baseWeight * multiplier
}

func (e *Ensemble) loadAccuracy() {
	if e.accuracyPath == "" {
		return
	}
	data, err := os.ReadFile(e.accuracyPath)
	if err != nil {
		return
	}
	var loaded map[string][]accuracySample
	if err := json.Unmarshal(data, &loaded); err != nil {
		return
	}
	e.accuracy = loaded
}

// saveAccuracyLocked writes the accuracy history to disk. Caller must hold e.mu.
func (e *Ensemble) saveAccuracyLocked() {
	if e.accuracyPath == "" {
		return
	}
	data, err := json.MarshalIndent(e.accuracy, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(e.accuracyPath, data, 0o644)
}

// BuildStandard returns the standard 5-provider ensemble: NOAA plus the
// four Open-Meteo models, weighted as the upstream system tunes them.
func BuildStandard(accuracyPath string) *Ensemble {
	e := New(accuracyPath)
	e.AddProvider(weather.NewNOAAProvider(), 1.2)
	e.AddProvider(weather.NewOpenMeteoGFS(), 1.0)
	e.AddProvider(weather.NewOpenMeteoICON(), 0.9)
	e.AddProvider(weather.NewOpenMeteoECMWF(), 1.0)
	e.AddProvider(weather.NewOpenMeteoGEM(), 0.8)
	return e
}
