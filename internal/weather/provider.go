// Package weather fetches high-temperature forecasts from multiple
// providers for a single city/date pair, behind a common Provider
// interface so the ensemble can treat them interchangeably.
package weather

import (
	"context"
	"time"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
)

// Provider fetches a forecasted high temperature, in degrees Fahrenheit,
// for a city on a target date. Returns ok=false when no forecast is
// available for that date (rather than an error) so the ensemble can treat
// a data gap the same way regardless of cause.
type Provider interface {
	Name() string
	ForecastHigh(ctx context.Context, city *cities.City, targetDate time.Time) (temp float64, ok bool, err error)
}

// httpTimeout bounds every outbound provider request.
const httpTimeout = 15 * time.Second
