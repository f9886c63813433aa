package ensemble

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
)

type fakeProvider struct {
	name string
	temp float64
	ok   bool
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) ForecastHigh(ctx context.Context, city *cities.City, targetDate time.Time) (float64, bool, error) {
	return f.temp, f.ok, f.err
}

func TestGetEnsembleForecast_WeightedAverage(t *testing.T) {
	e := New("")
	e.AddProvider(&fakeProvider{name: "A", temp: 70, ok: true}, 1.0)
	e.AddProvider(&fakeProvider{name: "B", temp: 80, ok: true}, 1.0)

	phx := cities.Get("PHX")
	f, err := e.GetEnsembleForecast(context.Background(), phx, time.Now(), nil)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, 75.0, f.Temp, 1e-9)
	assert.Equal(t, 2, f.Details.ProviderCount)
}

func TestGetEnsembleForecast_SkipsFailedProviders(t *testing.T) {
	e := New("")
	e.AddProvider(&fakeProvider{name: "A", temp: 70, ok: true}, 1.0)
	e.AddProvider(&fakeProvider{name: "B", ok: false}, 1.0)

	phx := cities.Get("PHX")
	f, err := e.GetEnsembleForecast(context.Background(), phx, time.Now(), nil)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 1, f.Details.ProviderCount)
	assert.Equal(t, 70.0, f.Temp)
}

func TestGetEnsembleForecast_NoProvidersReturnsNil(t *testing.T) {
	e := New("")
	e.AddProvider(&fakeProvider{name: "A", ok: false}, 1.0)

	phx := cities.Get("PHX")
	f, err := e.GetEnsembleForecast(context.Background(), phx, time.Now(), nil)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestGetEnsembleForecast_WeightOverride(t *testing.T) {
	e := New("")
	e.AddProvider(&fakeProvider{name: "NOAA", temp: 60, ok: true}, 1.0)
	e.AddProvider(&fakeProvider{name: "GFS", temp: 80, ok: true}, 1.0)

	phx := cities.Get("PHX")
	f, err := e.GetEnsembleForecast(context.Background(), phx, time.Now(), map[string]float64{"NOAA": 0.5})
	require.NoError(t, err)
	require.NotNil(t, f)
	// NOAA weight halved to 0.5 vs GFS 1.0: (60*0.5 + 80*1.0) / 1.5
	assert.InDelta(t, 73.333, f.Temp, 0.01)
}

func TestRecordAccuracy_BoundedAt100Samples(t *testing.T) {
	e := New("")
	now := time.Now()
	for i := 0; i < 150; i++ {
		e.RecordAccuracy("NOAA", 70, 72, now)
	}
	assert.Len(t, e.accuracy["NOAA"], 100)
}

func TestAdjustedWeight_RequiresMinimumHistory(t *testing.T) {
	e := New("")
	now := time.Now()
	for i := 0; i < 3; i++ {
		e.RecordAccuracy("NOAA", 70, 75, now) // 5-degree error
	}
	w := e.adjustedWeight("NOAA", 1.0, now)
	assert.Equal(t, 1.0, w) // fewer than 5 samples: base weight unchanged
}

func TestAdjustedWeight_PenalizesPoorAccuracy(t *testing.T) {
	e := New("")
	now := time.Now()
	for i := 0; i < 10; i++ {
		e.RecordAccuracy("NOAA", 70, 75, now) // 5-degree error -> low multiplier
	}
	w := e.adjustedWeight("NOAA", 1.0, now)
	assert.InDelta(t, 0.25, w, 1e-9)
}

func TestAdjustedWeight_IgnoresStaleHistory(t *testing.T) {
	e := New("")
	old := time.Now().Add(-60 * 24 * time.Hour)
	for i := 0; i < 10; i++ {
		e.RecordAccuracy("NOAA", 70, 75, old)
	}
	w := e.adjustedWeight("NOAA", 1.0, time.Now())
	assert.Equal(t, 1.0, w) // all history older than the 30-day window
}

func TestAccuracyHistory_PersistsAcrossInstances(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "accuracy-*.json")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())

	e1 := New(path)
	now := time.Now()
	for i := 0; i < 10; i++ {
		e1.RecordAccuracy("NOAA", 70, 71, now)
	}

	e2 := New(path)
	assert.Len(t, e2.accuracy["NOAA"], 10)
}
