package probability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormalCDF(0), 1e-9)
	assert.Greater(t, NormalCDF(1), 0.8)
	assert.Less(t, NormalCDF(-1), 0.2)
}

func TestMarketAdjustedFair_ClampsExtremes(t *testing.T) {
	blended := MarketAdjustedFair(0.999, 0.001, 0.3)
	assert.Greater(t, blended, 0.0)
	assert.Less(t, blended, 1.0)
}

func TestMarketAdjustedFair_WeightZeroUsesMarket(t *testing.T) {
	blended := MarketAdjustedFair(0.9, 0.4, 0.0)
	assert.InDelta(t, 0.4, blended, 1e-6)
}

func TestConfidenceScore_NoProviders(t *testing.T) {
	score := ConfidenceScore(&EnsembleDetails{ProviderCount: 0})
	assert.Equal(t, 0.0, score)
}

func TestConfidenceScore_SingleProvider(t *testing.T) {
	score := ConfidenceScore(&EnsembleDetails{
		ProviderCount:       1,
		IndividualForecasts: map[string]float64{"NOAA": 72},
	})
	assert.Equal(t, 0.7, score)
}

func TestConfidenceScore_Agreement(t *testing.T) {
	tight := ConfidenceScore(&EnsembleDetails{
		ProviderCount: 3,
		IndividualForecasts: map[string]float64{
			"NOAA": 72, "GFS": 72.2, "ICON": 71.8,
		},
	})
	wide := ConfidenceScore(&EnsembleDetails{
		ProviderCount: 3,
		IndividualForecasts: map[string]float64{
			"NOAA": 60, "GFS": 75, "ICON": 85,
		},
	})
	assert.Greater(t, tight, wide)
}

func TestFairProbability_NoForecast(t *testing.T) {
	p := FairProbability(FairProbabilityInput{HaveForecast: false})
	assert.Equal(t, 0.5, p)
}

func TestFairProbability_Greater(t *testing.T) {
	p := FairProbability(FairProbabilityInput{
		HaveForecast: true,
		ForecastTemp: 90,
		FloorStrike:  85,
		DaysAhead:    1,
		StrikeType:   StrikeGreater,
	})
	assert.Greater(t, p, 0.5)
}

func TestFairProbability_Less(t *testing.T) {
	p := FairProbability(FairProbabilityInput{
		HaveForecast: true,
		ForecastTemp: 60,
		CapStrike:    85,
		DaysAhead:    1,
		StrikeType:   StrikeLess,
	})
	assert.Greater(t, p, 0.5)
}

func TestFairProbability_UnknownStrikeType(t *testing.T) {
	p := FairProbability(FairProbabilityInput{
		HaveForecast: true,
		ForecastTemp: 72,
		DaysAhead:    1,
	})
	assert.Equal(t, 0.5, p)
}

func TestKellySize_InvalidInputs(t *testing.T) {
	assert.Equal(t, 0, KellySize(0, 50, 10000, 0.25))
	assert.Equal(t, 0, KellySize(1, 50, 10000, 0.25))
	assert.Equal(t, 0, KellySize(0.6, 0, 10000, 0.25))
}

func TestKellySize_CapsAtMaxContracts(t *testing.T) {
	n := KellySize(0.95, 10, 1_000_000, 0.25)
	assert.LessOrEqual(t, n, 8)
}

func TestDetectContractType(t *testing.T) {
	cases := []struct {
		ticker string
		want   ContractType
	}{
		{"KXHIGHTPHX-25JAN15-T90", ContractThreshold},
		{"KXHIGHTPHX-25JAN15-B85.5", ContractBracket},
		{"KXHIGHTPHX-25JAN15", ContractUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectContractType(tc.ticker), tc.ticker)
	}
}

func TestParseEventDate(t *testing.T) {
	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)

	d, ok := ParseEventDate("Highest temperature in Phoenix on Jan 15?", now)
	require.True(t, ok)
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, 2027, d.Year()) // Jan is before July, rolls to next year

	d2, ok2 := ParseEventDate("Highest temperature in Phoenix on Aug 3?", now)
	require.True(t, ok2)
	assert.Equal(t, 2026, d2.Year()) // Aug is after July, same year

	d3, ok3 := ParseEventDate("Will it be hot today?", now)
	require.True(t, ok3)
	assert.Equal(t, now, d3)

	_, ok4 := ParseEventDate("Phoenix temperature market", now)
	assert.False(t, ok4)
}
