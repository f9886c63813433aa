package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/probability"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

func floatPtr(f float64) *float64 { return &f }

func TestParseContract_RejectsNoStrikes(t *testing.T) {
	_, err := ParseContract(rest.Market{Ticker: "X", StrikeType: "greater"}, "EVT")
	assert.ErrorIs(t, err, ErrInvalidStrikes)
}

func TestParseContract_RejectsUnknownStrikeType(t *testing.T) {
	_, err := ParseContract(rest.Market{Ticker: "X", StrikeType: "weird", FloorStrike: floatPtr(70)}, "EVT")
	assert.ErrorIs(t, err, ErrInvalidStrikes)
}

func TestParseContract_Greater(t *testing.T) {
	c, err := ParseContract(rest.Market{
		Ticker:     "KXHIGHNY-25JUL30-T70",
		StrikeType: "greater",
		FloorStrike: floatPtr(70),
		YesAsk:     55,
		YesBid:     50,
		Volume:     100,
	}, "EVT")
	require.NoError(t, err)
	assert.Equal(t, probability.StrikeGreater, c.StrikeType)
	assert.True(t, c.HaveFloor)
	assert.False(t, c.HaveCap)
	assert.Equal(t, 70.0, c.FloorStrike)
}

func TestParseContract_Between(t *testing.T) {
	c, err := ParseContract(rest.Market{
		Ticker:      "KXHIGHNY-25JUL30-B70.5",
		StrikeType:  "between",
		FloorStrike: floatPtr(69),
		CapStrike:   floatPtr(71),
	}, "EVT")
	require.NoError(t, err)
	assert.True(t, c.HaveFloor)
	assert.True(t, c.HaveCap)
}

func TestContract_Spread(t *testing.T) {
	c := &Contract{YesAsk: 55, YesBid: 48}
	assert.Equal(t, 7, c.Spread())
	assert.Equal(t, 3.5, c.HalfSpread())
}

func TestContract_Spread_ZeroWhenUnquoted(t *testing.T) {
	c := &Contract{YesAsk: 0, YesBid: 48}
	assert.Equal(t, 0, c.Spread())
	assert.Equal(t, 0.0, c.HalfSpread())
}

func TestContract_StrikeDistance(t *testing.T) {
	tests := []struct {
		name string
		c    *Contract
		temp float64
		want float64
	}{
		{"floor only", &Contract{HaveFloor: true, FloorStrike: 70}, 75, 5},
		{"cap only", &Contract{HaveCap: true, CapStrike: 80}, 75, 5},
		{"between picks nearer", &Contract{HaveFloor: true, FloorStrike: 60, HaveCap: true, CapStrike: 82}, 75, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.c.StrikeDistance(tt.temp)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContract_StrikeDistance_NoStrikes(t *testing.T) {
	c := &Contract{}
	_, ok := c.StrikeDistance(70)
	assert.False(t, ok)
}

func TestDaysAhead(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysAhead(now, now))
	assert.Equal(t, 1, DaysAhead(now.AddDate(0, 0, 1), now))
	assert.Equal(t, 0, DaysAhead(now.AddDate(0, 0, -1), now))
}
