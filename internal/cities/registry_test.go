package cities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	c := Get("PHX")
	require.NotNil(t, c)
	assert.Equal(t, "Phoenix", c.Name)
	assert.Equal(t, "KPHX", c.Station)

	assert.Nil(t, Get("XXX"))
}

func TestAll(t *testing.T) {
	assert.Len(t, All(), 11)
}

func TestGetSeason(t *testing.T) {
	cases := []struct {
		month time.Month
		want  Season
	}{
		{time.January, Winter},
		{time.April, Spring},
		{time.July, Summer},
		{time.October, Fall},
	}
	for _, tc := range cases {
		d := time.Date(2026, tc.month, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.want, GetSeason(d))
	}
}

func TestStdDev(t *testing.T) {
	c := Get("MIN")
	require.NotNil(t, c)
	winter := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2.0, c.StdDev(winter, 1.1))

	var nilCity *City
	assert.Equal(t, 1.1, nilCity.StdDev(winter, 1.1))
}

func TestCorrelationGroup(t *testing.T) {
	assert.Equal(t, "gulf_south", CorrelationGroup("HOU"))
	assert.Equal(t, "desert", CorrelationGroup("PHX"))
	assert.Equal(t, "ZZZ", CorrelationGroup("ZZZ"))
}

func TestBias(t *testing.T) {
	assert.Equal(t, 0.5, Bias("OpenMeteo_GFS", "PHX"))
	assert.Equal(t, 0.0, Bias("unknown", "PHX"))
}

func TestEventTicker(t *testing.T) {
	c := Get("PHX")
	require.NotNil(t, c)
	d := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "KXHIGHTPHX-26Jan15", c.EventTicker(d))
}

func TestByEventPrefix(t *testing.T) {
	c := ByEventPrefix("KXHIGHTPHX-26Jan15")
	require.NotNil(t, c)
	assert.Equal(t, "PHX", c.Code)

	assert.Nil(t, ByEventPrefix("NOMATCH-26Jan15"))
}
