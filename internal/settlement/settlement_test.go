package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSettlementDate_FromTicker(t *testing.T) {
	d, ok := parseSettlementDate("KXHIGHTPHX-26JUL31-T90", "")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC), d)
}

func TestParseSettlementDate_LowercaseMonth(t *testing.T) {
	d, ok := parseSettlementDate("KXHIGHTBOS-27jan05-B60", "")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC), d)
}

func TestParseSettlementDate_FallsBackToTargetDate(t *testing.T) {
	d, ok := parseSettlementDate("NO-MATCHING-PATTERN", "2026-08-01")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestParseSettlementDate_NoMatchReturnsFalse(t *testing.T) {
	_, ok := parseSettlementDate("NOTHING-HERE", "")
	assert.False(t, ok)
}

func TestExtractForecasts_ValidMap(t *testing.T) {
	details := map[string]any{
		"individual_forecasts": map[string]any{"NOAA": 95.0, "OpenMeteo_GFS": 94.5},
	}
	forecasts, ok := extractForecasts(details)
	assert.True(t, ok)
	assert.Equal(t, 95.0, forecasts["NOAA"])
	assert.Equal(t, 94.5, forecasts["OpenMeteo_GFS"])
}

func TestExtractForecasts_MissingKeyReturnsFalse(t *testing.T) {
	_, ok := extractForecasts(map[string]any{})
	assert.False(t, ok)
}
