// Package market turns raw Kalshi markets and events into typed
// temperature contracts: strike geometry, target date, and days-ahead.
package market

import (
	"fmt"
	"time"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/probability"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

// Contract is one tradeable temperature market, with its strike geometry
// resolved and its type (threshold vs bracket) detected from the ticker.
type Contract struct {
	Ticker      string
	EventTicker string
	Title       string
	ContractType probability.ContractType
	StrikeType  probability.StrikeType
	FloorStrike float64
	HaveFloor   bool
	CapStrike   float64
	HaveCap     bool
	YesAsk      int
	YesBid      int
	Volume      int
}

// ErrInvalidStrikes is returned when a market has neither a floor nor a cap
// strike, or an unrecognized strike_type.
var ErrInvalidStrikes = fmt.Errorf("market: invalid or missing strike data")

// ParseContract validates and converts a raw market into a Contract.
func ParseContract(m rest.Market, eventTicker string) (*Contract, error) {
	if m.FloorStrike == nil && m.CapStrike == nil {
		return nil, ErrInvalidStrikes
	}

	var strikeType probability.StrikeType
	switch m.StrikeType {
	case "less":
		strikeType = probability.StrikeLess
	case "greater":
		strikeType = probability.StrikeGreater
	case "between":
		strikeType = probability.StrikeBetween
	default:
		return nil, ErrInvalidStrikes
	}

	c := &Contract{
		Ticker:       m.Ticker,
		EventTicker:  eventTicker,
		Title:        m.Title,
		ContractType: probability.DetectContractType(m.Ticker),
		StrikeType:   strikeType,
		YesAsk:       m.YesAsk,
		YesBid:       m.YesBid,
		Volume:       m.Volume,
	}
	if m.FloorStrike != nil {
		c.FloorStrike = *m.FloorStrike
		c.HaveFloor = true
	}
	if m.CapStrike != nil {
		c.CapStrike = *m.CapStrike
		c.HaveCap = true
	}
	return c, nil
}

// Spread is the yes_ask - yes_bid cents spread, or 0 if either side is
// unquoted (a zero-priced side means there's no two-sided market yet).
func (c *Contract) Spread() int {
	if c.YesAsk > 0 && c.YesBid > 0 {
		return c.YesAsk - c.YesBid
	}
	return 0
}

// HalfSpread is half the bid/ask spread in cents, used to haircut edge for
// the cost of crossing the spread.
func (c *Contract) HalfSpread() float64 {
	if c.YesAsk > 0 && c.YesBid > 0 {
		return float64(c.YesAsk-c.YesBid) / 2
	}
	return 0
}

// StrikeDistance is the distance in degrees from a forecast temperature to
// the nearest strike boundary, used to avoid trading markets whose outcome
// is too close to call from the forecast alone.
func (c *Contract) StrikeDistance(forecastTemp float64) (float64, bool) {
	switch {
	case c.HaveFloor && c.HaveCap:
		df := abs(forecastTemp - c.FloorStrike)
		dc := abs(forecastTemp - c.CapStrike)
		if df < dc {
			return df, true
		}
		return dc, true
	case c.HaveCap:
		return abs(forecastTemp - c.CapStrike), true
	case c.HaveFloor:
		return abs(forecastTemp - c.FloorStrike), true
	default:
		return 0, false
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// TargetDate resolves the event's settlement date from its title, relative
// to now.
func TargetDate(eventTitle string, now time.Time) (time.Time, bool) {
	return probability.ParseEventDate(eventTitle, now)
}

// DaysAhead returns the non-negative number of calendar days between now
// and the target date.
func DaysAhead(targetDate, now time.Time) int {
	days := int(targetDate.Truncate(24*time.Hour).Sub(now.Truncate(24*time.Hour)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
