package config

// Trading-parameter defaults. These are compile-time constants rather than
// env-configurable values, mirroring how the upstream bot pins them.
const (
	MaxContracts      = 8
	MaxCostPerTrade   = 500 // cents
	MaxOpenPositions  = 20
	MaxDailyTrades    = 40
	MinVolume         = 10
	ForecastStdDev    = 1.1 // baseline forecast RMSE, degrees F
	MinProviderCount  = 1
	MaxLogLines       = 200
	MaxEdgeCents      = 60 // edge sanity cap
	MaxSpread         = 30 // max yes_ask - yes_bid before skipping a market
	NOAAStaleHours    = 6
	NOAAStalePenalty  = 0.5

	MaxPerGroup                  = 2
	MaxPerCityDate                = 1
	MaxDailyLossCents             = 500
	MaxWeeklyLossCents            = 1000
	CircuitBreakerAlertIntervalS = 3600
)

// TradingParams holds the filter thresholds that differ between paper and
// live trading. Paper mode loosens filters deliberately, to generate enough
// volume to evaluate the model before real capital is at risk.
type TradingParams struct {
	MinEdgeCents        int
	MinYesPrice         int
	MinNoPrice          int
	MinConfidenceScore  float64
	ModelWeight         float64
	MaxDisagreementCents int
	MaxFairMarketRatio   float64
}

// Params returns the trading parameters for the given mode.
func Params(paper bool) TradingParams {
	if paper {
		return TradingParams{
			MinEdgeCents:         10,
			MinYesPrice:          5,
			MinNoPrice:           5,
			MinConfidenceScore:   0.5,
			ModelWeight:          0.3,
			MaxDisagreementCents: 40,
			MaxFairMarketRatio:   3.5,
		}
	}
	return TradingParams{
		MinEdgeCents:         15,
		MinYesPrice:          15,
		MinNoPrice:           15,
		MinConfidenceScore:   0.6,
		ModelWeight:          0.3,
		MaxDisagreementCents: 25,
		MaxFairMarketRatio:   3.0,
	}
}
