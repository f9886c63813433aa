// Package probability is the statistical core: normal CDF, Bayesian
// log-odds blending, fair-probability calculation, confidence scoring, and
// Kelly position sizing.
package probability

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/config"
)

// StrikeType is the geometry of a contract's settlement condition.
type StrikeType string

const (
	StrikeLess    StrikeType = "less"
	StrikeGreater StrikeType = "greater"
	StrikeBetween StrikeType = "between"
)

// ContractType distinguishes a threshold (-T) contract from a bracket (-B).
type ContractType string

const (
	ContractThreshold ContractType = "threshold"
	ContractBracket   ContractType = "bracket"
	ContractUnknown   ContractType = ""
)

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// MarketAdjustedFair blends a model probability and a market-implied
// probability in log-odds space, weighting the model by modelWeight.
func MarketAdjustedFair(modelP, marketP, modelWeight float64) float64 {
	marketP = clamp(marketP, 0.02, 0.98)
	modelP = clamp(modelP, 0.02, 0.98)

	blended := modelWeight*logit(modelP) + (1-modelWeight)*logit(marketP)
	return invLogit(blended)
}

func logit(p float64) float64    { return math.Log(p / (1 - p)) }
func invLogit(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EnsembleDetails is the subset of ensemble output the confidence and fair
// probability calculations consume.
type EnsembleDetails struct {
	ProviderCount       int
	IndividualForecasts map[string]float64
}

// ConfidenceScore scores agreement/count of an ensemble's provider forecasts
// on a 0-1 scale.
func ConfidenceScore(details *EnsembleDetails) float64 {
	if details == nil || details.ProviderCount < config.MinProviderCount {
		return 0.0
	}

	individual := details.IndividualForecasts
	if len(individual) < 2 {
		return 0.7 // single-provider base confidence
	}

	forecasts := make([]float64, 0, len(individual))
	for _, f := range individual {
		forecasts = append(forecasts, f)
	}

	var sum float64
	for _, f := range forecasts {
		sum += f
	}
	mean := sum / float64(len(forecasts))

	var sqDiff float64
	for _, f := range forecasts {
		d := f - mean
		sqDiff += d * d
	}
	stdDev := math.Sqrt(sqDiff / float64(len(forecasts)))

	agreementScore := math.Max(0.5, 1.0-(stdDev/5.0))
	providerScore := math.Min(1.0, float64(len(individual))/3.0)
	raw := agreementScore*0.7 + providerScore*0.3
	return clamp(raw, 0.0, 1.0)
}

// FairProbabilityInput bundles the parameters needed for FairProbability.
type FairProbabilityInput struct {
	ForecastTemp    float64
	HaveForecast    bool
	Details         *EnsembleDetails
	FloorStrike     float64
	CapStrike       float64
	City            *cities.City
	TargetDate      time.Time
	HaveTargetDate  bool
	DefaultStdDev   float64
	DaysAhead       int
	StrikeType      StrikeType
}

// FairProbability computes a CDF-based fair value for a weather contract,
// using city x season std-dev, lead-time decay, and the strike geometry.
func FairProbability(in FairProbabilityInput) float64 {
	if !in.HaveForecast {
		return 0.5
	}

	std := in.DefaultStdDev
	if std == 0 {
		std = config.ForecastStdDev
	}
	if in.City != nil && in.HaveTargetDate {
		std = in.City.StdDev(in.TargetDate, std)
	}

	confidence := ConfidenceScore(in.Details)

	var decay float64
	switch {
	case in.DaysAhead == 0:
		decay = 0.5
	case in.DaysAhead == 1:
		decay = 0.75
	default:
		decay = 1.0 + 0.35*float64(in.DaysAhead-1)
	}

	confidenceMult := 1.2 - 0.2*confidence
	adjustedStd := std * confidenceMult * decay
	if adjustedStd <= 0 {
		adjustedStd = 1.0
	}

	switch in.StrikeType {
	case StrikeLess:
		return NormalCDF((in.CapStrike - in.ForecastTemp) / adjustedStd)
	case StrikeGreater:
		return 1.0 - NormalCDF((in.FloorStrike-in.ForecastTemp)/adjustedStd)
	case StrikeBetween:
		z1 := (in.FloorStrike - in.ForecastTemp) / adjustedStd
		z2 := (in.CapStrike - in.ForecastTemp) / adjustedStd
		return NormalCDF(z2) - NormalCDF(z1)
	default:
		return 0.5
	}
}

// KellySize computes quarter-Kelly position sizing for a binary contract,
// returning the number of contracts to buy (capped by MaxContracts).
func KellySize(fairP float64, marketPriceCents, bankrollCents int, fraction float64) int {
	if fairP <= 0 || fairP >= 1 || marketPriceCents <= 0 {
		return 0
	}

	cost := float64(marketPriceCents)
	payout := 100 - cost
	b := payout / cost
	q := 1 - fairP

	fStar := (fairP*b - q) / b
	fSafe := math.Max(0, fStar*fraction)

	maxContracts := int((float64(bankrollCents) * fSafe) / cost)
	if maxContracts < 0 {
		maxContracts = 0
	}
	if maxContracts > config.MaxContracts {
		maxContracts = config.MaxContracts
	}
	return maxContracts
}

// DetectContractType reports whether a ticker is a threshold (-T) or
// bracket (-B) contract.
func DetectContractType(ticker string) ContractType {
	if strings.Contains(ticker, "-T") {
		return ContractThreshold
	}
	if strings.Contains(ticker, "-B") {
		return ContractBracket
	}
	return ContractUnknown
}

var monthMap = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var eventDateRe = regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*\s+(\d+)`)

// ParseEventDate parses the target date out of an event title, e.g.
// "Highest temperature in Phoenix on Jan 15?". Returns the zero time and
// false if no date could be determined.
func ParseEventDate(title string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(title)

	if m := eventDateRe.FindStringSubmatch(lower); m != nil {
		if month, ok := monthMap[m[1][:3]]; ok {
			day, err := strconv.Atoi(m[2])
			if err == nil {
				year := now.Year()
				if month < now.Month() {
					year++
				}
				t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
				if t.Month() == month { // guards against e.g. Feb 30 rolling over
					return t, true
				}
			}
		}
	}

	if strings.Contains(lower, "today") {
		return now, true
	}
	if strings.Contains(lower, "tomorrow") {
		return now.AddDate(0, 0, 1), true
	}
	return time.Time{}, false
}
