// Package cities is the registry of tradeable cities: location, NOAA grid
// coordinates, METAR station, correlation group, and seasonal standard
// deviations used by the probability engine.
package cities

import "time"

// Season names used by the per-city standard-deviation table.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
)

// City describes one tradeable market city.
type City struct {
	Code     string // short code, e.g. "PHX"
	Name     string // display name, e.g. "Phoenix"
	Lat      float64
	Lon      float64
	NOAAOffice string
	NOAAGridX  int
	NOAAGridY  int
	Timezone   string // IANA timezone
	Station    string // METAR station id, e.g. "KPHX"
	Series     string // Kalshi series ticker, e.g. "KXHIGHTPHX"

	stdDev map[Season]float64
}

// Registry is the set of all tradeable cities, keyed by short code.
var Registry = map[string]*City{
	"PHX": {
		Code: "PHX", Name: "Phoenix", Lat: 33.4484, Lon: -112.0740,
		NOAAOffice: "PSR", NOAAGridX: 162, NOAAGridY: 57,
		Timezone: "America/Phoenix", Station: "KPHX", Series: "KXHIGHTPHX",
		stdDev: map[Season]float64{Winter: 0.9, Spring: 1.1, Summer: 0.8, Fall: 0.9},
	},
	"SFO": {
		Code: "SFO", Name: "San Francisco", Lat: 37.7749, Lon: -122.4194,
		NOAAOffice: "MTR", NOAAGridX: 85, NOAAGridY: 105,
		Timezone: "America/Los_Angeles", Station: "KSFO", Series: "KXHIGHTSFO",
		stdDev: map[Season]float64{Winter: 1.3, Spring: 1.5, Summer: 1.1, Fall: 1.3},
	},
	"SEA": {
		Code: "SEA", Name: "Seattle", Lat: 47.6062, Lon: -122.3321,
		NOAAOffice: "SEW", NOAAGridX: 124, NOAAGridY: 67,
		Timezone: "America/Los_Angeles", Station: "KSEA", Series: "KXHIGHTSEA",
		stdDev: map[Season]float64{Winter: 1.6, Spring: 1.5, Summer: 0.9, Fall: 1.5},
	},
	"DC": {
		Code: "DC", Name: "Washington DC", Lat: 38.9072, Lon: -77.0369,
		NOAAOffice: "LWX", NOAAGridX: 96, NOAAGridY: 70,
		Timezone: "America/New_York", Station: "KDCA", Series: "KXHIGHTDC",
		stdDev: map[Season]float64{Winter: 1.5, Spring: 1.3, Summer: 1.1, Fall: 1.3},
	},
	"HOU": {
		Code: "HOU", Name: "Houston", Lat: 29.7604, Lon: -95.3698,
		NOAAOffice: "HGX", NOAAGridX: 65, NOAAGridY: 97,
		Timezone: "America/Chicago", Station: "KIAH", Series: "KXHIGHTHOU",
		stdDev: map[Season]float64{Winter: 1.3, Spring: 1.1, Summer: 0.9, Fall: 1.1},
	},
	"NOLA": {
		Code: "NOLA", Name: "New Orleans", Lat: 29.9511, Lon: -90.0715,
		NOAAOffice: "LIX", NOAAGridX: 76, NOAAGridY: 72,
		Timezone: "America/Chicago", Station: "KMSY", Series: "KXHIGHTNOLA",
		stdDev: map[Season]float64{Winter: 1.3, Spring: 1.1, Summer: 0.9, Fall: 1.1},
	},
	"DAL": {
		Code: "DAL", Name: "Dallas", Lat: 32.7767, Lon: -96.7970,
		NOAAOffice: "FWD", NOAAGridX: 80, NOAAGridY: 108,
		Timezone: "America/Chicago", Station: "KDFW", Series: "KXHIGHTDAL",
		stdDev: map[Season]float64{Winter: 1.5, Spring: 1.3, Summer: 0.9, Fall: 1.3},
	},
	"BOS": {
		Code: "BOS", Name: "Boston", Lat: 42.3601, Lon: -71.0589,
		NOAAOffice: "BOX", NOAAGridX: 70, NOAAGridY: 76,
		Timezone: "America/New_York", Station: "KBOS", Series: "KXHIGHTBOS",
		stdDev: map[Season]float64{Winter: 1.5, Spring: 1.3, Summer: 1.1, Fall: 1.3},
	},
	"OKC": {
		Code: "OKC", Name: "Oklahoma City", Lat: 35.4676, Lon: -97.5164,
		NOAAOffice: "OUN", NOAAGridX: 41, NOAAGridY: 48,
		Timezone: "America/Chicago", Station: "KOKC", Series: "KXHIGHTOKC",
		stdDev: map[Season]float64{Winter: 1.6, Spring: 1.5, Summer: 1.1, Fall: 1.5},
	},
	"ATL": {
		Code: "ATL", Name: "Atlanta", Lat: 33.7490, Lon: -84.3880,
		NOAAOffice: "FFC", NOAAGridX: 52, NOAAGridY: 88,
		Timezone: "America/New_York", Station: "KATL", Series: "KXHIGHTATL",
		stdDev: map[Season]float64{Winter: 1.3, Spring: 1.1, Summer: 0.9, Fall: 1.1},
	},
	"MIN": {
		Code: "MIN", Name: "Minneapolis", Lat: 44.9778, Lon: -93.2650,
		NOAAOffice: "MPX", NOAAGridX: 107, NOAAGridY: 71,
		Timezone: "America/Chicago", Station: "KMSP", Series: "KXHIGHTMIN",
		stdDev: map[Season]float64{Winter: 2.0, Spring: 1.6, Summer: 1.1, Fall: 1.5},
	},
}

// CorrelationGroups maps a group name to the cities whose weather outcomes
// move together, used to cap simultaneous same-day exposure.
var CorrelationGroups = map[string][]string{
	"gulf_south":     {"HOU", "NOLA", "DAL", "OKC"},
	"northeast":      {"BOS", "DC"},
	"pacific":        {"SEA", "SFO"},
	"southeast":      {"ATL"},
	"desert":         {"PHX"},
	"north_central":  {"MIN"},
}

// ModelBias holds known per-provider, per-city forecast biases in degrees F;
// positive means the model tends to run warm. Subtracted from that
// provider's raw forecast before blending.
var ModelBias = map[[2]string]float64{
	{"NOAA", "PHX"}:           0.0,
	{"OpenMeteo_GFS", "PHX"}:  0.5,
	{"OpenMeteo_GFS", "BOS"}:  1.0,
	{"OpenMeteo_ICON", "HOU"}: -0.8,
}

// Get returns the city for a short code, or nil if unknown.
func Get(code string) *City {
	return Registry[code]
}

// All returns every registered city.
func All() []*City {
	out := make([]*City, 0, len(Registry))
	for _, c := range Registry {
		out = append(out, c)
	}
	return out
}

// ByEventPrefix returns the city whose series ticker is a prefix of the
// given event ticker, or nil if none matches.
func ByEventPrefix(eventTicker string) *City {
	for _, c := range Registry {
		if len(eventTicker) >= len(c.Series) && eventTicker[:len(c.Series)] == c.Series {
			return c
		}
	}
	return nil
}

// GetSeason returns the meteorological season for a given date.
func GetSeason(t time.Time) Season {
	switch t.Month() {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	default:
		return Fall
	}
}

// StdDev returns the city's standard deviation for the season of the given
// date, falling back to the provided default when no city-specific value is
// known for that season.
func (c *City) StdDev(date time.Time, fallback float64) float64 {
	if c == nil {
		return fallback
	}
	if v, ok := c.stdDev[GetSeason(date)]; ok {
		return v
	}
	return fallback
}

// CorrelationGroup returns the correlation group a city belongs to, or its
// own code if it is not grouped with any other city.
func CorrelationGroup(code string) string {
	for group, members := range CorrelationGroups {
		for _, m := range members {
			if m == code {
				return group
			}
		}
	}
	return code
}

// Bias returns the known forecast bias for a provider/city pair.
func Bias(provider, city string) float64 {
	return ModelBias[[2]string{provider, city}]
}

// Location returns the timezone-aware location for the city.
func (c *City) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventTicker returns the Kalshi event ticker for this city on the given date.
func (c *City) EventTicker(date time.Time) string {
	return c.Series + "-" + date.Format("06Jan02")
}
