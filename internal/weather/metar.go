package weather

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
)

// METARClient fetches observed (not forecast) temperatures from the Iowa
// State ASOS archive and reports the observed high for a city/date.
// Settlement does not use it; internal/settlement reads NOAA station
// observations through its own Observer.
type METARClient struct {
	httpClient *http.Client
}

// NewMETARClient returns a METAR client with a bounded request timeout.
func NewMETARClient() *METARClient {
	return &METARClient{httpClient: &http.Client{Timeout: httpTimeout}}
}

// MaxTemp fetches the observed maximum temperature for a station on a
// given date, in degrees Fahrenheit.
func (m *METARClient) MaxTemp(ctx context.Context, city *cities.City, date time.Time) (float64, error) {
	stationID := strings.TrimPrefix(city.Station, "K")

	v := url.Values{}
	v.Set("station", stationID)
	v.Set("data", "tmpf")
	v.Set("year1", fmt.Sprintf("%d", date.Year()))
	v.Set("month1", fmt.Sprintf("%d", int(date.Month())))
	v.Set("day1", fmt.Sprintf("%d", date.Day()))
	v.Set("year2", fmt.Sprintf("%d", date.Year()))
	v.Set("month2", fmt.Sprintf("%d", int(date.Month())))
	v.Set("day2", fmt.Sprintf("%d", date.Day()+1))
	v.Set("tz", "Etc/UTC")
	v.Set("format", "onlycomma")
	v.Set("latlon", "no")
	v.Set("missing", "empty")
	v.Set("trace", "empty")
	v.Set("direct", "no")
	v.Set("report_type", "3")

	reqURL := "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py?" + v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("metar: build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("metar: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("metar: read response: %w", err)
	}

	return parseMaxTemp(stationID, string(body))
}

func parseMaxTemp(stationID, data string) (float64, error) {
	maxTemp := math.Inf(-1)
	found := false

	for _, line := range strings.Split(data, "\n") {
		if !strings.HasPrefix(line, stationID+",") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}

		var temp float64
		if _, err := fmt.Sscanf(parts[2], "%f", &temp); err != nil {
			continue
		}

		found = true
		if temp > maxTemp {
			maxTemp = temp
		}
	}

	if !found {
		return 0, fmt.Errorf("metar: no observations found for station %s", stationID)
	}
	return math.Round(maxTemp), nil
}
