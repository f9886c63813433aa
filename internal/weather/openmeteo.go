package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
)

// OpenMeteoProvider fetches daily max-temperature forecasts from one of
// Open-Meteo's free model endpoints (GFS, ICON, ECMWF, GEM). The models
// share an identical request/response shape and differ only by base URL
// and ensemble name, so one struct serves all four.
type OpenMeteoProvider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newOpenMeteoProvider(name, path string) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:       name,
		baseURL:    "https://api.open-meteo.com/v1/" + path,
		httpClient: &http.Client{Timeout: httpTimeout},
		limiter:    rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
	}
}

// NewOpenMeteoGFS returns the Open-Meteo GFS (US) model provider.
func NewOpenMeteoGFS() *OpenMeteoProvider { return newOpenMeteoProvider("OpenMeteo_GFS", "gfs") }

// NewOpenMeteoICON returns the Open-Meteo DWD ICON (EU) model provider.
func NewOpenMeteoICON() *OpenMeteoProvider { return newOpenMeteoProvider("OpenMeteo_ICON", "dwd-icon") }

// NewOpenMeteoECMWF returns the Open-Meteo ECMWF IFS model provider.
func NewOpenMeteoECMWF() *OpenMeteoProvider { return newOpenMeteoProvider("OpenMeteo_ECMWF", "ecmwf") }

// NewOpenMeteoGEM returns the Open-Meteo GEM (Canadian) model provider.
func NewOpenMeteoGEM() *OpenMeteoProvider { return newOpenMeteoProvider("OpenMeteo_GEM", "gem") }

func (p *OpenMeteoProvider) Name() string { return p.name }

type openMeteoResponse struct {
	Daily struct {
		TemperatureMax []*float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}

// ForecastHigh returns the modeled daily max temperature for the target date.
func (p *OpenMeteoProvider) ForecastHigh(ctx context.Context, city *cities.City, targetDate time.Time) (float64, bool, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}

	dateStr := targetDate.Format("2006-01-02")
	v := url.Values{}
	v.Set("latitude", fmt.Sprintf("%f", city.Lat))
	v.Set("longitude", fmt.Sprintf("%f", city.Lon))
	v.Set("daily", "temperature_2m_max")
	v.Set("temperature_unit", "fahrenheit")
	v.Set("start_date", dateStr)
	v.Set("end_date", dateStr)
	v.Set("timezone", city.Timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+v.Encode(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("%s: build request: %w", p.name, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("%s: request: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode, string(body))
	}

	var data openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, false, fmt.Errorf("%s: decode response: %w", p.name, err)
	}

	if len(data.Daily.TemperatureMax) == 0 || data.Daily.TemperatureMax[0] == nil {
		return 0, false, nil
	}
	return *data.Daily.TemperatureMax[0], true, nil
}
