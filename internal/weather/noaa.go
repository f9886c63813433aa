package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/cities"
)

// NOAAProvider fetches forecasts from the National Weather Service gridpoint
// API. It is treated as the gold-standard provider for US cities and
// carries the heaviest ensemble weight by convention.
type NOAAProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu             sync.Mutex
	lastUpdateTime time.Time
	haveUpdateTime bool
}

// NewNOAAProvider returns a NOAA gridpoint-forecast provider.
func NewNOAAProvider() *NOAAProvider {
	return &NOAAProvider{
		baseURL:    "https://api.weather.gov",
		httpClient: &http.Client{Timeout: httpTimeout},
		limiter:    rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
	}
}

func (p *NOAAProvider) Name() string { return "NOAA" }

type noaaResponse struct {
	Properties struct {
		UpdateTime string `json:"updateTime"`
		Periods    []struct {
			IsDaytime       bool    `json:"isDaytime"`
			StartTime       string  `json:"startTime"`
			Temperature     float64 `json:"temperature"`
			TemperatureUnit string  `json:"temperatureUnit"`
		} `json:"periods"`
	} `json:"properties"`
}

// ForecastHigh returns the NOAA daytime high forecast for the target date.
func (p *NOAAProvider) ForecastHigh(ctx context.Context, city *cities.City, targetDate time.Time) (float64, bool, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}

	url := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast", p.baseURL, city.NOAAOffice, city.NOAAGridX, city.NOAAGridY)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false, fmt.Errorf("noaa: build request: %w", err)
	}
	req.Header.Set("User-Agent", "weatherd/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("noaa: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("noaa: status %d: %s", resp.StatusCode, string(body))
	}

	var data noaaResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, false, fmt.Errorf("noaa: decode response: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, data.Properties.UpdateTime); err == nil {
		p.mu.Lock()
		p.lastUpdateTime = t
		p.haveUpdateTime = true
		p.mu.Unlock()
	}

	targetDateStr := targetDate.Format("2006-01-02")
	for _, period := range data.Properties.Periods {
		if !period.IsDaytime {
			continue
		}
		periodTime, err := time.Parse(time.RFC3339, period.StartTime)
		if err != nil {
			continue
		}
		if periodTime.Format("2006-01-02") != targetDateStr {
			continue
		}

		temp := period.Temperature
		if period.TemperatureUnit == "C" {
			temp = temp*9/5 + 32
		}
		return temp, true, nil
	}

	return 0, false, nil
}

// UpdateAge returns how long ago the last successful NOAA response reported
// its forecast as updated, used to detect a stale forecast product.
func (p *NOAAProvider) UpdateAge(now time.Time) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.haveUpdateTime {
		return 0, false
	}
	return now.Sub(p.lastUpdateTime), true
}
