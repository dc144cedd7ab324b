// Package weather provides current conditions and a short hourly forecast
// from the Open-Meteo API. The provider needs no API key; any failure is
// reported to the caller, who treats a missing snapshot as neutral weather.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/nightowl-app/nightowl/internal/models"
)

// forecastHours bounds the hourly forecast attached to a snapshot.
const forecastHours = 6

// Client fetches weather from the Open-Meteo forecast API.
type Client struct {
	apiBaseURL string
	latitude   float64
	longitude  float64
	httpClient *http.Client
}

// NewClient creates a weather client for a fixed location.
func NewClient(apiBaseURL string, latitude, longitude float64, timeout time.Duration) *Client {
	return &Client{
		apiBaseURL: apiBaseURL,
		latitude:   latitude,
		longitude:  longitude,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// forecastResponse mirrors the subset of the Open-Meteo response we consume.
type forecastResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		WeatherCode []int     `json:"weather_code"`
	} `json:"hourly"`
}

// Current fetches the current conditions plus the next few hours of forecast.
func (c *Client) Current(ctx context.Context) (*models.WeatherSnapshot, error) {
	url := fmt.Sprintf(
		"%s/forecast?latitude=%.4f&longitude=%.4f&current=temperature_2m,precipitation,weather_code&hourly=temperature_2m,weather_code&forecast_hours=%d&timezone=auto",
		c.apiBaseURL, c.latitude, c.longitude, forecastHours,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	hourly := make([]models.HourlyForecast, 0, len(fr.Hourly.Time))
	for i, label := range fr.Hourly.Time {
		if i >= len(fr.Hourly.Temperature) || i >= len(fr.Hourly.WeatherCode) {
			break
		}
		// Open-Meteo hourly labels are ISO timestamps like "2025-01-02T19:00".
		if len(label) >= 16 {
			label = label[11:16]
		}
		hourly = append(hourly, models.HourlyForecast{
			Label:       label,
			Temperature: int(math.Round(fr.Hourly.Temperature[i])),
			Condition:   conditionForCode(fr.Hourly.WeatherCode[i]),
		})
	}

	snapshot := models.NewWeatherSnapshot(
		int(math.Round(fr.Current.Temperature)),
		conditionForCode(fr.Current.WeatherCode),
		fr.Current.Precipitation,
		hourly,
	)
	return snapshot, nil
}

// conditionForCode maps WMO weather codes to condition text. The text feeds
// the keyword-based rain/outdoor derivation, so wording matters.
func conditionForCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code == 1:
		return "Mainly clear"
	case code == 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
