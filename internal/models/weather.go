package models

import "strings"

// rainThresholdMM is the precipitation floor above which current weather is
// treated as raining, independent of the condition text.
const rainThresholdMM = 0.1

// HourlyForecast is a single point in the short-range hourly forecast.
type HourlyForecast struct {
	Label       string `json:"label"` // e.g. "19:00"
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
}

// WeatherSnapshot holds current conditions plus a short hourly forecast.
// IsRaining and IsOutdoorFriendly are derived once at fetch time from the
// condition text and precipitation reading, not re-derived per use.
type WeatherSnapshot struct {
	Temperature       int              `json:"temperature"` // °C
	Condition         string           `json:"condition"`
	IsRaining         bool             `json:"is_raining"`
	IsOutdoorFriendly bool             `json:"is_outdoor_friendly"`
	Hourly            []HourlyForecast `json:"hourly,omitempty"`
}

var rainKeywords = []string{"rain", "drizzle", "shower", "storm", "sleet"}

var fairKeywords = []string{"clear", "sun", "fair", "partly cloudy"}

// NewWeatherSnapshot builds a snapshot and derives the IsRaining and
// IsOutdoorFriendly booleans from condition keywords and precipitation.
func NewWeatherSnapshot(temperature int, condition string, precipitationMM float64, hourly []HourlyForecast) *WeatherSnapshot {
	lower := strings.ToLower(condition)

	raining := precipitationMM > rainThresholdMM
	for _, kw := range rainKeywords {
		if strings.Contains(lower, kw) {
			raining = true
			break
		}
	}

	outdoorFriendly := false
	if !raining && temperature >= 12 {
		for _, kw := range fairKeywords {
			if strings.Contains(lower, kw) {
				outdoorFriendly = true
				break
			}
		}
	}

	return &WeatherSnapshot{
		Temperature:       temperature,
		Condition:         condition,
		IsRaining:         raining,
		IsOutdoorFriendly: outdoorFriendly,
		Hourly:            hourly,
	}
}
