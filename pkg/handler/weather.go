package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"portfolio/pkg/cache"
	"portfolio/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

const (
	geocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL = "https://api.open-meteo.com/v1/forecast"

	geocodeTTL  = 24 * time.Hour
	currentTTL  = 10 * time.Minute
	forecastTTL = 30 * time.Minute
)

// wmoCondition describes a WMO weather code for the dashboard.
type wmoCondition struct {
	Text  string `json:"text"`
	Theme string `json:"theme"`
	Icon  string `json:"icon"`
}

// wmoCodes maps WMO weather interpretation codes to display conditions.
var wmoCodes = map[int]wmoCondition{
	0:  {"Clear sky", "sunny", "sun"},
	1:  {"Mainly clear", "sunny", "sun"},
	2:  {"Partly cloudy", "cloudy", "cloud-sun"},
	3:  {"Overcast", "cloudy", "cloud"},
	45: {"Foggy", "foggy", "smog"},
	48: {"Depositing rime fog", "foggy", "smog"},
	51: {"Light drizzle", "rainy", "cloud-rain"},
	53: {"Moderate drizzle", "rainy", "cloud-rain"},
	55: {"Dense drizzle", "rainy", "cloud-showers-heavy"},
	56: {"Freezing drizzle", "rainy", "cloud-rain"},
	57: {"Dense freezing drizzle", "rainy", "cloud-showers-heavy"},
	61: {"Slight rain", "rainy", "cloud-rain"},
	63: {"Moderate rain", "rainy", "cloud-rain"},
	65: {"Heavy rain", "stormy", "cloud-showers-heavy"},
	66: {"Freezing rain", "rainy", "cloud-rain"},
	67: {"Heavy freezing rain", "stormy", "cloud-showers-heavy"},
	71: {"Slight snow", "snowy", "snowflake"},
	73: {"Moderate snow", "snowy", "snowflake"},
	75: {"Heavy snow", "snowy", "snowflake"},
	77: {"Snow grains", "snowy", "snowflake"},
	80: {"Slight rain showers", "rainy", "cloud-sun-rain"},
	81: {"Moderate rain showers", "rainy", "cloud-rain"},
	82: {"Violent rain showers", "stormy", "cloud-showers-heavy"},
	85: {"Slight snow showers", "snowy", "snowflake"},
	86: {"Heavy snow showers", "snowy", "snowflake"},
	95: {"Thunderstorm", "stormy", "bolt"},
	96: {"Thunderstorm with hail", "stormy", "bolt"},
	99: {"Thunderstorm with heavy hail", "stormy", "bolt"},
}

func conditionFor(code int) wmoCondition {
	if cond, ok := wmoCodes[code]; ok {
		return cond
	}
	return wmoCodes[0]
}

// Weather serves the weather dashboard API against Open-Meteo, memoizing
// every upstream lookup in the TTL cache.
type Weather struct {
	cache      cache.Store
	httpClient *http.Client
	geocodeURL string
	weatherURL string
}

// NewWeather creates the handler backed by the given cache store.
func NewWeather(store cache.Store) *Weather {
	return &Weather{
		cache:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		geocodeURL: geocodeURL,
		weatherURL: forecastURL,
	}
}

// Register attaches the weather routes to the given group.
func (h *Weather) Register(rg *gin.RouterGroup, limiter *ratelimit.Limiter) {
	api := rg.Group("/api", limiter.Middleware(30, time.Minute))
	api.GET("/geocode", h.apiGeocode)
	api.GET("/current", h.apiCurrent)
	api.GET("/forecast", h.apiForecast)
}

type geocodeResult struct {
	Name     string  `json:"name"`
	Country  string  `json:"country"`
	Admin1   string  `json:"admin1"` // State/province
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// apiGeocode converts a city name to candidate coordinates.
func (h *Weather) apiGeocode(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "City parameter required"})
		return
	}

	key := "geocode:" + url.QueryEscape(city)
	results, err := cache.Memoize(c.Request.Context(), h.cache, key, geocodeTTL,
		func(ctx context.Context) ([]geocodeResult, error) {
			return h.geocode(ctx, city)
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Geocoding failed"})
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Weather) geocode(ctx context.Context, city string) ([]geocodeResult, error) {
	params := url.Values{
		"name":     {city},
		"count":    {"5"},
		"language": {"en"},
		"format":   {"json"},
	}

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Admin1    string  `json:"admin1"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Timezone  string  `json:"timezone"`
		} `json:"results"`
	}
	if err := h.fetchJSON(ctx, h.geocodeURL, params, &payload); err != nil {
		return nil, err
	}

	results := make([]geocodeResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, geocodeResult{
			Name:     r.Name,
			Country:  r.Country,
			Admin1:   r.Admin1,
			Lat:      r.Latitude,
			Lon:      r.Longitude,
			Timezone: r.Timezone,
		})
	}
	return results, nil
}

// apiCurrent returns current conditions for coordinates.
func (h *Weather) apiCurrent(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	key := fmt.Sprintf("current:%.2f:%.2f", lat, lon)
	result, err := cache.Memoize(c.Request.Context(), h.cache, key, currentTTL,
		func(ctx context.Context) (map[string]any, error) {
			return h.current(ctx, lat, lon)
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Weather fetch failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Weather) current(ctx context.Context, lat, lon float64) (map[string]any, error) {
	params := url.Values{
		"latitude":  {formatCoord(lat)},
		"longitude": {formatCoord(lon)},
		"current":   {"temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m,precipitation"},
		"timezone":  {"auto"},
	}

	var payload struct {
		Timezone string `json:"timezone"`
		Current  struct {
			Time          string   `json:"time"`
			Temperature   *float64 `json:"temperature_2m"`
			Humidity      *float64 `json:"relative_humidity_2m"`
			FeelsLike     *float64 `json:"apparent_temperature"`
			WeatherCode   int      `json:"weather_code"`
			WindSpeed     *float64 `json:"wind_speed_10m"`
			WindDirection *float64 `json:"wind_direction_10m"`
			Precipitation *float64 `json:"precipitation"`
		} `json:"current"`
	}
	if err := h.fetchJSON(ctx, h.weatherURL, params, &payload); err != nil {
		return nil, err
	}

	cond := conditionFor(payload.Current.WeatherCode)
	return map[string]any{
		"temperature":    payload.Current.Temperature,
		"feels_like":     payload.Current.FeelsLike,
		"humidity":       payload.Current.Humidity,
		"wind_speed":     payload.Current.WindSpeed,
		"wind_direction": payload.Current.WindDirection,
		"precipitation":  payload.Current.Precipitation,
		"weather_code":   payload.Current.WeatherCode,
		"weather_text":   cond.Text,
		"weather_theme":  cond.Theme,
		"weather_icon":   cond.Icon,
		"timezone":       payload.Timezone,
		"time":           payload.Current.Time,
	}, nil
}

// apiForecast returns the 7-day forecast for coordinates.
func (h *Weather) apiForecast(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	key := fmt.Sprintf("forecast:%.2f:%.2f", lat, lon)
	result, err := cache.Memoize(c.Request.Context(), h.cache, key, forecastTTL,
		func(ctx context.Context) (map[string]any, error) {
			return h.forecast(ctx, lat, lon)
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Forecast fetch failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Weather) forecast(ctx context.Context, lat, lon float64) (map[string]any, error) {
	params := url.Values{
		"latitude":  {formatCoord(lat)},
		"longitude": {formatCoord(lon)},
		"daily":     {"temperature_2m_max,temperature_2m_min,weather_code,precipitation_probability_max,precipitation_sum,wind_speed_10m_max"},
		"timezone":  {"auto"},
	}

	var payload struct {
		Timezone string `json:"timezone"`
		Daily    struct {
			Time          []string   `json:"time"`
			TempMax       []*float64 `json:"temperature_2m_max"`
			TempMin       []*float64 `json:"temperature_2m_min"`
			WeatherCode   []int      `json:"weather_code"`
			PrecipProbMax []*float64 `json:"precipitation_probability_max"`
			PrecipSum     []*float64 `json:"precipitation_sum"`
			WindSpeedMax  []*float64 `json:"wind_speed_10m_max"`
		} `json:"daily"`
	}
	if err := h.fetchJSON(ctx, h.weatherURL, params, &payload); err != nil {
		return nil, err
	}

	days := make([]map[string]any, 0, len(payload.Daily.Time))
	for i, date := range payload.Daily.Time {
		code := 0
		if i < len(payload.Daily.WeatherCode) {
			code = payload.Daily.WeatherCode[i]
		}
		cond := conditionFor(code)
		day := map[string]any{
			"date":         date,
			"weather_code": code,
			"weather_text": cond.Text,
			"weather_icon": cond.Icon,
		}
		day["temp_max"] = at(payload.Daily.TempMax, i)
		day["temp_min"] = at(payload.Daily.TempMin, i)
		day["precipitation_probability"] = at(payload.Daily.PrecipProbMax, i)
		day["precipitation_sum"] = at(payload.Daily.PrecipSum, i)
		day["wind_speed_max"] = at(payload.Daily.WindSpeedMax, i)
		days = append(days, day)
	}

	return map[string]any{"days": days, "timezone": payload.Timezone}, nil
}

// fetchJSON issues a GET against an Open-Meteo endpoint and decodes the body.
func (h *Weather) fetchJSON(ctx context.Context, baseURL string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upstream response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// coordinates parses and validates the lat/lon query parameters, writing
// the 400 response itself on failure.
func coordinates(c *gin.Context) (float64, float64, bool) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon parameters required"})
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
		return 0, 0, false
	}
	return lat, lon, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}
