package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/stef-codes/30days-weather-dashboard/internal/models"
	"github.com/stef-codes/30days-weather-dashboard/internal/observability"
)

type WeatherClient interface {
	CurrentWeather(ctx context.Context, city string) (models.WeatherReading, []byte, error)
	Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error)
}

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrCityNotFound    = errors.New("city not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// OpenWeatherClient talks to the OpenWeather "current weather" and "5 day /
// 3 hour forecast" endpoints. Requests are made in imperial units. There is
// no retry: a failed city is reported and the run moves on.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration, rps float64, burst int) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}, nil
}

type currentResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// CurrentWeather fetches current conditions for a city. The raw response
// body is returned alongside the parsed reading so the snapshot sink can
// store the verbatim payload.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, city string) (models.WeatherReading, []byte, error) {
	body, err := c.get(ctx, "/weather", city)
	if err != nil {
		return models.WeatherReading{}, nil, err
	}

	var apiResp currentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherReading{}, nil, fmt.Errorf("parse current weather response: %w", err)
	}

	return models.WeatherReading{
		City:        city,
		Temperature: apiResp.Main.Temp,
		FeelsLike:   apiResp.Main.FeelsLike,
		Humidity:    apiResp.Main.Humidity,
		Conditions:  conditions(apiResp.Weather),
		FetchedAt:   c.now(),
	}, body, nil
}

// Forecast fetches the 5-day/3-hour forecast for a city, typically 40 slots.
func (c *OpenWeatherClient) Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error) {
	body, err := c.get(ctx, "/forecast", city)
	if err != nil {
		return nil, err
	}

	var apiResp forecastResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse forecast response: %w", err)
	}

	entries := make([]models.ForecastEntry, 0, len(apiResp.List))
	for _, item := range apiResp.List {
		entries = append(entries, models.ForecastEntry{
			At:          time.Unix(item.Dt, 0),
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			Humidity:    item.Main.Humidity,
			Conditions:  conditions(item.Weather),
		})
	}
	return entries, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, endpoint, city string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := c.buildRequest(ctx, endpoint, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, statusLabel(resp.StatusCode)).Inc()

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint, city string) (*http.Request, error) {
	baseURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "imperial")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: check OPENWEATHER_API_KEY", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrCityNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func conditions(weather []struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}) string {
	if len(weather) == 0 {
		return ""
	}
	if weather[0].Description != "" {
		return weather[0].Description
	}
	return weather[0].Main
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	}
	return "error"
}
