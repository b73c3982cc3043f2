package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrWeatherFetchFailed wraps any upstream failure of the forecast service.
var ErrWeatherFetchFailed = errors.New("tasks.weather_fetch_failed")

const defaultWeatherEndpoint = "https://api.open-meteo.com/v1/forecast"

// Location names a place with the coordinates the forecast API wants.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// WeatherClient fetches current conditions from the Open-Meteo forecast API.
type WeatherClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewWeatherClient constructs the client. An empty endpoint selects the
// public Open-Meteo service.
func NewWeatherClient(endpoint string, httpClient *http.Client) *WeatherClient {
	if endpoint == "" {
		endpoint = defaultWeatherEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &WeatherClient{endpoint: endpoint, httpClient: httpClient}
}

// FetchCurrent returns the raw current-weather document for one location.
func (client *WeatherClient) FetchCurrent(ctx context.Context, location Location) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(location.Latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(location.Longitude, 'f', 4, 64))
	query.Set("current_weather", "true")

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, client.endpoint+"?"+query.Encode(), nil)
	if requestErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeatherFetchFailed, requestErr)
	}
	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeatherFetchFailed, doErr)
	}
	defer func() { _ = response.Body.Close() }()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeatherFetchFailed, readErr)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrWeatherFetchFailed, response.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: malformed response body", ErrWeatherFetchFailed)
	}
	return json.RawMessage(body), nil
}
