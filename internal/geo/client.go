package geo

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client performs the outbound lookup against the geolocation provider and
// classifies raw transport/HTTP failures into lookup error codes.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a geolocation client. The timeout bounds the whole
// request; on expiry the attempt is abandoned and classified as unreachable.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Lookup resolves a 5-digit ZIP code to coordinates, a UTC offset, and a
// display name. Malformed input fails fast without a network call.
func (c *Client) Lookup(ctx context.Context, zip string) (Result, error) {
	if err := ValidateZip(zip); err != nil {
		return Result{}, err
	}

	values := url.Values{}
	values.Set("zip", zip+",us")
	values.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return Result{}, newError(CodeUnknown, "internal error fetching location data")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response at all: timeout or connection failure.
		c.logger.Warn("geo provider unreachable", "zip", zip, "error", err)
		return Result{}, newError(CodeUnreachable, "location service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyStatus(resp.StatusCode, zip)
	}

	var payload struct {
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Timezone int    `json:"timezone"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, newError(CodeUnknown, "internal error fetching location data")
	}

	return Result{
		Latitude:         payload.Coord.Lat,
		Longitude:        payload.Coord.Lon,
		UTCOffsetSeconds: payload.Timezone,
		Name:             payload.Name,
	}, nil
}

func classifyStatus(status int, zip string) *Error {
	switch status {
	case http.StatusNotFound:
		return newError(CodeNotFound, "ZIP code %s not found", zip)
	case http.StatusUnauthorized:
		return newError(CodeUnauthorized, "API key invalid")
	case http.StatusForbidden:
		return newError(CodeUnauthorized, "access forbidden")
	case http.StatusTooManyRequests:
		return newError(CodeRateLimited, "location service rate limit exceeded")
	default:
		return newError(CodeUnknown, "internal error fetching location data")
	}
}
