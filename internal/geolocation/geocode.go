package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dasakami/alertme-backend/internal/config"
)

// Geocoder wraps the Google Maps reverse-geocoding API, used to attach a
// human-readable address to location samples and alerts.
type Geocoder struct {
	apiKey     string
	httpClient *http.Client
}

// NewGeocoder returns nil when no API key is configured (graceful
// degradation, samples just keep an empty address).
func NewGeocoder(cfg config.GeocodeConfig) *Geocoder {
	if cfg.APIKey == "" {
		return nil
	}
	return &Geocoder{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"`
}

// ReverseGeocode converts a coordinate into a formatted address string.
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	u := fmt.Sprintf("https://maps.googleapis.com/maps/api/geocode/json?latlng=%f,%f&key=%s",
		lat, lon, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode)
	}

	var data geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("parsing geocoding response: %w", err)
	}
	if data.Status != "OK" || len(data.Results) == 0 {
		return "", fmt.Errorf("geocoding returned status %q", data.Status)
	}

	return data.Results[0].FormattedAddress, nil
}
