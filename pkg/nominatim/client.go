package nominatim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geodispatch/pkg/config"
	"geodispatch/pkg/geo"
	"geodispatch/pkg/model"
)

// Client performs reverse-geocoding lookups against a Nominatim-style API.
// It makes a single attempt per call; retrying is the dispatcher's job.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	zoom       int
	logger     *slog.Logger
}

// New creates a client from lookup configuration.
func New(cfg config.LookupConfig) *Client {
	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	zoom := cfg.Zoom
	if zoom <= 0 {
		zoom = 14
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		userAgent:  cfg.UserAgent,
		zoom:       zoom,
		logger:     slog.With("component", "nominatim"),
	}
}

// Nearby resolves the coordinate to place annotations. The signature
// matches dispatch.LookupFunc.
func (c *Client) Nearby(ctx context.Context, lat, lon float64) ([]model.Place, error) {
	u, err := url.Parse(c.endpoint + "/reverse")
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	q := u.Query()
	q.Set("format", "geojson")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", strconv.Itoa(c.zoom))
	q.Set("addressdetails", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("Reverse lookup", "lat", lat, "lon", lon, "zoom", c.zoom)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	return parsePlaces(body, geo.Point{Lat: lat, Lon: lon})
}

// parsePlaces maps a GeoJSON FeatureCollection to place annotations,
// annotated with the distance from the query point.
func parsePlaces(body []byte, origin geo.Point) ([]model.Place, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geojson: %w", err)
	}

	places := make([]model.Place, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}

		name := f.Properties.MustString("name", "")
		if name == "" {
			name = f.Properties.MustString("display_name", "")
		}
		if name == "" {
			continue
		}

		category := f.Properties.MustString("category", "")
		if category == "" {
			category = f.Properties.MustString("type", "")
		}

		p := geo.Point{Lat: pt.Lat(), Lon: pt.Lon()}
		places = append(places, model.Place{
			Name:      name,
			Category:  category,
			Lat:       p.Lat,
			Lon:       p.Lon,
			DistanceM: geo.Distance(origin, p),
		})
	}

	return places, nil
}
