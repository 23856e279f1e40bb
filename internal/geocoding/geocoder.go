package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

var ErrNoResults = errors.New("no geocoding results")

// Options configures a Geocoder.
type Options struct {
	BaseURL      string
	CountryCodes string
	UserAgent    string
	// Minimum spacing between upstream requests
	Interval time.Duration
	// JSON file the lookup cache is loaded from and saved to; empty keeps
	// the cache in memory only
	CacheFile string
	Timeout   time.Duration
}

// Geocoder resolves street addresses to coordinates through a
// Nominatim-compatible search endpoint.
type Geocoder struct {
	opts   Options
	client *http.Client
	logger *logrus.Logger

	cacheLock sync.RWMutex
	cache     map[string][]float64

	// serializes upstream requests
	rateLock    sync.Mutex
	lastRequest time.Time
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewGeocoder(opts Options, logger *logrus.Logger) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "RealEstateInsights/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	g := &Geocoder{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
		cache:  make(map[string][]float64),
	}
	g.loadCache()
	return g
}

func (g *Geocoder) loadCache() {
	if g.opts.CacheFile == "" {
		return
	}
	data, err := os.ReadFile(g.opts.CacheFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}
	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}
	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

// SaveCache writes the lookup cache to the configured file.
func (g *Geocoder) SaveCache() error {
	if g.opts.CacheFile == "" {
		return nil
	}
	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal geocode cache: %w", err)
	}
	if err := os.WriteFile(g.opts.CacheFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to save geocode cache: %w", err)
	}
	return nil
}

// searchQuery builds the free-form query and its cache key.
func searchQuery(street, zip, city, state string) (query, key string) {
	parts := make([]string, 0, 4)
	for _, s := range []string{street, city, state, zip} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	query = strings.Join(parts, ", ")
	return query, strings.ToLower(query)
}

func (g *Geocoder) cached(key string) (float64, float64, bool) {
	g.cacheLock.RLock()
	coords, ok := g.cache[key]
	g.cacheLock.RUnlock()
	if !ok || len(coords) != 2 {
		return 0, 0, false
	}
	return coords[0], coords[1], true
}

// Geocode returns the latitude and longitude of an address.
func (g *Geocoder) Geocode(ctx context.Context, street, zip, city, state string) (float64, float64, error) {
	query, key := searchQuery(street, zip, city, state)
	if lat, lon, ok := g.cached(key); ok {
		return lat, lon, nil
	}

	if err := g.wait(ctx); err != nil {
		return 0, 0, err
	}

	params := url.Values{
		"q":      []string{query},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	if g.opts.CountryCodes != "" {
		params.Set("countrycodes", g.opts.CountryCodes)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.opts.BaseURL, "/")+"/search", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("%w for %q", ErrNoResults, query)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", result[0].Lat)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", result[0].Lon)
	}

	g.cacheLock.Lock()
	g.cache[key] = []float64{lat, lon}
	g.cacheLock.Unlock()
	return lat, lon, nil
}

// wait blocks until Interval has passed since the previous upstream request.
func (g *Geocoder) wait(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	if delay := g.opts.Interval - time.Since(g.lastRequest); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	g.lastRequest = time.Now()
	return nil
}

// Fill geocodes records that have an address but no coordinates, making at
// most limit upstream lookups (zero means no limit). Cache hits are free and
// do not count. Failed lookups leave the record unchanged. It returns the
// number of records filled.
func (g *Geocoder) Fill(ctx context.Context, records []models.Property, limit int) int {
	filled, lookups, failed := 0, 0, 0
	for i := range records {
		p := &records[i]
		if p.HasCoordinates() || p.Address == "" || p.Address == ingest.DefaultAddress {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		city := p.City
		if city == ingest.DefaultCity {
			city = ""
		}
		_, key := searchQuery(p.Address, p.ZipCode, city, p.State)
		if lat, lng, ok := g.cached(key); ok {
			p.Latitude, p.Longitude = &lat, &lng
			filled++
			continue
		}
		if limit > 0 && lookups >= limit {
			continue
		}
		lookups++

		lat, lng, err := g.Geocode(ctx, p.Address, p.ZipCode, city, p.State)
		if err != nil {
			failed++
			g.logger.WithError(err).WithField("address", p.Address).Debug("Geocoding failed")
			continue
		}
		p.Latitude, p.Longitude = &lat, &lng
		filled++
	}

	if filled > 0 || failed > 0 {
		g.logger.WithFields(logrus.Fields{
			"lookups": lookups,
			"filled":  filled,
			"failed":  failed,
		}).Info("Geocoded records")
		if err := g.SaveCache(); err != nil {
			g.logger.WithError(err).Warn("Failed to persist geocode cache")
		}
	}
	return filled
}
