package plantid

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"

	"github.com/plantpal/plantpal-go/internal/errors"
	"github.com/plantpal/plantpal-go/internal/logging"
	"github.com/plantpal/plantpal-go/internal/observability/metrics"
)

// Package-level logger specific to the plantid service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "plantid.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "plantid", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize plantid file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "plantid")
		closeLogger = func() error { return nil }
	}
}

// Client performs species identification against the remote API, caching
// verdicts by image content digest. Identify never fails: every failure mode
// degrades to the local heuristic.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	mu         sync.RWMutex
	prom       *metrics.EnrichmentMetrics

	// Metrics
	metrics struct {
		apiCalls    int64
		cacheHits   int64
		cacheMisses int64
		apiErrors   int64
		fallbacks   int64
		mu          sync.RWMutex
	}
}

// NewClient creates a new identification client. A missing API key is not an
// error: the remote call is skipped and the local fallback serves every
// request.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache: cache.New(config.CacheTTL, config.CacheTTL*2),
	}

	logger.Info("plantid client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL,
		"api_key_configured", config.APIKey != "")

	return c
}

// SetMetrics attaches the shared enrichment collectors. Safe to skip; the
// client only keeps its internal counters then.
func (c *Client) SetMetrics(m *metrics.EnrichmentMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prom = m
}

func (c *Client) promMetrics() *metrics.EnrichmentMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prom
}

// Close cleans up client resources.
func (c *Client) Close() {
	logger.Info("Closing plantid client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing plantid logger: %v", err)
		}
	}
}

// Identify returns a best-effort species verdict for the image at imagePath.
// The remote API is attempted first; any transport error, non-2xx status or
// malformed payload degrades to the local color heuristic, which always
// produces a guess.
func (c *Client) Identify(ctx context.Context, imagePath string) *Result {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		logger.Warn("could not read image, using generic plant guess",
			"path", imagePath, "error", err)
		c.countFallback()
		return formatFallbackResult()
	}

	cacheKey := contentDigest(data)
	if cached, found := c.cache.Get(cacheKey); found {
		if result, ok := cached.(*Result); ok {
			c.metrics.mu.Lock()
			c.metrics.cacheHits++
			c.metrics.mu.Unlock()
			c.promMetrics().IncrementIdentCacheHits()
			logger.Debug("identification cache hit", "cache_key", cacheKey)
			return result
		}
	}
	c.metrics.mu.Lock()
	c.metrics.cacheMisses++
	c.metrics.mu.Unlock()
	c.promMetrics().IncrementIdentCacheMisses()

	if result, err := c.identifyRemote(ctx, imagePath, data); err == nil {
		c.cache.Set(cacheKey, result, cache.DefaultExpiration)
		return result
	} else {
		logger.Warn("remote identification failed, falling back to local analysis",
			"path", imagePath, "error", err)
	}

	c.countFallback()
	result := localIdentify(data)
	c.cache.Set(cacheKey, result, cache.DefaultExpiration)
	return result
}

// identifyRemote posts the image to the identification API and parses the
// top result. The request carries its own timeout independent of the
// transport's.
func (c *Client) identifyRemote(ctx context.Context, imagePath string, data []byte) (*Result, error) {
	if c.config.APIKey == "" {
		return nil, errors.Newf("identification API key not configured").
			Component("plantid").
			Category(errors.CategoryConfiguration).
			Build()
	}

	start := time.Now()
	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("images", filepath.Base(imagePath))
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.WriteField("organs", "auto")
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("plantid").
			Category(errors.CategoryProcessing).
			Context("operation", "build-multipart").
			Build()
	}

	url := c.config.BaseURL + "?api-key=" + c.config.APIKey
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, &body)
	if err != nil {
		return nil, errors.New(err).
			Component("plantid").
			Category(errors.CategoryNetwork).
			Context("operation", "create-request").
			Build()
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countAPIError()
		return nil, errors.New(err).
			Component("plantid").
			Category(errors.CategoryNetwork).
			Timing("identify", time.Since(start)).
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countAPIError()
		return nil, errors.New(err).
			Component("plantid").
			Category(errors.CategoryNetwork).
			Context("operation", "read-response").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		c.countAPIError()
		logger.Warn("identification API returned non-ok status",
			"status_code", resp.StatusCode,
			"response_preview", preview(respBody))
		return nil, errors.Newf("identification API status %d", resp.StatusCode).
			Component("plantid").
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Build()
	}

	result, err := parseIdentifyResponse(respBody)
	if err != nil {
		c.countAPIError()
		return nil, err
	}

	prob := 0.0
	if result.Probability != nil {
		prob = *result.Probability
	}
	logger.Info("species identified",
		"species", result.Species,
		"probability", prob,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// parseIdentifyResponse extracts the top species from the API payload. The
// payload shape is deeply optional, so parsing is tolerant: the scientific
// name is preferred, then the first common name, then the genus.
func parseIdentifyResponse(body []byte) (*Result, error) {
	doc, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, errors.New(err).
			Component("plantid").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse-response").
			Build()
	}

	results, err := doc.GetObjectArray("results")
	if err != nil || len(results) == 0 {
		return nil, errors.Newf("identification response has no results").
			Component("plantid").
			Category(errors.CategoryFileParsing).
			Build()
	}
	top := results[0]

	species := ""
	if name, err := top.GetString("species", "scientificNameWithoutAuthor"); err == nil && name != "" {
		species = name
	} else if commonNames, err := top.GetStringArray("species", "commonNames"); err == nil && len(commonNames) > 0 {
		species = commonNames[0]
	} else if genus, err := top.GetString("species", "genus"); err == nil && genus != "" {
		species = genus
	}
	if species == "" {
		return nil, errors.Newf("identification result missing species name").
			Component("plantid").
			Category(errors.CategoryFileParsing).
			Build()
	}

	result := &Result{Species: species, Method: MethodRemote}
	if score, err := top.GetFloat64("score"); err == nil {
		result.Probability = &score
	}
	return result, nil
}

// Metrics represents client counters.
type Metrics struct {
	APICalls    int64 `json:"api_calls"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	APIErrors   int64 `json:"api_errors"`
	Fallbacks   int64 `json:"fallbacks"`
}

// GetMetrics returns current client metrics.
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()
	return Metrics{
		APICalls:    c.metrics.apiCalls,
		CacheHits:   c.metrics.cacheHits,
		CacheMisses: c.metrics.cacheMisses,
		APIErrors:   c.metrics.apiErrors,
		Fallbacks:   c.metrics.fallbacks,
	}
}

// ClearCache clears all cached verdicts.
func (c *Client) ClearCache() {
	c.cache.Flush()
	logger.Info("plantid cache cleared")
}

func (c *Client) countAPIError() {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
}

func (c *Client) countFallback() {
	c.metrics.mu.Lock()
	c.metrics.fallbacks++
	c.metrics.mu.Unlock()
}

func contentDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func preview(body []byte) string {
	const max = 500
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
