// Package plantid identifies the species shown in an uploaded photo using a
// remote identification API with a local color-heuristic fallback, and maps
// species names onto the two logical collections.
package plantid

import (
	"time"
)

// Result is a best-effort species verdict. Method records how the verdict
// was produced ("remote", "local_analysis" or "format_fallback").
type Result struct {
	Species     string   `json:"species"`
	Probability *float64 `json:"probability"`
	Method      string   `json:"method"`
}

// Identification methods.
const (
	MethodRemote         = "remote"
	MethodLocalAnalysis  = "local_analysis"
	MethodFormatFallback = "format_fallback"
)

// Config holds the remote identification API configuration.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://my-api.plantnet.org/v2/identify/all",
		Timeout:  15 * time.Second,
		CacheTTL: 1 * time.Hour,
	}
}
