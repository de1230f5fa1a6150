// Package conf loads and exposes the application settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/plantpal/plantpal-go/internal/errors"
)

// Settings is the process-wide configuration.
type Settings struct {
	Debug bool `mapstructure:"debug"`

	Main struct {
		Name string `mapstructure:"name"` // instance name, used in log attributes
	} `mapstructure:"main"`

	Store struct {
		Path      string `mapstructure:"path"`      // whole-document JSON store file
		UploadDir string `mapstructure:"uploaddir"` // directory holding uploaded images
	} `mapstructure:"store"`

	PlantNet PlantNetSettings `mapstructure:"plantnet"`
	OpenAI   OpenAISettings   `mapstructure:"openai"`

	Enrichment EnrichmentSettings `mapstructure:"enrichment"`
}

// PlantNetSettings configures the remote species-identification API.
type PlantNetSettings struct {
	APIKey   string        `mapstructure:"apikey"`
	BaseURL  string        `mapstructure:"baseurl"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cachettl"`
}

// OpenAISettings configures the chat-completions compatible generator.
type OpenAISettings struct {
	APIKey           string        `mapstructure:"apikey"`
	BaseURL          string        `mapstructure:"baseurl"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxTokens        int           `mapstructure:"maxtokens"`
	Temperature      float64       `mapstructure:"temperature"`
	RetryTemperature float64       `mapstructure:"retrytemperature"`
}

// EnrichmentSettings tunes the background pipeline. The numeric values are
// design parameters, not physical constants.
type EnrichmentSettings struct {
	ContextWindow       int     `mapstructure:"contextwindow"`       // messages of history handed to the generator
	SimilarityThreshold float64 `mapstructure:"similaritythreshold"` // below this the photo likely shows a different subject
	MaxImageDimension   int     `mapstructure:"maximagedimension"`   // upload compression bound
	JPEGQuality         int     `mapstructure:"jpegquality"`
	Workers             int     `mapstructure:"workers"`    // event bus workers
	BufferSize          int     `mapstructure:"buffersize"` // event bus buffer
	// TranslateReplies makes the background run carry translations alongside
	// the reply so a reader can toggle languages without another call.
	TranslateReplies bool `mapstructure:"translatereplies"`
}

var (
	settings     *Settings
	settingsOnce sync.Once
	settingsMu   sync.RWMutex
)

// Setting returns the global settings, loading them on first use.
func Setting() *Settings {
	settingsOnce.Do(func() {
		if settings == nil {
			s, err := Load()
			if err != nil {
				// Fall back to defaults so library consumers keep working
				// without a config file.
				s = defaultSettings()
			}
			settingsMu.Lock()
			settings = s
			settingsMu.Unlock()
		}
	})
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// GetSettings returns the global settings without triggering a load.
// Returns nil before Setting or Load has run.
func GetSettings() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// Load reads config.yaml from the conventional paths, applies defaults and
// environment overrides, and stores the result as the global settings.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	paths, err := configPaths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("PLANTPAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "read-config").
				Build()
		}
		// Missing config file is fine, defaults and env apply.
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := validate(s); err != nil {
		return nil, err
	}

	settingsMu.Lock()
	settings = s
	settingsMu.Unlock()
	return s, nil
}

// configPaths returns the candidate configuration directories in priority
// order: executable directory, ~/.config/plantpal-go, /etc/plantpal-go.
func configPaths() ([]string, error) {
	var paths []string

	exePath, err := os.Executable()
	if err == nil {
		paths = append(paths, filepath.Dir(exePath))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}
	paths = append(paths,
		filepath.Join(homeDir, ".config", "plantpal-go"),
		"/etc/plantpal-go",
	)
	return paths, nil
}

func validate(s *Settings) error {
	if s.Enrichment.ContextWindow <= 0 {
		return errors.Newf("enrichment.contextwindow must be positive, got %d", s.Enrichment.ContextWindow).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Enrichment.SimilarityThreshold < 0 || s.Enrichment.SimilarityThreshold > 1 {
		return errors.Newf("enrichment.similaritythreshold must be in [0,1], got %v", s.Enrichment.SimilarityThreshold).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Enrichment.JPEGQuality < 1 || s.Enrichment.JPEGQuality > 100 {
		return errors.Newf("enrichment.jpegquality must be in [1,100], got %d", s.Enrichment.JPEGQuality).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.PlantNet.Timeout <= 0 || s.OpenAI.Timeout <= 0 {
		return errors.Newf("remote call timeouts must be positive").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// SetForTest replaces the global settings, returning a restore function.
// Intended for tests only.
func SetForTest(s *Settings) func() {
	settingsMu.Lock()
	prev := settings
	settings = s
	settingsMu.Unlock()
	return func() {
		settingsMu.Lock()
		settings = prev
		settingsMu.Unlock()
	}
}

// String renders a short human-readable summary of where data lives.
func (s *Settings) String() string {
	return fmt.Sprintf("store=%s uploads=%s plantnet=%s openai=%s",
		s.Store.Path, s.Store.UploadDir, s.PlantNet.BaseURL, s.OpenAI.BaseURL)
}
