package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers the default configuration values. The heuristic
// thresholds here are tuning parameters; they match the values the enrichment
// pipeline was calibrated with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("main.name", "PlantPal-Go")

	v.SetDefault("store.path", "data/db.json")
	v.SetDefault("store.uploaddir", "uploads")

	v.SetDefault("plantnet.baseurl", "https://my-api.plantnet.org/v2/identify/all")
	v.SetDefault("plantnet.apikey", "")
	v.SetDefault("plantnet.timeout", 15*time.Second)
	v.SetDefault("plantnet.cachettl", 1*time.Hour)

	v.SetDefault("openai.baseurl", "https://api.openai.com/v1")
	v.SetDefault("openai.apikey", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 10*time.Second)
	v.SetDefault("openai.maxtokens", 250)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.retrytemperature", 0.95)

	v.SetDefault("enrichment.contextwindow", 8)
	v.SetDefault("enrichment.similaritythreshold", 0.45)
	v.SetDefault("enrichment.maximagedimension", 1200)
	v.SetDefault("enrichment.jpegquality", 85)
	v.SetDefault("enrichment.workers", 4)
	v.SetDefault("enrichment.buffersize", 1024)
	v.SetDefault("enrichment.translatereplies", false)
}

// defaultSettings builds a Settings populated purely from defaults.
func defaultSettings() *Settings {
	v := viper.New()
	setDefaults(v)
	s := &Settings{}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(s)
	return s
}
