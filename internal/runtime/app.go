// Package runtime assembles the application: store, event bus, remote
// clients, metrics and the enrichment pipeline wired together from settings.
package runtime

import (
	"time"

	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/datastore"
	"github.com/plantpal/plantpal-go/internal/enrichment"
	"github.com/plantpal/plantpal-go/internal/events"
	"github.com/plantpal/plantpal-go/internal/llm"
	"github.com/plantpal/plantpal-go/internal/observability"
	"github.com/plantpal/plantpal-go/internal/plantid"
)

// Application bundles the long-lived components an embedding server or a CLI
// command needs: the shared store, the event bus, the remote clients and the
// enrichment pipeline wired together from settings.
type Application struct {
	Settings   *conf.Settings
	Store      *datastore.FileStore
	Bus        *events.Bus
	Classifier *plantid.Client
	Generator  *llm.Client
	Metrics    *observability.Metrics
	Pipeline   *enrichment.Pipeline
}

// Build assembles an Application from settings. A nil settings falls back to
// the global configuration. The caller owns the result and must call Shutdown
// when done.
func Build(settings *conf.Settings) (*Application, error) {
	if settings == nil {
		settings = conf.Setting()
	}
	store, err := datastore.NewFileStore(settings.Store.Path)
	if err != nil {
		return nil, err
	}

	obs, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(&events.Config{
		BufferSize: settings.Enrichment.BufferSize,
		Workers:    settings.Enrichment.Workers,
	})

	classifier := plantid.NewClient(plantid.Config{
		APIKey:   settings.PlantNet.APIKey,
		BaseURL:  settings.PlantNet.BaseURL,
		Timeout:  settings.PlantNet.Timeout,
		CacheTTL: settings.PlantNet.CacheTTL,
	})
	classifier.SetMetrics(obs.Enrichment)

	generator := llm.NewClient(llm.Config{
		APIKey:           settings.OpenAI.APIKey,
		BaseURL:          settings.OpenAI.BaseURL,
		Model:            settings.OpenAI.Model,
		Timeout:          settings.OpenAI.Timeout,
		MaxTokens:        settings.OpenAI.MaxTokens,
		Temperature:      settings.OpenAI.Temperature,
		RetryTemperature: settings.OpenAI.RetryTemperature,
	})

	pipeline := enrichment.New(store, classifier, generator, bus, obs.Enrichment, enrichment.Config{
		UploadDir:           settings.Store.UploadDir,
		ContextWindow:       settings.Enrichment.ContextWindow,
		SimilarityThreshold: settings.Enrichment.SimilarityThreshold,
		MaxImageDimension:   settings.Enrichment.MaxImageDimension,
		JPEGQuality:         settings.Enrichment.JPEGQuality,
		TranslateReplies:    settings.Enrichment.TranslateReplies,
	})

	return &Application{
		Settings:   settings,
		Store:      store,
		Bus:        bus,
		Classifier: classifier,
		Generator:  generator,
		Metrics:    obs,
		Pipeline:   pipeline,
	}, nil
}

// Shutdown stops the event bus and releases held resources. Safe to call on
// a partially failed Build result.
func (a *Application) Shutdown(timeout time.Duration) error {
	if a == nil {
		return nil
	}
	var firstErr error
	if a.Bus != nil {
		if err := a.Bus.Shutdown(timeout); err != nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Generator != nil {
		if err := a.Generator.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Classifier != nil {
		a.Classifier.Close()
	}
	return firstErr
}
