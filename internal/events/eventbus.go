package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plantpal/plantpal-go/internal/logging"
)

// Bus fans change events out to registered consumers with non-blocking
// publish semantics.
type Bus struct {
	// Channel for events
	eventChan chan Event

	// Configuration
	bufferSize int
	workers    int

	// State management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	mu      sync.Mutex

	// Consumers
	consumers []Consumer

	// Metrics
	stats BusStats

	// Logging
	logger *slog.Logger
}

// Config holds event bus configuration.
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 1024,
		Workers:    4,
	}
}

// NewBus creates an event bus. Workers start when the first consumer
// registers.
func NewBus(config *Config) *Bus {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger := logging.ForService("events")
	if logger == nil {
		logger = slog.Default().With("service", "events")
	}

	eb := &Bus{
		eventChan:  make(chan Event, config.BufferSize),
		bufferSize: config.BufferSize,
		workers:    config.Workers,
		ctx:        ctx,
		cancel:     cancel,
		consumers:  make([]Consumer, 0),
		logger:     logger,
	}

	eb.logger.Info("event bus created",
		"buffer_size", config.BufferSize,
		"workers", config.Workers,
	)

	return eb
}

// RegisterConsumer adds a new event consumer.
func (eb *Bus) RegisterConsumer(consumer Consumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	// Check for duplicate
	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)

	eb.logger.Info("registered event consumer", "consumer", consumer.Name())

	// Start workers if this is the first consumer and not already running
	if len(eb.consumers) == 1 && !eb.running.Load() {
		eb.start()
	}
	return nil
}

// UnregisterConsumer removes a consumer by name. Events already queued may
// still be delivered to it.
func (eb *Bus) UnregisterConsumer(name string) {
	if eb == nil {
		return
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, c := range eb.consumers {
		if c.Name() == name {
			eb.consumers = append(eb.consumers[:i], eb.consumers[i+1:]...)
			eb.logger.Info("unregistered event consumer", "consumer", name)
			return
		}
	}
}

// TryPublish attempts to publish an event without blocking.
// Returns true if the event was accepted, false if dropped.
func (eb *Bus) TryPublish(event Event) bool {
	if eb == nil || !eb.running.Load() {
		return false
	}

	// Fast path - check if we have consumers
	eb.mu.Lock()
	hasConsumers := len(eb.consumers) > 0
	eb.mu.Unlock()

	if !hasConsumers {
		return false
	}

	// Non-blocking send
	select {
	case eb.eventChan <- event:
		atomic.AddUint64(&eb.stats.EventsReceived, 1)
		return true
	default:
		// Channel full, drop the event
		atomic.AddUint64(&eb.stats.EventsDropped, 1)
		eb.logger.Debug("event dropped due to full buffer",
			"event", event.GetName(),
			"subject_id", event.GetSubjectID(),
		)
		return false
	}
}

// start begins the worker goroutines.
func (eb *Bus) start() {
	if eb.running.Swap(true) {
		return // Already running
	}

	eb.logger.Info("starting event bus workers", "count", eb.workers)

	for i := 0; i < eb.workers; i++ {
		eb.wg.Add(1)
		go eb.worker(i)
	}
}

// worker processes events from the channel.
func (eb *Bus) worker(id int) {
	defer eb.wg.Done()

	logger := eb.logger.With("worker_id", id)
	logger.Debug("worker started")

	for {
		select {
		case <-eb.ctx.Done():
			logger.Debug("worker stopping due to context cancellation")
			return

		case event, ok := <-eb.eventChan:
			if !ok {
				logger.Debug("worker stopping due to channel closure")
				return
			}

			eb.processEvent(event, logger)
		}
	}
}

// processEvent sends the event to all registered consumers.
func (eb *Bus) processEvent(event Event, logger *slog.Logger) {
	eb.mu.Lock()
	consumers := make([]Consumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.Unlock()

	for _, consumer := range consumers {
		// Process in a recovery wrapper to prevent panics
		func() {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
					logger.Error("consumer panicked",
						"consumer", consumer.Name(),
						"panic", r,
						"event", event.GetName(),
						"subject_id", event.GetSubjectID(),
					)
				}
			}()

			if err := consumer.ProcessEvent(event); err != nil {
				atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
				logger.Error("consumer error",
					"consumer", consumer.Name(),
					"error", err,
					"event", event.GetName(),
					"subject_id", event.GetSubjectID(),
				)
			} else {
				atomic.AddUint64(&eb.stats.EventsProcessed, 1)
			}
		}()
	}
}

// Shutdown gracefully shuts down the event bus.
func (eb *Bus) Shutdown(timeout time.Duration) error {
	if eb == nil {
		return nil
	}

	eb.logger.Info("shutting down event bus", "timeout", timeout)

	// Stop accepting new events
	eb.running.Store(false)

	// Cancel context to signal workers
	eb.cancel()

	// Wait for workers with timeout
	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		eb.logger.Info("event bus shutdown complete")
		return nil
	case <-time.After(timeout):
		eb.logger.Warn("event bus shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetStats returns current event bus statistics.
func (eb *Bus) GetStats() BusStats {
	if eb == nil {
		return BusStats{}
	}

	return BusStats{
		EventsReceived:  atomic.LoadUint64(&eb.stats.EventsReceived),
		EventsProcessed: atomic.LoadUint64(&eb.stats.EventsProcessed),
		EventsDropped:   atomic.LoadUint64(&eb.stats.EventsDropped),
		ConsumerErrors:  atomic.LoadUint64(&eb.stats.ConsumerErrors),
	}
}
