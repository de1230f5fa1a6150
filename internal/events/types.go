// Package events provides an asynchronous event bus for notifying subscribed
// clients when background enrichment changes subject state, without blocking
// the pipeline.
package events

import (
	"time"

	"github.com/plantpal/plantpal-go/internal/model"
)

// Event names delivered to subscribers.
const (
	NameCategorized = "categorized"
	NameEnriched    = "enriched"
)

// Event is a change notification produced by the enrichment pipeline.
// Delivery is best-effort: no guarantee, no replay for late subscribers.
type Event interface {
	// GetName returns the event name ("categorized" or "enriched")
	GetName() string

	// GetSubjectID returns the subject the event refers to
	GetSubjectID() string

	// GetSubjectType returns the collection the subject currently lives in
	GetSubjectType() model.SubjectType

	// GetTimestamp returns when the event occurred
	GetTimestamp() time.Time
}

// Consumer represents a subscriber that processes change events.
type Consumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single event
	ProcessEvent(event Event) error
}

// BusStats contains runtime statistics for monitoring.
type BusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}

// CategorizedEvent is published when a subject moves between collections as
// a result of species identification.
type CategorizedEvent struct {
	SubjectID   string
	SubjectType model.SubjectType
	Species     string
	Timestamp   time.Time
}

// NewCategorizedEvent creates a categorized event stamped with the current time.
func NewCategorizedEvent(subjectID string, subjectType model.SubjectType, species string) *CategorizedEvent {
	return &CategorizedEvent{
		SubjectID:   subjectID,
		SubjectType: subjectType,
		Species:     species,
		Timestamp:   time.Now(),
	}
}

func (e *CategorizedEvent) GetName() string                   { return NameCategorized }
func (e *CategorizedEvent) GetSubjectID() string              { return e.SubjectID }
func (e *CategorizedEvent) GetSubjectType() model.SubjectType { return e.SubjectType }
func (e *CategorizedEvent) GetTimestamp() time.Time           { return e.Timestamp }

// EnrichedEvent is published when the pipeline finishes and the placeholder
// reply has been overwritten.
type EnrichedEvent struct {
	SubjectID   string
	SubjectType model.SubjectType
	Timestamp   time.Time
}

// NewEnrichedEvent creates an enriched event stamped with the current time.
func NewEnrichedEvent(subjectID string, subjectType model.SubjectType) *EnrichedEvent {
	return &EnrichedEvent{
		SubjectID:   subjectID,
		SubjectType: subjectType,
		Timestamp:   time.Now(),
	}
}

func (e *EnrichedEvent) GetName() string                   { return NameEnriched }
func (e *EnrichedEvent) GetSubjectID() string              { return e.SubjectID }
func (e *EnrichedEvent) GetSubjectType() model.SubjectType { return e.SubjectType }
func (e *EnrichedEvent) GetTimestamp() time.Time           { return e.Timestamp }
