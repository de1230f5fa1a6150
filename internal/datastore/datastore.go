// Package datastore persists the whole subject document as a single JSON
// file. Readers always get a fresh deep snapshot; writers go through Update,
// which serializes mutations per subject so concurrent pipeline runs for
// different subjects never clobber each other's writes.
package datastore

import (
	"github.com/plantpal/plantpal-go/internal/model"
)

// Store is the document access contract used by the pipeline and the
// command surface.
type Store interface {
	// Read returns a fresh snapshot of the whole document. A missing
	// backing file yields an empty document, not an error.
	Read() (*model.Document, error)

	// Write replaces the whole document atomically.
	Write(doc *model.Document) error

	// Update runs a read-modify-write cycle. The callback receives the
	// current document and mutates it in place; the result is persisted
	// before Update returns. Mutations for the same subject ID are fully
	// serialized. Returning an error from the callback aborts the write.
	Update(subjectID string, fn func(doc *model.Document) error) error
}
