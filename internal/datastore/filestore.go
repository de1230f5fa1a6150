package datastore

import (
	"encoding/json"
	"hash/fnv"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/plantpal/plantpal-go/internal/errors"
	"github.com/plantpal/plantpal-go/internal/logging"
	"github.com/plantpal/plantpal-go/internal/model"
)

// Package-level logger specific to the datastore service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "datastore.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "datastore", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize datastore file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "datastore")
		closeLogger = func() error { return nil }
	}
}

// stripeCount sizes the keyed mutex table. Subject IDs are UUIDs, so a small
// power of two spreads well.
const stripeCount = 32

// FileStore keeps the document in one JSON file, written atomically via a
// temp file and rename.
type FileStore struct {
	path string

	// mu guards the read-modify-write cycle on the backing file.
	mu sync.Mutex

	// stripes serialize updates per subject ID.
	stripes [stripeCount]sync.Mutex
}

// NewFileStore creates a store backed by the JSON file at path, creating the
// parent directory when needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.Newf("datastore: empty path").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return &FileStore{path: path}, nil
}

// Read loads a fresh snapshot of the document. A missing file yields an
// empty document.
func (fs *FileStore) Read() (*model.Document, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Document{}, nil
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", fs.path).
			Build()
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileParsing).
			Context("path", fs.path).
			Build()
	}
	return &doc, nil
}

// Write replaces the document atomically.
func (fs *FileStore) Write(doc *model.Document) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writeLocked(doc)
}

func (fs *FileStore) writeLocked(doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".db-*.json")
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", fs.path).
			Build()
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", tmpName).
			Build()
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", tmpName).
			Build()
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", fs.path).
			Build()
	}

	logger.Debug("document saved", "path", fs.path, "bytes", len(data))
	return nil
}

// Update runs fn against a fresh snapshot and persists the result. The
// subject's stripe is held for the whole cycle, so two updates targeting the
// same subject never interleave. Updates for different subjects still contend
// only on the short file write.
func (fs *FileStore) Update(subjectID string, fn func(doc *model.Document) error) error {
	stripe := &fs.stripes[stripeIndex(subjectID)]
	stripe.Lock()
	defer stripe.Unlock()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readLocked()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return fs.writeLocked(doc)
}

func (fs *FileStore) readLocked() (*model.Document, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Document{}, nil
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", fs.path).
			Build()
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileParsing).
			Context("path", fs.path).
			Build()
	}
	return &doc, nil
}

func stripeIndex(subjectID string) int {
	h := fnv.New32a()
	h.Write([]byte(subjectID))
	return int(h.Sum32() % stripeCount)
}

// Close releases the store's file logger.
func (fs *FileStore) Close() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}
