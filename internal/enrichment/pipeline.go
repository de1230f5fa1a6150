// Package enrichment orchestrates the background work behind every photo
// upload: compression, green-area analysis, species identification,
// collection reclassification, similarity and growth computation, and reply
// generation. A run never owes the user anything; the placeholder reply
// written at upload time stays valid whatever fails here.
package enrichment

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plantpal/plantpal-go/internal/careprofile"
	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/datastore"
	"github.com/plantpal/plantpal-go/internal/errors"
	"github.com/plantpal/plantpal-go/internal/events"
	"github.com/plantpal/plantpal-go/internal/imaging"
	"github.com/plantpal/plantpal-go/internal/llm"
	"github.com/plantpal/plantpal-go/internal/logging"
	"github.com/plantpal/plantpal-go/internal/model"
	"github.com/plantpal/plantpal-go/internal/observability/metrics"
	"github.com/plantpal/plantpal-go/internal/plantid"
	"github.com/plantpal/plantpal-go/internal/similarity"
)

// Package-level logger specific to the enrichment service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "enrichment.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "enrichment", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize enrichment file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "enrichment")
		closeLogger = func() error { return nil }
	}
}

// Classifier identifies the species on a photo. Identify never returns nil;
// the degenerate verdict is a local heuristic guess.
type Classifier interface {
	Identify(ctx context.Context, imagePath string) *plantid.Result
}

// Generator produces conversational replies and translations.
type Generator interface {
	Prompt(ctx context.Context, prompt, lang string) (string, error)
	Chat(ctx context.Context, messages []llm.Message) (string, error)
	Translate(ctx context.Context, text, targetLang string) string
}

// Config tunes a pipeline.
type Config struct {
	// UploadDir is where image files referenced by Image.Filename live.
	UploadDir string
	// ContextWindow bounds how many recent conversation turns feed reply
	// generation.
	ContextWindow int
	// SimilarityThreshold is the score below which two consecutive photos
	// likely show different subjects.
	SimilarityThreshold float64
	// MaxImageDimension and JPEGQuality bound the in-place upload
	// compression.
	MaxImageDimension int
	JPEGQuality       int
	// TranslateReplies fills the reply's English and Kannada renditions
	// through the generator.
	TranslateReplies bool
}

// DefaultConfig returns the tuning the original deployment ran with.
func DefaultConfig() Config {
	return Config{
		UploadDir:           "uploads",
		ContextWindow:       8,
		SimilarityThreshold: similarity.DifferentSubjectThreshold,
		MaxImageDimension:   1200,
		JPEGQuality:         85,
	}
}

// Pipeline runs enrichment against the shared store.
type Pipeline struct {
	store      datastore.Store
	classifier Classifier
	generator  Generator
	bus        *events.Bus
	metrics    *metrics.EnrichmentMetrics
	cfg        Config

	now func() time.Time
}

// New assembles a pipeline. The bus and metrics may be nil; the classifier
// and generator must not.
func New(store datastore.Store, classifier Classifier, generator Generator, bus *events.Bus, m *metrics.EnrichmentMetrics, cfg Config) *Pipeline {
	defaults := DefaultConfig()
	if cfg.UploadDir == "" {
		cfg.UploadDir = defaults.UploadDir
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = defaults.ContextWindow
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = defaults.MaxImageDimension
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = defaults.JPEGQuality
	}

	return &Pipeline{
		store:      store,
		classifier: classifier,
		generator:  generator,
		bus:        bus,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Enrich runs the full per-image state machine. It is safe to call from its
// own goroutine after the synchronous upload path has returned; errors are
// absorbed into the trace and logged, never propagated to the uploader.
func (p *Pipeline) Enrich(ctx context.Context, subjectID, imageID string) Trace {
	start := p.now()
	var trace Trace
	record := func(stage Stage, status Status, err error, detail string) {
		trace = append(trace, StageResult{Stage: stage, Status: status, Err: err, Detail: detail})
		p.metrics.RecordStageOutcome(string(stage), string(status))
		if err != nil {
			logger.Error("stage did not complete cleanly",
				"subject_id", subjectID, "image_id", imageID,
				"stage", stage, "status", status, "error", err)
		} else if s := conf.GetSettings(); s != nil && s.Debug {
			logger.Debug("stage recorded",
				"subject_id", subjectID, "image_id", imageID,
				"stage", stage, "status", status, "detail", detail)
		}
	}
	defer func() {
		p.metrics.ObservePipelineDuration(p.now().Sub(start).Seconds())
	}()

	// received: the subject and image must exist before any work starts.
	doc, err := p.store.Read()
	if err != nil {
		record(StageReceived, StatusFailed, err, "store read")
		return trace
	}
	subject, _ := doc.FindSubject(subjectID)
	if subject == nil {
		record(StageReceived, StatusFailed, errors.Newf("enrichment: subject %s not found", subjectID).
			Component("enrichment").Category(errors.CategoryNotFound).Build(), "")
		return trace
	}
	img := subject.ImageByID(imageID)
	if img == nil {
		record(StageReceived, StatusFailed, errors.Newf("enrichment: image %s not found on subject %s", imageID, subjectID).
			Component("enrichment").Category(errors.CategoryNotFound).Build(), "")
		return trace
	}
	imagePath := filepath.Join(p.cfg.UploadDir, img.Filename)
	record(StageReceived, StatusSuccess, nil, img.Filename)

	// compressed: bound the stored file in place. Failure keeps the
	// original bytes.
	if err := imaging.Compress(imagePath, p.cfg.MaxImageDimension, p.cfg.JPEGQuality); err != nil {
		record(StageCompressed, StatusDegraded, err, "keeping original file")
	} else {
		record(StageCompressed, StatusSuccess, nil, "")
	}

	// area_analyzed: never fails, unreadable input degrades to the neutral
	// estimate.
	area := similarity.AnalyzeGreenArea(imagePath)
	record(StageAreaAnalyzed, StatusSuccess, nil, "")

	// identified: the classifier always produces a verdict.
	verdict := p.classifier.Identify(ctx, imagePath)
	identStatus := StatusSuccess
	if verdict.Method != plantid.MethodRemote {
		identStatus = StatusDegraded
	}
	var speciesMismatch string
	err = p.store.Update(subjectID, func(doc *model.Document) error {
		target, _ := doc.FindSubject(subjectID)
		if target == nil {
			return errors.Newf("enrichment: subject %s vanished", subjectID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		if target.Species != "" &&
			!strings.EqualFold(strings.TrimSpace(target.Species), strings.TrimSpace(verdict.Species)) &&
			target.Species != "Unknown" {
			speciesMismatch = verdict.Species
		}
		target.Identification = &model.Identification{
			Species:     verdict.Species,
			Probability: verdict.Probability,
		}
		if target.Species == "" || target.Species == "Unknown" {
			logger.Info("upgrading species from verdict",
				"subject_id", subjectID, "species", verdict.Species)
			target.Species = verdict.Species
		}
		return nil
	})
	if err != nil {
		record(StageIdentified, StatusFailed, err, "")
		return trace
	}
	record(StageIdentified, identStatus, nil, verdict.Species)

	// reclassified: move the subject when the verdict says it sits in the
	// wrong collection, and tell listeners right away.
	p.reclassify(subjectID, verdict.Species, record)

	// similarity_computed: area always lands on the image entry; similarity
	// and growth need a predecessor.
	var growth *float64
	var likelyDifferent bool
	var hadPrevious bool
	err = p.store.Update(subjectID, func(doc *model.Document) error {
		target, _ := doc.FindSubject(subjectID)
		if target == nil {
			return errors.Newf("enrichment: subject %s vanished", subjectID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		entry := target.ImageByID(imageID)
		if entry == nil {
			return errors.Newf("enrichment: image %s vanished", imageID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		entry.Area = &area

		if prev := target.PreviousImage(imageID); prev != nil {
			hadPrevious = true
			score := similarity.Compare(imagePath, filepath.Join(p.cfg.UploadDir, prev.Filename))
			likelyDifferent = score != nil && *score < p.cfg.SimilarityThreshold
			growth = similarity.GrowthDelta(&area, prev.Area)
		}

		if msg := latestPlaceholderFor(target, imageID); msg != nil {
			msg.GrowthDelta = growth
		}
		return nil
	})
	if err != nil {
		record(StageSimilarity, StatusFailed, err, "")
		return trace
	}
	if hadPrevious {
		record(StageSimilarity, StatusSuccess, nil, "")
	} else {
		record(StageSimilarity, StatusSkipped, nil, "no previous image")
	}

	// reply_generated: build bounded context and ask the generator; fall
	// back to the deterministic local message.
	doc, err = p.store.Read()
	if err != nil {
		record(StageReply, StatusFailed, err, "store read")
		return trace
	}
	subject, subjectType := doc.FindSubject(subjectID)
	if subject == nil {
		record(StageReply, StatusFailed, errors.Newf("enrichment: subject %s vanished", subjectID).
			Component("enrichment").Category(errors.CategoryNotFound).Build(), "")
		return trace
	}

	now := p.now()
	careprofile.Ensure(subject, now)
	careprofile.UpdateFromConversation(subject, "(New photo uploaded)", now)
	profileSummary := careprofile.BuildSummary(subject, now)

	speciesInfo := subject.Species
	if verdict.Species != "" {
		speciesInfo = verdict.Species + " (identified)"
	}
	note := analysisNote(speciesInfo, growth, CareHint(area, growth), profileSummary, likelyDifferent, speciesMismatch)

	messages := append([]llm.Message{
		{Role: llm.RoleSystem, Content: chatSystemPrompt},
		{Role: llm.RoleSystem, Content: note},
	}, conversationContext(subject, p.cfg.ContextWindow)...)

	reply, genErr := p.generator.Chat(ctx, messages)
	replyStatus := StatusSuccess
	if genErr != nil || reply == "" {
		reply = llm.FallbackMessage(subject.Species, subject.Nickname, growth, &area)
		replyStatus = StatusDegraded
		p.metrics.IncrementReplyFallbacks()
	}
	var textEN, textKN string
	if p.cfg.TranslateReplies && replyStatus == StatusSuccess {
		textEN = reply
		textKN = p.generator.Translate(ctx, reply, "kn")
	}
	record(StageReply, replyStatus, genErr, "")

	// persisted: overwrite the placeholder in place by ID and announce
	// completion. The profile mutation is re-applied to the freshly read
	// record; care facts recorded by a concurrent conversation during the
	// generator call must survive.
	err = p.store.Update(subjectID, func(doc *model.Document) error {
		target, _ := doc.FindSubject(subjectID)
		if target == nil {
			return errors.Newf("enrichment: subject %s vanished", subjectID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		careprofile.Ensure(target, now)
		careprofile.UpdateFromConversation(target, "(New photo uploaded)", now)

		if msg := latestPlaceholderFor(target, imageID); msg != nil {
			msg.Text = reply
			msg.TextEN = textEN
			msg.TextKN = textKN
			msg.Time = p.now()
			msg.GrowthDelta = growth
			return nil
		}
		target.Conversations = append(target.Conversations, model.Message{
			ID:          uuid.New().String(),
			Role:        model.RolePlant,
			Text:        reply,
			TextEN:      textEN,
			TextKN:      textKN,
			Time:        p.now(),
			ImageID:     &imageID,
			GrowthDelta: growth,
		})
		return nil
	})
	if err != nil {
		record(StagePersisted, StatusFailed, err, "")
		return trace
	}
	record(StagePersisted, StatusSuccess, nil, "")

	// The collection may have changed during reclassification.
	if doc, err := p.store.Read(); err == nil {
		if _, st := doc.FindSubject(subjectID); st != "" {
			subjectType = st
		}
	}
	p.publish(events.NewEnrichedEvent(subjectID, subjectType))

	return trace
}

// reclassify moves the subject between collections when the species verdict
// disagrees with where it currently lives.
func (p *Pipeline) reclassify(subjectID, species string, record func(Stage, Status, error, string)) {
	if species == "" {
		record(StageReclassified, StatusSkipped, nil, "no species verdict")
		return
	}
	detected := plantid.ClassifyCollection(species)

	moved := false
	err := p.store.Update(subjectID, func(doc *model.Document) error {
		_, current := doc.FindSubject(subjectID)
		if current == "" {
			return errors.Newf("enrichment: subject %s vanished", subjectID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		if current == detected {
			return nil
		}
		moved = doc.MoveSubject(subjectID, detected)
		return nil
	})
	if err != nil {
		record(StageReclassified, StatusFailed, err, "")
		return
	}
	if !moved {
		record(StageReclassified, StatusSkipped, nil, "collection already correct")
		return
	}

	logger.Info("subject reclassified", "subject_id", subjectID,
		"species", species, "collection", detected.Collection())
	p.metrics.IncrementReclassifications()
	p.publish(events.NewCategorizedEvent(subjectID, detected, species))
	record(StageReclassified, StatusSuccess, nil, string(detected))
}

func (p *Pipeline) publish(event events.Event) {
	if p.bus == nil {
		return
	}
	if p.bus.TryPublish(event) {
		p.metrics.RecordEventPublished(event.GetName())
	} else {
		p.metrics.RecordEventDropped(event.GetName())
	}
}

// latestPlaceholderFor finds the plant message bound to an image, preferring
// the most recent one.
func latestPlaceholderFor(subject *model.Subject, imageID string) *model.Message {
	for i := len(subject.Conversations) - 1; i >= 0; i-- {
		m := &subject.Conversations[i]
		if m.Role == model.RolePlant && m.ImageID != nil && *m.ImageID == imageID {
			return m
		}
	}
	return nil
}

// Close releases the package file logger.
func Close() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}
