package enrichment

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/plantpal/plantpal-go/internal/errors"
	"github.com/plantpal/plantpal-go/internal/llm"
	"github.com/plantpal/plantpal-go/internal/model"
)

// IntakeRequest describes a freshly stored upload. Exactly one resolution
// path applies: an explicit SubjectID targets that subject; otherwise the
// nickname or species is matched inside the requested collection, and a new
// subject is created when nothing matches.
type IntakeRequest struct {
	Filename    string
	Species     string
	Nickname    string
	Owner       string
	SubjectID   string
	SubjectType model.SubjectType
}

// IntakeResult is the synchronous answer to an upload. The placeholder
// message it carries is later overwritten by the background run.
type IntakeResult struct {
	SubjectID   string
	SubjectType model.SubjectType
	ImageID     string
	MessageID   string
	Message     string
}

// Intake records the upload on the fast path: resolve or create the subject,
// append the image entry, write a placeholder reply, persist. The caller
// starts Enrich afterwards with the returned IDs.
func (p *Pipeline) Intake(_ context.Context, req IntakeRequest) (*IntakeResult, error) {
	if req.Filename == "" {
		return nil, errors.Newf("enrichment: intake needs a filename").
			Component("enrichment").Category(errors.CategoryValidation).Build()
	}
	requestedType := model.SubjectTypePlant
	if req.SubjectType == model.SubjectTypeFlower {
		requestedType = model.SubjectTypeFlower
	}

	now := p.now()
	result := &IntakeResult{
		ImageID:   uuid.New().String(),
		MessageID: uuid.New().String(),
	}

	// For a new subject the update is striped on the freshly minted ID.
	lockID := req.SubjectID
	if lockID == "" {
		lockID = uuid.New().String()
	}

	err := p.store.Update(lockID, func(doc *model.Document) error {
		var subject *model.Subject
		var subjectType model.SubjectType

		switch {
		case req.SubjectID != "":
			subject, subjectType = doc.FindSubject(req.SubjectID)
			if subject == nil {
				return errors.Newf("enrichment: subject %s not found", req.SubjectID).
					Component("enrichment").Category(errors.CategoryNotFound).Build()
			}
		default:
			subject = matchInCollection(doc, requestedType, req.Nickname, req.Species)
			subjectType = requestedType
			if subject == nil {
				species := req.Species
				if species == "" {
					species = "Unknown"
				}
				subject = &model.Subject{
					ID:       lockID,
					Species:  species,
					Nickname: req.Nickname,
					Owner:    req.Owner,
				}
				if requestedType == model.SubjectTypeFlower {
					doc.Flowers = append(doc.Flowers, subject)
				} else {
					doc.Plants = append(doc.Plants, subject)
				}
			}
		}

		subject.Images = append(subject.Images, model.Image{
			ID:         result.ImageID,
			Filename:   req.Filename,
			UploadedAt: now,
		})

		nickname := subject.Nickname
		if nickname == "" {
			nickname = subject.Species
		}
		placeholder := llm.FallbackMessage(subject.Species, nickname, nil, nil)
		subject.Conversations = append(subject.Conversations, model.Message{
			ID:      result.MessageID,
			Role:    model.RolePlant,
			Text:    placeholder,
			Time:    now,
			ImageID: &result.ImageID,
		})

		result.SubjectID = subject.ID
		result.SubjectType = subjectType
		result.Message = placeholder
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("upload recorded", "subject_id", result.SubjectID,
		"image_id", result.ImageID, "collection", result.SubjectType.Collection())
	return result, nil
}

// matchInCollection finds an existing subject by nickname first, then
// species, case-insensitively, inside one collection.
func matchInCollection(doc *model.Document, subjectType model.SubjectType, nickname, species string) *model.Subject {
	collection := doc.Plants
	if subjectType == model.SubjectTypeFlower {
		collection = doc.Flowers
	}
	if nickname != "" {
		for _, s := range collection {
			if strings.EqualFold(s.Nickname, nickname) {
				return s
			}
		}
	}
	if species != "" {
		for _, s := range collection {
			if strings.EqualFold(s.Species, species) {
				return s
			}
		}
	}
	return nil
}
