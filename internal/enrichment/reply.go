package enrichment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plantpal/plantpal-go/internal/careprofile"
	"github.com/plantpal/plantpal-go/internal/errors"
	"github.com/plantpal/plantpal-go/internal/llm"
	"github.com/plantpal/plantpal-go/internal/model"
	"github.com/plantpal/plantpal-go/internal/similarity"
)

// ReplyRequest is one interactive conversation turn.
type ReplyRequest struct {
	SubjectID string
	Text      string
	ImageID   string
	Language  string
	// Fast skips the generator and answers with the local composer.
	Fast bool
}

// ReplyResult carries the plant's answer.
type ReplyResult struct {
	Reply       string
	MessageID   string
	ImageID     string
	GrowthDelta *float64
	Fallback    bool
}

var speciesQuestion = regexp.MustCompile(`(?i)species|which species|what species`)

// Reply records the user's message, derives care facts from it, and answers
// as the plant. Generator failures, like everywhere else, degrade to the
// deterministic local message.
func (p *Pipeline) Reply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	if req.SubjectID == "" || strings.TrimSpace(req.Text) == "" {
		return nil, errors.Newf("enrichment: reply needs a subject id and text").
			Component("enrichment").Category(errors.CategoryValidation).Build()
	}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	now := p.now()

	// First pass: record the user's turn and fold care facts into the
	// profile, then snapshot everything the prompt needs.
	var subject *model.Subject
	err := p.store.Update(req.SubjectID, func(doc *model.Document) error {
		target, _ := doc.FindSubject(req.SubjectID)
		if target == nil {
			return errors.Newf("enrichment: subject %s not found", req.SubjectID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		var imageID *string
		if req.ImageID != "" {
			id := req.ImageID
			imageID = &id
		}
		target.Conversations = append(target.Conversations, model.Message{
			ID:      uuid.New().String(),
			Role:    model.RoleUser,
			Text:    req.Text,
			Time:    now,
			ImageID: imageID,
		})
		careprofile.Ensure(target, now)
		careprofile.UpdateFromConversation(target, req.Text, now)
		subject = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	lastImage := selectImage(subject, req.ImageID)
	var growth *float64
	if lastImage != nil {
		if prev := subject.PreviousImage(lastImage.ID); prev != nil && lastImage.Area != nil {
			growth = similarity.GrowthDelta(lastImage.Area, prev.Area)
		}
	}

	result := &ReplyResult{GrowthDelta: growth}
	if lastImage != nil {
		result.ImageID = lastImage.ID
	}

	var reply string
	if req.Fast {
		reply = p.composeFallback(subject, growth, lastImage)
		result.Fallback = true
	} else {
		prompt := replyPrompt(subject, req.Text, lastImage, now, p.cfg.ContextWindow)
		reply, err = p.generator.Prompt(ctx, prompt, lang)
		if err != nil || reply == "" {
			reply = p.composeFallback(subject, growth, lastImage)
			result.Fallback = true
			p.metrics.IncrementReplyFallbacks()
		}
	}

	var textEN, textKN string
	if !result.Fallback {
		switch lang {
		case "kn":
			textKN = reply
			textEN = p.generator.Translate(ctx, reply, "en")
		default:
			textEN = reply
			if p.cfg.TranslateReplies {
				textKN = p.generator.Translate(ctx, reply, "kn")
			}
		}
	}

	// Second pass: persist the plant's answer.
	result.MessageID = uuid.New().String()
	result.Reply = reply
	err = p.store.Update(req.SubjectID, func(doc *model.Document) error {
		target, _ := doc.FindSubject(req.SubjectID)
		if target == nil {
			return errors.Newf("enrichment: subject %s vanished", req.SubjectID).
				Component("enrichment").Category(errors.CategoryNotFound).Build()
		}
		// The profile mutation was persisted by the first pass; writing the
		// snapshot back here would erase anything recorded since.
		var imageID *string
		if lastImage != nil {
			id := lastImage.ID
			imageID = &id
		}
		target.Conversations = append(target.Conversations, model.Message{
			ID:          result.MessageID,
			Role:        model.RolePlant,
			Text:        reply,
			TextEN:      textEN,
			TextKN:      textKN,
			Time:        p.now(),
			ImageID:     imageID,
			GrowthDelta: growth,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) composeFallback(subject *model.Subject, growth *float64, lastImage *model.Image) string {
	nickname := subject.Nickname
	if nickname == "" {
		nickname = subject.Species
	}
	var area *float64
	if lastImage != nil {
		area = lastImage.Area
	}
	return llm.FallbackMessage(subject.Species, nickname, growth, area)
}

// selectImage prefers an explicitly referenced image, else the most recent.
func selectImage(subject *model.Subject, imageID string) *model.Image {
	if imageID != "" {
		if img := subject.ImageByID(imageID); img != nil {
			return img
		}
	}
	if len(subject.Images) == 0 {
		return nil
	}
	return &subject.Images[len(subject.Images)-1]
}

// replyPrompt assembles the single-prompt context for an interactive turn:
// species line, profile digest, selected-image info, and the recent
// conversation rendered as dialogue.
func replyPrompt(subject *model.Subject, userText string, lastImage *model.Image, now time.Time, window int) string {
	var speciesLine string
	if subject.Identification != nil && subject.Identification.Species != "" {
		probability := "unknown"
		if subject.Identification.Probability != nil {
			probability = fmt.Sprintf("%.2f", *subject.Identification.Probability)
		}
		speciesLine = fmt.Sprintf("Recorded species (identification): %s (probability: %s)",
			subject.Identification.Species, probability)
	} else {
		species := subject.Species
		if species == "" {
			species = "Unknown"
		}
		speciesLine = "Recorded species: " + species
	}

	speciesInstruction := ""
	if speciesQuestion.MatchString(userText) {
		speciesInstruction = "If the user is asking about species, answer directly with the recorded species and any identification confidence. Keep it short and do not include meta commentary."
	}

	var dialogue []string
	for _, m := range conversationContext(subject, window) {
		speaker := "Plant:"
		if m.Role == llm.RoleUser {
			speaker = "User:"
		}
		dialogue = append(dialogue, speaker+" "+m.Content)
	}

	imageInfo := ""
	if lastImage != nil {
		area := "unknown"
		if lastImage.Area != nil {
			area = fmt.Sprintf("%.4f", *lastImage.Area)
		}
		imageInfo = fmt.Sprintf("Image selected: uploadedAt=%s, area=%s",
			lastImage.UploadedAt.Format(time.RFC3339), area)
		if len(subject.Images) > 0 && subject.Images[len(subject.Images)-1].ID != lastImage.ID {
			imageInfo += " (not the most recent image)"
		}
	}

	named := ""
	if subject.Nickname != "" {
		named = " named " + subject.Nickname
	}

	return fmt.Sprintf(`%s
%s
You are a friendly houseplant%s (species: %s).

MEMORY:
%s

Context:
%s

Conversation history (most recent first):
%s

User says: %q

Respond warmly in first-person as the plant with a 1-3 sentence reply. Feel like a friend or sibling. Mention visible changes or care tips naturally if relevant. Don't be technical or mention timestamps.`,
		speciesLine, speciesInstruction, named, subject.Species,
		careprofile.BuildSummary(subject, now), imageInfo,
		strings.Join(dialogue, "\n"), userText)
}
