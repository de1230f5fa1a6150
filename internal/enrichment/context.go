package enrichment

import (
	"fmt"
	"math"
	"strings"

	"github.com/plantpal/plantpal-go/internal/llm"
	"github.com/plantpal/plantpal-go/internal/model"
)

// chatSystemPrompt frames the background-enrichment reply. It differs from
// the interactive persona prompt: the model also receives an analysis note
// and must not leak it back as meta commentary.
const chatSystemPrompt = `You are a friendly houseplant that speaks in first-person, warmly and briefly. Do NOT include any meta commentary about prompts, instructions, or system messages. Reply directly as the plant, 1-3 sentences, mention visible changes or one concise care tip when relevant, and avoid prefatory or apologetic framing. Do NOT invent or assert a nickname; use the recorded nickname only if present. Avoid starting with 'Hi', 'Hello', or 'Hi there'.`

// comparePromptExpansion replaces terse "compare" prompts so the model knows
// what the user actually wants.
const comparePromptExpansion = "Please compare the most recent photo with the previous photo and describe visible changes (size, leaf area, pests, color), give a short growth percentage if available, and suggest one concise care action."

// conversationContext maps the tail of a subject's conversation into chat
// messages: placeholder assistant turns are dropped, consecutive duplicate
// user turns collapse to one, and terse compare prompts are expanded.
func conversationContext(subject *model.Subject, window int) []llm.Message {
	conversations := subject.Conversations
	if window > 0 && len(conversations) > window {
		conversations = conversations[len(conversations)-window:]
	}

	var out []llm.Message
	for _, m := range conversations {
		role := llm.RoleAssistant
		if m.Role == model.RoleUser {
			role = llm.RoleUser
		}
		if role == llm.RoleAssistant && llm.IsPlaceholder(m.Text) {
			continue
		}
		if role == llm.RoleUser && len(out) > 0 {
			last := out[len(out)-1]
			if last.Role == llm.RoleUser && strings.TrimSpace(last.Content) == strings.TrimSpace(m.Text) {
				continue
			}
		}
		content := m.Text
		if role == llm.RoleUser {
			switch strings.ToLower(strings.TrimSpace(content)) {
			case "compare with previous", "compare", "compare previous":
				content = comparePromptExpansion
			}
		}
		out = append(out, llm.Message{Role: role, Content: content})
	}
	return out
}

// CareHint derives a one-line care observation from the analyzed area and
// growth delta. An empty string means nothing notable.
func CareHint(area float64, growth *float64) string {
	switch {
	case area < 0.02:
		return "The plant looks very dry and may need water soon."
	case growth != nil && *growth < -0.03:
		return "It looks like I might be shrinking, maybe I need more care."
	case growth != nil && *growth > 0.05:
		return "I seem to be growing well!"
	}
	return ""
}

// analysisNote renders the image analysis and profile digest that rides along
// as system context for the reply.
func analysisNote(speciesInfo string, growth *float64, careHint, profileSummary string, likelyDifferent bool, mismatchSpecies string) string {
	growthText := "unknown"
	if growth != nil {
		growthText = fmt.Sprintf("%d%%", int(math.Round(*growth*100)))
	}
	hint := careHint
	if hint == "" {
		hint = "none"
	}

	note := fmt.Sprintf("IMAGE ANALYSIS:\nspecies=%s; growth=%s; note=%s\n\nPLANT PROFILE:\n%s",
		speciesInfo, growthText, hint, profileSummary)

	var caveats []string
	if likelyDifferent {
		caveats = append(caveats, "P.S. The photo you uploaded looks visually different from the previous photo. If this is a different plant, consider creating a new entry so I can track it separately.")
	}
	if mismatchSpecies != "" {
		caveats = append(caveats, fmt.Sprintf("P.P.S. Identification detected a different species (%s) compared to this plant's recorded species.", mismatchSpecies))
	}
	if len(caveats) > 0 {
		note += "\n\n" + strings.Join(caveats, "\n\n")
	}
	return note
}
