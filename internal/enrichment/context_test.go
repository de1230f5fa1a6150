package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpal/plantpal-go/internal/llm"
	"github.com/plantpal/plantpal-go/internal/model"
)

func msg(role, text string) model.Message {
	return model.Message{Role: role, Text: text}
}

func TestConversationContext(t *testing.T) {
	t.Parallel()

	t.Run("filters placeholder assistant turns", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{Conversations: []model.Message{
			msg(model.RolePlant, "Hi there, thanks for stopping by!"),
			msg(model.RoleUser, "how are you?"),
			msg(model.RolePlant, "My roots feel cozy today."),
		}}

		out := conversationContext(subject, 8)
		require.Len(t, out, 2)
		assert.Equal(t, llm.RoleUser, out[0].Role)
		assert.Equal(t, "My roots feel cozy today.", out[1].Content)
	})

	t.Run("collapses consecutive duplicate user turns", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{Conversations: []model.Message{
			msg(model.RoleUser, "water check"),
			msg(model.RoleUser, "water check "),
			msg(model.RolePlant, "All good down here."),
			msg(model.RoleUser, "water check"),
		}}

		out := conversationContext(subject, 8)
		require.Len(t, out, 3)
		assert.Equal(t, llm.RoleUser, out[0].Role)
		assert.Equal(t, llm.RoleAssistant, out[1].Role)
		assert.Equal(t, llm.RoleUser, out[2].Role)
	})

	t.Run("expands terse compare prompts", func(t *testing.T) {
		t.Parallel()
		for _, text := range []string{"compare", "Compare With Previous", " compare previous "} {
			subject := &model.Subject{Conversations: []model.Message{msg(model.RoleUser, text)}}
			out := conversationContext(subject, 8)
			require.Len(t, out, 1)
			assert.Equal(t, comparePromptExpansion, out[0].Content)
		}
	})

	t.Run("window bounds the tail", func(t *testing.T) {
		t.Parallel()
		var conversations []model.Message
		for range 20 {
			conversations = append(conversations,
				msg(model.RoleUser, "u"),
				msg(model.RolePlant, "looking good"))
		}
		subject := &model.Subject{Conversations: conversations}

		out := conversationContext(subject, 8)
		assert.Len(t, out, 8)
	})
}

func TestCareHint(t *testing.T) {
	t.Parallel()

	grow := 0.10
	shrink := -0.05
	flat := 0.0

	tests := []struct {
		name   string
		area   float64
		growth *float64
		want   string
	}{
		{"very dry wins", 0.01, &grow, "The plant looks very dry and may need water soon."},
		{"shrinking", 0.2, &shrink, "It looks like I might be shrinking, maybe I need more care."},
		{"growing well", 0.2, &grow, "I seem to be growing well!"},
		{"steady", 0.2, &flat, ""},
		{"no growth data", 0.2, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CareHint(tt.area, tt.growth))
		})
	}
}

func TestAnalysisNote(t *testing.T) {
	t.Parallel()

	growth := 0.31
	note := analysisNote("Monstera deliciosa (identified)", &growth, "I seem to be growing well!", "Nickname: Fernando", false, "")
	assert.Contains(t, note, "species=Monstera deliciosa (identified)")
	assert.Contains(t, note, "growth=31%")
	assert.Contains(t, note, "note=I seem to be growing well!")
	assert.Contains(t, note, "PLANT PROFILE:\nNickname: Fernando")
	assert.NotContains(t, note, "P.S.")

	note = analysisNote("Unknown", nil, "", "profile", true, "Rosa gallica")
	assert.Contains(t, note, "growth=unknown")
	assert.Contains(t, note, "note=none")
	assert.Contains(t, note, "looks visually different from the previous photo")
	assert.Contains(t, note, "different species (Rosa gallica)")
}
