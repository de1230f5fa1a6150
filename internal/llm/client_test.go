package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpal/plantpal-go/internal/errors"
)

const completionsURL = "https://api.openai.com/v1/chat/completions"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient(Config{APIKey: "test-key"})
	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func completionJSON(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func TestPromptReturnsFirstChoice(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completionJSON("Feeling leafy and well today, thanks for asking!")))

	reply, err := client.Prompt(context.Background(), "how are you?", "en")
	require.NoError(t, err)
	assert.Equal(t, "Feeling leafy and well today, thanks for asking!", reply)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestPromptRetriesPlaceholderOnce(t *testing.T) {
	client := newTestClient(t)

	var calls atomic.Int32
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		func(req *http.Request) (*http.Response, error) {
			if calls.Add(1) == 1 {
				return httpmock.NewStringResponse(http.StatusOK,
					completionJSON("Hi there! Thanks for the new photo.")), nil
			}
			return httpmock.NewStringResponse(http.StatusOK,
				completionJSON("Those new leaves unfurled beautifully overnight.")), nil
		})

	reply, err := client.Prompt(context.Background(), "what's new?", "en")
	require.NoError(t, err)
	assert.Equal(t, "Those new leaves unfurled beautifully overnight.", reply)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(1), client.GetMetrics().Retries)
}

func TestPromptKeepsCandidateWhenRetryFails(t *testing.T) {
	client := newTestClient(t)

	var calls atomic.Int32
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		func(req *http.Request) (*http.Response, error) {
			if calls.Add(1) == 1 {
				return httpmock.NewStringResponse(http.StatusOK,
					completionJSON("Hey there, I remember this visit!")), nil
			}
			return httpmock.NewStringResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
		})

	reply, err := client.Prompt(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hey there, I remember this visit!", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPromptWithoutAPIKey(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.Prompt(context.Background(), "hello", "en")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPromptNonOKStatus(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":"rate limited"}`))

	_, err := client.Prompt(context.Background(), "hello", "en")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryLLM))
	assert.Equal(t, int64(1), client.GetMetrics().Failures)
}

func TestChatSendsTranscript(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completionJSON("You watered me yesterday, remember?")))

	reply, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: SystemPrompt("en")},
		{Role: RoleUser, Content: "did I water you recently?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You watered me yesterday, remember?", reply)
}

func TestTranslate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder(http.MethodPost, completionsURL,
			httpmock.NewStringResponder(http.StatusOK, completionJSON("ನಾನು ಚೆನ್ನಾಗಿದ್ದೇನೆ!")))

		got := client.Translate(context.Background(), "I'm doing great!", "kn")
		assert.Equal(t, "ನಾನು ಚೆನ್ನಾಗಿದ್ದೇನೆ!", got)
		assert.Equal(t, int64(1), client.GetMetrics().Translations)
	})

	t.Run("endpoint failure returns original", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder(http.MethodPost, completionsURL,
			httpmock.NewStringResponder(http.StatusInternalServerError, "oops"))

		got := client.Translate(context.Background(), "I'm doing great!", "kn")
		assert.Equal(t, "I'm doing great!", got)
	})

	t.Run("invalid language tag returns original", func(t *testing.T) {
		client := newTestClient(t)
		got := client.Translate(context.Background(), "hello", "not a language")
		assert.Equal(t, "hello", got)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("no key returns original", func(t *testing.T) {
		client := NewClient(Config{})
		got := client.Translate(context.Background(), "hello", "kn")
		assert.Equal(t, "hello", got)
	})
}

func TestSystemPromptFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, systemPrompts["en"], SystemPrompt("fr"))
	assert.Equal(t, systemPrompts["kn"], SystemPrompt("kn"))
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"Hi there, welcome back!", true},
		{"Hey folks! Good to see you.", true},
		{"Thanks for the new photo, looking good!", true},
		{"I'm so excited to grow with you!", true},
		{"I've just been adopted and can't wait!", true},
		{"Would you like to check my soil?", true},
		{"My leaves are feeling crisp today.", false},
		{"Highly recommend more sunlight.", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPlaceholder(tt.text))
		})
	}
}

func TestFallbackMessage(t *testing.T) {
	t.Parallel()

	delta := 0.3
	area := 0.25

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		t.Parallel()
		a := FallbackMessage("Monstera deliciosa", "Fernando", &delta, &area)
		b := FallbackMessage("Monstera deliciosa", "Fernando", &delta, &area)
		assert.Equal(t, a, b)
		assert.Contains(t, a, "Fernando")
	})

	t.Run("mentions strong growth", func(t *testing.T) {
		t.Parallel()
		msg := FallbackMessage("Monstera deliciosa", "Fernando", &delta, nil)
		assert.Contains(t, msg, "30%")
	})

	t.Run("nickname beats species, species beats nothing", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, FallbackMessage("Rosa", "Rosie", nil, nil), "Rosie")
		assert.Contains(t, FallbackMessage("Rosa", "", nil, nil), "Rosa")
		assert.Contains(t, FallbackMessage("", "", nil, nil), "a plant")
	})

	t.Run("dry subject asks for water", func(t *testing.T) {
		t.Parallel()
		dry := 0.01
		msg := FallbackMessage("Pothos", "Goldie", nil, &dry)
		assert.NotEmpty(t, msg)
	})
}
