package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	text       string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystem, f.lastUser = systemPrompt, userPrompt
	return f.text, f.err
}

func TestPromptBackend_Generate(t *testing.T) {
	fc := &fakeCompleter{text: "```markdown\n# Report\nbody\n```"}
	b := NewPromptBackend(fc)

	out, err := b.Generate(context.Background(), NewInput(reportDay, ""))
	require.NoError(t, err)
	assert.Equal(t, "# Report\nbody", out)
	assert.Equal(t, SystemPrompt, fc.lastSystem)
	assert.Contains(t, fc.lastUser, "## Available data")
}

func TestPromptBackend_RegeneratePassesPrevious(t *testing.T) {
	fc := &fakeCompleter{text: "# Better"}
	b := NewPromptBackend(fc)

	out, err := b.Regenerate(context.Background(), NewInput(reportDay, ""), "# Old", "shorter")
	require.NoError(t, err)
	assert.Equal(t, "# Better", out)
	assert.Contains(t, fc.lastUser, "# Old")
	assert.Contains(t, fc.lastUser, "shorter")
}

func TestPromptBackend_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewPromptBackend(&fakeCompleter{err: boom}).Generate(context.Background(), NewInput(reportDay, ""))
	assert.ErrorIs(t, err, boom)

	_, err = NewPromptBackend(&fakeCompleter{text: "   "}).Generate(context.Background(), NewInput(reportDay, ""))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func chatServer(t *testing.T, status int, content string, hits *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{{"message": map[string]string{"content": content}}},
			})
		}
	}))
}

func TestChatCompleter_FallsBack(t *testing.T) {
	var primaryHits, secondaryHits int
	primary := chatServer(t, http.StatusServiceUnavailable, "", &primaryHits)
	defer primary.Close()
	secondary := chatServer(t, http.StatusOK, "# From fallback", &secondaryHits)
	defer secondary.Close()

	c := NewChatCompleter(http.DefaultClient,
		ChatEndpoint{Name: "glm", URL: primary.URL, APIKey: "key", Model: "glm"},
		ChatEndpoint{Name: "unset", URL: "http://127.0.0.1:0"},
		ChatEndpoint{Name: "deepseek", URL: secondary.URL, APIKey: "key", Model: "deepseek-chat"},
	)

	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "# From fallback", out)
	assert.Equal(t, 1, primaryHits)
	assert.Equal(t, 1, secondaryHits)
}

func TestChatCompleter_AllFail(t *testing.T) {
	var hits int
	srv := chatServer(t, http.StatusInternalServerError, "", &hits)
	defer srv.Close()

	c := NewChatCompleter(http.DefaultClient, ChatEndpoint{Name: "openai", URL: srv.URL, APIKey: "key"})
	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")
}

func TestChatCompleter_NoEndpoints(t *testing.T) {
	c := NewChatCompleter(http.DefaultClient, ChatEndpoint{Name: "glm", URL: "http://x"})
	_, err := c.Complete(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrNoCompleters)
}

func TestChatCompleter_EmptyChoice(t *testing.T) {
	var hits int
	srv := chatServer(t, http.StatusOK, "  ", &hits)
	defer srv.Close()

	c := NewChatCompleter(http.DefaultClient, ChatEndpoint{Name: "openai", URL: srv.URL, APIKey: "key"})
	_, err := c.Complete(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
