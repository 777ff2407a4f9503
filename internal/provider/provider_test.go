package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaComplete(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "  Start with OPS-7.  "})
	}))
	defer srv.Close()

	p := NewOllama(Config{Host: srv.URL + "/", Model: "tiny"})
	text, err := p.Complete(context.Background(), "prioritize")
	require.NoError(t, err)
	assert.Equal(t, "Start with OPS-7.", text)
	assert.Equal(t, "tiny", got.Model)
	assert.Equal(t, "prioritize", got.Prompt)
	assert.False(t, got.Stream)
}

func TestOllamaFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "   "})
		},
		"error field": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewOllama(Config{Host: srv.URL}).Complete(context.Background(), "p")
			assert.ErrorIs(t, err, ErrProviderFailure)
		})
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllama(Config{Host: url}).Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrProviderFailure)
}

func TestNew(t *testing.T) {
	p, err := New(context.Background(), Config{Name: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, p)

	p, err = New(context.Background(), Config{Name: "none"})
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrProviderFailure)

	_, err = New(context.Background(), Config{Name: "gemini"})
	assert.Error(t, err, "gemini needs an API key")

	_, err = New(context.Background(), Config{Name: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	p := Func(func(_ context.Context, prompt string) (string, error) { return "echo " + prompt, nil })
	text, err := p.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "echo x", text)
}

func TestTimeoutAppliesToEveryProvider(t *testing.T) {
	o := NewOllama(Config{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, o.httpClient.Timeout)
	assert.Equal(t, defaultTimeout, NewOllama(Config{}).httpClient.Timeout)

	g, err := NewGemini(context.Background(), Config{APIKey: "k", Timeout: 7 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, g.timeout)

	g, err = NewGemini(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, g.timeout)
}
