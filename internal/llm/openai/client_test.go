package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

func TestComplete_SendsVisionRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"extractedText\":\"hello\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)
	raw, err := c.Complete(context.Background(), llm.CompletionRequest{
		Op:     llm.OpExtractText,
		System: "sys",
		User:   "transcribe",
		Image:  &llm.ImageInput{Data: []byte{0xff, 0xd8}, ContentType: "image/jpeg"},
		Schema: llm.ExtractionSchema(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"extractedText":"hello"}`, string(raw))

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	user := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, user, 2)
	img := user[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", img["url"])
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), llm.CompletionRequest{Op: llm.OpGradeEssay, User: "x"})

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
}

func TestComplete_Refusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"","refusal":"cannot help"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), llm.CompletionRequest{Op: llm.OpGradeEssay, User: "x"})

	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "cannot help")
}

func TestServiceOverOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"preliminaryScore\":\"7/10\",\"feedback\":\"Solid.\"}"}}]}`))
	}))
	defer srv.Close()

	svc := llm.NewService(NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil), nil)
	g, err := svc.GradeEssay(context.Background(), llm.GradeRequest{EssayText: "essay"})
	require.NoError(t, err)
	assert.Equal(t, "7/10", g.PreliminaryScore)
}
