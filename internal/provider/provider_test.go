package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
)

func TestExtractCompletionToleratesEmptyResponses(t *testing.T) {
	assert.Equal(t, "", extractCompletion(nil).Text)
	assert.Equal(t, "", extractCompletion(&genai.GenerateContentResponse{}).Text)
	assert.Equal(t, "", extractCompletion(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: nil}},
	}).Text)
	assert.Equal(t, "", extractCompletion(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{nil},
	}).Text)
}

func TestExtractCompletionCollectsTextAndBlobs(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []genai.Part{
					genai.Text("Here is "),
					genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}},
					genai.Text("your image."),
				},
			},
		}},
	}
	c := extractCompletion(resp)
	assert.Equal(t, "Here is your image.", c.Text)
	img, ok := c.FirstInline()
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "data:image/png;base64,AQID", img.DataURL())
}

func TestToContentsSkipsLeadingModelTurns(t *testing.T) {
	history := []gentypes.ChatMessage{
		{Role: gentypes.ModelRole, Text: "orphan"},
		{Role: gentypes.UserRole, Text: "hi"},
		{Role: gentypes.ModelRole, Text: "hello"},
	}
	contents := toContents(history)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, genai.Text("hi"), contents[0].Parts[0])
	assert.Equal(t, "model", contents[1].Role)
}

func TestNewSelectsDummy(t *testing.T) {
	p, err := New(context.Background(), config.GeminiConfig{Provider: "dummy"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &DummyProvider{}, p)
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), config.GeminiConfig{Provider: "gemini"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.GeminiConfig{Provider: "carrier-pigeon"}, zap.NewNop())
	assert.Error(t, err)
}

func TestDummyProvider(t *testing.T) {
	d := NewDummyProvider("")
	ctx := context.Background()

	c, err := d.GenerateContent(ctx, "Say hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Dummy response: Say hi", c.Text)

	c, err = d.GenerateContent(ctx, "Describe", &gentypes.InlinePayload{Data: []byte("abc"), MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Dummy response: Describe [image/png, 3 bytes]", c.Text)

	c, err = d.GenerateImage(ctx, "a cat")
	require.NoError(t, err)
	img, ok := c.FirstInline()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(img.DataURL(), "data:image/png;base64,iVBOR"))
}

func TestDummyChatStream(t *testing.T) {
	d := NewDummyProvider("Echo:")
	var chunks []string
	c, err := d.ChatStream(context.Background(), nil, "one two", func(text string) error {
		chunks = append(chunks, text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, c.Text, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1)

	stop := errors.New("client gone")
	_, err = d.ChatStream(context.Background(), nil, "one two", func(string) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestWrapAPIErrorKeepsStatus(t *testing.T) {
	apiErr := &googleapi.Error{Code: 429, Message: "quota exceeded"}
	err := wrapAPIError("gemini generate", apiErr)
	assert.Contains(t, err.Error(), "status 429")
	assert.ErrorIs(t, err, apiErr)

	plain := errors.New("boom")
	assert.Equal(t, "gemini chat: boom", wrapAPIError("gemini chat", plain).Error())
}
