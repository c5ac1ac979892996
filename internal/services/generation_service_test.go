package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/storage"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newFileStore(t *testing.T) *storage.LocalFileStore {
	t.Helper()
	store, err := storage.NewLocalFileStore(config.UploadConfig{Dir: filepath.Join(t.TempDir(), "uploads"), MaxFileSizeMB: 20}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func storeFile(t *testing.T, store *storage.LocalFileStore, name, mimeType string, data []byte) *gentypes.UploadedFile {
	t.Helper()
	f, err := store.Store(context.Background(), bytes.NewReader(data), int64(len(data)), name, mimeType)
	require.NoError(t, err)
	return f
}

func assertRemoved(t *testing.T, f *gentypes.UploadedFile) {
	t.Helper()
	_, err := os.Stat(f.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "transient file %s still exists", f.Path)
}

func assertGenErr(t *testing.T, err error, kind gentypes.ErrorKind, msg string) {
	t.Helper()
	require.Error(t, err)
	var genErr *gentypes.Error
	require.True(t, errors.As(err, &genErr), "unexpected error type %T", err)
	assert.Equal(t, kind, genErr.Kind)
	assert.Equal(t, msg, genErr.Message)
}

func TestGenerateText(t *testing.T) {
	fp := &fakeProvider{text: "hi there"}
	svc := NewGenerationService(fp, newFileStore(t), zap.NewNop())

	data, err := svc.GenerateText(context.Background(), "Say hi")
	require.NoError(t, err)
	assert.Equal(t, "Say hi", data.Prompt)
	assert.Equal(t, "hi there", data.Response)
	assert.Nil(t, fp.lastInline)
}

func TestGenerateTextRejectsBlankPromptWithoutCallingProvider(t *testing.T) {
	fp := &fakeProvider{text: "unused"}
	svc := NewGenerationService(fp, newFileStore(t), zap.NewNop())

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := svc.GenerateText(context.Background(), prompt)
		assertGenErr(t, err, gentypes.KindValidation, "Prompt is required")
	}
	assert.Zero(t, fp.callCount())
}

func TestGenerateTextFallbackAndProviderError(t *testing.T) {
	fp := &fakeProvider{text: "  "}
	svc := NewGenerationService(fp, newFileStore(t), zap.NewNop())

	data, err := svc.GenerateText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, data.Response)

	fp.err = errors.New("quota exceeded")
	_, err = svc.GenerateText(context.Background(), "hello")
	assertGenErr(t, err, gentypes.KindProvider, "Failed to generate text response")
	assert.Equal(t, "quota exceeded", gentypes.Fail(err).Details)
}

func TestGenerateFromFileImageSuccess(t *testing.T) {
	store := newFileStore(t)
	fp := &fakeProvider{text: "a small png"}
	svc := NewGenerationService(fp, store, zap.NewNop())
	f := storeFile(t, store, "cat.png", "image/png", pngBytes)

	data, err := svc.GenerateFromFile(context.Background(), gentypes.ImageModality, f, "")
	require.NoError(t, err)

	assert.Equal(t, "Describe this image in detail.", data.Prompt)
	assert.Equal(t, "cat.png", data.FileName)
	assert.Equal(t, "image/png", data.MimeType)
	assert.Equal(t, "a small png", data.Response)
	require.NotNil(t, fp.lastInline)
	assert.Equal(t, "image/png", fp.lastInline.MIMEType)
	assert.Equal(t, pngBytes, fp.lastInline.Data)
	assertRemoved(t, f)
}

func TestGenerateFromFileUsesCallerPrompt(t *testing.T) {
	store := newFileStore(t)
	fp := &fakeProvider{text: "summary"}
	svc := NewGenerationService(fp, store, zap.NewNop())
	f := storeFile(t, store, "notes.txt", "text/plain; charset=utf-8", []byte("hello"))

	data, err := svc.GenerateFromFile(context.Background(), gentypes.DocumentModality, f, "List the key points")
	require.NoError(t, err)
	assert.Equal(t, "List the key points", fp.lastPrompt)
	assert.Equal(t, "text/plain", data.MimeType)
	assertRemoved(t, f)
}

func TestGenerateFromFileRejectsDisallowedType(t *testing.T) {
	store := newFileStore(t)
	fp := &fakeProvider{}
	svc := NewGenerationService(fp, store, zap.NewNop())
	f := storeFile(t, store, "setup.exe", "application/octet-stream", []byte("MZ\x90\x00"))

	_, err := svc.GenerateFromFile(context.Background(), gentypes.ImageModality, f, "")
	assertGenErr(t, err, gentypes.KindUnsupportedMedia, "Invalid file type. Allowed: jpeg, png, gif, webp")
	assert.Zero(t, fp.callCount())
	assertRemoved(t, f)
}

func TestGenerateFromFileRejectsContentMismatch(t *testing.T) {
	store := newFileStore(t)
	fp := &fakeProvider{}
	svc := NewGenerationService(fp, store, zap.NewNop())
	// 声明为文本，实际是 PNG
	f := storeFile(t, store, "notes.txt", "text/plain", pngBytes)

	_, err := svc.GenerateFromFile(context.Background(), gentypes.DocumentModality, f, "")
	assertGenErr(t, err, gentypes.KindUnsupportedMedia, "Invalid file type. Allowed: pdf, txt, csv, html")
	assert.Zero(t, fp.callCount())
	assertRemoved(t, f)
}

func TestGenerateFromFileProviderErrorStillCleansUp(t *testing.T) {
	store := newFileStore(t)
	fp := &fakeProvider{err: errors.New("upstream 503")}
	svc := NewGenerationService(fp, store, zap.NewNop())
	f := storeFile(t, store, "voice.ogg", "audio/ogg", []byte("not really ogg"))

	_, err := svc.GenerateFromFile(context.Background(), gentypes.AudioModality, f, "")
	assertGenErr(t, err, gentypes.KindProvider, "Failed to process audio")
	assert.Equal(t, "Transcribe and describe this audio content.", fp.lastPrompt)
	assertRemoved(t, f)
}

func TestGenerateFromFileMissingFile(t *testing.T) {
	svc := NewGenerationService(&fakeProvider{}, newFileStore(t), zap.NewNop())

	_, err := svc.GenerateFromFile(context.Background(), gentypes.AudioModality, nil, "")
	assertGenErr(t, err, gentypes.KindValidation, "Audio file is required")
	_, err = svc.GenerateFromFile(context.Background(), gentypes.DocumentModality, nil, "")
	assertGenErr(t, err, gentypes.KindValidation, "Document file is required")
}

func TestGenerateFromFileUnknownModalityCleansUp(t *testing.T) {
	store := newFileStore(t)
	svc := NewGenerationService(&fakeProvider{}, store, zap.NewNop())
	f := storeFile(t, store, "a.txt", "text/plain", []byte("x"))

	_, err := svc.GenerateFromFile(context.Background(), gentypes.TextModality, f, "")
	assert.Equal(t, gentypes.KindValidation, gentypes.KindOf(err))
	assertRemoved(t, f)
}

func TestGenerateImage(t *testing.T) {
	fp := &fakeProvider{images: []gentypes.InlinePayload{{Data: []byte{1, 2, 3}, MIMEType: "image/png"}}}
	svc := NewGenerationService(fp, newFileStore(t), zap.NewNop())

	data, err := svc.GenerateImage(context.Background(), "draw a cat")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", data.ImageURL)
	assert.Equal(t, `Here is the image I generated for: "draw a cat"`, data.Response)

	fp.images = nil
	_, err = svc.GenerateImage(context.Background(), "draw a cat")
	assertGenErr(t, err, gentypes.KindProvider, "Failed to generate image")
	assert.Equal(t, "model returned no image data", gentypes.Fail(err).Details)

	_, err = svc.GenerateImage(context.Background(), " ")
	assert.Equal(t, gentypes.KindValidation, gentypes.KindOf(err))
}
