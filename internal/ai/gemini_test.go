package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

type fakeAPI struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]any
	calls  atomic.Int32
	reply  func(call int32) (int, string)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	b, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(b, &body)
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	status, payload := f.reply(n)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func textReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			"finishReason": "STOP",
		}},
	})
	return string(b)
}

func newTestGemini(t *testing.T, api *fakeAPI) *Gemini {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	g, err := NewGemini(context.Background(), Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Retry:   RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return g
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), Options{})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestTranslatePageSelectsModelByQuality(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		return http.StatusOK, textReply(`{"original":"Chapter One","translated":"# باب اول"}`)
	}}
	g := newTestGemini(t, api)

	got, err := g.TranslatePage(context.Background(), []byte("jpeg"), "image/jpeg", domain.QualityPrecise)
	require.NoError(t, err)
	assert.Equal(t, "Chapter One", got.Original)
	assert.Equal(t, "# باب اول", got.Translated)
	assert.False(t, got.Malformed)

	_, err = g.TranslatePage(context.Background(), []byte("jpeg"), "image/jpeg", domain.QualityFast)
	require.NoError(t, err)

	require.Len(t, api.paths, 2)
	assert.Contains(t, api.paths[0], "gemini-3-pro-preview:generateContent")
	assert.Contains(t, api.paths[1], "gemini-3-flash-preview:generateContent")
	assert.Equal(t, "gemini-3-pro-preview", g.ModelFor(domain.QualityPrecise))
	assert.Equal(t, "gemini-3-flash-preview", g.ModelFor(domain.QualityFast))

	cfg, ok := api.bodies[0]["generationConfig"].(map[string]any)
	require.True(t, ok, "request carries a generation config")
	assert.Equal(t, "application/json", cfg["responseMimeType"])

	contents := api.bodies[0]["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg")), inline["data"])
}

func TestTranslatePageMalformedBecomesPlaceholder(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		return http.StatusOK, textReply("sorry, no JSON today")
	}}
	g := newTestGemini(t, api)

	got, err := g.TranslatePage(context.Background(), []byte("jpeg"), "", domain.QualityFast)
	require.NoError(t, err)
	assert.True(t, got.Malformed)
	assert.Equal(t, "", got.Original)
	assert.Equal(t, domain.PlaceholderTranslation, got.Translated)
}

func TestTranslateTextKeepsSourceText(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		return http.StatusOK, textReply(`{"original":"ignored","translated":"سلام"}`)
	}}
	g := newTestGemini(t, api)

	got, err := g.TranslateText(context.Background(), "Hello world", domain.QualityFast)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got.Original)
	assert.Equal(t, "سلام", got.Translated)
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	api := &fakeAPI{reply: func(n int32) (int, string) {
		if n < 3 {
			return http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`
		}
		return http.StatusOK, textReply("سب ٹھیک ہے")
	}}
	g := newTestGemini(t, api)

	out, err := g.FastResponse(context.Background(), "status?")
	require.NoError(t, err)
	assert.Equal(t, "سب ٹھیک ہے", out)
	assert.Equal(t, int32(3), api.calls.Load())
	assert.Contains(t, api.paths[2], "gemini-2.5-flash-lite-latest")
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		return http.StatusBadRequest, `{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`
	}}
	g := newTestGemini(t, api)

	_, err := g.FastResponse(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteCall)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestChatReturnsGroundingSources(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		b, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": "Lahore is in Punjab."}}},
				"groundingMetadata": map[string]any{"groundingChunks": []any{
					map[string]any{"web": map[string]any{"uri": "https://example.org/lahore", "title": "Lahore"}},
					map[string]any{"web": map[string]any{"uri": "https://example.org/lahore", "title": "dup"}},
					map[string]any{"web": map[string]any{"uri": "https://example.org/punjab", "title": "Punjab"}},
				}},
			}},
		})
		return http.StatusOK, string(b)
	}}
	g := newTestGemini(t, api)

	reply, err := g.Chat(context.Background(), []Message{
		{Role: "user", Text: "Hi"},
		{Role: "model", Text: "Hello!"},
	}, "Where is Lahore?")
	require.NoError(t, err)
	assert.Equal(t, "Lahore is in Punjab.", reply.Text)
	assert.Equal(t, []Source{
		{URI: "https://example.org/lahore", Title: "Lahore"},
		{URI: "https://example.org/punjab", Title: "Punjab"},
	}, reply.Sources)

	contents := api.bodies[0]["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	tools := api.bodies[0]["tools"].([]any)
	assert.Contains(t, tools[0].(map[string]any), "googleSearch")
}

func TestChatEmptyAnswerFallsBack(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, textReply("") }}
	g := newTestGemini(t, api)

	reply, err := g.Chat(context.Background(), nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, ChatFallbackText, reply.Text)
	assert.Empty(t, reply.Sources)
}

func TestGenerateImage(t *testing.T) {
	png := []byte("\x89PNG fake")
	api := &fakeAPI{reply: func(int32) (int, string) {
		b, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{
					map[string]any{"text": "here is your picture"},
					map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString(png)}},
				}},
			}},
		})
		return http.StatusOK, string(b)
	}}
	g := newTestGemini(t, api)

	img, err := g.GenerateImage(context.Background(), "a lantern over the Ravi", "16:9")
	require.NoError(t, err)
	assert.Equal(t, png, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Contains(t, api.paths[0], "gemini-3-pro-image-preview")

	_, err = g.GenerateImage(context.Background(), "x", "5:4")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int32(1), api.calls.Load(), "invalid ratio never reaches the API")
}

func TestGenerateImageWithoutImagePart(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, textReply("I can't draw that") }}
	g := newTestGemini(t, api)

	_, err := g.GenerateImage(context.Background(), "x", "1:1")
	assert.ErrorIs(t, err, domain.ErrRemoteCall)
	assert.Contains(t, err.Error(), "no image data received")
}

func TestAnalyzeDefaults(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, textReply("  A red boat.  ") }}
	g := newTestGemini(t, api)

	out, err := g.AnalyzeImage(context.Background(), []byte("img"), "image/png", "")
	require.NoError(t, err)
	assert.Equal(t, "A red boat.", out)

	parts := api.bodies[0]["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, DefaultAnalyzePrompt, parts[1].(map[string]any)["text"])
}

func TestAnalyzeVideoValidation(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, textReply("a cat") }}
	g := newTestGemini(t, api)

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"empty", nil, "video/mp4"},
		{"not a video", []byte("x"), "image/png"},
		{"too large", make([]byte, MaxInlineVideo+1), "video/mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AnalyzeVideo(context.Background(), tt.data, tt.mime, "")
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Zero(t, api.calls.Load())

	out, err := g.AnalyzeVideo(context.Background(), []byte("mp4"), "video/mp4", "what animal?")
	require.NoError(t, err)
	assert.Equal(t, "a cat", out)
}

func TestNoopReportsNotConfigured(t *testing.T) {
	_, err := Noop{}.TranslatePage(context.Background(), nil, "", domain.QualityFast)
	assert.True(t, IsNotConfigured(err))
	assert.True(t, strings.Contains(fmt.Sprint(err), "GEMINI_API_KEY"))
}

func TestValidAspectRatio(t *testing.T) {
	for _, r := range AspectRatios {
		assert.True(t, ValidAspectRatio(r), r)
	}
	assert.False(t, ValidAspectRatio("5:4"))
	assert.False(t, ValidAspectRatio(""))
}
