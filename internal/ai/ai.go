package ai

import (
	"context"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

// Translation is the model's answer for one work unit.
type Translation struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`

	// Malformed is set when the answer could not be decoded and Translated
	// holds the placeholder instead.
	Malformed bool `json:"-"`
}

// GeneratedImage is a synthesized picture.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// Message is one turn of a chat conversation. Role is "user" or "model".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Source is a web page the chat answer was grounded on.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type ChatReply struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

type Translator interface {
	TranslatePage(ctx context.Context, image []byte, mimeType string, q domain.Quality) (Translation, error)
	TranslateText(ctx context.Context, text string, q domain.Quality) (Translation, error)
}

// ModelNamer is implemented by translators that can name the backend model
// serving a quality tier.
type ModelNamer interface {
	ModelFor(q domain.Quality) string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (GeneratedImage, error)
}

type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
	AnalyzeVideo(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
}

type Chatter interface {
	Chat(ctx context.Context, history []Message, message string) (ChatReply, error)
	FastResponse(ctx context.Context, prompt string) (string, error)
}

// Service is every remote capability the application uses.
type Service interface {
	Translator
	ImageGenerator
	Analyzer
	Chatter
}

// Noop is used when no API key is configured; every call reports that.
type Noop struct{}

var errNotConfigured = domain.ConfigError("gemini API key is not configured (set GEMINI_API_KEY)", nil)

func (Noop) TranslatePage(context.Context, []byte, string, domain.Quality) (Translation, error) {
	return Translation{}, errNotConfigured
}
func (Noop) TranslateText(context.Context, string, domain.Quality) (Translation, error) {
	return Translation{}, errNotConfigured
}
func (Noop) GenerateImage(context.Context, string, string) (GeneratedImage, error) {
	return GeneratedImage{}, errNotConfigured
}
func (Noop) AnalyzeImage(context.Context, []byte, string, string) (string, error) {
	return "", errNotConfigured
}
func (Noop) AnalyzeVideo(context.Context, []byte, string, string) (string, error) {
	return "", errNotConfigured
}
func (Noop) Chat(context.Context, []Message, string) (ChatReply, error) {
	return ChatReply{}, errNotConfigured
}
func (Noop) FastResponse(context.Context, string) (string, error) {
	return "", errNotConfigured
}
