package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	genai "google.golang.org/genai"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

const (
	DefaultAnalyzePrompt = "Describe this image in detail and identify key subjects."
	DefaultVideoPrompt   = "Describe what happens in this video, scene by scene."
	ChatFallbackText     = "I couldn't process that."
	GeneratedImageName   = "urdu-link-ai-gen.png"

	// MaxInlineVideo bounds video sent inline with the request.
	MaxInlineVideo = 20 << 20
)

// AspectRatios are the ratios accepted by the image model.
var AspectRatios = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "9:16", "16:9", "21:9"}

func ValidAspectRatio(r string) bool {
	for _, a := range AspectRatios {
		if a == r {
			return true
		}
	}
	return false
}

// Models names the backend model used for each capability.
type Models struct {
	Fast    string `mapstructure:"fast"`
	Precise string `mapstructure:"precise"`
	Image   string `mapstructure:"image"`
	Vision  string `mapstructure:"vision"`
	Chat    string `mapstructure:"chat"`
	Lite    string `mapstructure:"lite"`
}

func DefaultModels() Models {
	return Models{
		Fast:    "gemini-3-flash-preview",
		Precise: "gemini-3-pro-preview",
		Image:   "gemini-3-pro-image-preview",
		Vision:  "gemini-3-pro-preview",
		Chat:    "gemini-3-pro-preview",
		Lite:    "gemini-2.5-flash-lite-latest",
	}
}

// ForQuality maps a quality tier to its model.
func (m Models) ForQuality(q domain.Quality) string {
	if q == domain.QualityPrecise {
		return m.Precise
	}
	return m.Fast
}

type Options struct {
	APIKey  string
	BaseURL string
	Models  Models
	Retry   RetryConfig
	Logger  zerolog.Logger
}

type Gemini struct {
	client *genai.Client
	models Models
	retry  RetryConfig
	log    zerolog.Logger
}

func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, domain.ConfigError("missing GEMINI_API_KEY", nil)
	}
	models := opts.Models
	defaults := DefaultModels()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&models.Fast, defaults.Fast)
	fill(&models.Precise, defaults.Precise)
	fill(&models.Image, defaults.Image)
	fill(&models.Vision, defaults.Vision)
	fill(&models.Chat, defaults.Chat)
	fill(&models.Lite, defaults.Lite)

	retry := opts.Retry
	if retry.InitialBackoff == 0 {
		retry = DefaultRetryConfig()
	}

	cc := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, domain.ConfigError("create gemini client", err)
	}
	return &Gemini{
		client: c,
		models: models,
		retry:  retry,
		log:    opts.Logger.With().Str("component", "gemini").Logger(),
	}, nil
}

func (g *Gemini) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var res *genai.GenerateContentResponse
	err := withRetry(ctx, g.retry, g.log, func() error {
		var err error
		res, err = g.client.Models.GenerateContent(ctx, model, contents, cfg)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.RemoteCallError(fmt.Sprintf("gemini API call to %s failed", model), err)
	}
	return res, nil
}

const pagePrompt = `You are an OCR and layout-aware translation engine.
1. Extract all text from this document page exactly as it appears.
2. Translate the text into natural, high quality Urdu.
3. Keep the structure of the page using Markdown:
   - "# " for main titles, "## " for sub-headings
   - "* " or "- " for bullet points, "1. ", "2. " for numbered lists
   - separate paragraphs and blocks with a blank line
   - a line that stands alone as a header in the source stays a header in Urdu
4. Answer with a JSON object: "original" holds the extracted source text,
   "translated" holds the Urdu Markdown.`

const textPrompt = `Translate the following document text into natural, high quality Urdu.
Keep its structure using Markdown ("# " titles, "## " sub-headings, "* " bullets,
"1. " numbered items, blank lines between blocks).
Answer with a JSON object: "original" holds the source text, "translated" holds the Urdu Markdown.

Document text:
`

func translationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"original":   {Type: genai.TypeString},
				"translated": {Type: genai.TypeString},
			},
			Required: []string{"original", "translated"},
		},
	}
}

// TranslatePage OCRs and translates one page image.
func (g *Gemini) TranslatePage(ctx context.Context, image []byte, mimeType string, q domain.Quality) (Translation, error) {
	if len(image) == 0 {
		return Translation{}, domain.ValidationError("empty page image", nil)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	model := g.models.ForQuality(q)
	content := []*genai.Content{{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			{Text: pagePrompt},
		},
	}}
	res, err := g.generate(ctx, model, content, translationConfig())
	if err != nil {
		return Translation{}, err
	}
	return g.decode(model, res.Text()), nil
}

// TranslateText translates extracted document text.
func (g *Gemini) TranslateText(ctx context.Context, text string, q domain.Quality) (Translation, error) {
	if strings.TrimSpace(text) == "" {
		return Translation{Translated: domain.PlaceholderTranslation, Malformed: true}, nil
	}
	model := g.models.ForQuality(q)
	content := []*genai.Content{genai.NewContentFromText(textPrompt+text, genai.RoleUser)}
	res, err := g.generate(ctx, model, content, translationConfig())
	if err != nil {
		return Translation{}, err
	}
	out := g.decode(model, res.Text())
	out.Original = text
	return out, nil
}

func (g *Gemini) decode(model, raw string) Translation {
	out := ParseTranslation(raw)
	if out.Malformed {
		g.log.Warn().Str("model", model).Int("response_bytes", len(raw)).Msg("malformed translation response, using placeholder")
	}
	return out
}

// GenerateImage synthesizes one image for prompt at the given aspect ratio.
func (g *Gemini) GenerateImage(ctx context.Context, prompt, aspectRatio string) (GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return GeneratedImage{}, domain.ValidationError("image prompt is empty", nil)
	}
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}
	if !ValidAspectRatio(aspectRatio) {
		return GeneratedImage{}, domain.ValidationError(fmt.Sprintf("unsupported aspect ratio %q (want one of %s)", aspectRatio, strings.Join(AspectRatios, ", ")), nil)
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: aspectRatio},
	}
	res, err := g.generate(ctx, g.models.Image, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		return GeneratedImage{}, err
	}
	if len(res.Candidates) > 0 && res.Candidates[0].Content != nil {
		for _, p := range res.Candidates[0].Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				mt := p.InlineData.MIMEType
				if mt == "" {
					mt = "image/png"
				}
				return GeneratedImage{Data: p.InlineData.Data, MIMEType: mt}, nil
			}
		}
	}
	return GeneratedImage{}, domain.RemoteCallError("no image data received", nil)
}

// AnalyzeImage describes an image; an empty prompt uses DefaultAnalyzePrompt.
func (g *Gemini) AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	if len(data) == 0 {
		return "", domain.ValidationError("empty image", nil)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultAnalyzePrompt
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return g.describe(ctx, data, mimeType, prompt)
}

// AnalyzeVideo describes a short video sent inline.
func (g *Gemini) AnalyzeVideo(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	if len(data) == 0 {
		return "", domain.ValidationError("empty video", nil)
	}
	if len(data) > MaxInlineVideo {
		return "", domain.ValidationError(fmt.Sprintf("video is %d bytes, inline limit is %d", len(data), MaxInlineVideo), nil)
	}
	if !strings.HasPrefix(mimeType, "video/") {
		return "", domain.ValidationError(fmt.Sprintf("not a video: %q", mimeType), nil)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultVideoPrompt
	}
	return g.describe(ctx, data, mimeType, prompt)
}

func (g *Gemini) describe(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	content := []*genai.Content{{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			{Text: prompt},
		},
	}}
	res, err := g.generate(ctx, g.models.Vision, content, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text()), nil
}

// Chat answers message in the context of history, grounded with Google Search.
func (g *Gemini) Chat(ctx context.Context, history []Message, message string) (ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return ChatReply{}, domain.ValidationError("chat message is empty", nil)
	}
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := string(genai.RoleUser)
		if m.Role == string(genai.RoleModel) {
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}})
	}
	contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{{Text: message}}})

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	res, err := g.generate(ctx, g.models.Chat, contents, cfg)
	if err != nil {
		return ChatReply{}, err
	}
	reply := ChatReply{Text: strings.TrimSpace(res.Text()), Sources: groundingSources(res)}
	if reply.Text == "" {
		reply.Text = ChatFallbackText
	}
	return reply, nil
}

func groundingSources(res *genai.GenerateContentResponse) []Source {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []Source
	seen := make(map[string]bool)
	for _, c := range res.Candidates[0].GroundingMetadata.GroundingChunks {
		if c == nil || c.Web == nil || c.Web.URI == "" || seen[c.Web.URI] {
			continue
		}
		seen[c.Web.URI] = true
		out = append(out, Source{URI: c.Web.URI, Title: c.Web.Title})
	}
	return out
}

// FastResponse answers a short prompt with the low-latency model.
func (g *Gemini) FastResponse(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ValidationError("prompt is empty", nil)
	}
	res, err := g.generate(ctx, g.models.Lite, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text()), nil
}

// ModelFor names the model TranslatePage and TranslateText use for q.
func (g *Gemini) ModelFor(q domain.Quality) string {
	return g.models.ForQuality(q)
}

var _ Service = (*Gemini)(nil)
var _ ModelNamer = (*Gemini)(nil)
var _ Service = Noop{}

// IsNotConfigured reports whether err comes from the Noop service.
func IsNotConfigured(err error) bool {
	return errors.Is(err, errNotConfigured)
}
