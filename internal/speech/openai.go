// Package speech OpenAI synthesis/transcription engine.
//
// Serves clients that cannot run speech on-device: text goes out as
// synthesized audio, recorded audio comes back as text.
package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voicecredit-ai/voicecredit/internal/language"
	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// Default OpenAI model configuration.
const (
	DefaultTTSModel = "tts-1"
	DefaultSTTModel = "whisper-1"
)

// OpenAIOpts holds configuration for the OpenAI speech engine.
type OpenAIOpts struct {
	APIKey   string
	TTSModel string
	STTModel string
}

// OpenAIOption configures the OpenAI speech engine.
type OpenAIOption func(*OpenAIOpts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) OpenAIOption {
	return func(o *OpenAIOpts) { o.APIKey = key }
}

// WithTTSModel sets the synthesis model.
func WithTTSModel(model string) OpenAIOption {
	return func(o *OpenAIOpts) { o.TTSModel = model }
}

// WithSTTModel sets the transcription model.
func WithSTTModel(model string) OpenAIOption {
	return func(o *OpenAIOpts) { o.STTModel = model }
}

// OpenAIEngine synthesizes and transcribes speech through the OpenAI API.
type OpenAIEngine struct {
	client   *openai.Client
	ttsModel string
	sttModel string
}

// NewOpenAIEngine creates the engine, falling back to OPENAI_API_KEY from
// the environment when no key option is given.
func NewOpenAIEngine(opts ...OpenAIOption) (*OpenAIEngine, error) {
	var cfg OpenAIOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key must be provided")
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = DefaultTTSModel
	}
	if cfg.STTModel == "" {
		cfg.STTModel = DefaultSTTModel
	}
	slog.Debug("speech.NewOpenAIEngine: engine configured", "ttsModel", cfg.TTSModel, "sttModel", cfg.STTModel)
	return &OpenAIEngine{
		client:   openai.NewClient(cfg.APIKey),
		ttsModel: cfg.TTSModel,
		sttModel: cfg.STTModel,
	}, nil
}

// Synthesize renders text as spoken audio in the given language.
func (e *OpenAIEngine) Synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error) {
	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(e.ttsModel),
		Input: text,
		Voice: openai.VoiceAlloy,
	})
	if err != nil {
		slog.Error("OpenAIEngine.Synthesize: request failed", "error", err, "language", lang)
		return nil, fmt.Errorf("%w: synthesis failed: %v", models.ErrSpeechUnavailable, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		slog.Error("OpenAIEngine.Synthesize: failed to read audio", "error", err)
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	slog.Debug("OpenAIEngine.Synthesize: succeeded", "language", lang, "bytes", len(audio))
	return audio, nil
}

// Transcribe recognizes text from recorded audio in the given language.
// The filename hints the container format to the API.
func (e *OpenAIEngine) Transcribe(ctx context.Context, audio io.Reader, filename string, lang models.Language) (string, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.sttModel,
		Reader:   audio,
		FilePath: filename,
		Language: language.ISOCode(lang),
	})
	if err != nil {
		slog.Error("OpenAIEngine.Transcribe: request failed", "error", err, "language", lang)
		return "", fmt.Errorf("%w: transcription failed: %v", models.ErrSpeechUnavailable, err)
	}
	slog.Debug("OpenAIEngine.Transcribe: succeeded", "language", lang, "chars", len(resp.Text))
	return resp.Text, nil
}
