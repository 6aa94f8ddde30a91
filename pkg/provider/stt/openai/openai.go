// Package openai provides transcription through OpenAI-compatible
// /audio/transcriptions endpoints: OpenAI itself (whisper-1,
// gpt-4o-transcribe), Groq, or a self-hosted faster-whisper server.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/MrWong99/versecast/pkg/audio"
	"github.com/MrWong99/versecast/pkg/provider/stt"
)

const (
	defaultModel = goopenai.Whisper1
	providerName = "openai"
)

var _ stt.Transcriber = (*Provider)(nil)

// Option configures a [Provider].
type Option func(*Provider)

// WithModel selects the transcription model. Default: "whisper-1".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the ISO-639-1 language hint.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithPrompt sets a prompt that biases recognition, e.g. a list of book
// names.
func WithPrompt(prompt string) Option {
	return func(p *Provider) { p.prompt = prompt }
}

// WithRawFormat sets the format assumed for audio without a WAV header.
func WithRawFormat(f audio.Format) Option {
	return func(p *Provider) { p.raw = f }
}

// Provider transcribes through an OpenAI-compatible API.
type Provider struct {
	client   *goopenai.Client
	model    string
	language string
	prompt   string
	raw      audio.Format
}

// New returns a Provider. baseURL may be empty for api.openai.com; for Groq
// use "https://api.groq.com/openai/v1".
func New(apiKey, baseURL string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	p := &Provider{
		client: goopenai.NewClientWithConfig(cfg),
		model:  defaultModel,
		raw:    audio.SpeechFormat,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Transcriber.
func (p *Provider) Transcribe(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", stt.ErrEmptyAudio
	}
	wav, err := audio.AsWAV(data, p.raw)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	resp, err := p.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    p.model,
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
		Language: p.language,
		Prompt:   p.prompt,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", &stt.Error{Provider: providerName, StatusCode: apiErr.HTTPStatusCode, Err: err}
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) {
			return "", &stt.Error{Provider: providerName, StatusCode: reqErr.HTTPStatusCode, Err: err}
		}
		return "", &stt.Error{Provider: providerName, Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
