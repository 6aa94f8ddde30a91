// Package deepgram provides transcription through Deepgram's pre-recorded
// (batch) API. Each utterance is uploaded as a WAV body to /v1/listen and the
// first alternative of the first channel is returned.
//
// Book names and translation codes can be passed as keyword hints so that
// "Habakkuk" or "NRSVUE" survive recognition.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/versecast/pkg/audio"
	"github.com/MrWong99/versecast/pkg/provider/stt"
)

const (
	defaultBaseURL  = "https://api.deepgram.com"
	defaultModel    = "nova-3"
	defaultLanguage = "en-US"
	providerName    = "deepgram"
)

var _ stt.Transcriber = (*Provider)(nil)

// Option configures a [Provider].
type Option func(*Provider)

// WithModel selects the Deepgram model. Default: "nova-3".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the recognition language. Default: "en-US".
func WithLanguage(language string) Option {
	return func(p *Provider) { p.language = normalizeLanguage(language) }
}

// WithKeywords adds vocabulary hints. nova-3 models receive them as
// keyterm parameters, older models as keywords.
func WithKeywords(keywords ...string) Option {
	return func(p *Provider) { p.keywords = append(p.keywords, keywords...) }
}

// WithBaseURL overrides the API origin, e.g. for a self-hosted deployment.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithRawFormat sets the format assumed for audio without a WAV header.
func WithRawFormat(f audio.Format) Option {
	return func(p *Provider) { p.raw = f }
}

// WithHTTPClient replaces the default client (30 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider is a Deepgram batch transcriber.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	keywords   []string
	raw        audio.Format
	httpClient *http.Client
}

// New returns a Provider authenticating with apiKey.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		language:   defaultLanguage,
		raw:        audio.SpeechFormat,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
	ErrMsg string `json:"err_msg"`
}

// Transcribe implements stt.Transcriber.
func (p *Provider) Transcribe(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", stt.ErrEmptyAudio
	}
	wav, err := audio.AsWAV(data, p.raw)
	if err != nil {
		return "", fmt.Errorf("deepgram: %w", err)
	}
	endpoint, err := p.buildURL()
	if err != nil {
		return "", fmt.Errorf("deepgram: build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wav))
	if err != nil {
		return "", fmt.Errorf("deepgram: create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &stt.Error{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &stt.Error{Provider: providerName, Err: fmt.Errorf("read response: %w", err)}
	}

	var result listenResponse
	jsonErr := json.Unmarshal(body, &result)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if jsonErr == nil && result.ErrMsg != "" {
			msg = result.ErrMsg
		}
		return "", &stt.Error{Provider: providerName, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if jsonErr != nil {
		return "", fmt.Errorf("deepgram: parse response: %w", jsonErr)
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.Results.Channels[0].Alternatives[0].Transcript), nil
}

// buildURL constructs the pre-recorded endpoint URL with query parameters.
func (p *Provider) buildURL() (string, error) {
	u, err := url.Parse(p.baseURL + "/v1/listen")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("model", p.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if p.language != "" {
		q.Set("language", p.language)
	}
	param := "keywords"
	if strings.HasPrefix(p.model, "nova-3") {
		param = "keyterm"
	}
	for _, kw := range p.keywords {
		q.Add(param, kw)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeLanguage(code string) string {
	switch strings.ToLower(strings.ReplaceAll(code, "_", "-")) {
	case "en", "en-us":
		return "en-US"
	default:
		return code
	}
}
