package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/versecast/pkg/audio"
	"github.com/MrWong99/versecast/pkg/provider/stt"
)

var _ stt.Transcriber = (*NativeProvider)(nil)

// NativeProvider runs whisper.cpp in-process through its cgo bindings. The
// model is loaded once and shared; each utterance gets its own inference
// context. Inference is CPU-bound, so concurrent calls are limited to the
// configured parallelism.
type NativeProvider struct {
	model    whisperlib.Model
	language string
	raw      audio.Format
	slots    chan struct{}

	closeOnce sync.Once
}

// NativeOption configures a [NativeProvider].
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the recognition language. Default: "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeRawFormat sets the format assumed for audio without a WAV
// header. Default: 16 kHz mono.
func WithNativeRawFormat(f audio.Format) NativeOption {
	return func(p *NativeProvider) { p.raw = f }
}

// WithNativeParallelism bounds concurrent inferences. Default: 1.
func WithNativeParallelism(n int) NativeOption {
	return func(p *NativeProvider) {
		if n > 0 {
			p.slots = make(chan struct{}, n)
		}
	}
}

// NewNative loads the ggml model at modelPath.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
		raw:      audio.SpeechFormat,
		slots:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the model.
func (p *NativeProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.model != nil {
			err = p.model.Close()
		}
	})
	return err
}

// Transcribe implements stt.Transcriber. The clip is converted to 16 kHz
// mono before inference.
func (p *NativeProvider) Transcribe(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", stt.ErrEmptyAudio
	}
	clip, err := audio.Decode(data, p.raw)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	samples := audio.Float32(clip.Convert(audio.SpeechFormat).PCM)

	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	// Returning false from the encoder-begin callback aborts inference.
	if err := wctx.Process(samples, func() bool { return ctx.Err() == nil }, nil, nil); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
