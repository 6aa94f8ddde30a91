package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/versecast/internal/config"
	"github.com/MrWong99/versecast/internal/observe"
	"github.com/MrWong99/versecast/internal/resilience"
	"github.com/MrWong99/versecast/pkg/audio"
	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/bible/memstore"
	"github.com/MrWong99/versecast/pkg/bible/postgres"
	"github.com/MrWong99/versecast/pkg/bible/sqlite"
	"github.com/MrWong99/versecast/pkg/provider/llm"
	"github.com/MrWong99/versecast/pkg/provider/llm/anyllm"
	llmopenai "github.com/MrWong99/versecast/pkg/provider/llm/openai"
	"github.com/MrWong99/versecast/pkg/provider/stt"
	"github.com/MrWong99/versecast/pkg/provider/stt/deepgram"
	sttopenai "github.com/MrWong99/versecast/pkg/provider/stt/openai"
	"github.com/MrWong99/versecast/pkg/provider/stt/whisper"
)

// Providers holds the external collaborators built from config. Nil means
// the slot is not configured.
type Providers struct {
	LLM llm.Provider
	STT stt.Transcriber
}

// RegisterBuiltins registers a factory for every built-in LLM backend,
// transcription backend and storage driver.
func RegisterBuiltins(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, llmopenai.WithOrganization(org))
		}
		if n, ok := optInt(entry.Options, "max_retries"); ok {
			opts = append(opts, llmopenai.WithMaxRetries(n))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// The any-llm backends share one pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.New("ollama", entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if kw := optStrings(entry.Options, "keywords"); len(kw) > 0 {
			opts = append(opts, deepgram.WithKeywords(kw...))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		if f, ok := rawFormat(entry.Options); ok {
			opts = append(opts, deepgram.WithRawFormat(f))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if f, ok := rawFormat(entry.Options); ok {
			opts = append(opts, whisper.WithRawFormat(f))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		if f, ok := rawFormat(entry.Options); ok {
			opts = append(opts, whisper.WithNativeRawFormat(f))
		}
		if n, ok := optInt(entry.Options, "parallelism"); ok {
			opts = append(opts, whisper.WithNativeParallelism(n))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []sttopenai.Option
		if entry.Model != "" {
			opts = append(opts, sttopenai.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, sttopenai.WithLanguage(lang))
		}
		if prompt := optString(entry.Options, "prompt"); prompt != "" {
			opts = append(opts, sttopenai.WithPrompt(prompt))
		}
		if f, ok := rawFormat(entry.Options); ok {
			opts = append(opts, sttopenai.WithRawFormat(f))
		}
		return sttopenai.New(entry.APIKey, entry.BaseURL, opts...)
	})

	// ── Storage ───────────────────────────────────────────────────────────────

	reg.RegisterStore(config.StoragePostgres, func(ctx context.Context, cfg config.StorageConfig) (bible.Store, error) {
		return postgres.NewStore(ctx, cfg.DSN)
	})
	reg.RegisterStore(config.StorageSQLite, func(ctx context.Context, cfg config.StorageConfig) (bible.Store, error) {
		return sqlite.Open(ctx, cfg.DSN)
	})
	reg.RegisterStore(config.StorageMemory, func(context.Context, config.StorageConfig) (bible.Store, error) {
		return memstore.New()
	})
}

// BuildProviders creates the configured LLM and STT providers. When fallback
// entries are configured the primary is wrapped in a circuit-breaker group
// that fails over to them in order. A fallback that cannot be created is
// logged and skipped; a primary that cannot be created is an error.
func BuildProviders(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*Providers, error) {
	ps := &Providers{}

	if e := cfg.Providers.LLM; e.Name != "" {
		p, err := reg.CreateLLM(e)
		if err != nil {
			return nil, fmt.Errorf("create LLM provider %q: %w", e.Name, err)
		}
		ps.LLM = p
		if len(cfg.Providers.LLMFallbacks) > 0 {
			fb := resilience.NewLLMFallback(p, e.Name, resilience.FallbackConfig{Metrics: metrics})
			for _, fe := range cfg.Providers.LLMFallbacks {
				fp, err := reg.CreateLLM(fe)
				if err != nil {
					slog.Warn("skipping LLM fallback", "name", fe.Name, "err", err)
					continue
				}
				fb.AddFallback(fallbackName(fe, fb.Group().Names()), fp)
			}
			ps.LLM = fb
		}
	}

	if e := cfg.Providers.STT; e.Name != "" {
		t, err := reg.CreateSTT(e)
		if err != nil {
			return nil, fmt.Errorf("create STT provider %q: %w", e.Name, err)
		}
		ps.STT = t
		if len(cfg.Providers.STTFallbacks) > 0 {
			fb := resilience.NewSTTFallback(t, e.Name, resilience.FallbackConfig{Metrics: metrics})
			for _, fe := range cfg.Providers.STTFallbacks {
				ft, err := reg.CreateSTT(fe)
				if err != nil {
					slog.Warn("skipping STT fallback", "name", fe.Name, "err", err)
					continue
				}
				fb.AddFallback(fallbackName(fe, fb.Group().Names()), ft)
			}
			ps.STT = fb
		}
	}

	return ps, nil
}

// OpenStore opens the configured verse store and seeds it from
// storage.verses_file when one is set. The returned close function releases
// the store's resources.
func OpenStore(ctx context.Context, cfg config.StorageConfig, reg *config.Registry) (bible.Store, func() error, error) {
	store, err := reg.CreateStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	closeFn := closerOf(store)

	if cfg.VersesFile != "" {
		if err := seed(ctx, store, cfg.VersesFile); err != nil {
			_ = closeFn()
			return nil, nil, err
		}
	}
	return store, closeFn, nil
}

func seed(ctx context.Context, store bible.Store, path string) error {
	w, ok := store.(bible.Writer)
	if !ok {
		return fmt.Errorf("seed verses: %T does not accept writes", store)
	}
	verses, err := memstore.ReadFixture(path)
	if err != nil {
		return fmt.Errorf("seed verses: %w", err)
	}
	if err := w.UpsertVerses(ctx, verses); err != nil {
		return fmt.Errorf("seed verses: %w", err)
	}
	slog.Info("verses loaded", "file", path, "count", len(verses))
	return nil
}

func closerOf(store bible.Store) func() error {
	switch c := store.(type) {
	case interface{ Close() error }:
		return c.Close
	case interface{ Close() }:
		return func() error { c.Close(); return nil }
	default:
		return func() error { return nil }
	}
}

// fallbackName keeps breaker names unique when the same backend appears
// twice in a chain (e.g. two whisper servers).
func fallbackName(entry config.ProviderEntry, taken []string) string {
	name := entry.Name
	for i := 2; slices.Contains(taken, name); i++ {
		name = fmt.Sprintf("%s#%d", entry.Name, i)
	}
	return name
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an integer option. YAML decodes integers as int and TOML
// as int64; both are accepted.
func optInt(opts map[string]any, key string) (int, bool) {
	switch v := opts[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	default:
		return 0, false
	}
}

// optStrings extracts a list of strings. A single comma-separated string is
// also accepted.
func optStrings(opts map[string]any, key string) []string {
	switch v := opts[key].(type) {
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

// rawFormat reads sample_rate and channels for header-less PCM input.
func rawFormat(opts map[string]any) (audio.Format, bool) {
	rate, hasRate := optInt(opts, "sample_rate")
	channels, hasChannels := optInt(opts, "channels")
	if !hasRate && !hasChannels {
		return audio.Format{}, false
	}
	f := audio.SpeechFormat
	if hasRate {
		f.SampleRate = rate
	}
	if hasChannels {
		f.Channels = channels
	}
	return f, true
}
