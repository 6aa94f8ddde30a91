package config

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything else
// (listen address, providers, storage) needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	DefaultTranslationChanged bool
	NewDefaultTranslation     string

	TimeoutsChanged         bool
	NewTranscriptionTimeout time.Duration
	NewExtractionTimeout    time.Duration
	NewLookupTimeout        time.Duration

	// ResolutionChanged covers the repeat policy, continuation phrases,
	// translation aliases, qualified codes and the translation LLM fallback
	// switch.
	ResolutionChanged bool

	// RestartRequired lists the top-level sections that changed in ways
	// that only take effect after a restart.
	RestartRequired []string
}

// Empty reports whether d carries no hot-reloadable change.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.DefaultTranslationChanged && !d.TimeoutsChanged && !d.ResolutionChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	op, np := old.Pipeline, new.Pipeline
	if op.DefaultTranslation != np.DefaultTranslation {
		d.DefaultTranslationChanged = true
		d.NewDefaultTranslation = np.DefaultTranslation
	}
	if op.TranscriptionTimeout != np.TranscriptionTimeout ||
		op.ExtractionTimeout != np.ExtractionTimeout ||
		op.LookupTimeout != np.LookupTimeout {
		d.TimeoutsChanged = true
		d.NewTranscriptionTimeout = np.TranscriptionTimeout
		d.NewExtractionTimeout = np.ExtractionTimeout
		d.NewLookupTimeout = np.LookupTimeout
	}
	if op.RepeatFallback != np.RepeatFallback ||
		op.TranslationLLMFallback != np.TranslationLLMFallback ||
		op.CanonicalizeBooks != np.CanonicalizeBooks ||
		!slices.Equal(op.ContinuationPhrases, np.ContinuationPhrases) ||
		!maps.Equal(op.TranslationAliases, np.TranslationAliases) ||
		!slices.Equal(op.QualifiedTranslationCodes, np.QualifiedTranslationCodes) {
		d.ResolutionChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) ||
		old.Server.QueueSize != new.Server.QueueSize {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !providersEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Storage != new.Storage {
		d.RestartRequired = append(d.RestartRequired, "storage")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}
	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func providersEqual(a, b ProvidersConfig) bool {
	return entryEqual(a.LLM, b.LLM) && entryEqual(a.STT, b.STT) &&
		slices.EqualFunc(a.LLMFallbacks, b.LLMFallbacks, entryEqual) &&
		slices.EqualFunc(a.STTFallbacks, b.STTFallbacks, entryEqual)
}

// entryEqual compares the scalar fields of two entries. Options are compared
// by their formatted form since they may hold nested maps.
func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, v := range a.Options {
		bv, ok := b.Options[k]
		if !ok || fmtValue(v) != fmtValue(bv) {
			return false
		}
	}
	return true
}

func fmtValue(v any) string { return fmt.Sprintf("%#v", v) }
