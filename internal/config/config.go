// Package config provides the configuration schema, loader, and provider registry
// for the versecast server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StorageDriver selects the verse store implementation.
type StorageDriver string

const (
	StoragePostgres StorageDriver = "postgres"
	StorageSQLite   StorageDriver = "sqlite"
	StorageMemory   StorageDriver = "memory"
)

// IsValid reports whether d is a recognised storage driver.
func (d StorageDriver) IsValid() bool {
	switch d {
	case StoragePostgres, StorageSQLite, StorageMemory:
		return true
	}
	return false
}

// RepeatFallback selects how a turn without a new reference re-derives the
// tracked verse.
type RepeatFallback string

const (
	// RepeatReuse returns the stored reference unchanged.
	RepeatReuse RepeatFallback = "reuse"

	// RepeatRequery asks the extraction service again with the stored
	// reference as input text.
	RepeatRequery RepeatFallback = "requery"
)

// IsValid reports whether r is a recognised repeat policy.
func (r RepeatFallback) IsValid() bool {
	return r == RepeatReuse || r == RepeatRequery
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr           = ":8080"
	DefaultTranslation          = "NIV"
	DefaultTranscriptionTimeout = 30 * time.Second
	DefaultExtractionTimeout    = 15 * time.Second
	DefaultLookupTimeout        = 5 * time.Second
	DefaultMetricsPath          = "/metrics"
	DefaultServiceName          = "versecast"
	DefaultQueueSize            = 8
)

// DefaultContinuationPhrases is used when pipeline.continuation_phrases is empty.
var DefaultContinuationPhrases = []string{"next verse"}

// Config is the root configuration structure.
// It is typically loaded from a YAML or TOML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline" toml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level" toml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls" toml:"tls"`

	// AllowedOrigins lists host patterns accepted for cross-origin websocket
	// handshakes. "*" accepts any origin; empty allows same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`

	// QueueSize bounds pending events per websocket connection.
	QueueSize int `yaml:"queue_size" toml:"queue_size"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file" toml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file" toml:"key_file"`
}

// ProvidersConfig declares the transcription and language-model backends.
// Each entry selects a named provider registered in the [Registry]; the
// fallback lists are tried in order when the primary fails.
type ProvidersConfig struct {
	LLM          ProviderEntry   `yaml:"llm" toml:"llm"`
	STT          ProviderEntry   `yaml:"stt" toml:"stt"`
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks" toml:"llm_fallbacks"`
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks" toml:"stt_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name" toml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key" toml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini", "nova-2").
	Model string `yaml:"model" toml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options" toml:"options"`
}

// StorageConfig selects and configures the verse store.
type StorageConfig struct {
	// Driver is one of postgres, sqlite or memory.
	Driver StorageDriver `yaml:"driver" toml:"driver"`

	// DSN is the Postgres connection string or the SQLite file path.
	DSN string `yaml:"dsn" toml:"dsn"`

	// VersesFile is an optional YAML fixture loaded into the store at start.
	// The memory driver starts empty without it.
	VersesFile string `yaml:"verses_file" toml:"verses_file"`
}

// PipelineConfig tunes the per-utterance resolution pipeline.
type PipelineConfig struct {
	// DefaultTranslation applies to sessions that never selected one.
	DefaultTranslation string `yaml:"default_translation" toml:"default_translation"`

	// TranscriptionTimeout bounds one transcription call.
	TranscriptionTimeout time.Duration `yaml:"transcription_timeout" toml:"transcription_timeout"`

	// ExtractionTimeout bounds the extraction stage of one turn.
	ExtractionTimeout time.Duration `yaml:"extraction_timeout" toml:"extraction_timeout"`

	// LookupTimeout bounds one verse store query.
	LookupTimeout time.Duration `yaml:"lookup_timeout" toml:"lookup_timeout"`

	// RepeatFallback is reuse (default) or requery.
	RepeatFallback RepeatFallback `yaml:"repeat_fallback" toml:"repeat_fallback"`

	// TranslationLLMFallback asks the language model for a translation when
	// none is named literally in the transcript.
	TranslationLLMFallback bool `yaml:"translation_llm_fallback" toml:"translation_llm_fallback"`

	// CanonicalizeBooks maps misspelled book names from the model to
	// canonical ones using phonetic matching.
	CanonicalizeBooks bool `yaml:"canonicalize_books" toml:"canonicalize_books"`

	// ContinuationPhrases mark a request for the verse after the tracked one.
	ContinuationPhrases []string `yaml:"continuation_phrases" toml:"continuation_phrases"`

	// TranslationAliases adds spoken names for translation codes
	// (e.g., "king jimmy": KJV).
	TranslationAliases map[string]string `yaml:"translation_aliases" toml:"translation_aliases"`

	// QualifiedTranslationCodes only match when followed by "version",
	// "translation" or "bible", for codes that are also common words.
	QualifiedTranslationCodes []string `yaml:"qualified_translation_codes" toml:"qualified_translation_codes"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	// MetricsPath is where the Prometheus handler is served.
	MetricsPath string `yaml:"metrics_path" toml:"metrics_path"`

	// ServiceName is reported as the OpenTelemetry service name.
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Server.QueueSize == 0 {
		c.Server.QueueSize = DefaultQueueSize
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	p := &c.Pipeline
	if p.DefaultTranslation == "" {
		p.DefaultTranslation = DefaultTranslation
	}
	if p.TranscriptionTimeout == 0 {
		p.TranscriptionTimeout = DefaultTranscriptionTimeout
	}
	if p.ExtractionTimeout == 0 {
		p.ExtractionTimeout = DefaultExtractionTimeout
	}
	if p.LookupTimeout == 0 {
		p.LookupTimeout = DefaultLookupTimeout
	}
	if p.RepeatFallback == "" {
		p.RepeatFallback = RepeatReuse
	}
	if len(p.ContinuationPhrases) == 0 {
		p.ContinuationPhrases = append([]string(nil), DefaultContinuationPhrases...)
	}
	if c.Telemetry.MetricsPath == "" {
		c.Telemetry.MetricsPath = DefaultMetricsPath
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}
