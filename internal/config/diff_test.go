package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/versecast/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			LLM: config.ProviderEntry{Name: "openai", Options: map[string]any{"organization": "org-1"}},
			STT: config.ProviderEntry{Name: "whisper"},
		},
		Pipeline: config.PipelineConfig{
			TranslationAliases: map[string]string{"king jimmy": "KJV"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	d := config.Diff(baseConfig(), baseConfig())
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v", d.RestartRequired)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_Pipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(t *testing.T, d config.ConfigDiff)
	}{
		{
			name:   "default translation",
			mutate: func(c *config.Config) { c.Pipeline.DefaultTranslation = "ESV" },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.DefaultTranslationChanged || d.NewDefaultTranslation != "ESV" {
					t.Errorf("diff = %+v", d)
				}
			},
		},
		{
			name:   "timeouts",
			mutate: func(c *config.Config) { c.Pipeline.ExtractionTimeout = time.Second },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.TimeoutsChanged || d.NewExtractionTimeout != time.Second || d.NewTranscriptionTimeout != config.DefaultTranscriptionTimeout {
					t.Errorf("diff = %+v", d)
				}
			},
		},
		{
			name:   "lookup timeout",
			mutate: func(c *config.Config) { c.Pipeline.LookupTimeout = time.Second },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.TimeoutsChanged || d.NewLookupTimeout != time.Second {
					t.Errorf("diff = %+v", d)
				}
			},
		},
		{
			name:   "repeat fallback",
			mutate: func(c *config.Config) { c.Pipeline.RepeatFallback = config.RepeatRequery },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.ResolutionChanged {
					t.Errorf("diff = %+v", d)
				}
			},
		},
		{
			name:   "continuation phrases",
			mutate: func(c *config.Config) { c.Pipeline.ContinuationPhrases = append(c.Pipeline.ContinuationPhrases, "and then") },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.ResolutionChanged {
					t.Errorf("diff = %+v", d)
				}
			},
		},
		{
			name:   "translation aliases",
			mutate: func(c *config.Config) { c.Pipeline.TranslationAliases["authorized"] = "KJV" },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.ResolutionChanged {
					t.Errorf("diff = %+v", d)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old, new := baseConfig(), baseConfig()
			tt.mutate(new)
			d := config.Diff(old, new)
			if d.Empty() {
				t.Fatal("expected a hot-reloadable change")
			}
			if len(d.RestartRequired) != 0 {
				t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
			}
			tt.check(t, d)
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9999"
	new.Providers.LLM.Options = map[string]any{"organization": "org-2"}
	new.Storage = config.StorageConfig{Driver: config.StorageSQLite, DSN: "bible.db"}
	new.Telemetry.MetricsPath = "/m"

	d := config.Diff(old, new)
	want := []string{"server", "providers", "storage", "telemetry"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
	if !d.Empty() {
		t.Errorf("no hot-reloadable field changed, got %+v", d)
	}
}

func TestDiff_TLSPointerCompare(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	old.Server.TLS = &config.TLSConfig{CertFile: "a", KeyFile: "b"}
	new.Server.TLS = &config.TLSConfig{CertFile: "a", KeyFile: "b"}

	if d := config.Diff(old, new); len(d.RestartRequired) != 0 {
		t.Errorf("equal TLS blocks reported as changed: %v", d.RestartRequired)
	}
}
