package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/versecast/internal/config"
)

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{
			name: "invalid log level",
			yaml: "server:\n  log_level: verbose\n",
			want: []string{"log_level"},
		},
		{
			name: "tls without key",
			yaml: "server:\n  tls:\n    cert_file: cert.pem\n",
			want: []string{"server.tls"},
		},
		{
			name: "unknown storage driver",
			yaml: "storage:\n  driver: mongodb\n",
			want: []string{"storage.driver"},
		},
		{
			name: "postgres without dsn",
			yaml: "storage:\n  driver: postgres\n",
			want: []string{"storage.dsn"},
		},
		{
			name: "sqlite without dsn",
			yaml: "storage:\n  driver: sqlite\n",
			want: []string{"storage.dsn"},
		},
		{
			name: "unsupported default translation",
			yaml: "pipeline:\n  default_translation: MSG\n",
			want: []string{"default_translation"},
		},
		{
			name: "negative timeouts",
			yaml: "pipeline:\n  transcription_timeout: -1s\n  extraction_timeout: -2s\n  lookup_timeout: -3s\n",
			want: []string{"transcription_timeout", "extraction_timeout", "lookup_timeout"},
		},
		{
			name: "unsupported qualified code",
			yaml: "pipeline:\n  qualified_translation_codes: [NET, MSG]\n",
			want: []string{"qualified_translation_codes[1]"},
		},
		{
			name: "invalid repeat fallback",
			yaml: "pipeline:\n  repeat_fallback: guess\n",
			want: []string{"repeat_fallback"},
		},
		{
			name: "blank continuation phrase",
			yaml: "pipeline:\n  continuation_phrases: [\"next verse\", \"  \"]\n",
			want: []string{"continuation_phrases[1]"},
		},
		{
			name: "alias to unsupported code",
			yaml: "pipeline:\n  translation_aliases:\n    the message: MSG\n",
			want: []string{"translation_aliases"},
		},
		{
			name: "fallback without name",
			yaml: "providers:\n  llm_fallbacks:\n    - model: x\n  stt_fallbacks:\n    - model: y\n",
			want: []string{"llm_fallbacks[0].name", "stt_fallbacks[0].name"},
		},
		{
			name: "relative metrics path",
			yaml: "telemetry:\n  metrics_path: metrics\n",
			want: []string{"metrics_path"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error should mention %q, got: %v", w, err)
				}
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
storage:
  driver: sqlite
pipeline:
  repeat_fallback: nope
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, w := range []string{"log_level", "storage.dsn", "repeat_fallback"} {
		if !strings.Contains(err.Error(), w) {
			t.Errorf("joined error is missing %q: %v", w, err)
		}
	}
}

func TestValidate_UnknownProviderOnlyWarns(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: my-private-llm
  stt:
    name: my-private-stt
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

const sampleTOML = `
[server]
listen_addr = ":7070"
log_level = "warn"

[providers.llm]
name = "anthropic"
model = "claude-haiku"

[providers.stt]
name = "whisper"
base_url = "http://localhost:8081"

[storage]
driver = "sqlite"
dsn = "/var/lib/versecast/bible.db"

[pipeline]
default_translation = "ESV"
extraction_timeout = "10s"
`

func TestLoad_TOML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":7070" || cfg.Server.LogLevel != config.LogWarn {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Providers.LLM.Name != "anthropic" || cfg.Providers.STT.BaseURL != "http://localhost:8081" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if cfg.Storage.Driver != config.StorageSQLite {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Pipeline.DefaultTranslation != "ESV" || cfg.Pipeline.ExtractionTimeout.String() != "10s" {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.TranscriptionTimeout != config.DefaultTranscriptionTimeout {
		t.Errorf("transcription_timeout default not applied: %s", cfg.Pipeline.TranscriptionTimeout)
	}
}

func TestLoad_TOMLUnknownKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nlisten = \":80\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "server.listen") {
		t.Fatalf("err = %v, want unknown key server.listen", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()
	for path, want := range map[string]config.Format{
		"config.yaml":      config.FormatYAML,
		"config.yml":       config.FormatYAML,
		"/etc/vc/app.TOML": config.FormatTOML,
		"config":           config.FormatYAML,
	} {
		if got := config.FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}
