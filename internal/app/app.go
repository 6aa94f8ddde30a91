// Package app wires the versecast subsystems into a running server.
//
// The App struct owns the full lifecycle: New opens the verse store and
// builds the session store, orchestrator and gateway, Run serves HTTP and
// watches the config file, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics, WithListener). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/versecast/internal/config"
	"github.com/MrWong99/versecast/internal/extract"
	"github.com/MrWong99/versecast/internal/gateway"
	"github.com/MrWong99/versecast/internal/health"
	"github.com/MrWong99/versecast/internal/observe"
	"github.com/MrWong99/versecast/internal/phonetic"
	"github.com/MrWong99/versecast/internal/pipeline"
	"github.com/MrWong99/versecast/internal/quote"
	"github.com/MrWong99/versecast/internal/resolve"
	"github.com/MrWong99/versecast/internal/session"
	"github.com/MrWong99/versecast/internal/translation"
	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// ShutdownGrace bounds how long Run waits for in-flight HTTP requests once
// its context is cancelled.
const ShutdownGrace = 15 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	providers *Providers

	registry       *config.Registry
	store          bible.Store
	metrics        *observe.Metrics
	metricsHandler http.Handler
	levelVar       *slog.LevelVar
	configPath     string
	listener       net.Listener

	sessions *session.Store
	lookup   *quote.Lookup
	orch     *pipeline.Orchestrator
	gateway  *gateway.Server
	server   *http.Server

	// cancelBase cancels the context of every request, including upgraded
	// websocket connections that http.Server.Shutdown does not track.
	cancelBase context.CancelFunc

	mu  sync.Mutex
	cfg *config.Config

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a verse store instead of opening one from config. The
// caller keeps ownership and closes it.
func WithStore(s bible.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on telemetry.metrics_path.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithLevelVar lets config reloads change the log level of the process logger.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.levelVar = v }
}

// WithRegistry sets the registry used to open the verse store.
// Default: a registry holding the built-in drivers.
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithConfigPath makes Run watch path and hot-apply changes.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithListener makes Run serve on l instead of listening on server.listen_addr.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers come
// from main.go (built via the config registry); both LLM and STT are required.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	var errs []error
	if providers.LLM == nil {
		errs = append(errs, errors.New("app: LLM provider is required"))
	}
	if providers.STT == nil {
		errs = append(errs, errors.New("app: STT provider is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.registry == nil {
		a.registry = config.NewRegistry()
		RegisterBuiltins(a.registry)
	}

	// ── 1. Verse store ───────────────────────────────────────────────────
	if a.store == nil {
		store, closeFn, err := OpenStore(ctx, cfg.Storage, a.registry)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, closeFn)
	}
	a.lookup = quote.NewLookup(a.store)

	// ── 2. Sessions + orchestrator ───────────────────────────────────────
	extractor := newExtractor(cfg, providers)
	settings, err := PipelineSettings(cfg, extractor)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: %w", err)
	}
	a.sessions = session.NewStore(
		session.WithDefaultTranslation(settings.Translations.DefaultCode()),
		session.WithOnChange(func(delta int) {
			a.metrics.ActiveSessions.Add(context.Background(), int64(delta))
		}),
	)
	a.orch, err = pipeline.New(pipeline.Config{
		Sessions:    a.sessions,
		Transcriber: providers.STT,
		Extractor:   extractor,
		Lookup:      a.lookup,
		Metrics:     a.metrics,
		Settings:    settings,
	})
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: %w", err)
	}

	// ── 3. Gateway ───────────────────────────────────────────────────────
	checks := health.New(
		health.PingChecker("store", a.store),
		health.Configured("providers", map[string]any{
			"llm": providers.LLM,
			"stt": providers.STT,
		}),
	)
	a.gateway, err = gateway.New(gateway.Config{
		Sessions:       a.sessions,
		Handler:        a.orch,
		Translations:   a.lookup,
		Health:         checks,
		Metrics:        a.metrics,
		MetricsHandler: a.metricsHandler,
		MetricsPath:    cfg.Telemetry.MetricsPath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		QueueSize:      cfg.Server.QueueSize,
	})
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: %w", err)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	a.cancelBase = cancel
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.gateway.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	return a, nil
}

// newExtractor builds the LLM extraction service. Book names are mapped to
// canonical names phonetically when pipeline.canonicalize_books is set.
func newExtractor(cfg *config.Config, providers *Providers) *extract.LLMExtractor {
	var opts []extract.Option
	if cfg.Pipeline.CanonicalizeBooks {
		opts = append(opts, extract.WithCanonicalizer(scripture.NewCanonicalizer(phonetic.New())))
	}
	return extract.New(providers.LLM, opts...)
}

// PipelineSettings derives the hot-reloadable orchestrator settings from cfg.
func PipelineSettings(cfg *config.Config, extractor extract.Service) (pipeline.Settings, error) {
	p := cfg.Pipeline

	aliases := make(map[string]string, len(p.TranslationAliases))
	for phrase, code := range p.TranslationAliases {
		canonical, err := translation.Parse(code)
		if err != nil {
			return pipeline.Settings{}, fmt.Errorf("translation alias %q: %w", phrase, err)
		}
		aliases[phrase] = canonical
	}
	translations, err := translation.NewResolver(p.DefaultTranslation,
		translation.WithAliases(aliases),
		translation.WithQualifiedCodes(p.QualifiedTranslationCodes...),
	)
	if err != nil {
		return pipeline.Settings{}, err
	}

	mode, err := resolve.ParseRepeatMode(string(p.RepeatFallback))
	if err != nil {
		return pipeline.Settings{}, err
	}
	refs := resolve.New(extractor,
		resolve.WithContinuationPhrases(p.ContinuationPhrases...),
		resolve.WithRepeatMode(mode),
	)

	return pipeline.Settings{
		TranscriptionTimeout:   p.TranscriptionTimeout,
		ExtractionTimeout:      p.ExtractionTimeout,
		LookupTimeout:          p.LookupTimeout,
		TranslationLLMFallback: p.TranslationLLMFallback,
		Translations:           translations,
		References:             refs,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.gateway.Handler() }

// Sessions returns the live session store.
func (a *App) Sessions() *session.Store { return a.sessions }

// Orchestrator returns the session orchestrator.
func (a *App) Orchestrator() *pipeline.Orchestrator { return a.orch }

// Config returns the config currently in effect.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP and, when a config path was given, watches the config file
// for changes. It blocks until ctx is cancelled or the server fails. On
// cancellation it drains in-flight requests for up to [ShutdownGrace] and
// returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config()

	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", cfg.Server.ListenAddr)
		if err != nil {
			return fmt.Errorf("app: listen: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.Reload)
		if err != nil {
			slog.Warn("config watcher disabled", "path", a.configPath, "err", err)
		} else {
			g.Go(func() error {
				<-gctx.Done()
				w.Stop()
				return nil
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		a.cancelBase()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
		return nil
	})

	slog.Info("versecast listening", "addr", ln.Addr().String(), "tls", cfg.Server.TLS != nil)

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the hot-reloadable part of newCfg. Settings that need a
// restart are logged and otherwise ignored. It is the config watcher's
// callback.
func (a *App) Reload(old, newCfg *config.Config) {
	d := config.Diff(old, newCfg)
	for _, section := range d.RestartRequired {
		slog.Warn("config change requires a restart", "section", section)
	}
	if d.Empty() {
		return
	}

	if d.LogLevelChanged && a.levelVar != nil {
		a.levelVar.Set(d.NewLogLevel.Level())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.DefaultTranslationChanged || d.TimeoutsChanged || d.ResolutionChanged {
		settings, err := PipelineSettings(newCfg, newExtractor(newCfg, a.providers))
		if err != nil {
			slog.Error("config reload rejected", "err", err)
			return
		}
		if d.DefaultTranslationChanged {
			a.sessions.SetDefaultTranslation(settings.Translations.DefaultCode())
		}
		if err := a.orch.Reconfigure(settings); err != nil {
			slog.Error("config reload rejected", "err", err)
			return
		}
		slog.Info("pipeline settings reloaded",
			"default_translation", settings.Translations.DefaultCode(),
			"transcription_timeout", settings.TranscriptionTimeout,
			"extraction_timeout", settings.ExtractionTimeout,
			"lookup_timeout", settings.LookupTimeout,
		)
	}

	a.mu.Lock()
	a.cfg = newCfg
	a.mu.Unlock()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown closes every client connection, stops the HTTP server and runs
// all registered closers in order. It respects the context deadline; if ctx
// expires before all closers finish, remaining closers are skipped.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "sessions", a.sessions.Len(), "closers", len(a.closers))

		a.cancelBase()
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
		a.sessions.CloseAll()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases resources acquired by a failed New.
func (a *App) closeAll() {
	for _, closer := range a.closers {
		_ = closer()
	}
}
