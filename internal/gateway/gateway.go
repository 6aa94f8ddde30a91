// Package gateway exposes the orchestrator to clients over websockets and
// serves the auxiliary HTTP routes.
//
// Every accepted websocket is one client: a session is created under a
// fresh ID, inbound events are queued and handled one at a time by a
// per-connection worker, and the session is removed when the socket closes.
// Frames in both directions are JSON objects {"event": ..., "data": ...};
// binary frames are treated as raw audio.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/MrWong99/versecast/internal/health"
	"github.com/MrWong99/versecast/internal/observe"
	"github.com/MrWong99/versecast/internal/pipeline"
	"github.com/MrWong99/versecast/internal/session"
)

// Event names specific to the transport.
const (
	EventConnected   = "connected"
	EventAudioStream = "audioStream"
	EventTranscript  = "transcript"
)

// Defaults for [Config].
const (
	DefaultQueueSize    = 8
	DefaultReadLimit    = 16 << 20
	DefaultWriteTimeout = 10 * time.Second
	DefaultMetricsPath  = "/metrics"
)

// Handler runs turns for a client. *pipeline.Orchestrator implements it.
type Handler interface {
	HandleAudio(ctx context.Context, clientID string, audio []byte, emitter pipeline.Emitter) error
	HandleTranscript(ctx context.Context, clientID, text string, emitter pipeline.Emitter) error
}

// TranslationLister lists the translations available in storage.
// *quote.Lookup implements it.
type TranslationLister interface {
	Translations(ctx context.Context) ([]string, error)
}

// Config configures a [Server].
type Config struct {
	Sessions     *session.Store
	Handler      Handler
	Translations TranslationLister

	// Health serves /healthz and /readyz when set.
	Health *health.Handler

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// MetricsHandler is served on MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string

	// AllowedOrigins are host patterns accepted for cross-origin websocket
	// handshakes. "*" accepts any origin.
	AllowedOrigins []string

	// QueueSize bounds the number of pending events per connection.
	QueueSize int

	// ReadLimit is the maximum inbound frame size in bytes.
	ReadLimit int64

	// WriteTimeout bounds a single outbound frame write.
	WriteTimeout time.Duration

	// NewID generates client IDs. Default: uuid.NewString.
	NewID func() string
}

// Server is the HTTP front end.
type Server struct {
	cfg     Config
	handler http.Handler
}

// New validates cfg and builds the route table.
func New(cfg Config) (*Server, error) {
	var errs []error
	if cfg.Sessions == nil {
		errs = append(errs, errors.New("gateway: Sessions is required"))
	}
	if cfg.Handler == nil {
		errs = append(errs, errors.New("gateway: Handler is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /quote/translations", s.serveTranslations)
	if cfg.Health != nil {
		cfg.Health.Register(mux)
	}
	if cfg.MetricsHandler != nil {
		mux.Handle("GET "+cfg.MetricsPath, cfg.MetricsHandler)
	}
	s.handler = observe.Middleware(cfg.Metrics)(mux)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) serveTranslations(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Translations == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	codes, err := s.cfg.Translations.Translations(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("gateway: list translations", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch translations"})
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}
	return opts
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		slog.Warn("gateway: websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(s.cfg.ReadLimit)

	c := newClient(s, conn, s.cfg.NewID())
	c.run(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
