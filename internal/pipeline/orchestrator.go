// Package pipeline implements the per-client session orchestrator.
//
// Every inbound event runs as one turn: transcribe (for audio), resolve the
// translation, resolve the verse reference, look the verse up, commit the
// new session state and emit exactly one terminal event, either quote or
// error. Turns for one client are serialised by the session; turns for
// different clients run concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/versecast/internal/extract"
	"github.com/MrWong99/versecast/internal/observe"
	"github.com/MrWong99/versecast/internal/quote"
	"github.com/MrWong99/versecast/internal/resolve"
	"github.com/MrWong99/versecast/internal/session"
	"github.com/MrWong99/versecast/internal/translation"
	"github.com/MrWong99/versecast/pkg/provider/stt"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// Default collaborator timeouts.
const (
	DefaultTranscriptionTimeout = 30 * time.Second
	DefaultExtractionTimeout    = 15 * time.Second
	DefaultLookupTimeout        = 5 * time.Second
)

// Settings holds the hot-reloadable part of the orchestrator configuration.
type Settings struct {
	// TranscriptionTimeout bounds one transcription call.
	TranscriptionTimeout time.Duration

	// ExtractionTimeout bounds the whole extraction stage of a turn,
	// including a requery and the translation fallback.
	ExtractionTimeout time.Duration

	// LookupTimeout bounds one verse store query.
	LookupTimeout time.Duration

	// TranslationLLMFallback asks the extraction service for a translation
	// when no code was found in the transcript locally.
	TranslationLLMFallback bool

	// Translations decides the translation per turn.
	Translations *translation.Resolver

	// References decides the verse reference per turn.
	References *resolve.Resolver
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Sessions    *session.Store
	Transcriber stt.Transcriber
	Extractor   extract.Service
	Lookup      *quote.Lookup

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	Settings Settings
}

// Orchestrator runs turns. It is safe for concurrent use.
type Orchestrator struct {
	sessions    *session.Store
	transcriber stt.Transcriber
	extractor   extract.Service
	lookup      *quote.Lookup
	metrics     *observe.Metrics

	settings atomic.Pointer[Settings]
}

// New validates cfg and returns an Orchestrator. Zero settings are filled
// with defaults.
func New(cfg Config) (*Orchestrator, error) {
	var errs []error
	if cfg.Sessions == nil {
		errs = append(errs, errors.New("pipeline: Sessions is required"))
	}
	if cfg.Transcriber == nil {
		errs = append(errs, errors.New("pipeline: Transcriber is required"))
	}
	if cfg.Extractor == nil {
		errs = append(errs, errors.New("pipeline: Extractor is required"))
	}
	if cfg.Lookup == nil {
		errs = append(errs, errors.New("pipeline: Lookup is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		sessions:    cfg.Sessions,
		transcriber: cfg.Transcriber,
		extractor:   cfg.Extractor,
		lookup:      cfg.Lookup,
		metrics:     cfg.Metrics,
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if err := o.Reconfigure(cfg.Settings); err != nil {
		return nil, err
	}
	return o, nil
}

// Settings returns the settings in effect.
func (o *Orchestrator) Settings() Settings {
	return *o.settings.Load()
}

// Reconfigure swaps the settings for turns started from now on. A nil
// resolver keeps the current one, or a default if there is none.
func (o *Orchestrator) Reconfigure(s Settings) error {
	prev := o.settings.Load()
	if s.TranscriptionTimeout <= 0 {
		s.TranscriptionTimeout = DefaultTranscriptionTimeout
	}
	if s.ExtractionTimeout <= 0 {
		s.ExtractionTimeout = DefaultExtractionTimeout
	}
	if s.LookupTimeout <= 0 {
		s.LookupTimeout = DefaultLookupTimeout
	}
	if s.Translations == nil {
		if prev != nil {
			s.Translations = prev.Translations
		} else {
			tr, err := translation.NewResolver(o.sessions.DefaultTranslation())
			if err != nil {
				return fmt.Errorf("pipeline: %w", err)
			}
			s.Translations = tr
		}
	}
	if s.References == nil {
		if prev != nil {
			s.References = prev.References
		} else {
			s.References = resolve.New(o.extractor)
		}
	}
	o.settings.Store(&s)
	return nil
}

// turn is the per-event working set.
type turn struct {
	sess     *session.Session
	ctx      context.Context
	span     trace.Span
	log      *slog.Logger
	emitter  Emitter
	settings Settings
	release  func()
	stop     func() bool
	cancel   context.CancelFunc
}

// begin looks the session up, ties the turn context to the session's
// lifetime and acquires the session's turn.
func (o *Orchestrator) begin(ctx context.Context, name, clientID string, emitter Emitter) (*turn, error) {
	log := observe.Logger(ctx).With("client_id", clientID)

	sess, err := o.sessions.Lookup(clientID)
	if err != nil {
		log.Warn("pipeline: event for unknown session")
		if eerr := emitter.Emit(ctx, EventError, ErrorPayload{Message: MessageUnknownSession}); eerr != nil {
			return nil, errors.Join(err, eerr)
		}
		return nil, err
	}

	tctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sess.Context(), cancel)

	release, err := sess.Acquire(tctx)
	if err != nil {
		stop()
		cancel()
		if sess.Closed() {
			return nil, session.ErrClosed
		}
		return nil, err
	}

	tctx, span := observe.StartSpan(tctx, name, trace.WithAttributes(observe.Attr("client_id", clientID)))
	return &turn{
		sess:     sess,
		ctx:      tctx,
		span:     span,
		log:      observe.Logger(tctx).With("client_id", clientID),
		emitter:  emitter,
		settings: o.Settings(),
		release:  release,
		stop:     stop,
		cancel:   cancel,
	}, nil
}

func (t *turn) end(err error) {
	observe.EndSpan(t.span, err)
	t.release()
	t.stop()
	t.cancel()
}

// emit sends an event unless the session has been removed in the meantime.
func (t *turn) emit(event string, payload any) error {
	if t.sess.Closed() {
		return session.ErrClosed
	}
	return t.emitter.Emit(t.ctx, event, payload)
}

// fail converts a collaborator failure into the error event. Failures caused
// by the session going away are discarded without emitting.
func (o *Orchestrator) fail(t *turn, stage Stage, err error) error {
	if t.sess.Closed() {
		return session.ErrClosed
	}
	if errors.Is(err, context.Canceled) && t.ctx.Err() != nil {
		return t.ctx.Err()
	}

	cerr := &CollaboratorError{Stage: stage, Err: err}
	o.metrics.RecordPipelineError(t.ctx, string(stage))
	t.log.Error("pipeline: turn failed", "stage", stage, "timeout", cerr.Timeout(), "err", err)

	if eerr := t.emit(EventError, ErrorPayload{Message: MessageProcessingFailed}); eerr != nil {
		return errors.Join(cerr, eerr)
	}
	return cerr
}

// HandleAudio runs one turn for an audio payload from clientID. It emits
// the processing status, the transcript and one terminal event through
// emitter.
//
// The returned error is informational: collaborator failures have already
// been reported to the client as an error event. [session.ErrClosed] means
// the client disconnected and the turn was discarded.
func (o *Orchestrator) HandleAudio(ctx context.Context, clientID string, audio []byte, emitter Emitter) (err error) {
	t, err := o.begin(ctx, "pipeline.HandleAudio", clientID, emitter)
	if err != nil {
		return err
	}
	defer func() { t.end(err) }()

	if err := t.emit(EventTranscription, TranscriptionStatus{Status: StatusProcessing}); err != nil {
		return err
	}

	text, err := o.transcribe(t, audio)
	if err != nil {
		return o.fail(t, StageTranscription, err)
	}
	if err := t.emit(EventTranscription, TranscriptionText{Text: text}); err != nil {
		return err
	}

	return o.run(t, text)
}

// HandleTranscript runs one turn for already transcribed text. It emits
// only the terminal event.
func (o *Orchestrator) HandleTranscript(ctx context.Context, clientID, text string, emitter Emitter) (err error) {
	t, err := o.begin(ctx, "pipeline.HandleTranscript", clientID, emitter)
	if err != nil {
		return err
	}
	defer func() { t.end(err) }()

	return o.run(t, text)
}

func (o *Orchestrator) transcribe(t *turn, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(t.ctx, t.settings.TranscriptionTimeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "pipeline.transcribe")

	start := time.Now()
	text, err := o.transcriber.Transcribe(ctx, audio)
	o.metrics.TranscriptionDuration.Record(t.ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		return "", err
	}
	t.log.Debug("pipeline: transcribed", "text", text)
	return text, nil
}

// run resolves, looks up, commits and emits the quote for text.
func (o *Orchestrator) run(t *turn, text string) error {
	prev := t.sess.Snapshot()

	decision := t.settings.Translations.Resolve(text, prev.Translation)
	next := prev
	next.Translation = decision.Code

	res, llmCode, err := o.resolveReference(t, text, prev, decision)
	if err != nil {
		return o.fail(t, StageExtraction, err)
	}
	if llmCode != "" {
		next.Translation = llmCode
	}

	var result quote.Result
	if res.Found {
		next.Current, next.HasCurrent = res.Ref, true
		if result, err = o.lookupQuote(t, res.Ref, next.Translation); err != nil {
			return o.fail(t, StageLookup, err)
		}
	}

	if err := t.sess.Commit(next); err != nil {
		return err
	}

	o.metrics.RecordQuote(t.ctx, result.Outcome())
	t.log.Info("pipeline: quote resolved",
		"source", res.Source,
		"translation", next.Translation,
		"override", decision.Override,
		"address", addressOf(result),
		"found", result.HasText,
	)
	return t.emit(EventQuote, result)
}

// resolveReference runs the reference resolver under the extraction timeout,
// alongside the translation fallback when it applies.
func (o *Orchestrator) resolveReference(t *turn, text string, prev session.State, decision translation.Decision) (resolve.Result, string, error) {
	ctx, cancel := context.WithTimeout(t.ctx, t.settings.ExtractionTimeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "pipeline.resolve")

	in := resolve.Input{
		Transcript: text,
		Current:    prev.Current,
		HasCurrent: prev.HasCurrent,
		Override:   decision.Override,
	}

	var (
		res     resolve.Result
		llmCode string
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = t.settings.References.Resolve(gctx, in)
		return err
	})
	if !decision.Override && t.settings.TranslationLLMFallback {
		g.Go(func() error {
			code, ok, err := o.extractor.Translation(gctx, text)
			if err != nil {
				t.log.Warn("pipeline: translation fallback failed", "err", err)
				return nil
			}
			if ok {
				llmCode = code
			}
			return nil
		})
	}
	err := g.Wait()

	o.metrics.ExtractionDuration.Record(t.ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("source", string(res.Source))))
	observe.EndSpan(span, err)
	return res, llmCode, err
}

func (o *Orchestrator) lookupQuote(t *turn, ref scripture.Reference, code string) (quote.Result, error) {
	ctx, cancel := context.WithTimeout(t.ctx, t.settings.LookupTimeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "pipeline.lookup")
	start := time.Now()
	result, err := o.lookup.Resolve(ctx, ref, code)
	o.metrics.LookupDuration.Record(t.ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	return result, err
}

func addressOf(r quote.Result) string {
	if !r.HasRef {
		return ""
	}
	return r.Ref.String()
}
