package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/versecast/internal/observe"
	"github.com/MrWong99/versecast/internal/pipeline"
	"github.com/MrWong99/versecast/internal/session"
)

// frame is the JSON envelope used in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ConnectedPayload is sent once after the handshake.
type ConnectedPayload struct {
	ClientID string `json:"clientId"`
}

// inbound is one queued client event.
type inbound struct {
	audio      []byte
	transcript string
	isAudio    bool
}

// client owns one websocket connection.
type client struct {
	srv   *Server
	conn  *websocket.Conn
	id    string
	log   *slog.Logger
	queue chan inbound

	writeMu sync.Mutex
}

func newClient(srv *Server, conn *websocket.Conn, id string) *client {
	return &client{
		srv:   srv,
		conn:  conn,
		id:    id,
		log:   slog.With("client_id", id),
		queue: make(chan inbound, srv.cfg.QueueSize),
	}
}

// Emit implements [pipeline.Emitter] by writing one JSON text frame.
func (c *client) Emit(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(outFrame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("gateway: marshal %s: %w", event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.srv.cfg.WriteTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("gateway: write %s: %w", event, err)
	}
	return nil
}

// run registers the session, serves the connection until it closes and
// then tears everything down. It blocks for the connection's lifetime.
func (c *client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	sessions := c.srv.cfg.Sessions
	sessions.Create(c.id)
	c.log.Info("gateway: client connected")

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		c.work(ctx)
	}()

	defer func() {
		cancel()
		sessions.Remove(c.id)
		<-workerDone
		c.conn.Close(websocket.StatusNormalClosure, "")
		c.log.Info("gateway: client disconnected")
	}()

	if err := c.Emit(ctx, EventConnected, ConnectedPayload{ClientID: c.id}); err != nil {
		c.log.Warn("gateway: send connected", "err", err)
		return
	}

	c.read(ctx)
}

// read consumes frames until the connection fails or closes.
func (c *client) read(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				c.log.Debug("gateway: read ended", "err", err)
			}
			return
		}

		ev, err := decode(typ, data)
		if err != nil {
			c.log.Warn("gateway: rejected frame", "err", err)
			_ = c.Emit(ctx, pipeline.EventError, pipeline.ErrorPayload{Message: err.Error()})
			continue
		}

		select {
		case c.queue <- ev:
		default:
			c.srv.cfg.Metrics.DroppedEvents.Add(ctx, 1)
			c.log.Warn("gateway: event queue full, dropping event", "queue_size", cap(c.queue))
		}
	}
}

// work processes queued events one at a time.
func (c *client) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.queue:
			c.dispatch(ctx, ev)
		}
	}
}

func (c *client) dispatch(ctx context.Context, ev inbound) {
	var err error
	if ev.isAudio {
		err = c.srv.cfg.Handler.HandleAudio(ctx, c.id, ev.audio, c)
	} else {
		err = c.srv.cfg.Handler.HandleTranscript(ctx, c.id, ev.transcript, c)
	}
	switch {
	case err == nil:
	case errors.Is(err, session.ErrClosed), errors.Is(err, context.Canceled):
		c.log.Debug("gateway: turn discarded", "err", err)
	default:
		observe.Logger(ctx).Debug("gateway: turn ended with error", "client_id", c.id, "err", err)
	}
}

// rejection is a client-facing reason for refusing a frame.
type rejection string

func (r rejection) Error() string { return string(r) }

const (
	rejectMalformed  rejection = "Malformed message"
	rejectAudio      rejection = "audioStream data must be a base64 string"
	rejectTranscript rejection = "transcript data must be a string"
)

// decode turns one websocket message into an inbound event.
func decode(typ websocket.MessageType, data []byte) (inbound, error) {
	if typ == websocket.MessageBinary {
		return inbound{audio: data, isAudio: true}, nil
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return inbound{}, rejectMalformed
	}
	switch f.Event {
	case EventAudioStream:
		var b64 string
		if err := json.Unmarshal(f.Data, &b64); err != nil {
			return inbound{}, rejectAudio
		}
		audio, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return inbound{}, rejectAudio
		}
		return inbound{audio: audio, isAudio: true}, nil
	case EventTranscript:
		var text string
		if err := json.Unmarshal(f.Data, &text); err != nil {
			return inbound{}, rejectTranscript
		}
		return inbound{transcript: text}, nil
	default:
		return inbound{}, rejection(fmt.Sprintf("Unsupported event %q", f.Event))
	}
}
