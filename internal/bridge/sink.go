// Package bridge pushes animation packages to a renderer over WebSocket.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexaffect/internal/pipeline"
)

// ErrNotConnected is returned by Send when no connection is open and redial failed.
var ErrNotConnected = errors.New("renderer not connected")

// Message types on the wire.
const (
	TypeAnimation = "animation"
	TypeAck       = "ack"
	TypeError     = "error"
)

// PackageMessage carries one animation package to the renderer.
type PackageMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Sequence  int64             `json:"sequence"`
	Package   *pipeline.Package `json:"package"`
	Timestamp string            `json:"timestamp"`
}

// AckMessage acknowledges a package.
type AckMessage struct {
	Type     string `json:"type"`
	Sequence int64  `json:"sequence"`
}

// ErrorMessage reports a renderer-side failure.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RendererSink is a WebSocket client for an avatar renderer. Send is safe for
// concurrent use.
type RendererSink struct {
	url          string
	writeTimeout time.Duration
	logger       zerolog.Logger
	dialer       *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	sequence  int64
	acked     int64

	writeMu sync.Mutex

	onError func(err error)
}

// NewRendererSink creates a sink for rawURL. http and https URLs are converted
// to ws and wss.
func NewRendererSink(rawURL string, writeTimeout time.Duration, logger zerolog.Logger) (*RendererSink, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return nil, fmt.Errorf("unsupported renderer url scheme %q", u.Scheme)
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &RendererSink{
		url:          u.String(),
		writeTimeout: writeTimeout,
		logger:       logger.With().Str("component", "renderer-sink").Logger(),
		dialer:       websocket.DefaultDialer,
	}, nil
}

// SetErrorCallback sets the callback for renderer error messages.
func (s *RendererSink) SetErrorCallback(cb func(err error)) {
	s.mu.Lock()
	s.onError = cb
	s.mu.Unlock()
}

// URL returns the normalized WebSocket URL.
func (s *RendererSink) URL() string {
	return s.url
}

// Connect dials the renderer and starts reading acknowledgements.
func (s *RendererSink) Connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info().Str("url", s.url).Msg("Connected to renderer")

	go s.readLoop(conn)
	return nil
}

// IsConnected returns connection status.
func (s *RendererSink) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Acked returns the highest acknowledged sequence number.
func (s *RendererSink) Acked() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acked
}

// Send writes pkg as a JSON text frame. A dropped connection is redialed once.
func (s *RendererSink) Send(ctx context.Context, sessionID string, pkg *pipeline.Package) error {
	if !s.IsConnected() {
		if err := s.Connect(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("Renderer redial failed")
			return ErrNotConnected
		}
	}

	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.sequence++
	seq := s.sequence
	s.mu.Unlock()

	msg := PackageMessage{
		Type:      TypeAnimation,
		SessionID: sessionID,
		Sequence:  seq,
		Package:   pkg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteJSON(msg); err != nil {
		s.markDisconnected(conn)
		return fmt.Errorf("write package: %w", err)
	}

	s.logger.Debug().Int64("sequence", seq).Str("session", sessionID).Msg("Package sent")
	return nil
}

// Close closes the connection with a normal closure frame.
func (s *RendererSink) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()

	return conn.Close()
}

func (s *RendererSink) markDisconnected(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.connected = false
	}
	s.mu.Unlock()
	conn.Close()
}

func (s *RendererSink) readLoop(conn *websocket.Conn) {
	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Renderer read ended")
			}
			s.markDisconnected(conn)
			return
		}
		s.handleMessage(raw)
	}
}

func (s *RendererSink) handleMessage(raw json.RawMessage) {
	var typeMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &typeMsg); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to parse message type")
		return
	}

	switch typeMsg.Type {
	case TypeAck:
		var msg AckMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to parse ack message")
			return
		}
		s.mu.Lock()
		if msg.Sequence > s.acked {
			s.acked = msg.Sequence
		}
		s.mu.Unlock()

	case TypeError:
		var msg ErrorMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to parse error message")
			return
		}
		s.logger.Warn().Str("message", msg.Message).Msg("Renderer error")

		s.mu.RLock()
		cb := s.onError
		s.mu.RUnlock()
		if cb != nil {
			cb(fmt.Errorf("renderer: %s", msg.Message))
		}

	default:
		s.logger.Debug().Str("type", typeMsg.Type).Msg("Unknown message type")
	}
}
