package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the agent.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the agent.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from the agent.
	maxMessageSize = 512 * 1024

	sendBufferSize = 64
)

// Session is one live wallet-agent connection. It correlates requests with
// responses by frame ID and forwards push frames to the server's handler
// registry for the wallet.
type Session struct {
	wallet string
	conn   *websocket.Conn
	logger *slog.Logger

	send chan []byte
	done chan struct{}

	mu        sync.Mutex
	closed    bool
	connected bool
	pending   map[string]chan Frame

	onPush  func(wallet, event, payload string)
	onClose func(wallet string, s *Session)
}

func newSession(wallet string, connected bool, conn *websocket.Conn, logger *slog.Logger,
	onPush func(wallet, event, payload string), onClose func(wallet string, s *Session)) *Session {
	return &Session{
		wallet:    wallet,
		conn:      conn,
		logger:    logger.With("wallet", wallet),
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		connected: connected,
		pending:   make(map[string]chan Frame),
		onPush:    onPush,
		onClose:   onClose,
	}
}

// Wallet returns the wallet name the agent registered under.
func (s *Session) Wallet() string { return s.wallet }

// IsConnected reports the agent's last declared connection state.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// Call sends a request frame and waits for the matching response or ctx
// expiry. Safe for concurrent use.
func (s *Session) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		rawParams = data
	}

	id := uuid.NewString()
	frame := Frame{Type: frameRequest, ID: id, Method: method, Params: rawParams}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}

	reply := make(chan Frame, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("session closed")
	}
	s.pending[id] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	select {
	case s.send <- data:
	case <-s.done:
		return nil, fmt.Errorf("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-reply:
		if resp.Error != "" {
			return nil, fmt.Errorf("agent error: %s", resp.Error)
		}
		return resp.Result, nil
	case <-s.done:
		return nil, fmt.Errorf("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run starts the pumps and blocks until the connection drops.
func (s *Session) run(ctx context.Context) {
	go s.writePump(ctx)
	s.readPump(ctx)
}

func (s *Session) readPump(ctx context.Context) {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("agent connection error", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			s.logger.Warn("malformed frame from agent", "error", err)
			continue
		}

		switch frame.Type {
		case frameResponse:
			s.mu.Lock()
			reply, ok := s.pending[frame.ID]
			s.mu.Unlock()
			if ok {
				select {
				case reply <- frame:
				default:
					// Duplicate response for an ID the caller already has.
					s.logger.Warn("dropping extra response from agent", "id", frame.ID)
				}
			}
		case framePush:
			if s.onPush != nil {
				s.onPush(s.wallet, frame.Event, frame.Payload)
			}
		default:
			s.logger.Warn("unexpected frame type from agent", "type", frame.Type)
		}
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.conn.Close()

	if s.onClose != nil {
		s.onClose(s.wallet, s)
	}
}
