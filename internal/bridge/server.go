// Package bridge exposes remote browser wallets to adapters over WebSocket.
// A wallet agent (the extension side) dials in and registers under its
// wallet name; the live session is the adapter's "installed marker" and
// carries connect/sign-and-send requests and disconnect/accountChanged
// pushes.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"github.com/marko911/wallet-pulse/internal/wallet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Agents authenticate at the transport layer; the bridge binds to
		// loopback in the default deployment.
		return true
	},
}

// Server owns agent sessions and the push-handler registry. One session per
// wallet name; a new agent connection for the same wallet replaces the old
// session.
type Server struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	handlers map[string]map[string][]wallet.Handler
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:   logger.With("component", "bridge"),
		sessions: make(map[string]*Session),
		handlers: make(map[string]map[string][]wallet.Handler),
	}
}

// Handler returns the HTTP handler agents connect to.
func (srv *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			srv.logger.Warn("upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}

		// The first frame must be a hello declaring the wallet name.
		var hello Frame
		_, raw, err := conn.ReadMessage()
		if err == nil {
			err = json.Unmarshal(raw, &hello)
		}
		if err != nil || hello.Type != frameHello || hello.Wallet == "" {
			srv.logger.Warn("agent sent no hello", "remote_addr", r.RemoteAddr)
			conn.Close()
			return
		}

		session := newSession(hello.Wallet, hello.Connected, conn, srv.logger, srv.dispatch, srv.unregister)
		srv.register(hello.Wallet, session)

		srv.logger.Info("agent connected",
			"wallet", hello.Wallet,
			"remote_addr", conn.RemoteAddr().String(),
		)

		go session.run(ctx)
	})
}

func (srv *Server) register(name string, s *Session) {
	srv.mu.Lock()
	old := srv.sessions[name]
	srv.sessions[name] = s
	srv.mu.Unlock()

	if old != nil {
		old.close()
	}
}

// unregister removes a dropped session and synthesizes a disconnect push so
// a connected adapter observes the lost wallet. A session that was already
// replaced by a newer agent connection is not a wallet-side drop and
// produces no push.
func (srv *Server) unregister(name string, s *Session) {
	srv.mu.Lock()
	current := srv.sessions[name] == s
	if current {
		delete(srv.sessions, name)
	}
	srv.mu.Unlock()

	if !current {
		return
	}

	srv.logger.Info("agent disconnected", "wallet", name)
	srv.dispatch(name, wallet.BindingEventDisconnect, "")
}

// Session returns the live session for a wallet name, if any.
func (srv *Server) Session(name string) (*Session, bool) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	s, ok := srv.sessions[name]
	return s, ok
}

// On registers a push handler for a wallet's event. Handlers survive agent
// reconnects; they belong to the adapter, not the session.
func (srv *Server) On(walletName, event string, h wallet.Handler) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	byEvent, ok := srv.handlers[walletName]
	if !ok {
		byEvent = make(map[string][]wallet.Handler)
		srv.handlers[walletName] = byEvent
	}
	byEvent[event] = append(byEvent[event], h)
}

// Off deregisters a handler previously passed to On (same instance).
func (srv *Server) Off(walletName, event string, h wallet.Handler) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	byEvent, ok := srv.handlers[walletName]
	if !ok {
		return
	}
	kept := byEvent[event][:0]
	for _, existing := range byEvent[event] {
		if !handlerEqual(existing, h) {
			kept = append(kept, existing)
		}
	}
	byEvent[event] = kept
}

// handlerEqual matches handlers by identity. Func-backed handlers are not
// comparable with ==, so those fall back to code-pointer comparison.
func handlerEqual(a, b wallet.Handler) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Func || rb.Kind() == reflect.Func {
		return ra.Kind() == rb.Kind() && ra.Pointer() == rb.Pointer()
	}
	return a == b
}

// dispatch fans a push out to the wallet's registered handlers. The
// accountChanged payload is the new public key in base58 and is delivered
// to handlers as raw key bytes.
func (srv *Server) dispatch(walletName, event, payload string) {
	srv.mu.RLock()
	var targets []wallet.Handler
	if byEvent, ok := srv.handlers[walletName]; ok {
		targets = append(targets, byEvent[event]...)
	}
	srv.mu.RUnlock()

	var data []byte
	if event == wallet.BindingEventAccountChanged {
		pk, err := solana.PublicKeyFromBase58(payload)
		if err != nil {
			srv.logger.Warn("bad accountChanged payload", "wallet", walletName, "error", err)
			return
		}
		data = pk.Bytes()
	} else if payload != "" {
		data = []byte(payload)
	}

	for _, h := range targets {
		h.Handle(event, data)
	}
}
