package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/marko911/wallet-pulse/internal/wallet"
)

// Dialect captures how one browser wallet frames its native API: method
// names, sign-and-send request shape, and the redirect entry point for
// in-wallet browsers.
type Dialect interface {
	Name() string
	URL() string
	Icon() string

	// SignAndSendRequest shapes the request for serialized transaction
	// bytes. Phantom wants a base58 message inside a "request" call;
	// others take the transaction directly.
	SignAndSendRequest(raw []byte) (method string, params any)

	// ParseSignature extracts the signature from the agent's response.
	ParseSignature(result json.RawMessage) (solana.Signature, error)

	// Redirectable wallets are reached through a universal link instead of
	// an injected marker.
	Redirectable() bool
	RedirectURL(appURL string) string
}

// Binding adapts a bridge session to the wallet.Binding capability. One
// binding per wallet dialect; the session may come and go underneath it.
type Binding struct {
	server  *Server
	dialect Dialect
	appURL  string
	logger  *slog.Logger

	mu        sync.Mutex
	publicKey *solana.PublicKey
}

func NewBinding(server *Server, dialect Dialect, appURL string, logger *slog.Logger) *Binding {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binding{
		server:  server,
		dialect: dialect,
		appURL:  appURL,
		logger:  logger.With("wallet", dialect.Name()),
	}
}

func (b *Binding) Name() string { return b.dialect.Name() }
func (b *Binding) URL() string  { return b.dialect.URL() }
func (b *Binding) Icon() string { return b.dialect.Icon() }

func (b *Binding) IsInstalled() bool {
	_, ok := b.server.Session(b.dialect.Name())
	return ok
}

func (b *Binding) IsConnected() bool {
	s, ok := b.server.Session(b.dialect.Name())
	return ok && s.IsConnected()
}

func (b *Binding) session() (*Session, error) {
	s, ok := b.server.Session(b.dialect.Name())
	if !ok {
		return nil, fmt.Errorf("no agent session for %s", b.dialect.Name())
	}
	return s, nil
}

func (b *Binding) Connect(ctx context.Context) error {
	s, err := b.session()
	if err != nil {
		return err
	}

	result, err := s.Call(ctx, "connect", nil)
	if err != nil {
		return fmt.Errorf("connect call: %w", err)
	}

	var res connectResult
	if err := json.Unmarshal(result, &res); err != nil {
		return fmt.Errorf("decode connect result: %w", err)
	}
	pk, err := solana.PublicKeyFromBase58(res.PublicKey)
	if err != nil {
		return fmt.Errorf("parse public key %q: %w", res.PublicKey, err)
	}

	b.mu.Lock()
	b.publicKey = &pk
	b.mu.Unlock()
	s.setConnected(true)

	return nil
}

func (b *Binding) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	b.publicKey = nil
	b.mu.Unlock()

	s, err := b.session()
	if err != nil {
		// No agent to tell; local state is already cleared.
		return nil
	}
	if _, err := s.Call(ctx, "disconnect", nil); err != nil {
		return fmt.Errorf("disconnect call: %w", err)
	}
	s.setConnected(false)
	return nil
}

func (b *Binding) PublicKey() (solana.PublicKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publicKey == nil {
		return solana.PublicKey{}, wallet.ErrNotConnected
	}
	return *b.publicKey, nil
}

func (b *Binding) On(event string, h wallet.Handler) {
	b.server.On(b.dialect.Name(), event, h)
}

func (b *Binding) Off(event string, h wallet.Handler) {
	b.server.Off(b.dialect.Name(), event, h)
}

func (b *Binding) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	s, err := b.session()
	if err != nil {
		return solana.Signature{}, err
	}

	raw, err := wallet.SerializeTransaction(tx)
	if err != nil {
		return solana.Signature{}, err
	}

	method, params := b.dialect.SignAndSendRequest(raw)
	result, err := s.Call(ctx, method, params)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s call: %w", method, err)
	}

	return b.dialect.ParseSignature(result)
}

func (b *Binding) IsRedirectable() bool {
	return b.dialect.Redirectable()
}

// OpenWalletURL surfaces the wallet's universal link. A headless host cannot
// follow the redirect itself; the link is logged for the embedding UI.
func (b *Binding) OpenWalletURL() error {
	url := b.dialect.RedirectURL(b.appURL)
	if url == "" {
		return fmt.Errorf("%s has no redirect URL", b.dialect.Name())
	}
	b.logger.Info("wallet redirect", "url", url)
	return nil
}
