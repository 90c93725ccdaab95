// Package wallet implements the adapter state machine shared by every wallet
// backend: readiness detection, the connect/disconnect lifecycle, the
// transaction preparation and sign-and-send pipeline, and the bounded event
// emitter that propagates state changes to consumers.
package wallet

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Adapter is the uniform surface a wallet backend exposes to UI layers and
// relays. Implementations share the lifecycle rules in this package:
// Connect is idempotent, connect failures surface as Error events rather
// than returned errors, and Disconnect always clears local state.
type Adapter interface {
	Name() string
	URL() string
	Icon() string

	ReadyState() ReadyState
	PublicKey() *solana.PublicKey
	Connecting() bool
	Connected() bool
	SupportedTransactionVersions() SupportedVersions

	// Events returns the adapter's event emitter. Each adapter owns exactly
	// one; callers consume it to observe lifecycle changes and async errors.
	Events() *Emitter

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	SendTransaction(ctx context.Context, tx *solana.Transaction, conn Connection, opts *SendTransactionOptions) (solana.Signature, error)
}

// MessageSigner is implemented by wallets that hold their own keypair and
// can sign arbitrary messages.
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// AutoConnect connects only when the wallet is already detected; it is a
// no-op for any other ready state.
func AutoConnect(ctx context.Context, a Adapter) error {
	if a.ReadyState() != ReadyStateInstalled {
		return nil
	}
	return a.Connect(ctx)
}

// Binding is the capability a remote (browser-extension style) wallet
// exposes. Handlers registered via On are invoked from the wallet's own
// callback context; implementations must support symmetric Off with the
// same handler instance.
type Binding interface {
	Name() string
	URL() string
	Icon() string

	IsInstalled() bool
	IsConnected() bool

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	PublicKey() (solana.PublicKey, error)

	On(event string, handler Handler)
	Off(event string, handler Handler)

	SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// IsRedirectable reports whether this wallet is reached via a redirect
	// instead of an injected marker (in-wallet browsers on mobile).
	IsRedirectable() bool

	// OpenWalletURL performs the redirect side effect for redirectable
	// wallets. The connection resumes outside this process's lifetime.
	OpenWalletURL() error
}

// Handler receives push notifications from a wallet binding. The payload is
// event-specific: accountChanged carries the new public key bytes.
type Handler interface {
	Handle(event string, payload []byte)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(event string, payload []byte)

func (f HandlerFunc) Handle(event string, payload []byte) { f(event, payload) }

// Binding push event names.
const (
	BindingEventDisconnect     = "disconnect"
	BindingEventAccountChanged = "accountChanged"
)
