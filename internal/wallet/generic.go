package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// GenericConfig tunes a GenericAdapter.
type GenericConfig struct {
	// Unsupported pins the ready state; Connect always reports NotReady via
	// the event channel. Used when the host can never reach this wallet.
	Unsupported bool
}

// GenericAdapter implements the adapter state machine over any remote wallet
// Binding. One instance owns one binding, one emitter, and two memoized push
// handlers registered with the binding on connect and deregistered
// symmetrically on disconnect.
type GenericAdapter struct {
	binding Binding
	logger  *slog.Logger
	emitter *Emitter

	mu               sync.Mutex
	publicKey        *solana.PublicKey
	connecting       bool
	readyState       ReadyState
	onDisconnect     Handler
	onAccountChanged Handler
}

// NewGenericAdapter builds an adapter around the binding and starts readiness
// detection. The detection goroutine stops when ctx is cancelled.
func NewGenericAdapter(ctx context.Context, binding Binding, cfg GenericConfig, logger *slog.Logger) *GenericAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &GenericAdapter{
		binding: binding,
		logger:  logger.With("wallet", binding.Name()),
		emitter: NewEmitter(),
	}

	switch {
	case cfg.Unsupported:
		a.readyState = ReadyStateUnsupported
	case binding.IsRedirectable():
		a.readyState = ReadyStateLoadable
	default:
		a.readyState = ReadyStateNotDetected
		go detectReadyState(ctx, a.logger, binding.Name(), binding.IsInstalled, func(ctx context.Context) {
			a.setReadyState(ReadyStateInstalled)
			if err := a.emitter.Emit(ctx, ReadyStateChangeEvent(ReadyStateInstalled)); err != nil {
				a.logger.Warn("ready state event not delivered", "error", err)
			}
		})
	}

	return a
}

func (a *GenericAdapter) Name() string { return a.binding.Name() }
func (a *GenericAdapter) URL() string  { return a.binding.URL() }
func (a *GenericAdapter) Icon() string { return a.binding.Icon() }

func (a *GenericAdapter) Events() *Emitter { return a.emitter }

func (a *GenericAdapter) ReadyState() ReadyState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readyState
}

func (a *GenericAdapter) PublicKey() *solana.PublicKey {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.publicKey
}

func (a *GenericAdapter) Connecting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connecting
}

func (a *GenericAdapter) Connected() bool {
	return a.PublicKey() != nil
}

func (a *GenericAdapter) SupportedTransactionVersions() SupportedVersions {
	return SupportedVersions{solana.MessageVersionLegacy, solana.MessageVersionV0}
}

func (a *GenericAdapter) setReadyState(state ReadyState) {
	a.mu.Lock()
	a.readyState = state
	a.mu.Unlock()
}

func (a *GenericAdapter) setConnecting(connecting bool) {
	a.mu.Lock()
	a.connecting = connecting
	a.mu.Unlock()
}

func (a *GenericAdapter) setPublicKey(pk *solana.PublicKey) {
	a.mu.Lock()
	a.publicKey = pk
	a.mu.Unlock()
}

// pushHandler is the memoized handler registered with the binding. A struct
// pointer rather than a closure so On/Off can match it by identity.
type pushHandler struct {
	adapter *GenericAdapter
	kind    string
}

func (h *pushHandler) Handle(event string, payload []byte) {
	switch h.kind {
	case BindingEventDisconnect:
		h.adapter.handleRemoteDisconnect()
	case BindingEventAccountChanged:
		h.adapter.handleAccountChanged(payload)
	}
}

func (a *GenericAdapter) handleRemoteDisconnect() {
	a.logger.Info("wallet pushed disconnect")
	a.setPublicKey(nil)
	if !a.emitter.EmitSync(DisconnectEvent()) {
		a.logger.Warn("disconnect event dropped, emitter full", "dropped", a.emitter.Dropped())
	}
}

// handleAccountChanged processes an account switch inside the remote wallet.
// A push carrying the current key is ignored.
func (a *GenericAdapter) handleAccountChanged(payload []byte) {
	pk := solana.PublicKeyFromBytes(payload)
	current := a.PublicKey()
	if current != nil && *current == pk {
		return
	}
	a.logger.Info("wallet account changed", "public_key", pk)
	a.setPublicKey(&pk)
	if !a.emitter.EmitSync(ConnectEvent(pk)) {
		a.logger.Warn("connect event dropped, emitter full", "dropped", a.emitter.Dropped())
	}
}

// disconnectHandler returns the memoized handler for the binding's
// disconnect push. Created once, reused for On and Off.
func (a *GenericAdapter) disconnectHandler() Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.onDisconnect == nil {
		a.onDisconnect = &pushHandler{adapter: a, kind: BindingEventDisconnect}
	}
	return a.onDisconnect
}

// accountChangedHandler returns the memoized handler for account switches
// inside the remote wallet.
func (a *GenericAdapter) accountChangedHandler() Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.onAccountChanged == nil {
		a.onAccountChanged = &pushHandler{adapter: a, kind: BindingEventAccountChanged}
	}
	return a.onAccountChanged
}

// Connect runs the connect state machine. Failures of the underlying wallet
// call are emitted as Error events, not returned: the caller observes them
// on the event channel. A non-nil return means the dispatch itself failed.
func (a *GenericAdapter) Connect(ctx context.Context) error {
	err := a.tryConnect(ctx)
	a.setConnecting(false)
	if err != nil {
		return a.emitter.Emit(ctx, ErrorEvent(err))
	}
	return nil
}

func (a *GenericAdapter) tryConnect(ctx context.Context) error {
	if a.Connected() || a.Connecting() {
		return nil
	}

	state := a.ReadyState()
	if state == ReadyStateLoadable {
		// Redirect-based wallet: fire the redirect and stop here. The
		// connection resumes outside this process's lifetime.
		if err := a.binding.OpenWalletURL(); err != nil {
			return fmt.Errorf("%w: %v", ErrLoadFailure, err)
		}
		return nil
	}
	if state != ReadyStateInstalled {
		return ErrNotReady
	}

	a.setConnecting(true)
	a.logger.Info("connecting")

	if !a.binding.IsConnected() {
		if err := a.binding.Connect(ctx); err != nil {
			return &ConnectionError{Message: "wallet connect failed", Err: err}
		}
	}

	pk, err := a.binding.PublicKey()
	if err != nil {
		return &ConnectionError{Message: "wallet returned no public key", Err: err}
	}

	a.binding.On(BindingEventDisconnect, a.disconnectHandler())
	a.binding.On(BindingEventAccountChanged, a.accountChangedHandler())

	a.setPublicKey(&pk)
	a.logger.Info("connected", "public_key", pk)

	return a.emitter.Emit(ctx, ConnectEvent(pk))
}

// Disconnect deregisters push handlers, clears the public key, then makes a
// best-effort remote disconnect. A remote failure becomes an Error event;
// local state is cleared regardless.
func (a *GenericAdapter) Disconnect(ctx context.Context) error {
	a.binding.Off(BindingEventDisconnect, a.disconnectHandler())
	a.binding.Off(BindingEventAccountChanged, a.accountChangedHandler())

	a.setPublicKey(nil)

	if err := a.binding.Disconnect(ctx); err != nil {
		a.logger.Warn("remote disconnect failed", "error", err)
		if emitErr := a.emitter.Emit(ctx, ErrorEvent(fmt.Errorf("%w: %v", ErrDisconnectionFailure, err))); emitErr != nil {
			return emitErr
		}
	}

	return a.emitter.Emit(ctx, DisconnectEvent())
}

// SendTransaction runs the preparation pipeline and delegates the final
// signature to the remote wallet.
func (a *GenericAdapter) SendTransaction(ctx context.Context, tx *solana.Transaction, conn Connection, opts *SendTransactionOptions) (solana.Signature, error) {
	pk := a.PublicKey()
	if pk == nil {
		return solana.Signature{}, ErrNotConnected
	}

	if err := CheckVersionSupported(a.SupportedTransactionVersions(), tx); err != nil {
		return solana.Signature{}, err
	}

	if IsVersioned(tx) {
		if opts != nil && len(opts.Signers) > 0 {
			return solana.Signature{}, &SendTransactionError{
				Message: "local signers are not supported for versioned transactions",
			}
		}
	} else {
		var sendOpts *SendOptions
		var signers []solana.PrivateKey
		if opts != nil {
			sendOpts = &opts.SendOptions
			signers = opts.Signers
		}
		if err := PrepareTransaction(ctx, tx, *pk, conn, sendOpts); err != nil {
			return solana.Signature{}, err
		}
		if err := PartialSign(tx, signers); err != nil {
			return solana.Signature{}, err
		}
	}

	sig, err := a.binding.SignAndSendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, &SendTransactionError{Message: "wallet rejected transaction", Err: err}
	}
	return sig, nil
}
