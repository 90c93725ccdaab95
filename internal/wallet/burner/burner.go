// Package burner implements an in-memory signer wallet. The keypair lives
// only for the duration of a connection; any application embedding this
// wallet can read the secret key, so it is meant for development and tests.
package burner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/marko911/wallet-pulse/internal/wallet"
)

type Wallet struct {
	logger  *slog.Logger
	emitter *wallet.Emitter

	mu  sync.Mutex
	key solana.PrivateKey
}

var (
	_ wallet.Adapter       = (*Wallet)(nil)
	_ wallet.MessageSigner = (*Wallet)(nil)
)

func New(logger *slog.Logger) *Wallet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wallet{
		logger:  logger.With("wallet", "burner"),
		emitter: wallet.NewEmitter(),
	}
}

func (w *Wallet) Name() string { return "BurnerWallet" }
func (w *Wallet) URL() string  { return "https://github.com/marko911/wallet-pulse" }
func (w *Wallet) Icon() string { return "" }

func (w *Wallet) Events() *wallet.Emitter { return w.emitter }

// Loadable: a burner can always be "loaded" by generating a key.
func (w *Wallet) ReadyState() wallet.ReadyState { return wallet.ReadyStateLoadable }

func (w *Wallet) Connecting() bool { return false }

func (w *Wallet) PublicKey() *solana.PublicKey {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key == nil {
		return nil
	}
	pk := w.key.PublicKey()
	return &pk
}

func (w *Wallet) Connected() bool { return w.PublicKey() != nil }

func (w *Wallet) SupportedTransactionVersions() wallet.SupportedVersions {
	return wallet.SupportedVersions{solana.MessageVersionLegacy, solana.MessageVersionV0}
}

// Connect generates a fresh keypair. No-op when already connected.
func (w *Wallet) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.key != nil {
		w.mu.Unlock()
		return nil
	}
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		w.mu.Unlock()
		return w.emitter.Emit(ctx, wallet.ErrorEvent(&wallet.ConnectionError{Message: "keypair generation failed", Err: err}))
	}
	w.key = key
	w.mu.Unlock()

	pk := key.PublicKey()
	w.logger.Info("connected", "public_key", pk)
	return w.emitter.Emit(ctx, wallet.ConnectEvent(pk))
}

// Disconnect discards the keypair. The burned key is unrecoverable.
func (w *Wallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	w.key = nil
	w.mu.Unlock()

	w.logger.Info("disconnected")
	return w.emitter.Emit(ctx, wallet.DisconnectEvent())
}

func (w *Wallet) signerKey() (solana.PrivateKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key == nil {
		return nil, wallet.ErrNotConnected
	}
	return w.key, nil
}

func (w *Wallet) SendTransaction(ctx context.Context, tx *solana.Transaction, conn wallet.Connection, opts *wallet.SendTransactionOptions) (solana.Signature, error) {
	key, err := w.signerKey()
	if err != nil {
		return solana.Signature{}, err
	}
	return wallet.SendWithSigner(ctx, key, w.SupportedTransactionVersions(), tx, conn, opts)
}

func (w *Wallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	key, err := w.signerKey()
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(message)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}
