package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
)

// fakeBinding simulates a remote wallet and records every call so tests can
// assert on ordering and idempotence.
type fakeBinding struct {
	mu sync.Mutex

	installed    bool
	redirectable bool
	connected    bool

	pk        solana.PublicKey
	signature solana.Signature

	connectErr    error
	disconnectErr error
	pkErr         error
	sendErr       error

	connectCalls    int
	disconnectCalls int
	sendCalls       int
	openCalls       int

	handlers map[string][]Handler
}

func newFakeBinding() *fakeBinding {
	b := &fakeBinding{
		installed: true,
		pk:        solana.NewWallet().PublicKey(),
		handlers:  make(map[string][]Handler),
	}
	for i := range b.signature {
		b.signature[i] = byte(i)
	}
	return b
}

func (b *fakeBinding) Name() string { return "Fake Wallet" }
func (b *fakeBinding) URL() string  { return "https://fake.example" }
func (b *fakeBinding) Icon() string { return "" }

func (b *fakeBinding) IsInstalled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.installed
}

func (b *fakeBinding) IsRedirectable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.redirectable
}

func (b *fakeBinding) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBinding) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectCalls++
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = true
	return nil
}

func (b *fakeBinding) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCalls++
	if b.disconnectErr != nil {
		return b.disconnectErr
	}
	b.connected = false
	return nil
}

func (b *fakeBinding) PublicKey() (solana.PublicKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pk, b.pkErr
}

func (b *fakeBinding) On(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

func (b *fakeBinding) Off(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.handlers[event][:0]
	for _, existing := range b.handlers[event] {
		if existing != h {
			kept = append(kept, existing)
		}
	}
	b.handlers[event] = kept
}

// push invokes registered handlers the way the remote wallet would.
func (b *fakeBinding) push(event string, payload []byte) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[event]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h.Handle(event, payload)
	}
}

func (b *fakeBinding) handlerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[event])
}

func (b *fakeBinding) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendCalls++
	return b.signature, b.sendErr
}

func (b *fakeBinding) OpenWalletURL() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openCalls++
	return nil
}

// newInstalledAdapter waits out detection and drains the ready state event.
func newInstalledAdapter(t *testing.T, binding *fakeBinding) *GenericAdapter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := NewGenericAdapter(ctx, binding, GenericConfig{}, nil)

	deadline := time.After(2 * time.Second)
	for a.ReadyState() != ReadyStateInstalled {
		select {
		case <-deadline:
			t.Fatal("adapter never reached installed state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ev := recvEvent(t, a)
	if ev.Kind != EventReadyStateChange || ev.ReadyState != ReadyStateInstalled {
		t.Fatalf("first event = %+v, want installed ready state change", ev)
	}
	return a
}

func recvEvent(t *testing.T, a *GenericAdapter) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := a.Events().Recv(ctx)
	if err != nil {
		t.Fatalf("recv event: %v", err)
	}
	return ev
}

func requireNoEvent(t *testing.T, a *GenericAdapter) {
	t.Helper()
	select {
	case ev := <-a.Events().Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectEmitsConnectEvent(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ev := recvEvent(t, a)
	if ev.Kind != EventConnect {
		t.Fatalf("event kind = %s, want connect", ev.Kind)
	}
	if ev.PublicKey != binding.pk {
		t.Error("connect event carries the wrong public key")
	}
	if !a.Connected() {
		t.Error("adapter not connected after connect")
	}
	if pk := a.PublicKey(); pk == nil || *pk != binding.pk {
		t.Error("adapter public key not set")
	}
	if a.Connecting() {
		t.Error("connecting flag still set after connect returned")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	recvEvent(t, a)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}

	if binding.connectCalls != 1 {
		t.Errorf("binding connect calls = %d, want 1", binding.connectCalls)
	}
	requireNoEvent(t, a)
}

func TestConnectFailureBecomesErrorEvent(t *testing.T) {
	binding := newFakeBinding()
	binding.connectErr = errors.New("user rejected")
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect dispatch returned %v, want nil", err)
	}

	ev := recvEvent(t, a)
	if ev.Kind != EventError {
		t.Fatalf("event kind = %s, want error", ev.Kind)
	}
	var connErr *ConnectionError
	if !errors.As(ev.Err, &connErr) {
		t.Errorf("event error type = %T, want *ConnectionError", ev.Err)
	}
	if a.Connected() {
		t.Error("adapter reports connected after a failed connect")
	}
	if a.Connecting() {
		t.Error("connecting flag leaked after a failed connect")
	}
}

func TestConnectWhileNotDetected(t *testing.T) {
	binding := newFakeBinding()
	binding.installed = false

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := NewGenericAdapter(ctx, binding, GenericConfig{}, nil)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect dispatch: %v", err)
	}

	ev := recvEvent(t, a)
	if ev.Kind != EventError || !errors.Is(ev.Err, ErrNotReady) {
		t.Fatalf("event = %+v, want ErrNotReady error", ev)
	}
	if binding.connectCalls != 0 {
		t.Error("binding connect was called for an undetected wallet")
	}
}

func TestConnectUnsupportedWallet(t *testing.T) {
	binding := newFakeBinding()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := NewGenericAdapter(ctx, binding, GenericConfig{Unsupported: true}, nil)

	if got := a.ReadyState(); got != ReadyStateUnsupported {
		t.Fatalf("ready state = %s, want unsupported", got)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect dispatch: %v", err)
	}
	ev := recvEvent(t, a)
	if ev.Kind != EventError || !errors.Is(ev.Err, ErrNotReady) {
		t.Fatalf("event = %+v, want ErrNotReady error", ev)
	}
}

func TestLoadableConnectOpensWalletURL(t *testing.T) {
	binding := newFakeBinding()
	binding.redirectable = true

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := NewGenericAdapter(ctx, binding, GenericConfig{}, nil)

	if got := a.ReadyState(); got != ReadyStateLoadable {
		t.Fatalf("ready state = %s, want loadable", got)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if binding.openCalls != 1 {
		t.Errorf("open wallet URL calls = %d, want 1", binding.openCalls)
	}
	if a.Connected() {
		t.Error("redirect connect must not mark the adapter connected")
	}
	requireNoEvent(t, a)
}

func TestDisconnectClearsStateDespiteRemoteFailure(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	binding.disconnectErr = errors.New("wallet unreachable")
	if err := a.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if a.Connected() {
		t.Error("adapter still connected after disconnect")
	}
	if a.PublicKey() != nil {
		t.Error("public key survives disconnect")
	}

	ev := recvEvent(t, a)
	if ev.Kind != EventError || !errors.Is(ev.Err, ErrDisconnectionFailure) {
		t.Fatalf("first event = %+v, want disconnection failure error", ev)
	}
	ev = recvEvent(t, a)
	if ev.Kind != EventDisconnect {
		t.Fatalf("second event kind = %s, want disconnect", ev.Kind)
	}
}

func TestDisconnectDeregistersHandlers(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	if got := binding.handlerCount(BindingEventDisconnect); got != 1 {
		t.Fatalf("disconnect handlers after connect = %d, want 1", got)
	}

	if err := a.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	recvEvent(t, a)

	if got := binding.handlerCount(BindingEventDisconnect); got != 0 {
		t.Errorf("disconnect handlers after disconnect = %d, want 0", got)
	}
	if got := binding.handlerCount(BindingEventAccountChanged); got != 0 {
		t.Errorf("account handlers after disconnect = %d, want 0", got)
	}
}

func TestRemoteDisconnectPush(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	binding.push(BindingEventDisconnect, nil)

	if a.Connected() {
		t.Error("adapter still connected after remote disconnect")
	}
	ev := recvEvent(t, a)
	if ev.Kind != EventDisconnect {
		t.Fatalf("event kind = %s, want disconnect", ev.Kind)
	}
}

func TestAccountChangedPush(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	// Same account: no event.
	binding.push(BindingEventAccountChanged, binding.pk.Bytes())
	requireNoEvent(t, a)

	// New account: connect event with the new key.
	next := solana.NewWallet().PublicKey()
	binding.push(BindingEventAccountChanged, next.Bytes())

	ev := recvEvent(t, a)
	if ev.Kind != EventConnect || ev.PublicKey != next {
		t.Fatalf("event = %+v, want connect with new key", ev)
	}
	if pk := a.PublicKey(); pk == nil || *pk != next {
		t.Error("adapter did not adopt the new public key")
	}
}

func TestSendTransactionRequiresConnection(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)
	conn := &fakeConn{blockhash: testBlockhash()}

	tx := transferTx(t, solana.NewWallet().PublicKey(), testBlockhash())
	_, err := a.SendTransaction(context.Background(), tx, conn, nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
	if binding.sendCalls != 0 || conn.blockhashCalls.Load() != 0 {
		t.Error("disconnected send still reached the binding or network")
	}
}

func TestSendTransactionVersionedRejectsLocalSigners(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)
	conn := &fakeConn{blockhash: testBlockhash()}

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	tx := versionedTx(t, binding.pk)
	opts := &SendTransactionOptions{Signers: []solana.PrivateKey{key}}

	_, err = a.SendTransaction(context.Background(), tx, conn, opts)
	var sendErr *SendTransactionError
	if !errors.As(err, &sendErr) {
		t.Fatalf("got %v, want *SendTransactionError", err)
	}
	if binding.sendCalls != 0 || conn.blockhashCalls.Load() != 0 {
		t.Error("rejected send still reached the binding or network")
	}
}

func TestSendTransactionLegacyPipeline(t *testing.T) {
	binding := newFakeBinding()
	a := newInstalledAdapter(t, binding)
	conn := &fakeConn{blockhash: testBlockhash()}

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	tx := transferTx(t, binding.pk, solana.Hash{})
	sig, err := a.SendTransaction(context.Background(), tx, conn, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sig != binding.signature {
		t.Error("returned signature does not match the wallet's")
	}
	if tx.Message.RecentBlockhash != conn.blockhash {
		t.Error("pipeline did not complete the missing blockhash")
	}
	if binding.sendCalls != 1 {
		t.Errorf("binding send calls = %d, want 1", binding.sendCalls)
	}
}

func TestSendTransactionWrapsWalletRejection(t *testing.T) {
	binding := newFakeBinding()
	binding.sendErr = errors.New("user declined")
	a := newInstalledAdapter(t, binding)
	conn := &fakeConn{blockhash: testBlockhash()}

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvEvent(t, a)

	tx := transferTx(t, binding.pk, testBlockhash())
	_, err := a.SendTransaction(context.Background(), tx, conn, nil)

	var sendErr *SendTransactionError
	if !errors.As(err, &sendErr) {
		t.Fatalf("got %v, want *SendTransactionError", err)
	}
	if !errors.Is(err, binding.sendErr) {
		t.Error("wallet error not preserved in the wrap chain")
	}
}
