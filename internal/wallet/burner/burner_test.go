package burner

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/marko911/wallet-pulse/internal/wallet"
)

func TestConnectGeneratesKeypair(t *testing.T) {
	w := New(nil)
	ctx := context.Background()

	if w.Connected() {
		t.Fatal("fresh burner reports connected")
	}
	if err := w.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	pk := w.PublicKey()
	if pk == nil {
		t.Fatal("no public key after connect")
	}

	ev, err := w.Events().Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if ev.Kind != wallet.EventConnect || ev.PublicKey != *pk {
		t.Fatalf("event = %+v, want connect with %s", ev, pk)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	w := New(nil)
	ctx := context.Background()

	if err := w.Connect(ctx); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	first := *w.PublicKey()
	w.Events().Recv(ctx)

	if err := w.Connect(ctx); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if *w.PublicKey() != first {
		t.Error("second connect replaced the keypair")
	}
	if len(w.Events().Events()) != 0 {
		t.Error("second connect emitted an event")
	}
}

func TestDisconnectBurnsKey(t *testing.T) {
	w := New(nil)
	ctx := context.Background()

	w.Connect(ctx)
	first := *w.PublicKey()
	w.Events().Recv(ctx)

	if err := w.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if w.Connected() {
		t.Error("still connected after disconnect")
	}
	ev, _ := w.Events().Recv(ctx)
	if ev.Kind != wallet.EventDisconnect {
		t.Fatalf("event kind = %s, want disconnect", ev.Kind)
	}

	// Reconnecting produces a fresh key; the burned one is gone.
	w.Connect(ctx)
	if *w.PublicKey() == first {
		t.Error("reconnect resurrected the burned keypair")
	}
}

func TestSendRequiresConnection(t *testing.T) {
	w := New(nil)
	_, err := w.SendTransaction(context.Background(), &solana.Transaction{}, nil, nil)
	if !errors.Is(err, wallet.ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

func TestSignMessage(t *testing.T) {
	w := New(nil)
	ctx := context.Background()
	w.Connect(ctx)
	w.Events().Recv(ctx)

	msg := []byte("hello wallet")
	sig, err := w.SignMessage(ctx, msg)
	if err != nil {
		t.Fatalf("sign message: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}

	pk := *w.PublicKey()
	if !ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig) {
		t.Error("signature does not verify against the wallet key")
	}
}
