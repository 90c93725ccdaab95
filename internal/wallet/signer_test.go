package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestSendWithSignerLegacy(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	conn := &fakeConn{blockhash: testBlockhash(), signature: testSignature()}
	tx := transferTx(t, key.PublicKey(), solana.Hash{})

	supported := SupportedVersions{solana.MessageVersionLegacy}
	sig, err := SendWithSigner(context.Background(), key, supported, tx, conn, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sig != conn.signature {
		t.Error("returned signature does not match the RPC response")
	}
	if conn.sendCalls.Load() != 1 {
		t.Errorf("raw sends = %d, want 1", conn.sendCalls.Load())
	}
	if len(conn.lastRaw) == 0 {
		t.Fatal("no wire bytes submitted")
	}
	if len(tx.Signatures) == 0 || tx.Signatures[0] == (solana.Signature{}) {
		t.Error("transaction was submitted unsigned")
	}
	if tx.Message.RecentBlockhash != conn.blockhash {
		t.Error("missing blockhash was not completed before signing")
	}
}

func TestSendWithSignerRejectsUnsupportedVersion(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	conn := &fakeConn{blockhash: testBlockhash()}
	tx := versionedTx(t, key.PublicKey())

	supported := SupportedVersions{solana.MessageVersionLegacy}
	_, err = SendWithSigner(context.Background(), key, supported, tx, conn, nil)

	var sendErr *SendTransactionError
	if !errors.As(err, &sendErr) {
		t.Fatalf("got %v, want *SendTransactionError", err)
	}
	if conn.blockhashCalls.Load() != 0 || conn.sendCalls.Load() != 0 {
		t.Error("rejected transaction still reached the network")
	}
	if len(tx.Signatures) != 0 {
		t.Error("rejected transaction was signed")
	}
}

func TestSendWithSignerWrapsRPCError(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	rpcErr := errors.New("node unavailable")
	conn := &fakeConn{blockhash: testBlockhash(), sendErr: rpcErr}
	tx := transferTx(t, key.PublicKey(), solana.Hash{})

	_, err = SendWithSigner(context.Background(), key, SupportedVersions{solana.MessageVersionLegacy}, tx, conn, nil)
	var sendErr *SendTransactionError
	if !errors.As(err, &sendErr) {
		t.Fatalf("got %v, want *SendTransactionError", err)
	}
	if !errors.Is(err, rpcErr) {
		t.Error("rpc error not preserved in the wrap chain")
	}
}

func TestSignAllFailsWholeBatchBeforeSigning(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	legacy := transferTx(t, key.PublicKey(), testBlockhash())
	versioned := versionedTx(t, key.PublicKey())

	err = SignAll(key, SupportedVersions{solana.MessageVersionLegacy}, []*solana.Transaction{legacy, versioned})
	if err == nil {
		t.Fatal("expected batch rejection")
	}
	if len(legacy.Signatures) != 0 {
		t.Error("first transaction was signed despite the batch failing")
	}
}

func TestSignAllSignsEveryTransaction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	txs := []*solana.Transaction{
		transferTx(t, key.PublicKey(), testBlockhash()),
		transferTx(t, key.PublicKey(), testBlockhash()),
	}
	if err := SignAll(key, SupportedVersions{solana.MessageVersionLegacy}, txs); err != nil {
		t.Fatalf("sign all: %v", err)
	}
	for i, tx := range txs {
		if len(tx.Signatures) == 0 || tx.Signatures[0] == (solana.Signature{}) {
			t.Errorf("transaction %d is unsigned", i)
		}
	}
}
