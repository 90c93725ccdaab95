package keystore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestFileStorageRoundTrip(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	ctx := context.Background()

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if err := s.Put(ctx, key); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("stored keypair does not round trip")
	}
	if got.PublicKey() != key.PublicKey() {
		t.Error("public keys diverge after round trip")
	}
}

func TestFileStorageAbsentKey(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("get on empty dir: %v", err)
	}
	if got != nil {
		t.Error("empty storage returned a keypair")
	}
}

func TestFileStorageCreatesDirWithOwnerOnlyPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewFileStorage(dir)

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if err := s.Put(context.Background(), key); err != nil {
		t.Fatalf("put: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("dir perms = %o, want 700", perm)
	}

	info, err = os.Stat(filepath.Join(dir, fileKeyName))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file perms = %o, want 600", perm)
	}
}

func TestFileStoragePutReplaces(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	ctx := context.Background()

	first, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	second, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PublicKey() != second.PublicKey() {
		t.Error("put did not replace the previous keypair")
	}
}

func TestLoadOrCreatePersists(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	ctx := context.Background()

	created, err := LoadOrCreate(ctx, s)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	loaded, err := LoadOrCreate(ctx, s)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if created.PublicKey() != loaded.PublicKey() {
		t.Error("second load generated a different keypair")
	}
}
