// Package keystore provides pluggable keypair storage for persistent signer
// wallets. A backend stores at most one keypair per logical wallet name;
// Get reports absence with a nil key and nil error.
package keystore

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// KeypairStorage is the capability a persistent wallet consumes.
type KeypairStorage interface {
	// Get returns the stored keypair, or nil when none has been stored.
	Get(ctx context.Context) (solana.PrivateKey, error)

	// Put stores the keypair, replacing any previous one.
	Put(ctx context.Context, key solana.PrivateKey) error
}

// LoadOrCreate returns the stored keypair, generating and persisting a fresh
// one on first use.
func LoadOrCreate(ctx context.Context, s KeypairStorage) (solana.PrivateKey, error) {
	key, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if key != nil {
		return key, nil
	}
	key, err = solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}
