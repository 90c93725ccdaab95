package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SupportedVersions is the set of transaction message versions a wallet
// advertises. A nil set means the wallet only accepts legacy transactions.
type SupportedVersions []solana.MessageVersion

func (v SupportedVersions) Contains(version solana.MessageVersion) bool {
	for _, sv := range v {
		if sv == version {
			return true
		}
	}
	return false
}

// SendOptions tune how the RPC node handles a submitted transaction.
type SendOptions struct {
	// Disable the preflight transaction verification step.
	SkipPreflight bool

	// Commitment level used for preflight simulation.
	PreflightCommitment rpc.CommitmentType

	// Maximum times the RPC node retries forwarding to the leader.
	MaxRetries *uint

	// Minimum slot the request may be evaluated at.
	MinContextSlot *uint64
}

// SendTransactionOptions adds local signers applied before the wallet's own
// signature.
type SendTransactionOptions struct {
	Signers []solana.PrivateKey
	SendOptions
}

// Connection is the RPC capability the send pipeline consumes. See
// platform/solrpc for the production implementation.
type Connection interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType, minContextSlot *uint64) (solana.Hash, error)
	SendRawTransaction(ctx context.Context, raw []byte, opts *SendOptions) (solana.Signature, error)
}

// IsVersioned reports whether tx uses a non-legacy message format.
func IsVersioned(tx *solana.Transaction) bool {
	return tx.Message.GetVersion() != solana.MessageVersionLegacy
}

// CheckVersionSupported rejects a versioned transaction whose message
// version is absent from the wallet's advertised set. It runs before any
// signing or network call.
func CheckVersionSupported(supported SupportedVersions, tx *solana.Transaction) error {
	if !IsVersioned(tx) {
		return nil
	}
	if supported == nil {
		return &SendTransactionError{Message: "sending versioned transactions isn't supported by this wallet"}
	}
	if !supported.Contains(tx.Message.GetVersion()) {
		return &SendTransactionError{
			Message: fmt.Sprintf("sending transaction version %d isn't supported by this wallet", tx.Message.GetVersion()),
		}
	}
	return nil
}

// SerializeTransaction produces the wire bytes submitted to the RPC node.
func SerializeTransaction(tx *solana.Transaction) ([]byte, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return raw, nil
}

// PrepareTransaction completes a legacy transaction in place: the fee payer
// defaults to the connected public key and a missing recent blockhash is
// fetched from the connection. Both completions are idempotent; fields
// already set are left untouched.
func PrepareTransaction(ctx context.Context, tx *solana.Transaction, payer solana.PublicKey, conn Connection, opts *SendOptions) error {
	if payer.IsZero() {
		return ErrNotConnected
	}

	if len(tx.Message.AccountKeys) == 0 {
		tx.Message.AccountKeys = []solana.PublicKey{payer}
		tx.Message.Header.NumRequiredSignatures = 1
	} else if tx.Message.AccountKeys[0].IsZero() {
		tx.Message.AccountKeys[0] = payer
	}

	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		var commitment rpc.CommitmentType
		var minSlot *uint64
		if opts != nil {
			commitment = opts.PreflightCommitment
			minSlot = opts.MinContextSlot
		}
		blockhash, err := conn.GetLatestBlockhash(ctx, commitment, minSlot)
		if err != nil {
			return fmt.Errorf("fetch recent blockhash: %w", err)
		}
		tx.Message.RecentBlockhash = blockhash
	}

	return nil
}

// PartialSign applies the given local signers to the transaction, leaving
// remaining signature slots for the wallet.
func PartialSign(tx *solana.Transaction, signers []solana.PrivateKey) error {
	if len(signers) == 0 {
		return nil
	}
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey() == key {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("partial sign: %w", err)
	}
	return nil
}
