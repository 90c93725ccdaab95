package wallet

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// SignWithKey signs every slot the key is responsible for, after any extra
// signers already applied. Used by wallets that hold their own keypair.
func SignWithKey(tx *solana.Transaction, key solana.PrivateKey) error {
	return PartialSign(tx, []solana.PrivateKey{key})
}

// SendWithSigner is the send pipeline for wallets that sign locally instead
// of delegating to a remote binding: prepare, apply extra signers, sign with
// the wallet's own key, serialize, submit. Versioned transactions skip the
// completion step but still go through the version check first.
func SendWithSigner(ctx context.Context, key solana.PrivateKey, supported SupportedVersions, tx *solana.Transaction, conn Connection, opts *SendTransactionOptions) (solana.Signature, error) {
	if err := CheckVersionSupported(supported, tx); err != nil {
		return solana.Signature{}, err
	}

	var sendOpts *SendOptions
	var signers []solana.PrivateKey
	if opts != nil {
		sendOpts = &opts.SendOptions
		signers = opts.Signers
	}

	if !IsVersioned(tx) {
		if err := PrepareTransaction(ctx, tx, key.PublicKey(), conn, sendOpts); err != nil {
			return solana.Signature{}, err
		}
		if err := PartialSign(tx, signers); err != nil {
			return solana.Signature{}, err
		}
	}

	if err := SignWithKey(tx, key); err != nil {
		return solana.Signature{}, err
	}

	raw, err := SerializeTransaction(tx)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := conn.SendRawTransaction(ctx, raw, sendOpts)
	if err != nil {
		return solana.Signature{}, &SendTransactionError{Message: "rpc rejected transaction", Err: err}
	}
	return sig, nil
}

// SignAll checks version support for every transaction before signing any,
// so a batch either starts signing or fails whole.
func SignAll(key solana.PrivateKey, supported SupportedVersions, txs []*solana.Transaction) error {
	for _, tx := range txs {
		if err := CheckVersionSupported(supported, tx); err != nil {
			return err
		}
	}
	for _, tx := range txs {
		if err := SignWithKey(tx, key); err != nil {
			return err
		}
	}
	return nil
}
