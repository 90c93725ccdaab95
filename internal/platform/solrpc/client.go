// Package solrpc implements the wallet Connection capability over the Solana
// JSON-RPC API.
package solrpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/marko911/wallet-pulse/internal/wallet"
)

// Client wraps a solana-go RPC client behind the wallet.Connection
// interface.
type Client struct {
	rpc    *rpc.Client
	logger *slog.Logger
}

func New(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:    rpc.New(endpoint),
		logger: logger.With("component", "solrpc"),
	}
}

func Devnet(logger *slog.Logger) *Client  { return New(rpc.DevNet_RPC, logger) }
func Mainnet(logger *slog.Logger) *Client { return New(rpc.MainNetBeta_RPC, logger) }
func Testnet(logger *slog.Logger) *Client { return New(rpc.TestNet_RPC, logger) }

func (c *Client) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType, minContextSlot *uint64) (solana.Hash, error) {
	if commitment == "" {
		commitment = rpc.CommitmentFinalized
	}
	out, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if minContextSlot != nil && out.Context.Slot < *minContextSlot {
		return solana.Hash{}, fmt.Errorf("blockhash context slot %d below minimum %d", out.Context.Slot, *minContextSlot)
	}
	c.logger.Debug("fetched blockhash",
		"blockhash", out.Value.Blockhash,
		"slot", out.Context.Slot,
	)
	return out.Value.Blockhash, nil
}

func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts *wallet.SendOptions) (solana.Signature, error) {
	txOpts := rpc.TransactionOpts{}
	if opts != nil {
		txOpts.SkipPreflight = opts.SkipPreflight
		txOpts.PreflightCommitment = opts.PreflightCommitment
		txOpts.MaxRetries = opts.MaxRetries
		if opts.MinContextSlot != nil {
			txOpts.MinContextSlot = opts.MinContextSlot
		}
	}

	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, raw, txOpts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send raw transaction: %w", err)
	}
	c.logger.Debug("transaction submitted", "signature", sig)
	return sig, nil
}
