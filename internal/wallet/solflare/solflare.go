// Package solflare binds the Solflare browser wallet through the bridge.
// Solflare takes the serialized transaction as a base58 string.
package solflare

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/marko911/wallet-pulse/internal/bridge"
	"github.com/marko911/wallet-pulse/internal/wallet"
)

type requestParams struct {
	Transaction string `json:"transaction"`
}

type signatureResult struct {
	Signature string `json:"signature"`
}

type dialect struct{}

func NewDialect() bridge.Dialect { return dialect{} }

func (dialect) Name() string { return "Solflare" }
func (dialect) URL() string  { return "https://solflare.com" }
func (dialect) Icon() string { return "" }

func (dialect) SignAndSendRequest(raw []byte) (string, any) {
	return "signAndSendTransaction", requestParams{Transaction: base58.Encode(raw)}
}

func (dialect) ParseSignature(result json.RawMessage) (solana.Signature, error) {
	var res signatureResult
	if err := json.Unmarshal(result, &res); err != nil {
		return solana.Signature{}, fmt.Errorf("decode solflare response: %w", err)
	}
	if res.Signature == "" {
		return solana.Signature{}, fmt.Errorf("signature not found in solflare response")
	}
	return solana.SignatureFromBase58(res.Signature)
}

func (dialect) Redirectable() bool { return false }

func (d dialect) RedirectURL(appURL string) string {
	return fmt.Sprintf("https://solflare.com/ul/v1/browse/%s?ref=%s", appURL, appURL)
}

// New returns a ready adapter for Solflare over the bridge.
func New(ctx context.Context, server *bridge.Server, appURL string, logger *slog.Logger) *wallet.GenericAdapter {
	binding := bridge.NewBinding(server, NewDialect(), appURL, logger)
	return wallet.NewGenericAdapter(ctx, binding, wallet.GenericConfig{}, logger)
}
