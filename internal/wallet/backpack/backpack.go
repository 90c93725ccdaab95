// Package backpack binds the Backpack browser wallet through the bridge.
// Backpack's provider takes the serialized transaction directly, base64
// encoded.
package backpack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

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

func (dialect) Name() string { return "Backpack" }
func (dialect) URL() string  { return "https://backpack.app" }
func (dialect) Icon() string { return "" }

func (dialect) SignAndSendRequest(raw []byte) (string, any) {
	return "signAndSendTransaction", requestParams{Transaction: base64.StdEncoding.EncodeToString(raw)}
}

func (dialect) ParseSignature(result json.RawMessage) (solana.Signature, error) {
	var res signatureResult
	if err := json.Unmarshal(result, &res); err != nil {
		return solana.Signature{}, fmt.Errorf("decode backpack response: %w", err)
	}
	if res.Signature == "" {
		return solana.Signature{}, fmt.Errorf("signature not found in backpack response")
	}
	return solana.SignatureFromBase58(res.Signature)
}

func (dialect) Redirectable() bool { return false }

func (dialect) RedirectURL(string) string { return "" }

// New returns a ready adapter for Backpack over the bridge.
func New(ctx context.Context, server *bridge.Server, appURL string, logger *slog.Logger) *wallet.GenericAdapter {
	binding := bridge.NewBinding(server, NewDialect(), appURL, logger)
	return wallet.NewGenericAdapter(ctx, binding, wallet.GenericConfig{}, logger)
}
