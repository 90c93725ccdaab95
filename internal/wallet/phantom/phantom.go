// Package phantom binds the Phantom browser wallet through the bridge.
// Phantom's provider takes sign-and-send requests as a base58 message
// wrapped in a request envelope.
package phantom

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
	Message string `json:"message"`
}

type signatureResult struct {
	Signature string `json:"signature"`
}

type dialect struct{}

func NewDialect() bridge.Dialect { return dialect{} }

func (dialect) Name() string { return "Phantom" }
func (dialect) URL() string  { return "https://phantom.app" }
func (dialect) Icon() string {
	return "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHdpZHRoPSIxMDgiIGhlaWdodD0iMTA4IiB2aWV3Qm94PSIwIDAgMTA4IDEwOCIgZmlsbD0ibm9uZSI+CjxyZWN0IHdpZHRoPSIxMDgiIGhlaWdodD0iMTA4IiByeD0iMjYiIGZpbGw9IiNBQjlGRjIiLz4KPHBhdGggZmlsbC1ydWxlPSJldmVub2RkIiBjbGlwLXJ1bGU9ImV2ZW5vZGQiIGQ9Ik00Ni41MjY3IDY5LjkyMjlDNDIuMDA1NCA3Ni44NTA5IDM0LjQyOTIgODUuNjE4MiAyNC4zNDggODUuNjE4MkMxOS41ODI0IDg1LjYxODIgMTUgODMuNjU2MyAxNSA3NS4xMzQyQzE1IDUzLjQzMDUgNDQuNjMyNiAxOS44MzI3IDcyLjEyNjggMTkuODMyN0M4Ny43NjggMTkuODMyNyA5NCAzMC42ODQ2IDk0IDQzLjAwNzlDOTQgNTguODI1OCA4My43MzU1IDc2LjkxMjIgNzMuNTMyMSA3Ni45MTIyQzcwLjI5MzkgNzYuOTEyMiA2OC43MDUzIDc1LjEzNDIgNjguNzA1MyA3Mi4zMTRDNjguNzA1MyA3MS41NzgzIDY4LjgyNzUgNzAuNzgxMiA2OS4wNzE5IDY5LjkyMjlDNjUuNTg5MyA3NS44Njk5IDU4Ljg2ODUgODEuMzg3OCA1Mi41NzU0IDgxLjM4NzhDNDcuOTkzIDgxLjM4NzggNDUuNjcxMyA3OC41MDYzIDQ1LjY3MTMgNzQuNDU5OEM0NS42NzEzIDcyLjk4ODQgNDUuOTc2OCA3MS40NTU2IDQ2LjUyNjcgNjkuOTIyOVpNODMuNjc2MSA0Mi41Nzk0QzgzLjY3NjEgNDYuMTcwNCA4MS41NTc1IDQ3Ljk2NTggNzkuMTg3NSA0Ny45NjU4Qzc2Ljc4MTYgNDcuOTY1OCA3NC42OTg5IDQ2LjE3MDQgNzQuNjk4OSA0Mi41Nzk0Qzc0LjY5ODkgMzguOTg4NSA3Ni43ODE2IDM3LjE5MzEgNzkuMTg3NSAzNy4xOTMxQzgxLjU1NzUgMzcuMTkzMSA4My42NzYxIDM4Ljk4ODUgODMuNjc2MSA0Mi41Nzk0Wk03MC4yMTAzIDQyLjU3OTVDNzAuMjEwMyA0Ni4xNzA0IDY4LjA5MTYgNDcuOTY1OCA2NS43MjE2IDQ3Ljk2NThDNjMuMzE1NyA0Ny45NjU4IDYxLjIzMyA0Ni4xNzA0IDYxLjIzMyA0Mi41Nzk1QzYxLjIzMyAzOC45ODg1IDYzLjMxNTcgMzcuMTkzMSA2NS43MjE2IDM3LjE5MzFDNjguMDkxNiAzNy4xOTMxIDcwLjIxMDMgMzguOTg4NSA3MC4yMTAzIDQyLjU3OTVaIiBmaWxsPSIjRkZGREY4Ii8+Cjwvc3ZnPg=="
}

func (dialect) SignAndSendRequest(raw []byte) (string, any) {
	return "signAndSendTransaction", requestParams{Message: base58.Encode(raw)}
}

func (dialect) ParseSignature(result json.RawMessage) (solana.Signature, error) {
	var res signatureResult
	if err := json.Unmarshal(result, &res); err != nil {
		return solana.Signature{}, fmt.Errorf("decode phantom response: %w", err)
	}
	if res.Signature == "" {
		return solana.Signature{}, fmt.Errorf("signature not found in phantom response")
	}
	return solana.SignatureFromBase58(res.Signature)
}

func (dialect) Redirectable() bool { return false }

// RedirectURL opens the app inside Phantom's in-wallet browser.
func (d dialect) RedirectURL(appURL string) string {
	return fmt.Sprintf("https://phantom.app/ul/browse/%s?ref=%s", appURL, appURL)
}

// New returns a ready adapter for Phantom over the bridge.
func New(ctx context.Context, server *bridge.Server, appURL string, logger *slog.Logger) *wallet.GenericAdapter {
	binding := bridge.NewBinding(server, NewDialect(), appURL, logger)
	return wallet.NewGenericAdapter(ctx, binding, wallet.GenericConfig{}, logger)
}
