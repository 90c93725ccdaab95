package phantom

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

func TestSignAndSendRequestShape(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	method, params := NewDialect().SignAndSendRequest(raw)

	if method != "signAndSendTransaction" {
		t.Errorf("method = %q", method)
	}
	req, ok := params.(requestParams)
	if !ok {
		t.Fatalf("params type = %T", params)
	}
	decoded, err := base58.Decode(req.Message)
	if err != nil {
		t.Fatalf("message is not base58: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Error("message does not round trip to the raw transaction")
	}
}

func TestParseSignature(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	sig, err := key.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	result, _ := json.Marshal(signatureResult{Signature: sig.String()})
	got, err := NewDialect().ParseSignature(result)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != sig {
		t.Error("parsed signature differs")
	}
}

func TestParseSignatureMissing(t *testing.T) {
	if _, err := NewDialect().ParseSignature(json.RawMessage(`{}`)); err == nil {
		t.Error("empty response parsed without error")
	}
}

func TestRedirectURL(t *testing.T) {
	url := dialect{}.RedirectURL("https://app.example")
	if !strings.HasPrefix(url, "https://phantom.app/ul/browse/") {
		t.Errorf("redirect URL = %q", url)
	}
	if !strings.Contains(url, "ref=https://app.example") {
		t.Errorf("redirect URL missing ref: %q", url)
	}
}
