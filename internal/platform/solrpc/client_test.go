package solrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
)

// rpcFixture serves canned JSON-RPC responses keyed by method.
func rpcFixture(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad rpc request: %v", err)
			return
		}
		result, ok := responses[req.Method]
		if !ok {
			t.Errorf("unexpected rpc method %s", req.Method)
			return
		}
		id, _ := json.Marshal(req.ID)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(id) + `,"result":` + result + `}`))
	}))
}

func TestGetLatestBlockhash(t *testing.T) {
	blockhash := solana.HashFromBytes([]byte(strings.Repeat("a", 32)))
	srv := rpcFixture(t, map[string]string{
		"getLatestBlockhash": `{"context":{"slot":5000},"value":{"blockhash":"` + blockhash.String() + `","lastValidBlockHeight":6000}}`,
	})
	defer srv.Close()

	c := New(srv.URL, nil)
	got, err := c.GetLatestBlockhash(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("get latest blockhash: %v", err)
	}
	if got != blockhash {
		t.Errorf("blockhash = %s, want %s", got, blockhash)
	}
}

func TestGetLatestBlockhashMinContextSlot(t *testing.T) {
	blockhash := solana.HashFromBytes([]byte(strings.Repeat("b", 32)))
	srv := rpcFixture(t, map[string]string{
		"getLatestBlockhash": `{"context":{"slot":100},"value":{"blockhash":"` + blockhash.String() + `","lastValidBlockHeight":200}}`,
	})
	defer srv.Close()

	c := New(srv.URL, nil)
	minSlot := uint64(500)
	if _, err := c.GetLatestBlockhash(context.Background(), "", &minSlot); err == nil {
		t.Fatal("blockhash below the minimum context slot accepted")
	}
}

func TestSendRawTransaction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	sig, err := key.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	srv := rpcFixture(t, map[string]string{
		"sendTransaction": `"` + sig.String() + `"`,
	})
	defer srv.Close()

	c := New(srv.URL, nil)
	got, err := c.SendRawTransaction(context.Background(), []byte{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("send raw transaction: %v", err)
	}
	if got != sig {
		t.Errorf("signature = %s, want %s", got, sig)
	}
}
