package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/marko911/wallet-pulse/internal/bridge"
	"github.com/marko911/wallet-pulse/internal/journal"
	"github.com/marko911/wallet-pulse/internal/platform/solrpc"
	"github.com/marko911/wallet-pulse/internal/policy"
	"github.com/marko911/wallet-pulse/internal/wallet"
)

// apiConfig holds apiServer dependencies.
type apiConfig struct {
	Adapters   []wallet.Adapter
	Bridge     *bridge.Server
	RPC        *solrpc.Client
	Journal    *journal.Journal
	Policy     *policy.Engine
	PolicyName string
	Logger     *slog.Logger
}

// apiServer exposes wallet operations over HTTP.
type apiServer struct {
	adapters map[string]wallet.Adapter
	order    []string
	rpc      *solrpc.Client
	journal  *journal.Journal
	policy   *policy.Engine
	polName  string
	logger   *slog.Logger
}

func newAPIServer(cfg apiConfig) *apiServer {
	s := &apiServer{
		adapters: make(map[string]wallet.Adapter, len(cfg.Adapters)),
		rpc:      cfg.RPC,
		journal:  cfg.Journal,
		policy:   cfg.Policy,
		polName:  cfg.PolicyName,
		logger:   cfg.Logger.With("component", "api"),
	}
	for _, a := range cfg.Adapters {
		key := strings.ToLower(a.Name())
		s.adapters[key] = a
		s.order = append(s.order, key)
	}
	return s
}

// Register mounts the API routes on the mux.
func (s *apiServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/wallets", s.handleWallets)
	mux.HandleFunc("/api/v1/wallets/", s.handleWallet)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// walletStatus is the wire form of one adapter's state.
type walletStatus struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
	ReadyState  string `json:"ready_state"`
	Connecting  bool   `json:"connecting"`
	Connected   bool   `json:"connected"`
	PublicKey   string `json:"public_key,omitempty"`
	EventsDrops uint64 `json:"events_dropped,omitempty"`
}

func statusFor(a wallet.Adapter) walletStatus {
	st := walletStatus{
		Name:        a.Name(),
		URL:         a.URL(),
		Icon:        a.Icon(),
		ReadyState:  a.ReadyState().String(),
		Connecting:  a.Connecting(),
		Connected:   a.Connected(),
		EventsDrops: a.Events().Dropped(),
	}
	if pk := a.PublicKey(); pk != nil {
		st.PublicKey = pk.String()
	}
	return st
}

func (s *apiServer) handleWallets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	statuses := make([]walletStatus, 0, len(s.order))
	for _, key := range s.order {
		statuses = append(statuses, statusFor(s.adapters[key]))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallets": statuses,
	})
}

// handleWallet routes /api/v1/wallets/{name}[/action].
func (s *apiServer) handleWallet(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/wallets/")
	name, action, _ := strings.Cut(rest, "/")
	adapter, ok := s.adapters[strings.ToLower(name)]
	if !ok {
		http.Error(w, "unknown wallet", http.StatusNotFound)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.writeJSON(w, http.StatusOK, statusFor(adapter))
	case "connect":
		s.handleConnect(w, r, adapter)
	case "disconnect":
		s.handleDisconnect(w, r, adapter)
	case "send":
		s.handleSend(w, r, adapter)
	case "signatures":
		s.handleSignatures(w, r, adapter)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *apiServer) handleConnect(w http.ResponseWriter, r *http.Request, a wallet.Adapter) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := a.Connect(r.Context()); err != nil {
		s.logger.Error("connect dispatch failed", "wallet", a.Name(), "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	// Connect reports failures through the event stream; the response only
	// reflects the state at return time.
	s.writeJSON(w, http.StatusOK, statusFor(a))
}

func (s *apiServer) handleDisconnect(w http.ResponseWriter, r *http.Request, a wallet.Adapter) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := a.Disconnect(r.Context()); err != nil {
		s.logger.Error("disconnect failed", "wallet", a.Name(), "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, statusFor(a))
}

// sendRequest is the body of POST /api/v1/wallets/{name}/send.
type sendRequest struct {
	// Transaction is the base64-encoded serialized transaction.
	Transaction string `json:"transaction"`

	SkipPreflight bool   `json:"skip_preflight,omitempty"`
	MaxRetries    *uint  `json:"max_retries,omitempty"`
	Commitment    string `json:"commitment,omitempty"`
}

func (s *apiServer) handleSend(w http.ResponseWriter, r *http.Request, a wallet.Adapter) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Transaction)
	if err != nil {
		http.Error(w, "transaction is not valid base64", http.StatusBadRequest)
		return
	}
	tx, err := solana.TransactionFromBase64(req.Transaction)
	if err != nil {
		http.Error(w, "transaction does not deserialize: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry := journal.Entry{Wallet: a.Name()}
	if pk := a.PublicKey(); pk != nil {
		entry.Signer = pk.String()
	}

	if s.policy != nil {
		if err := s.policy.Check(r.Context(), s.polName, raw); err != nil {
			entry.Status = journal.StatusRejected
			entry.Error = err.Error()
			s.record(r.Context(), &entry)
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
	}

	opts := &wallet.SendTransactionOptions{
		SendOptions: wallet.SendOptions{
			SkipPreflight: req.SkipPreflight,
			MaxRetries:    req.MaxRetries,
		},
	}
	if req.Commitment != "" {
		opts.PreflightCommitment = rpc.CommitmentType(req.Commitment)
	}

	sig, err := a.SendTransaction(r.Context(), tx, s.rpc, opts)
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		s.record(r.Context(), &entry)

		status := http.StatusBadGateway
		if errors.Is(err, wallet.ErrNotConnected) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	entry.Status = journal.StatusSubmitted
	entry.Signature = sig.String()
	s.record(r.Context(), &entry)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signature": sig.String(),
	})
}

func (s *apiServer) handleSignatures(w http.ResponseWriter, r *http.Request, a wallet.Adapter) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		http.Error(w, "signature journal not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.journal.Recent(r.Context(), a.Name(), limit)
	if err != nil {
		s.logger.Error("journal query failed", "wallet", a.Name(), "error", err)
		http.Error(w, "journal query failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signatures": entries,
	})
}

func (s *apiServer) record(ctx context.Context, e *journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, e); err != nil {
		s.logger.Error("journal write failed", "wallet", e.Wallet, "error", err)
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}
