// Command wallet is the CLI for local keypair wallets and the walletd API.
//
// Usage:
//
//	wallet keygen [--dir <path>]
//	wallet address [--dir <path>]
//	wallet send --to <pubkey> --lamports <n> [--rpc <endpoint>] [--dir <path>]
//	wallet status [--api <endpoint>]
//	wallet events [--nats <url>] [--subject <prefix>]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/nats-io/nats.go"

	"github.com/marko911/wallet-pulse/internal/keystore"
	"github.com/marko911/wallet-pulse/internal/platform/solrpc"
	"github.com/marko911/wallet-pulse/internal/wallet"
)

var apiEndpoint = envOrDefault("WALLETD_API_ENDPOINT", "http://localhost:8700")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		keygenCmd(os.Args[2:])
	case "address":
		addressCmd(os.Args[2:])
	case "send":
		sendCmd(os.Args[2:])
	case "status":
		statusCmd(os.Args[2:])
	case "events":
		eventsCmd(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Println("wallet version 0.1.0")
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`wallet - CLI for local keypair wallets and walletd

Usage:
  wallet keygen [options]       Generate a keypair if none is stored
  wallet address [options]      Print the stored keypair's public key
  wallet send [options]         Send lamports from the stored keypair
  wallet status [options]       Show wallet states from a walletd instance
  wallet events [options]       Tail adapter events from NATS
  wallet help                   Show this help
  wallet version                Show version

Keystore Options:
  --dir         Keystore directory (default: ~/.wallet-pulse)

Send Options:
  --to          Recipient public key (required)
  --lamports    Amount in lamports (required)
  --rpc         RPC endpoint or cluster name (default: devnet)

Status Options:
  --api         walletd API endpoint (default: $WALLETD_API_ENDPOINT)

Events Options:
  --nats        NATS server URL (default: nats://localhost:4222)
  --subject     Subject prefix (default: wallet.events)`)
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wallet-pulse"
	}
	return home + "/.wallet-pulse"
}

func keygenCmd(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	dir := fs.String("dir", defaultDir(), "Keystore directory")
	fs.Parse(args)

	storage := keystore.NewFileStorage(*dir)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := storage.Get(ctx)
	if err != nil {
		fatalf("read keystore: %v", err)
	}
	if existing != nil {
		fmt.Printf("Keypair already exists: %s\n", existing.PublicKey())
		return
	}

	key, err := keystore.LoadOrCreate(ctx, storage)
	if err != nil {
		fatalf("generate keypair: %v", err)
	}
	fmt.Printf("Generated keypair: %s\n", key.PublicKey())
	fmt.Printf("Stored in: %s\n", *dir)
}

func addressCmd(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	dir := fs.String("dir", defaultDir(), "Keystore directory")
	fs.Parse(args)

	storage := keystore.NewFileStorage(*dir)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := storage.Get(ctx)
	if err != nil {
		fatalf("read keystore: %v", err)
	}
	if key == nil {
		fatalf("no keypair stored in %s, run 'wallet keygen' first", *dir)
	}
	fmt.Println(key.PublicKey())
}

func sendCmd(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient public key (required)")
	lamports := fs.Uint64("lamports", 0, "Amount in lamports (required)")
	endpoint := fs.String("rpc", "devnet", "RPC endpoint or cluster name")
	dir := fs.String("dir", defaultDir(), "Keystore directory")
	fs.Parse(args)

	if *to == "" || *lamports == 0 {
		fmt.Println("Error: --to and --lamports are required")
		fmt.Println("Usage: wallet send --to <pubkey> --lamports <n>")
		os.Exit(1)
	}
	recipient, err := solana.PublicKeyFromBase58(*to)
	if err != nil {
		fatalf("invalid recipient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	storage := keystore.NewFileStorage(*dir)
	key, err := storage.Get(ctx)
	if err != nil {
		fatalf("read keystore: %v", err)
	}
	if key == nil {
		fatalf("no keypair stored in %s, run 'wallet keygen' first", *dir)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	conn := rpcClientFor(*endpoint, logger)

	transfer := system.NewTransferInstruction(*lamports, key.PublicKey(), recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		solana.Hash{},
		solana.TransactionPayer(key.PublicKey()),
	)
	if err != nil {
		fatalf("build transaction: %v", err)
	}

	supported := wallet.SupportedVersions{solana.MessageVersionLegacy}
	sig, err := wallet.SendWithSigner(ctx, key, supported, tx, conn, nil)
	if err != nil {
		fatalf("send: %v", err)
	}

	fmt.Printf("Sent %d lamports to %s\n", *lamports, recipient)
	fmt.Printf("Signature: %s\n", sig)
}

func rpcClientFor(endpoint string, logger *slog.Logger) *solrpc.Client {
	switch endpoint {
	case "devnet":
		return solrpc.Devnet(logger)
	case "mainnet":
		return solrpc.Mainnet(logger)
	case "testnet":
		return solrpc.Testnet(logger)
	default:
		return solrpc.New(endpoint, logger)
	}
}

func statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	api := fs.String("api", apiEndpoint, "walletd API endpoint")
	fs.Parse(args)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*api + "/api/v1/wallets")
	if err != nil {
		fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalf("walletd returned %s", resp.Status)
	}

	var out struct {
		Wallets []struct {
			Name       string `json:"name"`
			ReadyState string `json:"ready_state"`
			Connecting bool   `json:"connecting"`
			Connected  bool   `json:"connected"`
			PublicKey  string `json:"public_key"`
		} `json:"wallets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fatalf("decode response: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WALLET\tREADY\tCONNECTED\tPUBLIC KEY")
	for _, ws := range out.Wallets {
		state := "no"
		if ws.Connected {
			state = "yes"
		} else if ws.Connecting {
			state = "connecting"
		}
		pk := ws.PublicKey
		if pk == "" {
			pk = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ws.Name, ws.ReadyState, state, pk)
	}
	w.Flush()
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	url := fs.String("nats", nats.DefaultURL, "NATS server URL")
	subject := fs.String("subject", "wallet.events", "Subject prefix")
	fs.Parse(args)

	nc, err := nats.Connect(*url, nats.Name("wallet-cli"))
	if err != nil {
		fatalf("connect to NATS: %v", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(*subject+".>", func(msg *nats.Msg) {
		fmt.Printf("%s %s\n", msg.Subject, msg.Data)
	})
	if err != nil {
		fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("Listening on %s.> (Ctrl-C to stop)\n", *subject)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func fatalf(format string, args ...interface{}) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
