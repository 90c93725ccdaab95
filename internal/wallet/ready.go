package wallet

import (
	"context"
	"log/slog"
	"time"
)

// ReadyState describes whether a wallet's capability is currently available
// on the host. Installable wallets are detected by polling for their marker
// (a live bridge session, for browser wallets). Loadable wallets can always
// be reached via a redirect, so detection is meaningless for them.
// Unsupported is terminal.
type ReadyState int

const (
	ReadyStateNotDetected ReadyState = iota
	ReadyStateInstalled
	ReadyStateLoadable
	ReadyStateUnsupported
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateNotDetected:
		return "not_detected"
	case ReadyStateInstalled:
		return "installed"
	case ReadyStateLoadable:
		return "loadable"
	case ReadyStateUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Detection poll bounds. Once the attempts are exhausted the wallet stays
// NotDetected for the life of the adapter.
const (
	detectAttempts = 60
	detectInterval = time.Second
)

// detectReadyState polls isInstalled until it reports true or the attempt
// budget runs out. On detection it invokes onInstalled exactly once. There
// is no transition back to NotDetected: a marker that disappears after
// detection surfaces through the wallet's own disconnect push instead.
func detectReadyState(ctx context.Context, logger *slog.Logger, name string, isInstalled func() bool, onInstalled func(ctx context.Context)) {
	ticker := time.NewTicker(detectInterval)
	defer ticker.Stop()

	for i := 0; i < detectAttempts; i++ {
		if isInstalled() {
			logger.Debug("wallet detected", "wallet", name, "attempt", i+1)
			onInstalled(ctx)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	logger.Debug("wallet not detected", "wallet", name, "attempts", detectAttempts)
}
