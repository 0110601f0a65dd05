// Package walletd wires the vault, dispatcher and RPC transport into a
// runnable daemon.
package walletd

import (
	"io"
	"log/slog"
	"strings"

	"atoll-wallet/go-core/internal/adapters/rpc"
	"atoll-wallet/go-core/internal/broadcast"
	"atoll-wallet/go-core/internal/config"
	"atoll-wallet/go-core/internal/dispatch"
	"atoll-wallet/go-core/internal/metrics"
	"atoll-wallet/go-core/internal/platform/privacylog"
	"atoll-wallet/go-core/internal/solanarpc"
	"atoll-wallet/go-core/internal/vault"
)

type Daemon struct {
	Server     *rpc.Server
	Dispatcher *dispatch.Dispatcher
	Vault      *vault.Vault
	Sessions   *vault.SessionRegistry
	Logger     *slog.Logger
}

// NewLogger builds the JSON logger used by the daemon. Secrets are
// redacted and dapp identifiers fingerprinted before they reach w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(privacylog.WrapHandler(h))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Build assembles the daemon from cfg. When a mnemonic is configured the
// derived keypair becomes the active account.
func Build(cfg config.Config, logger *slog.Logger, version string) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := vault.New()
	if strings.TrimSpace(cfg.Wallet.Mnemonic) != "" {
		fp, err := v.Import(cfg.Wallet.Mnemonic, cfg.Wallet.Passphrase)
		if err != nil {
			v.Close()
			return nil, err
		}
		if err := v.SetActive(fp); err != nil {
			v.Close()
			return nil, err
		}
		logger.Info("keypair loaded", "fingerprint", fp.String())
	} else {
		logger.Warn("no mnemonic configured; signing requests will be rejected")
	}

	m := metrics.New()
	sessions := vault.NewSessionRegistry(v)
	client := solanarpc.NewClient(solanarpc.NewRestyTransport(cfg.Solana.RPCTimeout))
	pipeline := broadcast.NewPipeline(v, client, cfg.ClusterEndpoints(), m, logger)
	d := dispatch.New(v, sessions, pipeline, dispatch.Options{
		Account: dispatch.Account{
			Label:          cfg.Wallet.Label,
			Icon:           cfg.Wallet.Icon,
			MainnetEnabled: cfg.Wallet.MainnetEnabled,
		},
		Metrics: m,
		Logger:  logger,
	})
	return &Daemon{
		Server:     rpc.NewServer(cfg.Server, d, m, logger, version),
		Dispatcher: d,
		Vault:      v,
		Sessions:   sessions,
		Logger:     logger,
	}, nil
}

// Close zeroizes every key held by the daemon.
func (d *Daemon) Close() {
	d.Vault.Close()
}
