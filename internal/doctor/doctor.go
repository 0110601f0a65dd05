// Package doctor reports whether a walletd configuration is ready to serve.
package doctor

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/config"
	"atoll-wallet/go-core/internal/vault"

	"github.com/gagliardetto/solana-go"
)

const defaultProbeTimeout = 5 * time.Second

// BlockhashSource is the subset of the Solana RPC client the doctor probes
// endpoints with.
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context, endpoint string) (solana.Hash, error)
}

type Input struct {
	Config config.Config
	// Clusters to probe. Empty means the default cluster only.
	Clusters     []chain.Cluster
	ProbeTimeout time.Duration
}

type Check struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

type Report struct {
	Ready     bool      `json:"ready"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

// Check returns the named check and whether it ran.
func (r Report) Check(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

type Doctor struct {
	rpc BlockhashSource
	now func() time.Time
}

func New(rpc BlockhashSource) *Doctor {
	return &Doctor{rpc: rpc, now: time.Now}
}

func (d *Doctor) Run(ctx context.Context, input Input) Report {
	report := Report{
		Ready:     true,
		Checks:    make([]Check, 0, 8),
		CheckedAt: d.now().UTC(),
	}
	appendCheck := func(name string, err error) {
		c := Check{Name: name, Pass: err == nil}
		if err != nil {
			c.Reason = err.Error()
			report.Ready = false
		}
		report.Checks = append(report.Checks, c)
	}

	cfg := input.Config
	appendCheck("config_valid", cfg.Validate())
	appendCheck("keypair_loaded", checkKeypair(cfg.Wallet))
	if err := validateListenAddr(cfg.Server.Addr); err != nil {
		appendCheck("listen_addr_valid", err)
	} else {
		appendCheck("listen_addr_valid", nil)
		appendCheck("listen_addr_available", checkAddrAvailable(cfg.Server.Addr))
	}

	clusters := input.Clusters
	if len(clusters) == 0 {
		clusters = []chain.Cluster{chain.DefaultCluster}
	}
	timeout := input.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	endpoints := cfg.ClusterEndpoints()
	for _, c := range clusters {
		appendCheck("endpoint_reachable_"+c.Identifier(), d.probe(ctx, endpoints.Resolve(c), timeout))
	}
	return report
}

func (d *Doctor) probe(ctx context.Context, endpoint string, timeout time.Duration) error {
	if d.rpc == nil {
		return fmt.Errorf("no rpc client configured")
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := d.rpc.LatestBlockhash(probeCtx, endpoint); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return nil
}

func checkKeypair(w config.WalletConfig) error {
	if strings.TrimSpace(w.Mnemonic) == "" {
		return fmt.Errorf("no mnemonic configured")
	}
	kp, err := vault.Derive(w.Mnemonic, w.Passphrase)
	if err != nil {
		return err
	}
	kp.Destroy()
	return nil
}

func validateListenAddr(raw string) error {
	host, port, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("listen address is invalid: %q", raw)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("listen address port is invalid: %q", port)
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return fmt.Errorf("listen address host is invalid: %q", host)
	}
	return nil
}

func checkAddrAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s is unavailable: %w", addr, err)
	}
	_ = ln.Close()
	return nil
}
