package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/composition/walletd"
	"atoll-wallet/go-core/internal/config"
	"atoll-wallet/go-core/internal/doctor"
	"atoll-wallet/go-core/internal/solanarpc"
	"atoll-wallet/go-core/internal/vault"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "walletd",
		Short:         "Atoll Solana wallet signing daemon",
		Version:       fmt.Sprintf("%s commit=%s build_date=%s", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(newServeCmd(), newAddressCmd(), newGenerateCmd(), newDoctorCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		rpcAddr    string
		rpcToken   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC signing daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromPath(configPath)
			if err != nil {
				return err
			}
			if rpcAddr != "" {
				cfg.Server.Addr = rpcAddr
			}
			if rpcToken != "" {
				cfg.Server.Token = rpcToken
			}

			logger := walletd.NewLogger(os.Stdout, cfg.Log.Level)
			d, err := walletd.Build(cfg, logger, version)
			if err != nil {
				return fmt.Errorf("walletd failed to initialize: %w", err)
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger.Info("walletd starting", "version", version, "addr", d.Server.Addr())
			if err := d.Server.Run(ctx); err != nil {
				return fmt.Errorf("walletd failed: %w", err)
			}
			logger.Info("walletd stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to walletd.yaml (optional)")
	cmd.Flags().StringVar(&rpcAddr, "rpc-addr", "", "JSON-RPC listen address override")
	cmd.Flags().StringVar(&rpcToken, "rpc-token", "", "RPC token for Authorization/X-Atoll-RPC-Token (optional)")
	return cmd
}

func newAddressCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the address derived from a mnemonic read from ATOLL_MNEMONIC or stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mnemonic := strings.TrimSpace(os.Getenv("ATOLL_MNEMONIC"))
			if mnemonic == "" {
				raw, err := readLine(cmd)
				if err != nil {
					return err
				}
				mnemonic = raw
			}
			if passphrase == "" {
				passphrase = os.Getenv("ATOLL_PASSPHRASE")
			}
			kp, err := vault.Derive(mnemonic, passphrase)
			if err != nil {
				return err
			}
			defer kp.Destroy()
			fmt.Fprintln(cmd.OutOrStdout(), kp.Address())
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "BIP-39 passphrase")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new 12-word mnemonic and print it with its address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, mnemonic, err := vault.Generate(passphrase)
			if err != nil {
				return err
			}
			defer kp.Destroy()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mnemonic: %s\n", mnemonic)
			fmt.Fprintf(out, "address:  %s\n", kp.Address())
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "BIP-39 passphrase")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	var (
		configPath string
		clusters   []string
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, keypair, listen address and cluster endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromPath(configPath)
			if err != nil {
				return err
			}
			selected := make([]chain.Cluster, 0, len(clusters))
			for _, raw := range clusters {
				c, ok := chain.LookupCluster(raw)
				if !ok {
					return fmt.Errorf("unknown cluster %q", raw)
				}
				selected = append(selected, c)
			}
			client := solanarpc.NewClient(solanarpc.NewRestyTransport(cfg.Solana.RPCTimeout))
			report := doctor.New(client).Run(cmd.Context(), doctor.Input{Config: cfg, Clusters: selected})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Ready {
				return fmt.Errorf("walletd is not ready")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to walletd.yaml (optional)")
	cmd.Flags().StringSliceVar(&clusters, "cluster", nil, "clusters to probe (default devnet)")
	return cmd
}

func readLine(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err == nil {
			err = io.EOF
		}
		return "", fmt.Errorf("mnemonic required: %w", err)
	}
	return line, nil
}
