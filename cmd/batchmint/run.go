package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Siasom1/gorrillazz-minter/node"
	"github.com/Siasom1/gorrillazz-minter/workload"
)

func (c *cli) newRunCmd() *cobra.Command {
	var (
		workFile      string
		preflightOnly bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mint every unit of a work list",
		Long: `Loads the work list, checks the contract, then submits one mint transaction
per unit. A failed attempt is logged and the run moves on; use
'batchmint outstanding <run-id>' afterwards to get the units that still need
minting.

Exit status is 0 when every attempt was confirmed, 2 when some were not and 1
when the run could not start.`,
		Example: `  batchmint run --work drop.csv --network sepolia --contract-address 0x...
  BATCHMINT_PRIVATE_KEY=... batchmint run --work drop.json --pacing-delay 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := node.LoadConfig(c.v)
			if err != nil {
				return err
			}
			queue, err := workload.Load(workFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if queue.TotalUnits() == 0 && !preflightOnly {
				_, _ = fmt.Fprintln(out, "nothing to mint")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n := node.NewNode(cfg, nil)
			defer n.Stop()

			if err := n.Start(ctx); err != nil {
				return err
			}
			if preflightOnly {
				_, _ = fmt.Fprintf(out, "preflight ok: signer %s, %d units queued\n", n.Session.Address().Hex(), queue.TotalUnits())
				return nil
			}

			report, runErr := n.Run(ctx, queue, workFile)
			if report == nil {
				return runErr
			}
			printReport(out, report)

			if runErr != nil || !report.Summary.AllConfirmed() {
				return &partialError{runID: report.RunID, summary: report.Summary}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&workFile, "work", "w", "", "work list (.json, .yaml or .csv)")
	f.BoolVar(&preflightOnly, "preflight", false, "check configuration and contract, then exit without minting")
	f.String("rpc-url", "", "override the network's RPC endpoint")
	f.Uint64("chain-id", 0, "override the network's chain id")
	f.String("keystore-path", "", "encrypted key file (password from BATCHMINT_KEYSTORE_PASSWORD)")
	f.String("contract-address", "", "mint contract address")
	f.String("mint-method", "", "mint function signature, e.g. safeMint(address,uint256)")
	f.String("token-id", "", "token id, or first id in sequential mode")
	f.String("token-id-mode", "", "fixed or sequential")
	f.Duration("pacing-delay", 0, "delay between attempts")
	f.Duration("confirm-timeout", 0, "how long to wait for each confirmation")
	f.Uint64("gas-limit", 0, "fixed gas limit (default: estimate)")
	f.Float64("gas-price-gwei", 0, "fixed legacy gas price (default: ask the node)")
	f.String("role-name", "", "role checked with hasRole before minting")
	f.Bool("require-role", false, "fail when the signer lacks the role")
	f.String("monitor-addr", "", "serve live progress on this address, e.g. :8090")
	_ = cmd.MarkFlagRequired("work")

	c.bindFlags(f, "rpc-url", "chain-id", "keystore-path", "contract-address", "mint-method",
		"token-id", "token-id-mode", "pacing-delay", "confirm-timeout", "gas-limit",
		"gas-price-gwei", "role-name", "require-role", "monitor-addr")

	return cmd
}

func printReport(w io.Writer, report *node.RunReport) {
	s := report.Summary
	_, _ = fmt.Fprintf(w, "run %s: %d of %d attempts confirmed", report.RunID, s.Confirmed, s.Attempts)
	if !s.AllConfirmed() {
		_, _ = fmt.Fprintf(w, " (%d failed, %d unknown)", s.Failed, s.Unknown)
	}
	_, _ = fmt.Fprintln(w)

	for _, r := range report.Results {
		if r.Confirmed() {
			continue
		}
		_, _ = fmt.Fprintf(w, "  #%d %s %s: %s\n", r.Seq, r.Recipient.Hex(), r.Status, r.Error)
	}
}
