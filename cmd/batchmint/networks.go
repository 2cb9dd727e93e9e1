package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Siasom1/gorrillazz-minter/params"
)

func newNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List network presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tCHAIN ID\tRPC URL\tGAS PRICE")
			for _, name := range params.NetworkNames() {
				n, err := params.Network(name)
				if err != nil {
					return err
				}
				rpcURL := n.RPCURL
				if rpcURL == "" {
					rpcURL = "(set rpc_url)"
				}
				gas := "node"
				if n.GasPriceGwei > 0 {
					gas = fmt.Sprintf("%d gwei", n.GasPriceGwei)
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", n.Name, n.ChainID, rpcURL, gas)
			}
			return w.Flush()
		},
	}
}
