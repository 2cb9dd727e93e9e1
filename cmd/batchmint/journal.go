package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/journal"
	"github.com/Siasom1/gorrillazz-minter/workload"
)

func (c *cli) openJournal() (*journal.Journal, error) {
	dir := c.v.GetString("journal_dir")
	if dir == "" {
		return nil, types.NewConfigError("journal_dir", "is required")
	}
	return journal.Open(dir)
}

func (c *cli) newRunsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := c.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.Runs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "no runs")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSTARTED\tNETWORK\tCONTRACT\tCONFIRMED\tSTATE")
			for _, r := range runs {
				state := "finished"
				switch {
				case r.Interrupted:
					state = "interrupted"
				case !r.Finished:
					state = "incomplete"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Network, r.Contract.Hex(),
					r.Summary.Confirmed, r.Queue.TotalUnits(), state)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

func (c *cli) newOutstandingCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "outstanding <run-id>",
		Short: "Show the units of a run that were not confirmed",
		Long: `Shows the units that failed or were never attempted, and the attempts whose
outcome is unknown. Unknown attempts are left out of the retry list: check
their transactions before minting those units again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := c.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			o, err := j.Outstanding(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(o.Retry) == 0 && len(o.Unknown) == 0 {
				_, _ = fmt.Fprintln(out, "nothing outstanding")
				return nil
			}

			for _, item := range o.Retry {
				_, _ = fmt.Fprintf(out, "retry   %s x%d\n", item.Recipient.Hex(), item.Count)
			}
			for _, r := range o.Unknown {
				_, _ = fmt.Fprintf(out, "unknown %s tx %s\n", r.Recipient.Hex(), r.TxHash.Hex())
			}

			if outFile != "" && len(o.Retry) > 0 {
				if err := workload.Write(outFile, o.Retry); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "wrote %d units to %s\n", o.Retry.TotalUnits(), outFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write the retry list to this JSON work file")
	return cmd
}
