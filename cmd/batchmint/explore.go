package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siasom1/gorrillazz-minter/explorer"
)

func (c *cli) newExploreCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Serve the run journal over HTTP",
		Long: `Serves /explorer/runs, /explorer/run/<id>[/results|/outstanding] and
/explorer/address/<addr> from the journal. The journal can only be opened by
one process; while a run is in progress use its --monitor-addr instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := c.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           explorer.NewExplorerAPI(j, nil).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "explorer listening on %s\n", addr)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8091", "listen address")
	return cmd
}
