package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/node"
)

var (
	// Version is set at build time.
	Version = "dev"
	Commit  = "unknown"
)

const envPrefix = "BATCHMINT"

// configKeys are bound to BATCHMINT_<KEY> so Unmarshal sees them even when
// no config file mentions them.
var configKeys = []string{
	"network", "rpc_url", "chain_id",
	"private_key", "keystore_path", "keystore_password",
	"contract_address", "mint_method", "token_id", "token_id_mode",
	"pacing_delay", "confirm_timeout", "gas_limit", "gas_price_gwei",
	"role_name", "require_role",
	"journal_dir", "monitor_addr", "log_level", "log_json",
}

// partialError is returned when a run finished but not every attempt was
// confirmed.
type partialError struct {
	runID   string
	summary types.Summary
}

func (e *partialError) Error() string {
	return fmt.Sprintf("%d of %d attempts confirmed (%d failed, %d unknown); see `batchmint outstanding %s`",
		e.summary.Confirmed, e.summary.Attempts, e.summary.Failed, e.summary.Unknown, e.runID)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var partial *partialError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &partial):
		return 2
	default:
		return 1
	}
}

type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	node.SetDefaults(c.v)

	root := &cobra.Command{
		Use:   "batchmint",
		Short: "Mint tokens to a list of recipients, one confirmed transaction at a time",
		Long: `batchmint submits one mint transaction per unit of a work list, strictly in
order, waiting for each confirmation before sending the next.

Configuration (in order of priority):
  1. Command-line flags
  2. Environment variables (BATCHMINT_PRIVATE_KEY, BATCHMINT_CONTRACT_ADDRESS, ...)
  3. Config file (~/.batchmint.yaml or --config)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default is ~/.batchmint.yaml)")
	pf.String("network", "", "network preset (see `batchmint networks`)")
	pf.String("journal-dir", "", "run journal directory")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("log-json", false, "log as JSON")
	c.bindFlags(pf, "network", "journal-dir", "log-level", "log-json")

	root.AddCommand(
		c.newRunCmd(),
		c.newRunsCmd(),
		c.newOutstandingCmd(),
		c.newExploreCmd(),
		newNetworksCmd(),
		c.newKeygenCmd(),
		newVersionCmd(),
	)
	return root
}

// bindFlags binds each flag to the viper key with dashes replaced by
// underscores.
func (c *cli) bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = c.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), fs.Lookup(name))
	}
}

func (c *cli) initConfig() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		c.v.AddConfigPath(home)
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".batchmint")
	}

	c.v.SetEnvPrefix(envPrefix)
	c.v.AutomaticEnv()
	for _, key := range configKeys {
		_ = c.v.BindEnv(key)
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return &types.ConfigurationError{Field: "config", Reason: "read config file", Err: err}
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "batchmint %s (%s)\n", Version, Commit)
		},
	}
}
