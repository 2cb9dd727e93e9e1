package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/node"
)

func (c *cli) newKeygenCmd() *cobra.Command {
	var (
		dir   string
		light bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create an encrypted signing key",
		Long: `Generates a secp256k1 key and writes it as a geth keystore file. The
password is read from BATCHMINT_KEYSTORE_PASSWORD (or keystore_password in
the config file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := c.v.GetString("keystore_password")
			if password == "" {
				return types.NewConfigError("keystore_password", "is required")
			}

			strength := node.ScryptStandard
			if light {
				strength = node.ScryptLight
			}
			addr, path, err := node.NewKeystoreFile(dir, password, strength)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "address:  %s\n", addr.Hex())
			_, _ = fmt.Fprintf(out, "keystore: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "keystore", "directory for the key file")
	cmd.Flags().BoolVar(&light, "light", false, "use light scrypt parameters (testing only)")
	return cmd
}
