package node

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/viper"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	chainparams "github.com/Siasom1/gorrillazz-minter/params"
)

// Config is everything a run needs. Secrets come from the environment or a
// config file, never from literals.
type Config struct {
	Network string `mapstructure:"network"`
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID uint64 `mapstructure:"chain_id"`

	PrivateKey       string `mapstructure:"private_key"`
	KeystorePath     string `mapstructure:"keystore_path"`
	KeystorePassword string `mapstructure:"keystore_password"`

	ContractAddress string `mapstructure:"contract_address"`
	MintMethod      string `mapstructure:"mint_method"`
	TokenID         string `mapstructure:"token_id"`
	TokenIDMode     string `mapstructure:"token_id_mode"`

	PacingDelay    time.Duration `mapstructure:"pacing_delay"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	GasLimit       uint64        `mapstructure:"gas_limit"`
	GasPriceGwei   float64       `mapstructure:"gas_price_gwei"`

	RoleName    string `mapstructure:"role_name"`
	RequireRole bool   `mapstructure:"require_role"`

	JournalDir  string `mapstructure:"journal_dir"`
	MonitorAddr string `mapstructure:"monitor_addr"`
	LogLevel    string `mapstructure:"log_level"`
	LogJSON     bool   `mapstructure:"log_json"`

	// resolved by Validate
	chain    *chainparams.ChainConfig
	contract common.Address
	tokenID  *big.Int
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Network:        chainparams.DefaultNetwork,
		MintMethod:     chainparams.DefaultMintMethod,
		TokenID:        chainparams.DefaultTokenID,
		TokenIDMode:    chainparams.TokenIDFixed,
		PacingDelay:    chainparams.DefaultPacingDelay,
		ConfirmTimeout: chainparams.DefaultConfirmTimeout,
		RoleName:       chainparams.DefaultRoleName,
		JournalDir:     filepath.Join(home, ".batchmint", "journal"),
		LogLevel:       chainparams.DefaultLogLevel,
	}
}

// SetDefaults registers DefaultConfig with v so unset keys fall back to it.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("network", d.Network)
	v.SetDefault("mint_method", d.MintMethod)
	v.SetDefault("token_id", d.TokenID)
	v.SetDefault("token_id_mode", d.TokenIDMode)
	v.SetDefault("pacing_delay", d.PacingDelay)
	v.SetDefault("confirm_timeout", d.ConfirmTimeout)
	v.SetDefault("role_name", d.RoleName)
	v.SetDefault("journal_dir", d.JournalDir)
	v.SetDefault("log_level", d.LogLevel)
}

// LoadConfig decodes v and validates the result.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &types.ConfigurationError{Reason: "decode configuration", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and resolves the network preset. It
// returns a ConfigurationError naming the first bad field.
func (c *Config) Validate() error {
	chain, err := chainparams.Network(c.Network)
	if err != nil {
		return &types.ConfigurationError{Field: "network", Reason: "unknown network", Err: err}
	}
	if c.RPCURL != "" {
		chain.RPCURL = c.RPCURL
	}
	if c.ChainID != 0 {
		chain.ChainID = c.ChainID
	}
	if chain.RPCURL == "" {
		return types.NewConfigError("rpc_url", "network %s has no public endpoint; set rpc_url", chain.Name)
	}
	if c.GasPriceGwei == 0 && chain.GasPriceGwei != 0 {
		c.GasPriceGwei = float64(chain.GasPriceGwei)
	}

	if c.PrivateKey == "" && c.KeystorePath == "" {
		return types.NewConfigError("private_key", "set private_key or keystore_path")
	}
	if c.PrivateKey != "" && c.KeystorePath != "" {
		return types.NewConfigError("private_key", "private_key and keystore_path are mutually exclusive")
	}

	if !common.IsHexAddress(c.ContractAddress) {
		return types.NewConfigError("contract_address", "%q is not a hex address", c.ContractAddress)
	}
	contract := common.HexToAddress(c.ContractAddress)
	if contract == (common.Address{}) {
		return types.NewConfigError("contract_address", "zero address")
	}

	if strings.TrimSpace(c.MintMethod) == "" {
		return types.NewConfigError("mint_method", "is required")
	}

	switch c.TokenIDMode {
	case chainparams.TokenIDFixed, chainparams.TokenIDSequential:
	default:
		return types.NewConfigError("token_id_mode", "must be %q or %q, got %q",
			chainparams.TokenIDFixed, chainparams.TokenIDSequential, c.TokenIDMode)
	}
	tokenID, ok := new(big.Int).SetString(strings.TrimSpace(c.TokenID), 0)
	if !ok || tokenID.Sign() < 0 {
		return types.NewConfigError("token_id", "%q is not a non-negative integer", c.TokenID)
	}

	if c.PacingDelay < 0 {
		return types.NewConfigError("pacing_delay", "must not be negative")
	}
	if c.ConfirmTimeout <= 0 {
		return types.NewConfigError("confirm_timeout", "must be positive")
	}
	if c.GasPriceGwei < 0 {
		return types.NewConfigError("gas_price_gwei", "must not be negative")
	}

	c.chain = chain
	c.contract = contract
	c.tokenID = tokenID
	return nil
}

// Chain is the resolved network. Only valid after Validate.
func (c *Config) Chain() *chainparams.ChainConfig { return c.chain }

func (c *Config) Contract() common.Address { return c.contract }

// StartTokenID is the fixed id, or the first id in sequential mode.
func (c *Config) StartTokenID() *big.Int { return new(big.Int).Set(c.tokenID) }

// GasPriceWei is nil when the node should be asked.
func (c *Config) GasPriceWei() *big.Int {
	if c.GasPriceGwei <= 0 {
		return nil
	}
	wei, _ := new(big.Float).Mul(big.NewFloat(c.GasPriceGwei), big.NewFloat(params.GWei)).Int(nil)
	return wei
}
