package node

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

// LoadSigningKey resolves the configured credential. Errors never echo key
// material.
func LoadSigningKey(cfg *Config) (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey != "" {
		hexKey := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x")
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, types.NewConfigError("private_key", "not a valid secp256k1 hex key")
		}
		return key, nil
	}

	if cfg.KeystorePath == "" {
		return nil, types.NewConfigError("private_key", "set private_key or keystore_path")
	}

	data, err := os.ReadFile(cfg.KeystorePath)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "keystore_path", Reason: "read keystore", Err: err}
	}

	key, err := keystore.DecryptKey(data, cfg.KeystorePassword)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "keystore_password", Reason: "decrypt keystore", Err: err}
	}
	return key.PrivateKey, nil
}

// Scrypt parameters for NewKeystoreFile.
const (
	ScryptStandard = iota
	ScryptLight
)

// NewKeystoreFile generates a key, encrypts it with password and writes it
// into dir using the geth file naming scheme.
func NewKeystoreFile(dir, password string, strength int) (common.Address, string, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, "", err
	}

	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}

	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if strength == ScryptLight {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}

	data, err := keystore.EncryptKey(key, password, scryptN, scryptP)
	if err != nil {
		return common.Address{}, "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return common.Address{}, "", err
	}

	name := fmt.Sprintf("UTC--%s--%x", time.Now().UTC().Format("2006-01-02T15-04-05.000000000Z"), key.Address[:])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return common.Address{}, "", err
	}

	return key.Address, path, nil
}
