package session

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

const accessControlABI = `[{
	"inputs": [
		{"name": "role", "type": "bytes32"},
		{"name": "account", "type": "address"}
	],
	"name": "hasRole",
	"outputs": [{"name": "", "type": "bool"}],
	"stateMutability": "view",
	"type": "function"
}]`

// PreflightReport is what the session learned before the first submission.
type PreflightReport struct {
	Signer  common.Address
	Balance *big.Int
	// HasRole is nil when no role was checked or the contract could not answer.
	HasRole *bool
}

// Preflight verifies the contract exists and, if configured, that the signer
// holds the minting role. Problems that would make every attempt revert are
// ConfigurationErrors.
func (s *Session) Preflight(ctx context.Context) (*PreflightReport, error) {
	code, err := s.backend.CodeAt(ctx, s.contract, nil)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "contract_address", Reason: "query contract code", Err: err}
	}
	if len(code) == 0 {
		return nil, types.NewConfigError("contract_address", "no contract deployed at %s", s.contract.Hex())
	}

	balance, err := s.backend.BalanceAt(ctx, s.from, nil)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "private_key", Reason: "query signer balance", Err: err}
	}

	report := &PreflightReport{Signer: s.from, Balance: balance}

	s.logger.Info("signer balance",
		"address", s.from.Hex(),
		"balance_wei", balance.String(),
	)
	if balance.Sign() == 0 {
		s.logger.Warn("signer has no native balance; only zero-fee chains will accept its transactions")
	}

	if s.opts.RoleName == "" {
		return report, nil
	}

	has, err := s.hasRole(ctx, s.opts.RoleName)
	if err != nil {
		if s.opts.RequireRole {
			return nil, &types.ConfigurationError{Field: "role_name", Reason: "hasRole check failed", Err: err}
		}
		s.logger.Warn("role check unavailable", "role", s.opts.RoleName, "error", err.Error())
		return report, nil
	}

	report.HasRole = &has
	if !has {
		if s.opts.RequireRole {
			return nil, types.NewConfigError("role_name", "signer %s lacks %s on %s", s.from.Hex(), s.opts.RoleName, s.contract.Hex())
		}
		s.logger.Warn("signer lacks role; mints will likely revert", "role", s.opts.RoleName, "signer", s.from.Hex())
	}
	return report, nil
}

func (s *Session) hasRole(ctx context.Context, roleName string) (bool, error) {
	acABI, err := abi.JSON(strings.NewReader(accessControlABI))
	if err != nil {
		return false, err
	}

	data, err := acABI.Pack("hasRole", RoleID(roleName), s.from)
	if err != nil {
		return false, err
	}

	out, err := s.backend.CallContract(ctx, ethereum.CallMsg{From: s.from, To: &s.contract, Data: data}, nil)
	if err != nil {
		return false, err
	}

	var has bool
	if err := acABI.UnpackIntoInterface(&has, "hasRole", out); err != nil {
		return false, err
	}
	return has, nil
}

// RoleID maps an AccessControl role name to its bytes32 id. A 0x-prefixed
// 32-byte hex string is taken as the id itself.
func RoleID(name string) [32]byte {
	if name == "DEFAULT_ADMIN_ROLE" {
		return [32]byte{}
	}
	if strings.HasPrefix(name, "0x") && len(name) == 66 {
		return common.HexToHash(name)
	}
	return crypto.Keccak256Hash([]byte(name))
}
