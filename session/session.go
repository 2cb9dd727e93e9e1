// Package session holds the authenticated connection a batch run submits
// through: an RPC client, the signing key, the chain id and the bound mint
// method. A Session is owned by one submission loop and is not safe for
// concurrent use.
package session

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/log"
	"github.com/Siasom1/gorrillazz-minter/params"
)

// Backend is the part of ethclient.Client the session uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	Close()
}

type Options struct {
	RPCURL string
	// ChainID, when non-zero, must match what the node reports.
	ChainID    uint64
	PrivateKey *ecdsa.PrivateKey
	Contract   common.Address
	MintMethod string

	// GasLimit of zero means estimate per call.
	GasLimit uint64
	// GasPrice forces a legacy transaction at this price when set.
	GasPrice       *big.Int
	ConfirmTimeout time.Duration

	// RoleName is checked with hasRole during Preflight when non-empty.
	RoleName    string
	RequireRole bool

	Logger *log.Logger
}

type Session struct {
	backend  Backend
	opts     Options
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	signer   gethtypes.Signer
	method   *MintMethod
	contract common.Address
	logger   *log.Logger
}

// Open dials the RPC endpoint and binds a session to it.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.RPCURL == "" {
		return nil, types.NewConfigError("rpc_url", "is required")
	}

	client, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "rpc_url", Reason: "dial " + opts.RPCURL, Err: err}
	}

	s, err := New(ctx, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// New binds a session to an existing backend. Every failure here is a
// ConfigurationError: no transaction has been sent.
func New(ctx context.Context, backend Backend, opts Options) (*Session, error) {
	if opts.PrivateKey == nil {
		return nil, types.NewConfigError("private_key", "signing key is required")
	}
	if opts.Contract == (common.Address{}) {
		return nil, types.NewConfigError("contract_address", "is required")
	}
	if opts.MintMethod == "" {
		opts.MintMethod = params.DefaultMintMethod
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = params.DefaultConfirmTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	method, err := ParseMintMethod(opts.MintMethod)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "mint_method", Reason: "invalid signature", Err: err}
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "rpc_url", Reason: "query chain id", Err: err}
	}
	if opts.ChainID != 0 && chainID.Uint64() != opts.ChainID {
		return nil, types.NewConfigError("chain_id", "mismatch: expected %d, node reports %d", opts.ChainID, chainID.Uint64())
	}

	s := &Session{
		backend:  backend,
		opts:     opts,
		key:      opts.PrivateKey,
		from:     crypto.PubkeyToAddress(opts.PrivateKey.PublicKey),
		chainID:  chainID,
		signer:   gethtypes.LatestSignerForChainID(chainID),
		method:   method,
		contract: opts.Contract,
		logger:   opts.Logger,
	}

	s.logger.Info("chain session ready",
		"chain_id", chainID.String(),
		"signer", s.from.Hex(),
		"contract", s.contract.Hex(),
		"method", method.Signature,
		"selector", fmt.Sprintf("%x", method.Selector),
	)
	return s, nil
}

func (s *Session) Address() common.Address  { return s.from }
func (s *Session) ChainID() *big.Int        { return new(big.Int).Set(s.chainID) }
func (s *Session) Contract() common.Address { return s.contract }
func (s *Session) Method() *MintMethod      { return s.method }

func (s *Session) Close() {
	s.backend.Close()
}
