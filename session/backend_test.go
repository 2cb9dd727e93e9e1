package session

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// rpcRevert mimics the JSON-RPC error geth returns for a reverted call.
type rpcRevert struct {
	data string
}

func (e *rpcRevert) Error() string          { return "execution reverted" }
func (e *rpcRevert) ErrorData() interface{} { return e.data }

func revertData(reason string) string {
	strT, _ := abi.NewType("string", "", nil)
	enc, _ := abi.Arguments{{Type: strT}}.Pack(reason)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, enc...))
}

// fakeBackend is an in-memory chain node. Transactions are "mined" as soon
// as they are sent unless withholdReceipts is set.
type fakeBackend struct {
	mu sync.Mutex

	chainID  *big.Int
	baseFee  *big.Int
	code     []byte
	balance  *big.Int
	nonce    uint64
	gasPrice *big.Int
	tipCap   *big.Int

	estimateErr error
	sendErr     error
	callOut     []byte
	callErr     error
	hasRoleOut  *bool

	// onSend runs before a transaction is accepted.
	onSend func()

	withholdReceipts bool
	receiptStatus    uint64

	sent     []*gethtypes.Transaction
	receipts map[common.Hash]*gethtypes.Receipt
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:       big.NewInt(31337),
		baseFee:       big.NewInt(1_000_000_000),
		code:          []byte{0x60, 0x80},
		balance:       big.NewInt(1e18),
		gasPrice:      big.NewInt(2_000_000_000),
		tipCap:        big.NewInt(100_000_000),
		receiptStatus: gethtypes.ReceiptStatusSuccessful,
		receipts:      make(map[common.Hash]*gethtypes.Receipt),
	}
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return b.balance, nil
}

func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return b.code, nil
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if b.hasRoleOut != nil && len(call.Data) >= 4 {
		boolT, _ := abi.NewType("bool", "", nil)
		return abi.Arguments{{Type: boolT}}.Pack(*b.hasRoleOut)
	}
	return b.callOut, b.callErr
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{Number: big.NewInt(10), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error)  { return b.gasPrice, nil }
func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return b.tipCap, nil }

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 100_000, nil
}

// SendTransaction accepts tx and then reports ctx's error, the way an RPC
// client does when the caller gives up after the request went out.
func (b *fakeBackend) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	if b.onSend != nil {
		b.onSend()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	b.nonce++

	if !b.withholdReceipts {
		b.receipts[tx.Hash()] = &gethtypes.Receipt{
			Status:      b.receiptStatus,
			TxHash:      tx.Hash(),
			BlockNumber: big.NewInt(int64(10 + len(b.sent))),
			GasUsed:     60_000,
		}
	}
	return ctx.Err()
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) Close() { b.closed = true }

var errNodeDown = errors.New("connection refused")
