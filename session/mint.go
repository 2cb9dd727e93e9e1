package session

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/params"
)

const sendTimeout = 30 * time.Second

// Mint sends one mint transaction and waits for its receipt. The returned
// error is one of SubmissionError, ConfirmationTimeoutError or
// ContractRevertError.
func (s *Session) Mint(ctx context.Context, recipient common.Address, tokenID *big.Int) (types.Confirmation, error) {
	data, err := s.method.Pack(recipient, tokenID)
	if err != nil {
		return types.Confirmation{}, &types.SubmissionError{Recipient: recipient, Stage: "encode", Err: err}
	}

	msg := ethereum.CallMsg{From: s.from, To: &s.contract, Data: data}

	gasLimit := s.opts.GasLimit
	if gasLimit == 0 {
		est, err := s.backend.EstimateGas(ctx, msg)
		if err != nil {
			if reason, ok := revertReason(err); ok {
				return types.Confirmation{}, &types.ContractRevertError{Reason: reason}
			}
			return types.Confirmation{}, &types.SubmissionError{Recipient: recipient, Stage: "estimate gas", Err: err}
		}
		gasLimit = est + est*params.GasHeadroomPercent/100
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return types.Confirmation{}, &types.SubmissionError{Recipient: recipient, Stage: "nonce", Err: err}
	}

	tx, err := s.buildTx(ctx, nonce, gasLimit, data)
	if err != nil {
		return types.Confirmation{}, &types.SubmissionError{Recipient: recipient, Stage: "fees", Err: err}
	}

	signedTx, err := gethtypes.SignTx(tx, s.signer, s.key)
	if err != nil {
		return types.Confirmation{}, &types.SubmissionError{Recipient: recipient, Stage: "sign", Err: err}
	}

	if err := s.send(ctx, recipient, signedTx); err != nil {
		return types.Confirmation{}, err
	}

	s.logger.Debug("mint transaction submitted",
		"tx_hash", signedTx.Hash().Hex(),
		"recipient", recipient.Hex(),
		"nonce", nonce,
		"gas", gasLimit,
	)

	receipt, err := s.waitMined(ctx, signedTx)
	if err != nil {
		return types.Confirmation{}, err
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return types.Confirmation{}, &types.ContractRevertError{
			TxHash: signedTx.Hash(),
			Reason: s.replayRevert(ctx, msg, receipt.BlockNumber),
		}
	}

	conf := types.Confirmation{
		TxHash:  signedTx.Hash(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		conf.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return conf, nil
}

func (s *Session) buildTx(ctx context.Context, nonce, gasLimit uint64, data []byte) (*gethtypes.Transaction, error) {
	to := s.contract

	if s.opts.GasPrice != nil {
		return gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: new(big.Int).Set(s.opts.GasPrice),
			Gas:      gasLimit,
			To:       &to,
			Data:     data,
		}), nil
	}

	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}

	if head.BaseFee != nil {
		tip, err := s.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, err
		}
		// room for the base fee to double before the tx is priced out
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
			ChainID:   s.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &to,
			Data:      data,
		}), nil
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Data:     data,
	}), nil
}

// send hands tx to the node. Cancelling ctx does not abort an in-flight
// send, and a send that ends on a context error may still have reached the
// node, so it is reported with the tx hash as outcome unknown.
func (s *Session) send(ctx context.Context, recipient common.Address, tx *gethtypes.Transaction) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	err := s.backend.SendTransaction(sendCtx, tx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &types.ConfirmationTimeoutError{TxHash: tx.Hash(), Timeout: sendTimeout, Err: err}
	}
	return &types.SubmissionError{Recipient: recipient, Stage: "send", Err: err}
}

// waitMined blocks for the receipt up to ConfirmTimeout. A transaction the
// node accepted is never reported as failed for lack of a receipt.
func (s *Session) waitMined(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.ConfirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, s.backend, tx)
	if err == nil {
		return receipt, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, &types.ConfirmationTimeoutError{TxHash: tx.Hash(), Timeout: s.opts.ConfirmTimeout, Err: err}
	}
	return nil, &types.SubmissionError{Stage: "wait", Err: err}
}

// replayRevert re-executes the call at the block that included the failed
// transaction to recover its revert reason.
func (s *Session) replayRevert(ctx context.Context, msg ethereum.CallMsg, block *big.Int) string {
	_, err := s.backend.CallContract(ctx, msg, block)
	if reason, ok := revertReason(err); ok {
		return reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
