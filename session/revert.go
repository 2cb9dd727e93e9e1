package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// revertReason pulls a human readable reason out of an eth_call or
// eth_estimateGas error. ok is false when err is not a revert.
func revertReason(err error) (reason string, ok bool) {
	if err == nil {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, isStr := dataErr.ErrorData().(string); isStr {
			if data, decErr := hexutil.Decode(hexData); decErr == nil && len(data) > 0 {
				return decodeRevertData(data), true
			}
		}
	}

	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		reason := strings.TrimPrefix(msg[idx:], "execution reverted")
		return strings.TrimSpace(strings.TrimPrefix(reason, ":")), true
	}
	return "", false
}

// decodeRevertData handles Error(string), Panic(uint256) and falls back to
// the custom error selector.
func decodeRevertData(data []byte) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	if len(data) >= 4 {
		return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
	}
	return hexutil.Encode(data)
}
