package submitter

import "math/big"

// TokenIDFunc picks the token id for the attempt with the given run-wide
// sequence number. A nil return means the mint call takes no id.
type TokenIDFunc func(seq uint64) *big.Int

// FixedTokenID passes the same id on every call.
func FixedTokenID(id *big.Int) TokenIDFunc {
	return func(uint64) *big.Int {
		return new(big.Int).Set(id)
	}
}

// SequentialTokenIDs passes start, start+1, ... across the whole run.
func SequentialTokenIDs(start *big.Int) TokenIDFunc {
	return func(seq uint64) *big.Int {
		return new(big.Int).Add(start, new(big.Int).SetUint64(seq))
	}
}

// NoTokenID is for mint methods that only take a recipient.
func NoTokenID(uint64) *big.Int { return nil }
