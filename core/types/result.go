package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	// StatusUnknown means the transaction was accepted by the node but its
	// confirmation was not observed. It may still land.
	StatusUnknown Status = "unknown"
)

// Confirmation is what a chain session reports for an included transaction.
type Confirmation struct {
	TxHash      common.Hash `json:"transactionHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`
}

// SubmissionResult is the outcome of one mint attempt.
type SubmissionResult struct {
	Seq       uint64         `json:"seq"`
	ItemIndex int            `json:"itemIndex"`
	UnitIndex uint64         `json:"unitIndex"`
	Recipient common.Address `json:"recipient"`
	TokenID   *big.Int       `json:"tokenId,omitempty"`

	Status      Status      `json:"status"`
	TxHash      common.Hash `json:"transactionHash,omitempty"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	GasUsed     uint64      `json:"gasUsed,omitempty"`
	Error       string      `json:"error,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (r SubmissionResult) Confirmed() bool {
	return r.Status == StatusConfirmed
}

// Summary tallies a sequence of results.
type Summary struct {
	Attempts  uint64 `json:"attempts"`
	Confirmed uint64 `json:"confirmed"`
	Failed    uint64 `json:"failed"`
	Unknown   uint64 `json:"unknown"`
}

func Summarize(results []SubmissionResult) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}

func (s *Summary) Add(r SubmissionResult) {
	s.Attempts++
	switch r.Status {
	case StatusConfirmed:
		s.Confirmed++
	case StatusFailed:
		s.Failed++
	case StatusUnknown:
		s.Unknown++
	}
}

// AllConfirmed reports whether every attempt was confirmed. A summary with
// zero attempts counts as all confirmed.
func (s Summary) AllConfirmed() bool {
	return s.Confirmed == s.Attempts
}
