package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// WorkItem asks for Count mint transactions to Recipient.
type WorkItem struct {
	Recipient common.Address `json:"address" yaml:"address"`
	Count     uint64         `json:"count" yaml:"count"`
}

// WorkQueue is processed front-to-back. Items are independent of each other.
type WorkQueue []WorkItem

// TotalUnits is the number of attempts a run over q makes.
func (q WorkQueue) TotalUnits() uint64 {
	var n uint64
	for _, item := range q {
		n += item.Count
	}
	return n
}

// Recipients returns the distinct recipients in first-seen order.
func (q WorkQueue) Recipients() []common.Address {
	seen := make(map[common.Address]struct{}, len(q))
	out := make([]common.Address, 0, len(q))
	for _, item := range q {
		if _, ok := seen[item.Recipient]; ok {
			continue
		}
		seen[item.Recipient] = struct{}{}
		out = append(out, item.Recipient)
	}
	return out
}
