// Package submitter runs a work queue through a chain session one mint at a
// time: in order, each attempt confirmed before the next, failures recorded
// and skipped, with a fixed pause between attempts.
package submitter

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/log"
)

// Minter submits one mint and blocks until it is confirmed or has failed.
type Minter interface {
	Mint(ctx context.Context, recipient common.Address, tokenID *big.Int) (types.Confirmation, error)
}

// Sink receives every result as soon as its attempt ends.
type Sink interface {
	Record(types.SubmissionResult) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(types.SubmissionResult) error

func (f SinkFunc) Record(r types.SubmissionResult) error { return f(r) }

type Options struct {
	PacingDelay time.Duration
	TokenIDs    TokenIDFunc
	Clock       Clock
	Logger      *log.Logger
	Sinks       []Sink
}

type Submitter struct {
	minter   Minter
	pacing   time.Duration
	tokenIDs TokenIDFunc
	clock    Clock
	logger   *log.Logger
	sinks    []Sink
}

func New(minter Minter, opts Options) *Submitter {
	s := &Submitter{
		minter:   minter,
		pacing:   opts.PacingDelay,
		tokenIDs: opts.TokenIDs,
		clock:    opts.Clock,
		logger:   opts.Logger,
		sinks:    opts.Sinks,
	}
	if s.pacing < 0 {
		s.pacing = 0
	}
	if s.tokenIDs == nil {
		s.tokenIDs = FixedTokenID(big.NewInt(0))
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	return s
}

// Run makes exactly one attempt per unit of work and returns the results in
// attempt order. Per-attempt errors never stop the run; only cancellation
// does, in which case the results so far are returned with ctx.Err().
func (s *Submitter) Run(ctx context.Context, queue types.WorkQueue) ([]types.SubmissionResult, error) {
	total := queue.TotalUnits()
	if total == 0 {
		return nil, nil
	}

	results := make([]types.SubmissionResult, 0, total)
	var seq uint64

	for i, item := range queue {
		for unit := uint64(0); unit < item.Count; unit++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			res := s.attempt(ctx, seq, i, unit, item.Recipient)
			results = append(results, res)
			s.emit(res)
			seq++

			// cancellation during the confirmation wait
			if err := ctx.Err(); err != nil {
				return results, err
			}

			if seq < total && s.pacing > 0 {
				if err := s.clock.Sleep(ctx, s.pacing); err != nil {
					return results, err
				}
			}
		}
	}

	return results, nil
}

func (s *Submitter) attempt(ctx context.Context, seq uint64, itemIdx int, unit uint64, recipient common.Address) types.SubmissionResult {
	tokenID := s.tokenIDs(seq)

	res := types.SubmissionResult{
		Seq:       seq,
		ItemIndex: itemIdx,
		UnitIndex: unit,
		Recipient: recipient,
		TokenID:   tokenID,
		StartedAt: s.clock.Now(),
	}

	conf, err := s.minter.Mint(ctx, recipient, tokenID)
	res.FinishedAt = s.clock.Now()
	res.Status = types.StatusOf(err)

	args := []any{
		"recipient", recipient.Hex(),
		"item", itemIdx,
		"index", unit,
		"seq", seq,
	}
	if tokenID != nil {
		args = append(args, "token_id", tokenID.String())
	}

	if err != nil {
		res.Error = err.Error()
		res.TxHash = types.TxHashOf(err)
		if res.TxHash != (common.Hash{}) {
			args = append(args, "tx_hash", res.TxHash.Hex())
		}
		args = append(args, "error", err.Error())

		if res.Status == types.StatusUnknown {
			s.logger.Warn("mint outcome unknown", args...)
		} else {
			s.logger.Error("mint failed", args...)
		}
		return res
	}

	res.TxHash = conf.TxHash
	res.BlockNumber = conf.BlockNumber
	res.GasUsed = conf.GasUsed

	args = append(args, "tx_hash", conf.TxHash.Hex(), "block", conf.BlockNumber)
	s.logger.Info("mint confirmed", args...)
	return res
}

func (s *Submitter) emit(res types.SubmissionResult) {
	for _, sink := range s.sinks {
		if err := sink.Record(res); err != nil {
			s.logger.Error("record result", "seq", res.Seq, "error", err.Error())
		}
	}
}
