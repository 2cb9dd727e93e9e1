// Package journal keeps an on-disk record of batch runs so an operator can
// see, after the fact, which recipients still need minting.
package journal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

// RunRecord describes one invocation of the submitter.
type RunRecord struct {
	ID         string          `json:"id"`
	Network    string          `json:"network"`
	ChainID    uint64          `json:"chainId"`
	Contract   common.Address  `json:"contract"`
	Signer     common.Address  `json:"signer"`
	Method     string          `json:"method"`
	WorkFile   string          `json:"workFile,omitempty"`
	Queue      types.WorkQueue `json:"queue"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt,omitempty"`
	Summary    types.Summary   `json:"summary"`
	Finished   bool            `json:"finished"`
	// Interrupted runs stopped on cancellation before the queue was done.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Journal is safe for use by one run plus concurrent readers; LevelDB
// serialises the writes.
type Journal struct {
	db *journalDB
}

func Open(dir string) (*Journal, error) {
	db, err := openJournalDB(dir)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func NewRunID() string {
	return uuid.NewString()
}

func runKey(id string) string { return "run/" + id }

func attemptPrefix(id string) string { return "attempt/" + id + "/" }

func attemptKey(id string, seq uint64) string {
	return fmt.Sprintf("%s%020d", attemptPrefix(id), seq)
}

// BeginRun stores rec, assigning an ID and start time when missing.
func (j *Journal) BeginRun(rec RunRecord) (RunRecord, error) {
	if rec.ID == "" {
		rec.ID = NewRunID()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if err := j.db.put(runKey(rec.ID), rec); err != nil {
		return RunRecord{}, fmt.Errorf("begin run %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Record appends one attempt result to a run.
func (j *Journal) Record(runID string, r types.SubmissionResult) error {
	if err := j.db.put(attemptKey(runID, r.Seq), r); err != nil {
		return fmt.Errorf("record attempt %d of run %s: %w", r.Seq, runID, err)
	}
	return nil
}

// Recorder binds Record to a run so it can be handed to the submitter as a
// result sink.
func (j *Journal) Recorder(runID string) *Recorder {
	return &Recorder{j: j, runID: runID}
}

type Recorder struct {
	j     *Journal
	runID string
}

func (r *Recorder) Record(res types.SubmissionResult) error {
	return r.j.Record(r.runID, res)
}

// FinishRun stamps the run with its summary.
func (j *Journal) FinishRun(runID string, summary types.Summary) error {
	rec, err := j.Run(runID)
	if err != nil {
		return err
	}
	rec.Summary = summary
	rec.Finished = true
	rec.FinishedAt = time.Now().UTC()
	return j.db.put(runKey(runID), rec)
}

// InterruptRun records the partial summary of a run that was cancelled.
func (j *Journal) InterruptRun(runID string, summary types.Summary) error {
	rec, err := j.Run(runID)
	if err != nil {
		return err
	}
	rec.Summary = summary
	rec.Interrupted = true
	rec.FinishedAt = time.Now().UTC()
	return j.db.put(runKey(runID), rec)
}

func (j *Journal) Run(runID string) (RunRecord, error) {
	var rec RunRecord
	found, err := j.db.get(runKey(runID), &rec)
	if err != nil {
		return RunRecord{}, err
	}
	if !found {
		return RunRecord{}, fmt.Errorf("run %s not found", runID)
	}
	return rec, nil
}

// Runs lists every run, newest first.
func (j *Journal) Runs() ([]RunRecord, error) {
	var runs []RunRecord
	err := j.db.scan("run/", func(v []byte) error {
		var rec RunRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		runs = append(runs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(a, b int) bool {
		return runs[a].StartedAt.After(runs[b].StartedAt)
	})
	return runs, nil
}

// Results returns a run's attempts in sequence order.
func (j *Journal) Results(runID string) ([]types.SubmissionResult, error) {
	var results []types.SubmissionResult
	err := j.db.scan(attemptPrefix(runID), func(v []byte) error {
		var r types.SubmissionResult
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		results = append(results, r)
		return nil
	})
	return results, err
}

// Outstanding is what a run left undone.
type Outstanding struct {
	// Retry holds units that failed or were never attempted, grouped per
	// recipient in the original queue order.
	Retry types.WorkQueue
	// Unknown holds attempts whose transaction may still land. They are not
	// in Retry: re-minting them blindly could mint twice.
	Unknown []types.SubmissionResult
}

// Outstanding compares the run's queue with its recorded attempts.
func (j *Journal) Outstanding(runID string) (*Outstanding, error) {
	rec, err := j.Run(runID)
	if err != nil {
		return nil, err
	}
	results, err := j.Results(runID)
	if err != nil {
		return nil, err
	}
	return computeOutstanding(rec.Queue, results), nil
}

func computeOutstanding(queue types.WorkQueue, results []types.SubmissionResult) *Outstanding {
	done := make([]uint64, len(queue))
	out := &Outstanding{}

	for _, r := range results {
		if r.ItemIndex < 0 || r.ItemIndex >= len(queue) {
			continue
		}
		switch r.Status {
		case types.StatusConfirmed:
			done[r.ItemIndex]++
		case types.StatusUnknown:
			done[r.ItemIndex]++
			out.Unknown = append(out.Unknown, r)
		}
	}

	order := make([]common.Address, 0, len(queue))
	remaining := make(map[common.Address]uint64, len(queue))
	for i, item := range queue {
		if done[i] >= item.Count {
			continue
		}
		if _, ok := remaining[item.Recipient]; !ok {
			order = append(order, item.Recipient)
		}
		remaining[item.Recipient] += item.Count - done[i]
	}

	for _, addr := range order {
		out.Retry = append(out.Retry, types.WorkItem{Recipient: addr, Count: remaining[addr]})
	}
	return out
}
