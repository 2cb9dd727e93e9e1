package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

var (
	addrAAA = common.HexToAddress("0x0000000000000000000000000000000000000aaa")
	addrBBB = common.HexToAddress("0x0000000000000000000000000000000000000bbb")
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	j := openTestJournal(t)

	rec, err := j.BeginRun(RunRecord{
		Network:  "localhost",
		ChainID:  31337,
		Contract: common.HexToAddress("0x01"),
		Queue:    types.WorkQueue{{Recipient: addrAAA, Count: 2}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.False(t, rec.StartedAt.IsZero())

	rc := j.Recorder(rec.ID)
	require.NoError(t, rc.Record(types.SubmissionResult{Seq: 1, Recipient: addrAAA, Status: types.StatusFailed, Error: "boom"}))
	require.NoError(t, rc.Record(types.SubmissionResult{Seq: 0, Recipient: addrAAA, Status: types.StatusConfirmed}))

	results, err := j.Results(rec.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(0), results[0].Seq, "results come back in sequence order")
	assert.Equal(t, "boom", results[1].Error)

	summary := types.Summarize(results)
	require.NoError(t, j.FinishRun(rec.ID, summary))

	got, err := j.Run(rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished)
	assert.Equal(t, summary, got.Summary)
	assert.Equal(t, rec.Queue, got.Queue)
}

func TestRunsNewestFirstAndIsolated(t *testing.T) {
	j := openTestJournal(t)

	older, err := j.BeginRun(RunRecord{StartedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	newer, err := j.BeginRun(RunRecord{StartedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, j.Record(older.ID, types.SubmissionResult{Seq: 0}))

	runs, err := j.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)

	results, err := j.Results(newer.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUnknownRun(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Run("missing")
	assert.Error(t, err)
	assert.Error(t, j.FinishRun("missing", types.Summary{}))
}

func TestOutstanding(t *testing.T) {
	j := openTestJournal(t)

	queue := types.WorkQueue{
		{Recipient: addrAAA, Count: 3},
		{Recipient: addrBBB, Count: 1},
		{Recipient: addrAAA, Count: 1},
	}
	rec, err := j.BeginRun(RunRecord{Queue: queue})
	require.NoError(t, err)

	// AAA: failed, confirmed, unknown. BBB: confirmed. Last item never reached.
	for _, r := range []types.SubmissionResult{
		{Seq: 0, ItemIndex: 0, Recipient: addrAAA, Status: types.StatusFailed},
		{Seq: 1, ItemIndex: 0, Recipient: addrAAA, Status: types.StatusConfirmed},
		{Seq: 2, ItemIndex: 0, Recipient: addrAAA, Status: types.StatusUnknown, TxHash: common.HexToHash("0xabc")},
		{Seq: 3, ItemIndex: 1, Recipient: addrBBB, Status: types.StatusConfirmed},
	} {
		require.NoError(t, j.Record(rec.ID, r))
	}

	out, err := j.Outstanding(rec.ID)
	require.NoError(t, err)

	assert.Equal(t, types.WorkQueue{{Recipient: addrAAA, Count: 2}}, out.Retry)
	require.Len(t, out.Unknown, 1)
	assert.Equal(t, common.HexToHash("0xabc"), out.Unknown[0].TxHash)
}

func TestOutstandingAllConfirmed(t *testing.T) {
	out := computeOutstanding(
		types.WorkQueue{{Recipient: addrAAA, Count: 1}},
		[]types.SubmissionResult{{ItemIndex: 0, Status: types.StatusConfirmed}},
	)
	assert.Empty(t, out.Retry)
	assert.Empty(t, out.Unknown)
}

func TestInterruptRun(t *testing.T) {
	j := openTestJournal(t)

	rec, err := j.BeginRun(RunRecord{Queue: types.WorkQueue{{Recipient: addrAAA, Count: 3}}})
	require.NoError(t, err)
	require.NoError(t, j.Record(rec.ID, types.SubmissionResult{Seq: 0, Recipient: addrAAA, Status: types.StatusConfirmed}))
	require.NoError(t, j.InterruptRun(rec.ID, types.Summary{Attempts: 1, Confirmed: 1}))

	got, err := j.Run(rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Interrupted)
	assert.False(t, got.Finished)
	assert.Equal(t, uint64(1), got.Summary.Confirmed)

	out, err := j.Outstanding(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkQueue{{Recipient: addrAAA, Count: 2}}, out.Retry)
}
