package node

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/events"
	"github.com/Siasom1/gorrillazz-minter/log"
	chainparams "github.com/Siasom1/gorrillazz-minter/params"
)

var (
	addrAAA = common.HexToAddress("0x0000000000000000000000000000000000000aaa")
	addrBBB = common.HexToAddress("0x0000000000000000000000000000000000000bbb")
)

type stepClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	c.now = c.now.Add(d)
	return ctx.Err()
}

type scriptedMinter struct {
	errs     map[int]error
	calls    int
	tokenIDs []*big.Int
}

func (m *scriptedMinter) Mint(_ context.Context, _ common.Address, tokenID *big.Int) (types.Confirmation, error) {
	idx := m.calls
	m.calls++
	m.tokenIDs = append(m.tokenIDs, tokenID)
	if err := m.errs[idx]; err != nil {
		return types.Confirmation{}, err
	}
	return types.Confirmation{TxHash: common.BigToHash(big.NewInt(int64(idx + 1))), BlockNumber: uint64(idx + 1)}, nil
}

// startedNode builds a node with the chain session replaced by m.
func startedNode(t *testing.T, m *scriptedMinter, mut func(*Config)) *Node {
	t.Helper()

	cfg := validConfig()
	cfg.JournalDir = filepath.Join(t.TempDir(), "journal")
	if mut != nil {
		mut(cfg)
	}
	require.NoError(t, cfg.Validate())

	n := NewNode(cfg, log.Discard())
	n.clock = &stepClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	n.minter = m
	n.tokenIDs = n.tokenIDPolicy(true)
	require.NoError(t, n.openJournal())
	t.Cleanup(n.Stop)
	return n
}

func TestRunRecordsJournalAndEvents(t *testing.T) {
	m := &scriptedMinter{errs: map[int]error{
		0: &types.SubmissionError{Recipient: addrAAA, Stage: "send", Err: errors.New("nonce too low")},
	}}
	n := startedNode(t, m, nil)

	runs := n.Events.SubscribeRuns()
	results := n.Events.SubscribeResults()

	queue := types.WorkQueue{{Recipient: addrAAA, Count: 2}, {Recipient: addrBBB, Count: 1}}
	report, err := n.Run(context.Background(), queue, "drop.json")
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, types.Summary{Attempts: 3, Confirmed: 2, Failed: 1}, report.Summary)
	assert.False(t, report.Summary.AllConfirmed())

	started := <-runs
	assert.Equal(t, events.RunStarted, started.Phase)
	assert.Equal(t, report.RunID, started.RunID)
	assert.Equal(t, uint64(3), started.TotalUnits)
	finished := <-runs
	assert.Equal(t, events.RunFinished, finished.Phase)
	assert.Equal(t, report.Summary, finished.Summary)

	for i := 0; i < 3; i++ {
		r := <-results
		assert.Equal(t, uint64(i), r.Seq)
	}

	rec, err := n.Journal.Run(report.RunID)
	require.NoError(t, err)
	assert.True(t, rec.Finished)
	assert.Equal(t, "drop.json", rec.WorkFile)
	assert.Equal(t, "localhost", rec.Network)
	assert.Equal(t, report.Summary, rec.Summary)

	out, err := n.Journal.Outstanding(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkQueue{{Recipient: addrAAA, Count: 1}}, out.Retry)
	assert.Empty(t, out.Unknown)
}

func TestRunSequentialTokenIDs(t *testing.T) {
	m := &scriptedMinter{}
	n := startedNode(t, m, func(c *Config) {
		c.TokenIDMode = chainparams.TokenIDSequential
		c.TokenID = "100"
	})

	_, err := n.Run(context.Background(), types.WorkQueue{{Recipient: addrAAA, Count: 3}}, "")
	require.NoError(t, err)

	require.Len(t, m.tokenIDs, 3)
	for i, id := range m.tokenIDs {
		assert.Equal(t, int64(100+i), id.Int64())
	}
}

func TestRunEmptyQueue(t *testing.T) {
	m := &scriptedMinter{}
	n := startedNode(t, m, nil)

	report, err := n.Run(context.Background(), types.WorkQueue{{Recipient: addrAAA, Count: 0}}, "")
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Zero(t, m.calls)

	runs, err := n.Journal.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunWithoutStart(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	_, err := NewNode(cfg, log.Discard()).Run(context.Background(), types.WorkQueue{{Recipient: addrAAA, Count: 1}}, "")
	assert.Error(t, err)
}

func TestTokenIDPolicyWithoutIDArgument(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	n := NewNode(cfg, log.Discard())
	assert.Nil(t, n.tokenIDPolicy(false)(5))
	assert.Equal(t, int64(0), n.tokenIDPolicy(true)(5).Int64())
}

func TestRunInterruptedIsJournaled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &scriptedMinter{}
	n := startedNode(t, m, nil)
	n.minter = cancelAfter{minter: m, cancel: cancel, after: 1}

	report, err := n.Run(ctx, types.WorkQueue{{Recipient: addrAAA, Count: 3}}, "")
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, uint64(1), report.Summary.Attempts)

	rec, err := n.Journal.Run(report.RunID)
	require.NoError(t, err)
	assert.True(t, rec.Interrupted)
	assert.False(t, rec.Finished)
}

// cancelAfter cancels the run once the wrapped minter has been called after
// times.
type cancelAfter struct {
	minter *scriptedMinter
	cancel context.CancelFunc
	after  int
}

func (c cancelAfter) Mint(ctx context.Context, recipient common.Address, tokenID *big.Int) (types.Confirmation, error) {
	conf, err := c.minter.Mint(ctx, recipient, tokenID)
	if c.minter.calls >= c.after {
		c.cancel()
	}
	return conf, err
}
