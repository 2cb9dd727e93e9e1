package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/events"
	"github.com/Siasom1/gorrillazz-minter/log"
)

func startTestServer(t *testing.T) (*Server, *events.EventBus, *httptest.Server) {
	t.Helper()
	bus := events.NewEventBus()
	srv := NewServer(bus, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx)
	}()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return srv, bus, ts
}

func TestWebSocketStreamsResults(t *testing.T) {
	srv, bus, ts := startTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.PublishRun(events.RunEvent{RunID: "run-1", Phase: events.RunStarted, TotalUnits: 2})
	require.Eventually(t, func() bool { return srv.Status().RunID == "run-1" }, 2*time.Second, 10*time.Millisecond)

	bus.PublishResult(types.SubmissionResult{
		Seq:       0,
		Recipient: common.HexToAddress("0xaaa"),
		Status:    types.StatusConfirmed,
		TxHash:    common.HexToHash("0x01"),
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type != "result" {
			continue
		}

		var r types.SubmissionResult
		require.NoError(t, json.Unmarshal(msg.Data, &r))
		assert.Equal(t, types.StatusConfirmed, r.Status)
		assert.Equal(t, common.HexToHash("0x01"), r.TxHash)
		break
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv, bus, ts := startTestServer(t)

	bus.PublishRun(events.RunEvent{RunID: "run-2", Phase: events.RunStarted, TotalUnits: 3})
	require.Eventually(t, func() bool { return srv.Status().RunID == "run-2" }, 2*time.Second, 10*time.Millisecond)

	bus.PublishResult(types.SubmissionResult{Seq: 0, Status: types.StatusConfirmed})
	bus.PublishResult(types.SubmissionResult{Seq: 1, Status: types.StatusFailed})

	require.Eventually(t, func() bool { return srv.Status().Summary.Attempts == 2 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(ts.URL + "/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "run-2", st.RunID)
	assert.True(t, st.Running)
	assert.Equal(t, uint64(3), st.TotalUnits)
	assert.Equal(t, types.Summary{Attempts: 2, Confirmed: 1, Failed: 1}, st.Summary)
	require.NotNil(t, st.Last)
	assert.Equal(t, uint64(1), st.Last.Seq)
}

func TestHealthz(t *testing.T) {
	_, _, ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSummaryCountsEachResultOnce(t *testing.T) {
	for i := 0; i < 20; i++ {
		bus := events.NewEventBus()
		srv := NewServer(bus, log.Discard())

		final := types.Summary{Attempts: 5, Confirmed: 4, Failed: 1}
		bus.PublishRun(events.RunEvent{RunID: "run-3", Phase: events.RunStarted, TotalUnits: 5})
		for seq := uint64(0); seq < 5; seq++ {
			status := types.StatusConfirmed
			if seq == 2 {
				status = types.StatusFailed
			}
			bus.PublishResult(types.SubmissionResult{Seq: seq, Status: status})
		}
		bus.PublishRun(events.RunEvent{RunID: "run-3", Phase: events.RunFinished, TotalUnits: 5, Summary: final})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			srv.Run(ctx)
		}()

		require.Eventually(t, func() bool {
			st := srv.Status()
			return st.RunID == "run-3" && !st.Running
		}, 2*time.Second, 5*time.Millisecond)

		st := srv.Status()
		assert.Equal(t, final, st.Summary)
		require.NotNil(t, st.Last)
		assert.Equal(t, uint64(4), st.Last.Seq)

		cancel()
		<-done
	}
}
