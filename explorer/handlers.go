package explorer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// pathParts splits /explorer/<kind>/<a>/<b> into [a b].
func pathParts(r *http.Request) []string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		return nil
	}
	return parts[2:]
}

// ------------------------------------------------------------
// /explorer/runs
// ------------------------------------------------------------
func (api *ExplorerAPI) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := api.Journal.Runs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		out = append(out, map[string]interface{}{
			"id":          run.ID,
			"network":     run.Network,
			"contract":    run.Contract,
			"startedAt":   run.StartedAt,
			"finished":    run.Finished,
			"interrupted": run.Interrupted,
			"totalUnits":  run.Queue.TotalUnits(),
			"summary":     run.Summary,
		})
	}
	writeJSON(w, out)
}

// ------------------------------------------------------------
// /explorer/run/{id}
// /explorer/run/{id}/results
// /explorer/run/{id}/outstanding
// ------------------------------------------------------------
func (api *ExplorerAPI) handleRun(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r)
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		writeError(w, http.StatusBadRequest, "invalid URL")
		return
	}
	id := parts[0]

	run, err := api.Journal.Run(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	if len(parts) == 1 {
		writeJSON(w, run)
		return
	}

	switch parts[1] {
	case "results":
		results, err := api.Journal.Results(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, results)

	case "outstanding":
		o, err := api.Journal.Outstanding(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{
			"retry":   o.Retry,
			"unknown": o.Unknown,
		})

	default:
		writeError(w, http.StatusNotFound, "unknown view "+parts[1])
	}
}

// ------------------------------------------------------------
// /explorer/address/{addr}
// ------------------------------------------------------------
func (api *ExplorerAPI) handleAddress(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r)
	if len(parts) != 1 || !common.IsHexAddress(parts[0]) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	addr := common.HexToAddress(parts[0])

	runs, err := api.Journal.Runs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := []map[string]interface{}{}
	for _, run := range runs {
		results, err := api.Journal.Results(run.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, res := range results {
			if res.Recipient != addr {
				continue
			}
			out = append(out, map[string]interface{}{
				"runId":   run.ID,
				"seq":     res.Seq,
				"status":  res.Status,
				"txHash":  res.TxHash,
				"tokenId": res.TokenID,
				"error":   res.Error,
			})
		}
	}

	writeJSON(w, out)
}

// ------------------------------------------------------------
// /explorer/stream/results  (SSE)
// ------------------------------------------------------------
func (api *ExplorerAPI) handleStreamResults(w http.ResponseWriter, r *http.Request) {
	if api.Events == nil {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := api.Events.SubscribeResults()
	defer api.Events.UnsubscribeResults(ch)
	flusher.Flush()
	ctx := r.Context()

	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, res)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, res types.SubmissionResult) {
	data, _ := json.Marshal(res)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
