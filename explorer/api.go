// Package explorer is a read-only HTTP view of the run journal: past runs,
// their attempts, what is still outstanding, and every mint sent to an
// address.
package explorer

import (
	"net/http"

	"github.com/Siasom1/gorrillazz-minter/events"
	"github.com/Siasom1/gorrillazz-minter/journal"
)

type ExplorerAPI struct {
	Journal *journal.Journal
	// Events feeds /explorer/stream/results. Nil disables the stream.
	Events *events.EventBus
}

func NewExplorerAPI(j *journal.Journal, bus *events.EventBus) *ExplorerAPI {
	return &ExplorerAPI{
		Journal: j,
		Events:  bus,
	}
}

// Handler serves the /explorer/ routes.
func (api *ExplorerAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/explorer/runs", api.handleRuns)
	mux.HandleFunc("/explorer/run/", api.handleRun)
	mux.HandleFunc("/explorer/address/", api.handleAddress)

	// Live stream (SSE)
	mux.HandleFunc("/explorer/stream/results", api.handleStreamResults)
	return mux
}
