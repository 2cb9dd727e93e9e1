// Package monitor serves live progress of a batch run over HTTP: a
// websocket stream of attempt results and a JSON tally.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/events"
	"github.com/Siasom1/gorrillazz-minter/log"
)

// Status is the tally of the current (or last) run.
type Status struct {
	RunID      string                  `json:"runId,omitempty"`
	Running    bool                    `json:"running"`
	TotalUnits uint64                  `json:"totalUnits"`
	Summary    types.Summary           `json:"summary"`
	Last       *types.SubmissionResult `json:"last,omitempty"`
}

type Server struct {
	bus    *events.EventBus
	hub    *WebSocketHub
	logger *log.Logger

	// results and run events share one channel so a RunFinished is never
	// handled ahead of the results published before it.
	stream <-chan events.Event

	mu     sync.RWMutex
	status Status

	extra map[string]http.Handler

	httpSrv *http.Server
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewServer subscribes to bus immediately so no event published after it
// returns is missed.
func NewServer(bus *events.EventBus, logger *log.Logger) *Server {
	return &Server{
		bus:    bus,
		hub:    NewWebSocketHub(logger),
		logger: logger,
		stream: bus.Subscribe(),
		extra:  make(map[string]http.Handler),
		done:   make(chan struct{}),
	}
}

// Handler exposes the routes without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.HandleWS)
	mux.HandleFunc("/summary", s.handleSummary)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	for pattern, h := range s.extra {
		mux.Handle(pattern, h)
	}
	return mux
}

// Handle mounts h next to the monitor routes. Call it before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.extra[pattern] = h
}

// Run consumes bus events until ctx ends. Start calls it; tests may call it
// directly alongside Handler. A Server runs once.
func (s *Server) Run(ctx context.Context) {
	defer s.bus.Unsubscribe(s.stream)

	go s.hub.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-s.stream:
			if !ok {
				return
			}
			switch {
			case ev.Result != nil:
				s.handleResult(*ev.Result)
			case ev.Run != nil:
				s.handleRun(*ev.Run)
			}
		}
	}
}

func (s *Server) handleResult(r types.SubmissionResult) {
	s.mu.Lock()
	s.status.Summary.Add(r)
	s.status.Last = &r
	s.mu.Unlock()
	s.hub.Broadcast(WSMessage{Type: "result", Data: r})
}

func (s *Server) handleRun(ev events.RunEvent) {
	s.mu.Lock()
	switch ev.Phase {
	case events.RunStarted:
		s.status = Status{RunID: ev.RunID, Running: true, TotalUnits: ev.TotalUnits}
	case events.RunFinished:
		s.status.Running = false
		s.status.Summary = ev.Summary
	}
	s.mu.Unlock()
	s.hub.Broadcast(WSMessage{Type: "run", Data: ev})
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()

	go func() {
		s.logger.Info("monitor listening", "addr", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server", "error", err.Error())
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	err := s.httpSrv.Shutdown(ctx)
	s.cancel()
	<-s.done
	return err
}

func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Status())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
