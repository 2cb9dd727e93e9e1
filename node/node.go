package node

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/Siasom1/gorrillazz-minter/core/types"
	"github.com/Siasom1/gorrillazz-minter/events"
	"github.com/Siasom1/gorrillazz-minter/explorer"
	"github.com/Siasom1/gorrillazz-minter/journal"
	"github.com/Siasom1/gorrillazz-minter/log"
	"github.com/Siasom1/gorrillazz-minter/monitor"
	chainparams "github.com/Siasom1/gorrillazz-minter/params"
	"github.com/Siasom1/gorrillazz-minter/session"
	"github.com/Siasom1/gorrillazz-minter/submitter"
)

// Node wires the harness together for one batch run.
type Node struct {
	Config  *Config
	Logger  *log.Logger
	Events  *events.EventBus
	Session *session.Session
	Journal *journal.Journal
	Monitor *monitor.Server

	minter   submitter.Minter
	tokenIDs submitter.TokenIDFunc
	clock    submitter.Clock
}

// RunReport is what a finished (or interrupted) run produced.
type RunReport struct {
	RunID   string
	Results []types.SubmissionResult
	Summary types.Summary
}

func NewNode(cfg *Config, logger *log.Logger) *Node {
	if logger == nil {
		logger = log.NewLoggerWithWriter(cfg.LogLevel, os.Stderr, cfg.LogJSON)
	}

	return &Node{
		Config: cfg,
		Logger: logger,
		Events: events.NewEventBus(),
		clock:  submitter.RealClock{},
	}
}

// Start opens the chain session, checks the contract, and brings up the
// journal and monitor. Every error it returns happens before any
// transaction is sent.
func (n *Node) Start(ctx context.Context) error {
	chain := n.Config.Chain()
	if chain == nil {
		if err := n.Config.Validate(); err != nil {
			return err
		}
		chain = n.Config.Chain()
	}

	n.Logger.Info("starting batch minter",
		"network", chain.Name,
		"chain_id", chain.ChainID,
		"contract", n.Config.Contract().Hex(),
		"pacing", n.Config.PacingDelay.String(),
	)

	key, err := LoadSigningKey(n.Config)
	if err != nil {
		return err
	}

	sess, err := session.Open(ctx, session.Options{
		RPCURL:         chain.RPCURL,
		ChainID:        chain.ChainID,
		PrivateKey:     key,
		Contract:       n.Config.Contract(),
		MintMethod:     n.Config.MintMethod,
		GasLimit:       n.Config.GasLimit,
		GasPrice:       n.Config.GasPriceWei(),
		ConfirmTimeout: n.Config.ConfirmTimeout,
		RoleName:       n.Config.RoleName,
		RequireRole:    n.Config.RequireRole,
		Logger:         n.Logger,
	})
	if err != nil {
		return err
	}
	n.Session = sess
	n.minter = sess

	if _, err := sess.Preflight(ctx); err != nil {
		return err
	}

	n.tokenIDs = n.tokenIDPolicy(sess.Method().TakesTokenID())

	if err := n.openJournal(); err != nil {
		return err
	}

	if n.Config.MonitorAddr != "" {
		n.Monitor = monitor.NewServer(n.Events, n.Logger)
		if n.Journal != nil {
			n.Monitor.Handle("/explorer/", explorer.NewExplorerAPI(n.Journal, n.Events).Handler())
		}
		n.Monitor.Start(n.Config.MonitorAddr)
	}

	return nil
}

func (n *Node) openJournal() error {
	if n.Config.JournalDir == "" {
		n.Logger.Warn("journal disabled; failed recipients will only appear in the log")
		return nil
	}
	j, err := journal.Open(n.Config.JournalDir)
	if err != nil {
		return &types.ConfigurationError{Field: "journal_dir", Reason: "open journal", Err: err}
	}
	n.Journal = j
	return nil
}

func (n *Node) tokenIDPolicy(takesTokenID bool) submitter.TokenIDFunc {
	if !takesTokenID {
		return submitter.NoTokenID
	}
	if n.Config.TokenIDMode == chainparams.TokenIDSequential {
		return submitter.SequentialTokenIDs(n.Config.StartTokenID())
	}
	return submitter.FixedTokenID(n.Config.StartTokenID())
}

// Run submits queue. workFile is only recorded in the journal.
func (n *Node) Run(ctx context.Context, queue types.WorkQueue, workFile string) (*RunReport, error) {
	if n.minter == nil {
		return nil, errors.New("node not started")
	}

	total := queue.TotalUnits()
	if total == 0 {
		return &RunReport{}, nil
	}

	report := &RunReport{RunID: journal.NewRunID()}
	sinks := []submitter.Sink{submitter.SinkFunc(func(r types.SubmissionResult) error {
		n.Events.PublishResult(r)
		return nil
	})}

	if n.Journal != nil {
		rec := journal.RunRecord{
			ID:       report.RunID,
			Network:  n.Config.Chain().Name,
			ChainID:  n.Config.Chain().ChainID,
			Contract: n.Config.Contract(),
			Method:   n.Config.MintMethod,
			WorkFile: workFile,
			Queue:    queue,
		}
		if n.Session != nil {
			rec.Signer = n.Session.Address()
		}
		if _, err := n.Journal.BeginRun(rec); err != nil {
			return nil, err
		}
		sinks = append(sinks, n.Journal.Recorder(report.RunID))
	}

	logger := n.Logger.With("run_id", report.RunID)
	logger.Info("batch run started", "items", len(queue), "units", total)
	n.Events.PublishRun(events.RunEvent{RunID: report.RunID, Phase: events.RunStarted, TotalUnits: total, At: n.clock.Now()})

	sub := submitter.New(n.minter, submitter.Options{
		PacingDelay: n.Config.PacingDelay,
		TokenIDs:    n.tokenIDs,
		Clock:       n.clock,
		Logger:      logger,
		Sinks:       sinks,
	})

	results, runErr := sub.Run(ctx, queue)
	report.Results = results
	report.Summary = types.Summarize(results)

	if n.Journal != nil {
		finish := n.Journal.FinishRun
		if runErr != nil {
			finish = n.Journal.InterruptRun
		}
		if err := finish(report.RunID, report.Summary); err != nil {
			logger.Error("finish journal run", "error", err.Error())
		}
	}
	n.Events.PublishRun(events.RunEvent{RunID: report.RunID, Phase: events.RunFinished, TotalUnits: total, Summary: report.Summary, At: n.clock.Now()})

	logger.Info("batch run finished",
		"attempts", report.Summary.Attempts,
		"confirmed", report.Summary.Confirmed,
		"failed", report.Summary.Failed,
		"unknown", report.Summary.Unknown,
		"interrupted", runErr != nil,
	)

	return report, runErr
}

func (n *Node) Stop() {
	if n.Monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.Monitor.Stop(ctx); err != nil {
			n.Logger.Warn("stop monitor", "error", err.Error())
		}
		cancel()
	}
	if n.Journal != nil {
		if err := n.Journal.Close(); err != nil {
			n.Logger.Warn("close journal", "error", err.Error())
		}
	}
	if n.Session != nil {
		n.Session.Close()
	}
}
