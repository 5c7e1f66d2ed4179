package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wms-platform/vas-service/internal/application"
	"github.com/wms-platform/vas-service/internal/application/guides"
	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/internal/infrastructure/graphql"
	"github.com/wms-platform/vas-service/internal/infrastructure/localstate"
	"github.com/wms-platform/vas-service/pkg/logging"
)

// App holds what every vasctl command needs. Fields left nil are built
// from Config on first use.
type App struct {
	Config  *Config
	Backend domain.Backend
	Store   *localstate.Store
	Logger  *logging.Logger
	Out     io.Writer
	In      io.Reader
	ErrOut  io.Writer

	configPath string
	output     string
	statePath  string
	ownsStore  bool
}

// NewApp returns an App wired to the process's standard streams
func NewApp() *App {
	return &App{Out: os.Stdout, In: os.Stdin, ErrOut: os.Stderr}
}

func (a *App) init() error {
	if a.Config == nil {
		cfg, err := LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.statePath != "" {
		a.Config.StateFile = a.statePath
	}

	if a.Logger == nil {
		logConfig := logging.DefaultConfig("vasctl")
		logConfig.Level = logging.ParseLevel(a.Config.LogLevel)
		logConfig.Output = a.ErrOut
		a.Logger = logging.New(logConfig)
	}

	if a.Backend == nil {
		a.Backend = graphql.NewClient(&graphql.Config{
			Endpoint:          a.Config.Backend.URL,
			Token:             a.Config.Backend.Token,
			Timeout:           a.Config.Backend.Timeout,
			RequestsPerSecond: a.Config.Backend.RequestsPerSecond,
			Burst:             a.Config.Backend.Burst,
		}, a.Logger, nil)
	}

	if a.Store == nil {
		if err := os.MkdirAll(filepath.Dir(a.Config.StateFile), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		store, err := localstate.Open(a.Config.StateFile)
		if err != nil {
			return err
		}
		a.Store = store
		a.ownsStore = true
	}
	return nil
}

// workspace is one order's session plus the state saved for it
type workspace struct {
	session *application.ExecutionSession
	state   *localstate.SessionState
}

// open fetches the order and replays the locally saved selection, issue
// text and allocation draft on top of it.
func (a *App) open(ctx context.Context, orderNo string) (*workspace, error) {
	undoTarget, err := domain.ParseUndoTarget(a.Config.UndoTarget)
	if err != nil {
		return nil, err
	}

	session, err := application.OpenExecutionSession(ctx, orderNo, application.SessionDeps{
		Backend: a.Backend,
		Guides:  guides.NewRegistry(),
		Config:  &application.SessionConfig{UndoTarget: undoTarget},
		Logger:  a.Logger,
	})
	if err != nil {
		return nil, err
	}

	state, err := a.Store.Load(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	ws := &workspace{session: session, state: state}
	a.restore(ctx, ws)
	return ws, nil
}

func (a *App) restore(ctx context.Context, ws *workspace) {
	logger := a.Logger.WithOrder(ws.state.OrderNo)
	state := ws.state

	if state.SelectedTask == "" {
		return
	}
	if err := ws.session.Select(state.SelectedTask); err != nil {
		logger.WithError(err).Warn("Saved selection no longer applies", "task", state.SelectedTask)
		state.SelectedTask = ""
		state.Issue = ""
		state.ClearDraft()
		return
	}
	if state.Issue != "" {
		_ = ws.session.SetIssue(state.Issue)
	}

	if !state.HasDraft() || state.DraftTask != state.SelectedTask {
		return
	}
	if _, err := ws.session.OpenAllocation(ctx); err != nil {
		logger.WithError(err).Warn("Saved allocation draft dropped")
		state.ClearDraft()
		return
	}

	ids := make([]string, 0, len(state.DraftQtys))
	for id := range state.DraftQtys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := ws.session.SetSelectedQty(id, state.DraftQtys[id]); err != nil {
			logger.WithError(err).Warn("Saved candidate quantity dropped", "candidateId", id)
		}
	}
}

// save writes the session's local edits back to the state store. A
// completed order has nothing left to remember.
func (a *App) save(ctx context.Context, ws *workspace) error {
	if ws.session.Completed() {
		return a.Store.Delete(ctx, ws.state.OrderNo)
	}

	view := ws.session.View()
	state := &localstate.SessionState{OrderNo: view.OrderNo}
	if view.Selection != nil {
		state.SelectedTask = view.Selection.Task.Name
		state.Issue = view.Selection.Issue
	}

	alloc, err := ws.session.Allocation()
	switch {
	case err == nil:
		state.DraftTask = state.SelectedTask
		state.DraftQtys = make(map[string]int)
		for _, c := range alloc.Candidates {
			if c.SelectedQty > 0 {
				state.DraftQtys[c.ID] = c.SelectedQty
			}
		}
	case !errors.Is(err, domain.ErrNoAllocationSession):
		return err
	}

	ws.state = state
	return a.Store.Save(ctx, state)
}

func (a *App) close() {
	if a.ownsStore {
		if err := a.Store.Close(); err != nil && a.Logger != nil {
			a.Logger.WithError(err).Warn("Failed to close state store")
		}
		a.Store = nil
		a.ownsStore = false
	}
}
