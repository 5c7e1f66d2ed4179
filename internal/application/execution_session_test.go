package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/vas-service/internal/application/guides"
	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/metrics"
)

type sessionFixture struct {
	backend  *fakeBackend
	journal  *fakeJournal
	notifier *fakeNotifier
	observer *recordingObserver
	session  *ExecutionSession
}

func openSession(t *testing.T, ws *domain.Worksheet, configure ...func(*SessionDeps)) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		backend:  newFakeBackend(ws),
		journal:  &fakeJournal{},
		notifier: &fakeNotifier{},
		observer: &recordingObserver{},
	}
	deps := SessionDeps{
		Backend:  f.backend,
		Guides:   guides.NewRegistry(),
		Journal:  f.journal,
		Notifier: f.notifier,
		Logger:   testLogger(),
		Metrics:  metrics.New(metrics.DefaultConfig("vas-service-test")),
	}
	for _, fn := range configure {
		fn(&deps)
	}

	session, err := OpenExecutionSession(context.Background(), ws.OrderNo, deps, f.observer)
	require.NoError(t, err)
	f.session = session
	return f
}

func confirm(answer bool) domain.Confirmer {
	return domain.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		return answer, nil
	})
}

func TestOpenExecutionSession(t *testing.T) {
	f := openSession(t, worksheet(
		vasTask("T3", 2, domain.TaskStatusPending),
		vasTask("T1", 1, domain.TaskStatusDone),
		vasTask("T2", 1, domain.TaskStatusPending),
	))

	view := f.session.View()
	assert.Equal(t, "VAS-0001", view.OrderNo)
	assert.Equal(t, 3, view.TaskCount)
	require.Len(t, view.Sets, 2)
	assert.Equal(t, 1, view.Sets[0].Set)
	assert.Equal(t, []string{"T1", "T2"}, []string{view.Sets[0].Tasks[0].Name, view.Sets[0].Tasks[1].Name})
	assert.False(t, view.Sets[0].Completed)
	assert.Nil(t, view.Selection)
	assert.Empty(t, view.Actions)
	assert.Equal(t, 1, f.backend.fetchCalls)
}

func TestOpenExecutionSession_FetchFails(t *testing.T) {
	backend := newFakeBackend(worksheet())
	backend.fetchErr = errors.New("order VAS-0001 does not exist")

	_, err := OpenExecutionSession(context.Background(), "VAS-0001", SessionDeps{Backend: backend, Logger: testLogger()})

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "order VAS-0001 does not exist", remoteErr.Message)
}

func TestExecutionSession_Select(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending)))

	err := f.session.Select("NOPE")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	require.NoError(t, f.session.Select("T1"))
	view := f.session.View()
	require.NotNil(t, view.Selection)
	assert.Equal(t, "T1", view.Selection.Task.Name)
	assert.Equal(t, []string{domain.ActionExecute}, actionNames(view.Actions))
	assert.Equal(t, []string{domain.ActionExecute}, f.observer.last())

	f.session.ClearSelection()
	assert.Nil(t, f.session.View().Selection)
	assert.Empty(t, f.observer.last())

	assert.Equal(t, 1, f.backend.fetchCalls)
	assert.Zero(t, f.backend.executeCalls)
}

func TestExecutionSession_SetIssue(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)))

	assert.ErrorIs(t, f.session.SetIssue("torn label"), domain.ErrNoSelection)

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.SetIssue("torn label"))
	require.NoError(t, f.session.Execute(context.Background()))

	assert.Equal(t, "torn label", f.backend.lastIssue)
	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, "torn label", f.journal.entries[0].Issue)
}

func TestExecutionSession_ReselectKeepsIssueEdit(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)))

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.SetIssue("damaged carton"))
	require.NoError(t, f.session.Select("T1"))
	assert.Equal(t, "damaged carton", f.session.View().Selection.Issue)

	require.NoError(t, f.session.Select("T2"))
	require.NoError(t, f.session.Select("T1"))
	assert.Empty(t, f.session.View().Selection.Issue)
}

func TestExecutionSession_Execute(t *testing.T) {
	f := openSession(t, worksheet(
		vasTask("T1", 1, domain.TaskStatusPending),
		vasTask("T2", 1, domain.TaskStatusPending),
	))

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.Execute(context.Background()))

	view := f.session.View()
	assert.Equal(t, "DONE", view.Sets[0].Tasks[0].Status)
	assert.Equal(t, "PENDING", view.Sets[0].Tasks[1].Status)
	assert.Equal(t, []string{domain.ActionUndo}, actionNames(view.Actions))
	assert.Equal(t, 1, f.backend.executeCalls)
	assert.Equal(t, 1, f.backend.fetchCalls, "delta is merged without a re-fetch")
	assert.Zero(t, f.backend.completeCalls)

	require.Len(t, f.journal.entries, 1)
	entry := f.journal.entries[0]
	assert.Equal(t, domain.JournalTaskExecuted, entry.Action)
	assert.Equal(t, "VAS-0001", entry.OrderNo)
	assert.Equal(t, []string{"T1"}, entry.TaskNames)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.RecordedAt.IsZero())
}

func TestExecutionSession_Execute_RefetchesWithoutDelta(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)))
	f.backend.noDelta = true

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.Execute(context.Background()))

	assert.Equal(t, 2, f.backend.fetchCalls)
	assert.Equal(t, "DONE", f.session.View().Sets[0].Tasks[0].Status)
}

func TestExecutionSession_Execute_AlwaysFullRefresh(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)),
		func(d *SessionDeps) {
			d.Config = &SessionConfig{UndoTarget: domain.TaskStatusExecuting, AlwaysFullRefresh: true}
		})

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.Execute(context.Background()))

	assert.Equal(t, 2, f.backend.fetchCalls)
}

func TestExecutionSession_Execute_Preconditions(t *testing.T) {
	needsInventory := vasTask("T3", 2, domain.TaskStatusPending)
	needsInventory.RequiresInventory = true

	f := openSession(t, worksheet(
		vasTask("T1", 1, domain.TaskStatusDone),
		vasTask("T2", 2, domain.TaskStatusPending),
		needsInventory,
	))

	assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrNoSelection)

	require.NoError(t, f.session.Select("T1"))
	assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrTaskAlreadyDone)

	require.NoError(t, f.session.Select("T3"))
	assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrAllocationRequired)
	assert.Equal(t, []string{domain.ActionAllocate}, actionNames(f.session.Actions()))

	assert.Zero(t, f.backend.executeCalls)
}

func TestExecutionSession_Execute_RemoteFailure(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending)))
	f.backend.executeErr = errors.New("task T1 is locked by another operator")

	require.NoError(t, f.session.Select("T1"))
	err := f.session.Execute(context.Background())

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "task T1 is locked by another operator", remoteErr.Message)
	assert.Equal(t, "PENDING", f.session.View().Sets[0].Tasks[0].Status)
	assert.Empty(t, f.journal.entries)
	assert.Equal(t, 1, f.backend.executeCalls, "no retry")
}

func TestExecutionSession_Execute_RefreshFailsAfterAccept(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("vas-service-test"))
	f := openSession(t, worksheet(
		vasTask("T1", 1, domain.TaskStatusPending),
		vasTask("T2", 2, domain.TaskStatusDone),
	), func(d *SessionDeps) { d.Metrics = m })
	f.backend.noDelta = true

	require.NoError(t, f.session.Select("T1"))
	f.backend.fetchErr = errors.New("timeout")

	err := f.session.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrRefreshFailed)
	assert.True(t, domain.IsRemote(err))
	assert.Equal(t, 1, f.backend.executeCalls)
	assert.Equal(t, []domain.JournalAction{domain.JournalTaskExecuted}, f.journal.actions())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TasksExecuted.WithLabelValues("vas-service-test", "none")))
	assert.Zero(t, f.backend.completeCalls)

	view := f.session.View()
	assert.True(t, view.Stale)
	assert.Contains(t, actionNames(view.Actions), domain.ActionRefresh)

	// still unreadable: nothing is sent again
	assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrRefreshFailed)
	assert.Equal(t, 1, f.backend.executeCalls)

	f.backend.fetchErr = nil
	require.NoError(t, f.session.Refresh(context.Background()))

	assert.False(t, f.session.View().Stale)
	assert.Equal(t, 1, f.backend.completeCalls)
	assert.True(t, f.session.Completed())
	assert.Equal(t, []domain.JournalAction{domain.JournalTaskExecuted, domain.JournalOrderCompleted}, f.journal.actions())
	assert.Equal(t, TriggerAuto, f.journal.entries[1].Trigger)
}

func TestExecutionSession_Execute_RetryAfterRefreshFailureIsNotResent(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)))
	f.backend.noDelta = true

	require.NoError(t, f.session.Select("T1"))
	f.backend.fetchErr = errors.New("timeout")
	require.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrRefreshFailed)
	assert.Equal(t, "PENDING", f.session.View().Sets[0].Tasks[0].Status)

	f.backend.fetchErr = nil
	assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrTaskAlreadyDone)

	assert.Equal(t, 1, f.backend.executeCalls)
	view := f.session.View()
	assert.False(t, view.Stale)
	assert.Equal(t, "DONE", view.Sets[0].Tasks[0].Status)
	assert.Zero(t, f.backend.completeCalls)
}

func TestExecutionSession_UndoAndCommit_RefreshFailsAfterAccept(t *testing.T) {
	t.Run("undo", func(t *testing.T) {
		f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusDone), vasTask("T2", 1, domain.TaskStatusPending)))
		f.backend.noDelta = true
		require.NoError(t, f.session.Select("T1"))
		f.backend.fetchErr = errors.New("timeout")

		require.ErrorIs(t, f.session.Undo(context.Background(), confirm(true)), domain.ErrRefreshFailed)
		assert.Equal(t, []domain.JournalAction{domain.JournalTaskUndone}, f.journal.actions())
		assert.True(t, f.session.View().Stale)
	})

	t.Run("commit", func(t *testing.T) {
		ws := worksheet(inventoryTask("T1", 1, 10))
		f := openSession(t, ws)
		f.backend.candidates = []domain.InventoryCandidate{candidate("C1", 10)}
		f.backend.noDelta = true

		require.NoError(t, f.session.Select("T1"))
		_, err := f.session.OpenAllocation(context.Background())
		require.NoError(t, err)
		_, err = f.session.AutoSelect()
		require.NoError(t, err)

		f.backend.fetchErr = errors.New("timeout")
		require.ErrorIs(t, f.session.CommitAllocation(context.Background()), domain.ErrRefreshFailed)
		assert.Equal(t, 1, f.backend.assignCalls)
		assert.Equal(t, []domain.JournalAction{domain.JournalInventoryAssigned}, f.journal.actions())

		f.backend.fetchErr = nil
		_, err = f.session.OpenAllocation(context.Background())
		assert.ErrorIs(t, err, domain.ErrAlreadyAllocated)
		assert.Equal(t, 1, f.backend.assignCalls)
	})
}

func TestExecutionSession_Execute_AutoCompletes(t *testing.T) {
	f := openSession(t, worksheet(
		vasTask("T1", 1, domain.TaskStatusDone),
		vasTask("T2", 2, domain.TaskStatusPending),
	))

	require.NoError(t, f.session.Select("T2"))
	require.NoError(t, f.session.Execute(context.Background()))

	assert.Equal(t, 1, f.backend.completeCalls)
	assert.True(t, f.session.Completed())
	assert.Equal(t, []string{"VAS-0001"}, f.notifier.notified)

	view := f.session.View()
	assert.Empty(t, view.Sets)
	assert.Nil(t, view.Selection)
	assert.Empty(t, view.Actions)

	assert.Equal(t, []domain.JournalAction{domain.JournalTaskExecuted, domain.JournalOrderCompleted}, f.journal.actions())
	assert.Equal(t, TriggerAuto, f.journal.entries[1].Trigger)
	assert.Equal(t, 2, f.journal.entries[1].SetCount)
	assert.Equal(t, 2, f.journal.entries[1].TaskCount)
}

func TestExecutionSession_Execute_AutoCompleteFailureIsSwallowed(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending)))
	f.backend.completeErr = errors.New("order is on hold")

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.Execute(context.Background()))

	assert.Equal(t, 1, f.backend.completeCalls)
	assert.False(t, f.session.Completed())
	assert.Contains(t, actionNames(f.session.Actions()), domain.ActionComplete)
	assert.Empty(t, f.notifier.notified)
}

func TestExecutionSession_Complete(t *testing.T) {
	f := openSession(t, worksheet(
		vasTask("T1", 1, domain.TaskStatusDone),
		vasTask("T2", 1, domain.TaskStatusPending),
	))

	assert.ErrorIs(t, f.session.Complete(context.Background()), domain.ErrIncompleteOrder)
	assert.Zero(t, f.backend.completeCalls)

	f.backend.worksheet.Tasks[1].Status = domain.TaskStatusDone
	require.NoError(t, f.session.Refresh(context.Background()))
	assert.Equal(t, []string{domain.ActionComplete}, actionNames(f.session.Actions()))

	require.NoError(t, f.session.Complete(context.Background()))
	assert.True(t, f.session.Completed())
	assert.Equal(t, TriggerManual, f.journal.entries[0].Trigger)

	assert.ErrorIs(t, f.session.Complete(context.Background()), domain.ErrOrderAlreadyCompleted)
	assert.Equal(t, 1, f.backend.completeCalls)
}

func TestExecutionSession_Complete_NotifierFailureIsLogged(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusDone)))
	f.notifier.err = errors.New("workflow not found")

	require.NoError(t, f.session.Complete(context.Background()))
	assert.True(t, f.session.Completed())
	assert.Equal(t, []domain.JournalAction{domain.JournalOrderCompleted}, f.journal.actions())
}

func TestExecutionSession_Undo(t *testing.T) {
	tests := []struct {
		name   string
		target domain.TaskStatus
	}{
		{"default target", domain.TaskStatusExecuting},
		{"configured pending", domain.TaskStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusDone), vasTask("T2", 1, domain.TaskStatusPending)),
				func(d *SessionDeps) { d.Config = &SessionConfig{UndoTarget: tt.target} })

			require.NoError(t, f.session.Select("T1"))
			require.NoError(t, f.session.Undo(context.Background(), confirm(true)))

			assert.Equal(t, tt.target, f.backend.lastUndoTarget)
			assert.Equal(t, string(tt.target), f.session.View().Sets[0].Tasks[0].Status)
			require.Len(t, f.journal.entries, 1)
			assert.Equal(t, domain.JournalTaskUndone, f.journal.entries[0].Action)
			assert.Equal(t, tt.target, f.journal.entries[0].TargetStatus)
		})
	}
}

func TestExecutionSession_Undo_ReopensCompletedSet(t *testing.T) {
	f := openSession(t, worksheet(
		vasTask("T1", 1, domain.TaskStatusDone),
		vasTask("T2", 2, domain.TaskStatusPending),
	))

	before := f.session.View()
	assert.True(t, before.Sets[0].Completed)
	assert.False(t, before.Sets[1].Completed)

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.Undo(context.Background(), confirm(true)))

	after := f.session.View()
	assert.False(t, after.Sets[0].Completed)
	assert.Equal(t, "EXECUTING", after.Sets[0].Tasks[0].Status)
	assert.Zero(t, f.backend.completeCalls)
	assert.False(t, f.session.Completed())
}

func TestExecutionSession_Undo_Preconditions(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusDone), vasTask("T2", 1, domain.TaskStatusPending)))

	assert.ErrorIs(t, f.session.Undo(context.Background(), confirm(true)), domain.ErrNoSelection)

	require.NoError(t, f.session.Select("T2"))
	assert.ErrorIs(t, f.session.Undo(context.Background(), confirm(true)), domain.ErrTaskNotDone)

	require.NoError(t, f.session.Select("T1"))
	assert.ErrorIs(t, f.session.Undo(context.Background(), confirm(false)), domain.ErrUndoNotConfirmed)
	assert.ErrorIs(t, f.session.Undo(context.Background(), nil), domain.ErrUndoNotConfirmed)

	failing := domain.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		return false, errors.New("stdin closed")
	})
	assert.Error(t, f.session.Undo(context.Background(), failing))

	assert.Zero(t, f.backend.undoCalls)
	assert.Equal(t, "DONE", f.session.View().Sets[0].Tasks[0].Status)
}

func TestExecutionSession_JournalFailureDoesNotFailOperation(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)))
	f.journal.err = errors.New("no reachable servers")

	require.NoError(t, f.session.Select("T1"))
	require.NoError(t, f.session.Execute(context.Background()))
	assert.Equal(t, "DONE", f.session.View().Sets[0].Tasks[0].Status)
}

func TestExecutionSession_Refresh_DropsVanishedSelection(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending), vasTask("T2", 1, domain.TaskStatusPending)))
	require.NoError(t, f.session.Select("T2"))

	f.backend.worksheet.Tasks = f.backend.worksheet.Tasks[:1]
	require.NoError(t, f.session.Refresh(context.Background()))

	assert.Nil(t, f.session.View().Selection)
	assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrNoSelection)
}

func guided(task domain.Task, guideType, payload string) domain.Task {
	task.VAS = domain.VASRef{Name: guideType, GuideType: guideType}
	task.OperationGuide = json.RawMessage(payload)
	return task
}

func TestExecutionSession_Guides(t *testing.T) {
	f := openSession(t, worksheet(
		guided(vasTask("T1", 1, domain.TaskStatusPending), guides.TypeRepalletizing,
			`{"requiredPalletQty":2,"repalletizedInfo":[{"palletId":"P1"}]}`),
		guided(vasTask("T2", 1, domain.TaskStatusPending), guides.TypeRelabel, `{"labelQty":1}`),
		guided(vasTask("T3", 1, domain.TaskStatusPending), "vas-shrink-wrap", `{}`),
		vasTask("T4", 1, domain.TaskStatusPending),
	))

	t.Run("guide mid-operation blocks execute", func(t *testing.T) {
		require.NoError(t, f.session.Select("T1"))
		assert.Equal(t, []string{"register-pallet"}, actionNames(f.session.Actions()))
		assert.True(t, f.session.View().Selection.GuideExecuting)
		assert.Equal(t, "1/2 pallets registered", f.session.View().Selection.GuideProgress)
		assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrGuideIncomplete)
	})

	t.Run("invalid payload blocks execute", func(t *testing.T) {
		require.NoError(t, f.session.Select("T2"))
		assert.NotContains(t, actionNames(f.session.Actions()), domain.ActionExecute)
		assert.NotEmpty(t, f.session.View().Selection.GuideError)
		assert.ErrorIs(t, f.session.Execute(context.Background()), domain.ErrInvalidGuidePayload)
	})

	t.Run("unregistered guide executes plainly", func(t *testing.T) {
		require.NoError(t, f.session.Select("T3"))
		assert.Equal(t, []string{domain.ActionExecute}, actionNames(f.session.Actions()))
		assert.Empty(t, f.session.View().Selection.GuideProgress)
		require.NoError(t, f.session.Execute(context.Background()))
	})

	assert.Equal(t, 1, f.backend.executeCalls)
}

func TestExecutionSession_AddObserver(t *testing.T) {
	f := openSession(t, worksheet(vasTask("T1", 1, domain.TaskStatusPending)))
	require.NoError(t, f.session.Select("T1"))

	late := &recordingObserver{}
	f.session.AddObserver(late)
	assert.Equal(t, []string{domain.ActionExecute}, late.last())
}
