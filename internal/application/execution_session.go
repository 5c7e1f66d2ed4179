package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/logging"
)

// Completion triggers
const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// ExecutionSession drives one VAS order: selection, execute and undo,
// inventory allocation, and order completion. Operations are serialized
// so no two backend round trips for the order overlap.
type ExecutionSession struct {
	mu sync.Mutex

	orderNo   string
	deps      SessionDeps
	logger    *logging.Logger
	observers []domain.ContextActionObserver

	order      *domain.Order
	selected   string
	issue      string
	guide      domain.OperationGuide
	guideErr   error
	allocation *AllocationSession
	actions    []domain.ContextAction

	// stale is set when the backend accepted a mutation but the worksheet
	// could not be re-read afterwards
	stale               bool
	autoCompletePending bool
}

// OpenExecutionSession fetches the worksheet and starts a session on it
func OpenExecutionSession(ctx context.Context, orderNo string, deps SessionDeps, observers ...domain.ContextActionObserver) (*ExecutionSession, error) {
	deps = deps.withDefaults()

	ws, err := deps.Backend.FetchWorksheet(ctx, orderNo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch worksheet: %w", remote("fetchWorksheet", err))
	}

	s := &ExecutionSession{
		orderNo:   orderNo,
		deps:      deps,
		logger:    deps.Logger.WithComponent("execution-session").WithOrder(orderNo),
		observers: observers,
		order:     domain.NewOrder(ws),
	}

	s.logger.Info("Execution session opened",
		"orderType", ws.OrderType,
		"setCount", len(s.order.Sets),
		"taskCount", s.order.TaskCount(),
	)

	s.transitioned()
	return s, nil
}

// OrderNo returns the order the session drives
func (s *ExecutionSession) OrderNo() string {
	return s.orderNo
}

// AddObserver registers another context action observer and sends it the current actions
func (s *ExecutionSession) AddObserver(observer domain.ContextActionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, observer)
	observer.OnContextActions(s.orderNo, s.copyActions())
}

// Refresh re-fetches the whole worksheet
func (s *ExecutionSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refetch(ctx); err != nil {
		return err
	}
	s.refreshed(ctx)
	return nil
}

// Select makes name the active task; an empty name clears the selection
func (s *ExecutionSession) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		s.clearSelection()
		s.transitioned()
		return nil
	}

	task, ok := s.order.FindTask(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, name)
	}

	if s.selected != name {
		s.allocation = nil
		s.selected = name
		s.issue = task.Issue
	}
	s.transitioned()
	return nil
}

// ClearSelection drops the active task and any allocation draft
func (s *ExecutionSession) ClearSelection() {
	_ = s.Select("")
}

// SetIssue edits the issue text sent with the next execute of the selected task
func (s *ExecutionSession) SetIssue(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.selectedTask(); err != nil {
		return err
	}
	s.issue = text
	return nil
}

// Execute moves the selected task to done. When every set is then
// complete the order is completed too; that failing is only logged.
func (s *ExecutionSession) Execute(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}
	task, err := s.selectedTask()
	if err != nil {
		return err
	}
	if err := task.CheckExecutable(); err != nil {
		return err
	}
	if s.guideErr != nil {
		return s.guideErr
	}
	if s.guide != nil {
		if err := s.guide.CheckExecutionValidity(); err != nil {
			return err
		}
	}

	name, set, issue, guideType := task.Name, task.Set, s.issue, task.VAS.GuideType
	started := time.Now()
	result, err := s.deps.Backend.ExecuteTask(ctx, task.Ref(s.orderNo), issue)
	s.backendCall(ctx, "executeTask", started, err)
	if err != nil {
		return fmt.Errorf("failed to execute task %s: %w", name, remote("executeTask", err))
	}

	s.logger.Audit(ctx, "execute", "task", name, map[string]any{"orderNo": s.orderNo, "issue": issue})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordTaskExecuted(guideType)
	}
	s.record(ctx, &domain.JournalEntry{
		Action:    domain.JournalTaskExecuted,
		TaskNames: []string{name},
		Set:       set,
		Issue:     issue,
	})

	if err := s.refreshAfter(ctx, result); err != nil {
		s.autoCompletePending = true
		return err
	}
	s.transitioned()
	s.autoComplete(ctx)
	return nil
}

// Undo reopens the selected done task after the confirmer agrees
func (s *ExecutionSession) Undo(ctx context.Context, confirmer domain.Confirmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}
	task, err := s.selectedTask()
	if err != nil {
		return err
	}
	target := s.deps.Config.UndoTarget
	if err := task.CheckUndoable(target); err != nil {
		return err
	}

	if confirmer == nil {
		return domain.ErrUndoNotConfirmed
	}
	ok, err := confirmer.Confirm(ctx, fmt.Sprintf("Undo task %s (back to %s)?", task.Name, target))
	if err != nil {
		return fmt.Errorf("failed to confirm undo: %w", err)
	}
	if !ok {
		return domain.ErrUndoNotConfirmed
	}

	name, set := task.Name, task.Set
	started := time.Now()
	result, err := s.deps.Backend.UndoTask(ctx, task.Ref(s.orderNo), target)
	s.backendCall(ctx, "undoTask", started, err)
	if err != nil {
		return fmt.Errorf("failed to undo task %s: %w", name, remote("undoTask", err))
	}

	s.logger.Audit(ctx, "undo", "task", name, map[string]any{"orderNo": s.orderNo, "targetStatus": target})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordTaskUndone(string(target))
	}
	s.record(ctx, &domain.JournalEntry{
		Action:       domain.JournalTaskUndone,
		TaskNames:    []string{name},
		Set:          set,
		TargetStatus: target,
	})

	if err := s.refreshAfter(ctx, result); err != nil {
		return err
	}
	s.transitioned()
	return nil
}

// Complete closes the order once every set is complete
func (s *ExecutionSession) Complete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}
	return s.complete(ctx, TriggerManual)
}

func (s *ExecutionSession) complete(ctx context.Context, trigger string) error {
	if err := s.order.CheckCompletable(); err != nil {
		return err
	}

	setCount, taskCount := len(s.order.Sets), s.order.TaskCount()
	started := time.Now()
	err := s.deps.Backend.CompleteOrder(ctx, s.orderNo)
	s.backendCall(ctx, "completeOrder", started, err)
	if err != nil {
		return fmt.Errorf("failed to complete order %s: %w", s.orderNo, remote("completeOrder", err))
	}

	s.order.MarkCompleted()
	s.clearSelection()

	s.logger.Audit(ctx, "complete", "order", s.orderNo, map[string]any{"trigger": trigger, "setCount": setCount})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordOrderCompleted(trigger)
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifyOrderCompleted(ctx, s.orderNo); err != nil {
			s.logger.WithError(err).Warn("Failed to notify order completion")
		}
	}
	s.record(ctx, &domain.JournalEntry{
		Action:    domain.JournalOrderCompleted,
		Trigger:   trigger,
		SetCount:  setCount,
		TaskCount: taskCount,
	})
	s.transitioned()
	return nil
}

// OpenAllocation starts an allocation draft for the selected task's group
func (s *ExecutionSession) OpenAllocation(ctx context.Context) (*AllocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	task, err := s.selectedTask()
	if err != nil {
		return nil, err
	}
	group, err := domain.NewTaskGroup(s.order, task.Name)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	alloc, err := newAllocationSession(ctx, s.deps.Backend, group)
	s.backendCall(ctx, "fetchCandidates", started, err)
	if err != nil {
		return nil, err
	}

	s.allocation = alloc
	s.logger.Info("Allocation started",
		"taskNames", group.TaskNames,
		"requiredQty", group.RequiredQty,
		"candidateCount", len(alloc.View().Candidates),
	)
	s.transitioned()
	return alloc.View(), nil
}

// Allocation returns the open draft
func (s *ExecutionSession) Allocation() (*AllocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocation == nil {
		return nil, domain.ErrNoAllocationSession
	}
	return s.allocation.View(), nil
}

// SetSelectedQty edits the open draft
func (s *ExecutionSession) SetSelectedQty(candidateID string, qty int) (*AllocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocation == nil {
		return nil, domain.ErrNoAllocationSession
	}
	if err := s.allocation.SetSelectedQty(candidateID, qty); err != nil {
		return nil, err
	}
	return s.allocation.View(), nil
}

// AutoSelect fills the open draft first-fit
func (s *ExecutionSession) AutoSelect() (*AllocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocation == nil {
		return nil, domain.ErrNoAllocationSession
	}
	s.allocation.AutoSelect()
	return s.allocation.View(), nil
}

// CommitAllocation assigns the draft to every task of the group in one call
func (s *ExecutionSession) CommitAllocation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}
	if s.allocation == nil {
		return domain.ErrNoAllocationSession
	}
	group := s.allocation.Group()
	alloc, err := s.allocation.draft.Build()
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := s.deps.Backend.AssignInventory(ctx, group, alloc.Lines)
	s.backendCall(ctx, "assignInventory", started, err)
	if err != nil {
		return fmt.Errorf("failed to assign inventory: %w", remote("assignInventory", err))
	}

	mode := s.allocation.Mode()
	s.allocation = nil

	s.logger.Audit(ctx, "allocate", "taskGroup", group.TaskNames[0], map[string]any{
		"orderNo":   s.orderNo,
		"taskNames": group.TaskNames,
		"qty":       alloc.TotalSelected,
		"mode":      mode,
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordAllocationCommitted(mode, alloc.TotalSelected)
	}
	s.record(ctx, &domain.JournalEntry{
		Action:    domain.JournalInventoryAssigned,
		TaskNames: alloc.TaskNames,
		Set:       group.Set,
		Lines:     alloc.Lines,
	})

	if err := s.refreshAfter(ctx, result); err != nil {
		return err
	}
	s.transitioned()
	return nil
}

// DiscardAllocation drops the open draft without touching the backend
func (s *ExecutionSession) DiscardAllocation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocation == nil {
		return domain.ErrNoAllocationSession
	}
	s.allocation = nil
	s.transitioned()
	return nil
}

// Actions returns the actions allowed in the current state
func (s *ExecutionSession) Actions() []domain.ContextAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyActions()
}

// View renders the session
func (s *ExecutionSession) View() *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &SessionView{
		OrderNo:    s.order.OrderNo,
		OrderType:  string(s.order.Type),
		Status:     s.order.Status,
		Completed:  s.order.Completed,
		TaskCount:  s.order.TaskCount(),
		Sets:       ToSetViews(s.order.Sets),
		Allocating: s.allocation != nil,
		Stale:      s.stale,
		Actions:    s.copyActions(),
	}
	if task, err := s.selectedTask(); err == nil {
		sel := &SelectionView{
			Task:  ToTaskView(task),
			Issue: s.issue,
		}
		if s.guide != nil {
			sel.GuideExecuting = s.guide.IsExecuting()
			if p, ok := s.guide.(domain.GuideProgress); ok {
				sel.GuideProgress = p.Progress()
			}
		}
		if s.guideErr != nil {
			sel.GuideError = s.guideErr.Error()
		}
		view.Selection = sel
	}
	return view
}

// Completed reports whether this session closed the order
func (s *ExecutionSession) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order.Completed
}

func (s *ExecutionSession) selectedTask() (*domain.Task, error) {
	if s.selected == "" {
		return nil, domain.ErrNoSelection
	}
	task, ok := s.order.FindTask(s.selected)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, s.selected)
	}
	return task, nil
}

func (s *ExecutionSession) clearSelection() {
	s.selected = ""
	s.issue = ""
	s.allocation = nil
}

// apply folds a mutation result into the order, re-fetching when it cannot be merged
func (s *ExecutionSession) apply(ctx context.Context, result *domain.MutationResult) error {
	if !s.deps.Config.AlwaysFullRefresh && result != nil && s.order.Merge(result.Tasks) {
		return nil
	}
	return s.refetch(ctx)
}

func (s *ExecutionSession) refetch(ctx context.Context) error {
	started := time.Now()
	ws, err := s.deps.Backend.FetchWorksheet(ctx, s.orderNo)
	s.backendCall(ctx, "fetchWorksheet", started, err)
	if err != nil {
		return fmt.Errorf("failed to refresh worksheet: %w", remote("fetchWorksheet", err))
	}
	s.order.Reload(ws)
	return nil
}

// refreshAfter folds the result of a mutation the backend already accepted.
// A failed refresh marks the session stale instead of undoing anything.
func (s *ExecutionSession) refreshAfter(ctx context.Context, result *domain.MutationResult) error {
	if err := s.apply(ctx, result); err != nil {
		s.stale = true
		s.logger.WithError(err).Warn("Worksheet refresh failed after an accepted mutation")
		s.transitioned()
		return fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
	}
	return nil
}

// ensureFresh re-reads a stale worksheet before the next backend mutation,
// so a change the server already holds is never sent twice
func (s *ExecutionSession) ensureFresh(ctx context.Context) error {
	if !s.stale {
		return nil
	}
	if err := s.refetch(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
	}
	s.refreshed(ctx)
	return nil
}

// refreshed runs after a successful full re-fetch, including the
// auto-complete a failed refresh postponed
func (s *ExecutionSession) refreshed(ctx context.Context) {
	s.stale = false
	s.transitioned()
	if s.autoCompletePending {
		s.autoCompletePending = false
		s.autoComplete(ctx)
	}
}

func (s *ExecutionSession) autoComplete(ctx context.Context) {
	if !s.order.AllSetsComplete() {
		return
	}
	if err := s.complete(ctx, TriggerAuto); err != nil {
		s.logger.WithError(err).Warn("Auto-complete failed")
	}
}

// transitioned re-derives the selection's guide and the allowed actions,
// then tells every observer
func (s *ExecutionSession) transitioned() {
	s.guide, s.guideErr = nil, nil

	task, err := s.selectedTask()
	if err != nil && s.selected != "" {
		s.logger.WithTask(s.selected).Info("Selected task left the worksheet, clearing selection")
		s.clearSelection()
	}
	if task != nil {
		s.guide, s.guideErr = s.deps.Guides.Resolve(task)
		if errors.Is(s.guideErr, domain.ErrUnknownGuide) {
			s.logger.WithTask(task.Name).Warn("No guide registered, executing without one", "guideType", task.VAS.GuideType)
			s.guideErr = nil
		}
	}

	s.actions = s.computeActions(task)
	for _, observer := range s.observers {
		observer.OnContextActions(s.orderNo, s.copyActions())
	}
}

func (s *ExecutionSession) computeActions(task *domain.Task) []domain.ContextAction {
	var actions []domain.ContextAction
	add := func(name, label string) {
		actions = append(actions, domain.ContextAction{Name: name, Label: label, Source: "session"})
	}

	if s.stale {
		add(domain.ActionRefresh, "Refresh worksheet")
	}

	guideBusy := s.guide != nil && s.guide.IsExecuting()
	if task != nil {
		if task.NeedsAllocation() && !task.IsDone() {
			add(domain.ActionAllocate, "Allocate inventory")
		}
		if task.CheckExecutable() == nil && s.guideErr == nil && !guideBusy {
			add(domain.ActionExecute, "Execute")
		}
		if task.IsDone() && !guideBusy {
			add(domain.ActionUndo, "Undo")
		}
	}
	if s.order.CheckCompletable() == nil {
		add(domain.ActionComplete, "Complete order")
	}
	if s.guide != nil {
		actions = append(actions, s.guide.ContextActions()...)
	}
	return actions
}

func (s *ExecutionSession) copyActions() []domain.ContextAction {
	return append([]domain.ContextAction(nil), s.actions...)
}

func (s *ExecutionSession) backendCall(ctx context.Context, operation string, started time.Time, err error) {
	duration := time.Since(started)
	s.logger.BackendCall(ctx, operation, duration, err)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordBackendCall(operation, err == nil, duration)
	}
}

// record writes a journal entry; the backend already holds the truth, so failures are only logged
func (s *ExecutionSession) record(ctx context.Context, entry *domain.JournalEntry) {
	if s.deps.Journal == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.OrderNo = s.orderNo
	entry.RecordedAt = time.Now().UTC()

	err := s.deps.Journal.Record(ctx, entry)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordJournalWrite(string(entry.Action), err == nil)
	}
	if err != nil {
		s.logger.WithError(err).Warn("Failed to record journal entry", "action", entry.Action)
	}
}

// remote keeps backend errors as RemoteError
func remote(operation string, err error) error {
	if domain.IsRemote(err) {
		return err
	}
	return domain.NewRemoteError(operation, err)
}
