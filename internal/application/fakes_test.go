package application

import (
	"context"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/logging"
)

// fakeBackend plays the worksheet server: mutations change its worksheet
// and, unless noDelta is set, return the changed tasks.
type fakeBackend struct {
	mu         sync.Mutex
	worksheet  *domain.Worksheet
	candidates []domain.InventoryCandidate
	noDelta    bool
	completed  bool

	fetchErr      error
	executeErr    error
	undoErr       error
	completeErr   error
	candidatesErr error
	assignErr     error

	fetchCalls      int
	executeCalls    int
	undoCalls       int
	completeCalls   int
	candidatesCalls int
	assignCalls     int

	lastIssue      string
	lastUndoTarget domain.TaskStatus
	lastGroup      domain.TaskGroupRef
	lastLines      []domain.AllocationLine
}

func newFakeBackend(ws *domain.Worksheet) *fakeBackend {
	return &fakeBackend{worksheet: ws}
}

func (f *fakeBackend) FetchWorksheet(ctx context.Context, orderNo string) (*domain.Worksheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	ws := *f.worksheet
	ws.Tasks = append([]domain.Task(nil), f.worksheet.Tasks...)
	return &ws, nil
}

func (f *fakeBackend) task(name string) *domain.Task {
	for i := range f.worksheet.Tasks {
		if f.worksheet.Tasks[i].Name == name {
			return &f.worksheet.Tasks[i]
		}
	}
	return nil
}

func (f *fakeBackend) delta(names ...string) *domain.MutationResult {
	if f.noDelta {
		return &domain.MutationResult{}
	}
	result := &domain.MutationResult{}
	for _, name := range names {
		if t := f.task(name); t != nil {
			result.Tasks = append(result.Tasks, *t)
		}
	}
	return result
}

func (f *fakeBackend) ExecuteTask(ctx context.Context, ref domain.TaskRef, issue string) (*domain.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executeCalls++
	f.lastIssue = issue
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	t := f.task(ref.Name)
	t.Status = domain.TaskStatusDone
	t.Issue = issue
	return f.delta(ref.Name), nil
}

func (f *fakeBackend) UndoTask(ctx context.Context, ref domain.TaskRef, to domain.TaskStatus) (*domain.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.undoCalls++
	f.lastUndoTarget = to
	if f.undoErr != nil {
		return nil, f.undoErr
	}
	f.task(ref.Name).Status = to
	return f.delta(ref.Name), nil
}

func (f *fakeBackend) CompleteOrder(ctx context.Context, orderNo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.completeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = true
	f.worksheet.Status = "COMPLETED"
	return nil
}

func (f *fakeBackend) FetchCandidates(ctx context.Context, group domain.TaskGroupRef) ([]domain.InventoryCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.candidatesCalls++
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	return append([]domain.InventoryCandidate(nil), f.candidates...), nil
}

func (f *fakeBackend) AssignInventory(ctx context.Context, group domain.TaskGroupRef, lines []domain.AllocationLine) (*domain.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.assignCalls++
	f.lastGroup = group
	f.lastLines = append([]domain.AllocationLine(nil), lines...)
	if f.assignErr != nil {
		return nil, f.assignErr
	}

	total := 0
	for _, l := range lines {
		total += l.Qty
	}
	for _, name := range group.TaskNames {
		f.task(name).Allocation = &domain.Allocation{TaskNames: group.TaskNames, Lines: lines, TotalSelected: total}
	}
	return f.delta(group.TaskNames...), nil
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
	err     error
}

func (j *fakeJournal) Record(ctx context.Context, entry *domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, *entry)
	return nil
}

func (j *fakeJournal) actions() []domain.JournalAction {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.JournalAction, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Action
	}
	return out
}

type fakeNotifier struct {
	notified []string
	err      error
}

func (n *fakeNotifier) NotifyOrderCompleted(ctx context.Context, orderNo string) error {
	n.notified = append(n.notified, orderNo)
	return n.err
}

type recordingObserver struct {
	mu    sync.Mutex
	calls [][]domain.ContextAction
}

func (o *recordingObserver) OnContextActions(orderNo string, actions []domain.ContextAction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, actions)
}

func (o *recordingObserver) last() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.calls) == 0 {
		return nil
	}
	return actionNames(o.calls[len(o.calls)-1])
}

func actionNames(actions []domain.ContextAction) []string {
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.Name)
	}
	return names
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "vas-service-test",
		Output:      io.Discard,
	})
}

func vasTask(name string, set int, status domain.TaskStatus) domain.Task {
	return domain.Task{
		Name:        name,
		Set:         set,
		Target:      domain.Target{Type: domain.TargetTypeBatch, BatchID: "BATCH-1"},
		PackingType: "BOX",
		Qty:         10,
		UOMValue:    decimal.NewFromInt(1),
		UOM:         "EA",
		Status:      status,
		VAS:         domain.VASRef{Name: "Labeling"},
	}
}

func worksheet(tasks ...domain.Task) *domain.Worksheet {
	return &domain.Worksheet{
		OrderNo:   "VAS-0001",
		OrderType: domain.OrderTypeVAS,
		Status:    "PROCESSING",
		Tasks:     tasks,
	}
}
