package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/internal/infrastructure/localstate"
	"github.com/wms-platform/vas-service/pkg/logging"
)

type stubBackend struct {
	mu         sync.Mutex
	worksheet  *domain.Worksheet
	candidates []domain.InventoryCandidate
	lastIssue  string
	assigned   []domain.AllocationLine
	completed  bool
}

func (b *stubBackend) FetchWorksheet(ctx context.Context, orderNo string) (*domain.Worksheet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws := *b.worksheet
	ws.Tasks = append([]domain.Task(nil), b.worksheet.Tasks...)
	return &ws, nil
}

func (b *stubBackend) task(name string) *domain.Task {
	for i := range b.worksheet.Tasks {
		if b.worksheet.Tasks[i].Name == name {
			return &b.worksheet.Tasks[i]
		}
	}
	return nil
}

func (b *stubBackend) ExecuteTask(ctx context.Context, ref domain.TaskRef, issue string) (*domain.MutationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastIssue = issue
	t := b.task(ref.Name)
	t.Status = domain.TaskStatusDone
	t.Issue = issue
	return &domain.MutationResult{Tasks: []domain.Task{*t}}, nil
}

func (b *stubBackend) UndoTask(ctx context.Context, ref domain.TaskRef, to domain.TaskStatus) (*domain.MutationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.task(ref.Name)
	t.Status = to
	return &domain.MutationResult{Tasks: []domain.Task{*t}}, nil
}

func (b *stubBackend) CompleteOrder(ctx context.Context, orderNo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = true
	b.worksheet.Status = "COMPLETED"
	return nil
}

func (b *stubBackend) FetchCandidates(ctx context.Context, group domain.TaskGroupRef) ([]domain.InventoryCandidate, error) {
	return b.candidates, nil
}

func (b *stubBackend) AssignInventory(ctx context.Context, group domain.TaskGroupRef, lines []domain.AllocationLine) (*domain.MutationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assigned = lines

	total := 0
	for _, l := range lines {
		total += l.Qty
	}
	result := &domain.MutationResult{}
	for _, name := range group.TaskNames {
		t := b.task(name)
		t.Allocation = &domain.Allocation{TaskNames: group.TaskNames, Lines: lines, TotalSelected: total}
		result.Tasks = append(result.Tasks, *t)
	}
	return result, nil
}

func task(name string, set int, requiresInventory bool) domain.Task {
	return domain.Task{
		Name:              name,
		Set:               set,
		Target:            domain.Target{Type: domain.TargetTypeBatch, BatchID: "BATCH-1"},
		PackingType:       "BOX",
		Qty:               10,
		UOMValue:          decimal.NewFromInt(1),
		Status:            domain.TaskStatusPending,
		RequiresInventory: requiresInventory,
		VAS:               domain.VASRef{Name: "Labeling"},
	}
}

func newBackend(tasks ...domain.Task) *stubBackend {
	return &stubBackend{
		worksheet: &domain.Worksheet{
			OrderNo:   "VAS-0001",
			OrderType: domain.OrderTypeVAS,
			Status:    "PROCESSING",
			Tasks:     tasks,
		},
		candidates: []domain.InventoryCandidate{
			{ID: "C1", PalletID: "P1", BatchID: "BATCH-1", AvailableQty: 6, Location: "A-01"},
			{ID: "C2", PalletID: "P2", BatchID: "BATCH-1", AvailableQty: 5, Location: "A-02"},
		},
	}
}

type testApp struct {
	*App
	out *bytes.Buffer
}

func newTestApp(t *testing.T, backend domain.Backend) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	store, err := localstate.NewStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	out := &bytes.Buffer{}
	return &testApp{
		App: &App{
			Config:  DefaultConfig(),
			Backend: backend,
			Store:   store,
			Logger:  logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "vasctl-test", Output: io.Discard}),
			Out:     out,
			In:      strings.NewReader(""),
			ErrOut:  io.Discard,
		},
		out: out,
	}
}

// run executes one vasctl invocation and returns what it printed
func (a *testApp) run(args ...string) (string, error) {
	a.out.Reset()
	cmd := NewRootCommand(a.App)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return a.out.String(), err
}

func (a *testApp) state(t *testing.T) *localstate.SessionState {
	t.Helper()
	state, err := a.Store.Load(context.Background(), "VAS-0001")
	require.NoError(t, err)
	return state
}
