package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"

	"github.com/wms-platform/vas-service/internal/application/guides"
	"github.com/wms-platform/vas-service/internal/domain"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeSessionScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

var featureErrors = map[string]error{
	"no selection":               domain.ErrNoSelection,
	"undo not confirmed":         domain.ErrUndoNotConfirmed,
	"insufficient allocation":    domain.ErrInsufficientAllocation,
	"excess allocation":          domain.ErrExcessAllocation,
	"quantity exceeds available": domain.ErrQuantityExceedsAvailable,
	"quantity exceeds required":  domain.ErrQuantityExceedsRequired,
	"incomplete order":           domain.ErrIncompleteOrder,
}

type sessionScenario struct {
	candidates []domain.InventoryCandidate
	backend    *fakeBackend
	session    *ExecutionSession
	err        error
}

func (sc *sessionScenario) reset() {
	sc.candidates = nil
	sc.backend = nil
	sc.session = nil
	sc.err = nil
}

func (sc *sessionScenario) open(ws *domain.Worksheet) error {
	sc.backend = newFakeBackend(ws)
	sc.backend.candidates = sc.candidates

	session, err := OpenExecutionSession(context.Background(), ws.OrderNo, SessionDeps{
		Backend: sc.backend,
		Guides:  guides.NewRegistry(),
		Logger:  testLogger(),
	})
	if err != nil {
		return err
	}
	sc.session = session
	return nil
}

func (sc *sessionScenario) inventoryCandidates(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		available, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return err
		}
		sc.candidates = append(sc.candidates, candidate(row.Cells[0].Value, available))
	}
	return nil
}

func (sc *sessionScenario) anOrderWithInventoryTask(orderNo, name string, set, qty int) error {
	ws := worksheet(inventoryTask(name, set, qty))
	ws.OrderNo = orderNo
	return sc.open(ws)
}

func (sc *sessionScenario) anOrderWithTasks(orderNo string, table *godog.Table) error {
	ws := worksheet()
	ws.OrderNo = orderNo
	for _, row := range table.Rows[1:] {
		set, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return err
		}
		ws.Tasks = append(ws.Tasks, vasTask(row.Cells[0].Value, set, domain.TaskStatus(row.Cells[2].Value)))
	}
	return sc.open(ws)
}

func (sc *sessionScenario) selectsTask(name string) error {
	sc.err = sc.session.Select(name)
	return nil
}

func (sc *sessionScenario) opensAllocation() error {
	_, sc.err = sc.session.OpenAllocation(context.Background())
	return nil
}

func (sc *sessionScenario) autoSelects() error {
	_, sc.err = sc.session.AutoSelect()
	return nil
}

func (sc *sessionScenario) setsCandidate(id string, qty int) error {
	_, sc.err = sc.session.SetSelectedQty(id, qty)
	return nil
}

func (sc *sessionScenario) commits() error {
	sc.err = sc.session.CommitAllocation(context.Background())
	return nil
}

func (sc *sessionScenario) executes() error {
	sc.err = sc.session.Execute(context.Background())
	return nil
}

func (sc *sessionScenario) undoes(answer string) error {
	sc.err = sc.session.Undo(context.Background(), confirm(answer == "confirms"))
	return nil
}

func (sc *sessionScenario) operationSucceeds() error {
	if sc.err != nil {
		return fmt.Errorf("expected success, got %v", sc.err)
	}
	return nil
}

func (sc *sessionScenario) operationFailsWith(name string) error {
	target, ok := featureErrors[name]
	if !ok {
		return fmt.Errorf("unknown error name %q", name)
	}
	if !errors.Is(sc.err, target) {
		return fmt.Errorf("expected %v, got %v", target, sc.err)
	}
	return nil
}

func (sc *sessionScenario) candidateHasSelected(id string, qty int) error {
	view, err := sc.session.Allocation()
	if err != nil {
		return err
	}
	for _, c := range view.Candidates {
		if c.ID == id {
			if c.SelectedQty != qty {
				return fmt.Errorf("candidate %s: expected %d selected, got %d", id, qty, c.SelectedQty)
			}
			return nil
		}
	}
	return fmt.Errorf("candidate %s not in allocation", id)
}

func (sc *sessionScenario) selectedTotalIs(total int) error {
	view, err := sc.session.Allocation()
	if err != nil {
		return err
	}
	if view.TotalSelected != total {
		return fmt.Errorf("expected total %d, got %d", total, view.TotalSelected)
	}
	return nil
}

func (sc *sessionScenario) setCompletion(ordinal int, not string) error {
	for _, set := range sc.session.View().Sets {
		if set.Set == ordinal {
			if want := not == ""; set.Completed != want {
				return fmt.Errorf("set %d: expected completed=%v", ordinal, want)
			}
			return nil
		}
	}
	return fmt.Errorf("set %d not found", ordinal)
}

func (sc *sessionScenario) orderCompletion(not string) error {
	if want := not == ""; sc.session.Completed() != want {
		return fmt.Errorf("expected order completed=%v", want)
	}
	return nil
}

func (sc *sessionScenario) taskHasStatus(name, status string) error {
	for _, set := range sc.session.View().Sets {
		for _, task := range set.Tasks {
			if task.Name == name {
				if task.Status != status {
					return fmt.Errorf("task %s: expected %s, got %s", name, status, task.Status)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("task %s not found", name)
}

func (sc *sessionScenario) backendReceived(count int, kind string) error {
	var got int
	switch kind {
	case "inventory assignment", "inventory assignments":
		got = sc.backend.assignCalls
	case "order completion", "order completions":
		got = sc.backend.completeCalls
	case "undo call", "undo calls":
		got = sc.backend.undoCalls
	default:
		return fmt.Errorf("unknown backend call %q", kind)
	}
	if got != count {
		return fmt.Errorf("expected %d %s, got %d", count, kind, got)
	}
	return nil
}

func InitializeSessionScenario(ctx *godog.ScenarioContext) {
	sc := &sessionScenario{}

	ctx.Before(func(c context.Context, s *godog.Scenario) (context.Context, error) {
		sc.reset()
		return c, nil
	})

	ctx.Step(`^inventory candidates:$`, sc.inventoryCandidates)
	ctx.Step(`^an order "([^"]*)" with a task "([^"]*)" in set (\d+) requiring (\d+) units of inventory$`, sc.anOrderWithInventoryTask)
	ctx.Step(`^an order "([^"]*)" with tasks:$`, sc.anOrderWithTasks)

	ctx.Step(`^the operator selects task "([^"]*)"$`, sc.selectsTask)
	ctx.Step(`^the operator opens an allocation$`, sc.opensAllocation)
	ctx.Step(`^the operator auto-selects inventory$`, sc.autoSelects)
	ctx.Step(`^the operator sets candidate "([^"]*)" to (\d+)$`, sc.setsCandidate)
	ctx.Step(`^the operator commits the allocation$`, sc.commits)
	ctx.Step(`^the operator executes the selected task$`, sc.executes)
	ctx.Step(`^the operator undoes the selected task and (confirms|declines)$`, sc.undoes)

	ctx.Step(`^the operation succeeds$`, sc.operationSucceeds)
	ctx.Step(`^the operation fails with "([^"]*)"$`, sc.operationFailsWith)
	ctx.Step(`^candidate "([^"]*)" has (\d+) selected$`, sc.candidateHasSelected)
	ctx.Step(`^the selected total is (\d+)$`, sc.selectedTotalIs)
	ctx.Step(`^set (\d+) is (not )?complete$`, sc.setCompletion)
	ctx.Step(`^the order is (not )?completed$`, sc.orderCompletion)
	ctx.Step(`^task "([^"]*)" is "([^"]*)"$`, sc.taskHasStatus)
	ctx.Step(`^the backend received (\d+) (inventory assignments?|order completions?|undo calls?)$`, sc.backendReceived)
}
