package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/vas-service/internal/domain"
)

// Allocation modes, used to label committed allocations
const (
	AllocationModeManual = "manual"
	AllocationModeAuto   = "auto"
)

// AllocationSession edits the inventory draft for one task group.
// It lives inside an execution session, which serializes access to it.
type AllocationSession struct {
	draft *domain.AllocationDraft
	mode  string
}

// newAllocationSession fetches the candidates for the group and starts an empty draft
func newAllocationSession(ctx context.Context, provider domain.InventoryCandidateProvider, group domain.TaskGroupRef) (*AllocationSession, error) {
	candidates, err := provider.FetchCandidates(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory candidates: %w", remote("fetchCandidates", err))
	}
	return &AllocationSession{
		draft: domain.NewAllocationDraft(group, candidates),
		mode:  AllocationModeManual,
	}, nil
}

// SetSelectedQty changes the quantity taken from one candidate
func (a *AllocationSession) SetSelectedQty(candidateID string, qty int) error {
	if err := a.draft.SetSelectedQty(candidateID, qty); err != nil {
		return err
	}
	a.mode = AllocationModeManual
	return nil
}

// AutoSelect fills the requirement first-fit in candidate order
func (a *AllocationSession) AutoSelect() {
	a.draft.AutoSelect()
	a.mode = AllocationModeAuto
}

// Group returns the task group being allocated
func (a *AllocationSession) Group() domain.TaskGroupRef {
	return a.draft.Group()
}

// Mode reports whether the current selection came from auto-select
func (a *AllocationSession) Mode() string {
	return a.mode
}

// View renders the draft
func (a *AllocationSession) View() *AllocationView {
	return ToAllocationView(a.draft)
}
