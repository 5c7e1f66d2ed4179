package domain

import "fmt"

// AllocationLine is the quantity taken from one candidate
type AllocationLine struct {
	CandidateID string `json:"candidateId"`
	Qty         int    `json:"qty"`
}

// Allocation is a committed mapping of candidates to quantities for a task group
type Allocation struct {
	TaskNames     []string         `json:"taskNames"`
	Lines         []AllocationLine `json:"lines"`
	TotalSelected int              `json:"totalSelected"`
}

// TaskGroupRef identifies the tasks one allocation satisfies at once
type TaskGroupRef struct {
	OrderNo     string    `json:"orderNo"`
	OrderType   OrderType `json:"orderType"`
	Set         int       `json:"set"`
	Target      Target    `json:"target"`
	PackingType string    `json:"packingType"`
	TaskNames   []string  `json:"taskNames"`
	RequiredQty int       `json:"requiredQty"`
}

// NewTaskGroup builds the group around taskName: every task of the same set
// with the same target, packing type and quantity that still waits for inventory.
func NewTaskGroup(order *Order, taskName string) (TaskGroupRef, error) {
	anchor, ok := order.FindTask(taskName)
	if !ok {
		return TaskGroupRef{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskName)
	}
	if !anchor.RequiresInventory {
		return TaskGroupRef{}, ErrNoInventoryRequired
	}
	if anchor.Allocation != nil {
		return TaskGroupRef{}, ErrAlreadyAllocated
	}
	if anchor.IsDone() {
		return TaskGroupRef{}, ErrTaskAlreadyDone
	}

	group := TaskGroupRef{
		OrderNo:     order.OrderNo,
		OrderType:   order.Type,
		Set:         anchor.Set,
		Target:      anchor.Target,
		PackingType: anchor.PackingType,
		RequiredQty: anchor.Qty,
	}
	for _, task := range order.Tasks() {
		if task.Set == anchor.Set &&
			task.Target == anchor.Target &&
			task.PackingType == anchor.PackingType &&
			task.Qty == anchor.Qty &&
			task.NeedsAllocation() &&
			!task.IsDone() {
			group.TaskNames = append(group.TaskNames, task.Name)
		}
	}
	return group, nil
}

// AllocationDraft is the editable, client-side allocation for one task group
type AllocationDraft struct {
	group      TaskGroupRef
	candidates []CandidateSelection
}

// NewAllocationDraft starts a draft with nothing selected
func NewAllocationDraft(group TaskGroupRef, candidates []InventoryCandidate) *AllocationDraft {
	d := &AllocationDraft{group: group}
	d.candidates = make([]CandidateSelection, len(candidates))
	for i, c := range candidates {
		d.candidates[i] = CandidateSelection{InventoryCandidate: c}
	}
	return d
}

// Group returns the task group the draft allocates for
func (d *AllocationDraft) Group() TaskGroupRef {
	return d.group
}

// RequiredQty returns the quantity the selection must sum to
func (d *AllocationDraft) RequiredQty() int {
	return d.group.RequiredQty
}

// Candidates returns a copy of the candidates with their selected quantities
func (d *AllocationDraft) Candidates() []CandidateSelection {
	return append([]CandidateSelection(nil), d.candidates...)
}

// TotalSelected sums the selected quantities
func (d *AllocationDraft) TotalSelected() int {
	total := 0
	for _, c := range d.candidates {
		if c.Selected() {
			total += c.SelectedQty
		}
	}
	return total
}

// SetSelectedQty changes one candidate's quantity. A rejected edit leaves
// the previous value in place.
func (d *AllocationDraft) SetSelectedQty(candidateID string, qty int) error {
	idx := -1
	for i := range d.candidates {
		if d.candidates[i].ID == candidateID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
	}

	c := d.candidates[idx]
	if qty < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if qty > c.AvailableQty {
		return fmt.Errorf("%w: %d > %d on %s", ErrQuantityExceedsAvailable, qty, c.AvailableQty, c.PalletID)
	}
	if total := d.TotalSelected() - c.SelectedQty + qty; total > d.group.RequiredQty {
		return fmt.Errorf("%w: %d > %d", ErrQuantityExceedsRequired, total, d.group.RequiredQty)
	}

	d.candidates[idx].SelectedQty = qty
	return nil
}

// AutoSelect fills the requirement greedily in candidate order: whole lots
// while they fit, then the remainder from the next lot. Later lots stay at zero.
func (d *AllocationDraft) AutoSelect() {
	d.Reset()
	required := d.group.RequiredQty
	running := 0

	for i := range d.candidates {
		c := &d.candidates[i]
		if running >= required {
			continue
		}
		if running+c.AvailableQty <= required {
			c.SelectedQty = c.AvailableQty
			running += c.AvailableQty
			continue
		}
		c.SelectedQty = required - running
		running = required
	}
}

// Reset clears every selection
func (d *AllocationDraft) Reset() {
	for i := range d.candidates {
		d.candidates[i].SelectedQty = 0
	}
}

// Validate checks the commit precondition: the selection sums exactly to the requirement
func (d *AllocationDraft) Validate() error {
	total := d.TotalSelected()
	switch {
	case total < d.group.RequiredQty:
		return fmt.Errorf("%w: %d < %d", ErrInsufficientAllocation, total, d.group.RequiredQty)
	case total > d.group.RequiredQty:
		return fmt.Errorf("%w: %d > %d", ErrExcessAllocation, total, d.group.RequiredQty)
	}
	return nil
}

// Build validates the draft and returns the allocation to submit
func (d *AllocationDraft) Build() (*Allocation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	alloc := &Allocation{
		TaskNames:     append([]string(nil), d.group.TaskNames...),
		TotalSelected: d.TotalSelected(),
	}
	for _, c := range d.candidates {
		if c.Selected() {
			alloc.Lines = append(alloc.Lines, AllocationLine{CandidateID: c.ID, Qty: c.SelectedQty})
		}
	}
	return alloc, nil
}
