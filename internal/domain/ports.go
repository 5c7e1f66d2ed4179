package domain

import "context"

// MutationResult carries the tasks a mutation changed, when the backend returns them
type MutationResult struct {
	Tasks []Task
}

// WorksheetGateway reaches the backend that owns worksheets and task status
type WorksheetGateway interface {
	// FetchWorksheet returns the order header and its tasks in server order
	FetchWorksheet(ctx context.Context, orderNo string) (*Worksheet, error)

	// ExecuteTask moves a task to done, attaching the issue text when not empty
	ExecuteTask(ctx context.Context, ref TaskRef, issue string) (*MutationResult, error)

	// UndoTask reopens a done task to the given status
	UndoTask(ctx context.Context, ref TaskRef, to TaskStatus) (*MutationResult, error)

	// CompleteOrder closes the order
	CompleteOrder(ctx context.Context, orderNo string) error
}

// InventoryCandidateProvider lists and assigns inventory for task groups
type InventoryCandidateProvider interface {
	// FetchCandidates returns every eligible lot for the group, unpaginated
	FetchCandidates(ctx context.Context, group TaskGroupRef) ([]InventoryCandidate, error)

	// AssignInventory commits the allocation for every task of the group in one call
	AssignInventory(ctx context.Context, group TaskGroupRef, lines []AllocationLine) (*MutationResult, error)
}

// Backend is everything an execution session needs from the server
type Backend interface {
	WorksheetGateway
	InventoryCandidateProvider
}

// ExecutionJournal records server-confirmed mutations
type ExecutionJournal interface {
	Record(ctx context.Context, entry *JournalEntry) error
}

// CompletionNotifier tells downstream processes that an order's VAS work is closed
type CompletionNotifier interface {
	NotifyOrderCompleted(ctx context.Context, orderNo string) error
}

// Confirmer asks the operator a yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// ContextActionObserver is told the allowed actions after every state transition
type ContextActionObserver interface {
	OnContextActions(orderNo string, actions []ContextAction)
}

// ContextActionFunc adapts a function to ContextActionObserver
type ContextActionFunc func(orderNo string, actions []ContextAction)

// OnContextActions calls f
func (f ContextActionFunc) OnContextActions(orderNo string, actions []ContextAction) {
	f(orderNo, actions)
}
