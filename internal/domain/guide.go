package domain

import (
	"fmt"
	"sort"
	"sync"
)

// Well-known context action names
const (
	ActionAllocate = "allocate"
	ActionExecute  = "execute"
	ActionUndo     = "undo"
	ActionComplete = "complete"
	ActionRefresh  = "refresh"
)

// ContextAction is one action the operator may take in the current state
type ContextAction struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	// Source is "session" for built-in actions or the guide type that contributed it
	Source string `json:"source"`
}

// OperationGuide is a guided-execution strategy attached to a task through its VAS
type OperationGuide interface {
	// Init binds the guide to a task and validates its payload
	Init(task *Task) error
	// IsExecuting is true while the guided operation is partially recorded
	IsExecuting() bool
	// ContextActions returns the guide's own actions
	ContextActions() []ContextAction
	// CheckExecutionValidity reports whether the task may be executed now
	CheckExecutionValidity() error
}

// GuideProgress is implemented by guides that can summarize what has been recorded so far
type GuideProgress interface {
	Progress() string
}

// GuideFactory builds a fresh guide instance
type GuideFactory func() OperationGuide

// GuideRegistry resolves guides by type key
type GuideRegistry struct {
	mu        sync.RWMutex
	factories map[string]GuideFactory
}

// NewGuideRegistry creates an empty registry
func NewGuideRegistry() *GuideRegistry {
	return &GuideRegistry{factories: make(map[string]GuideFactory)}
}

// Register adds or replaces the factory for key
func (r *GuideRegistry) Register(key string, factory GuideFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = factory
}

// Keys lists the registered guide types, sorted
func (r *GuideRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve returns an initialized guide for the task, or nil when the task's
// VAS carries no guide type. A guide type nobody registered is an error.
func (r *GuideRegistry) Resolve(task *Task) (OperationGuide, error) {
	key := task.VAS.GuideType
	if key == "" {
		return nil, nil
	}

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGuide, key)
	}

	guide := factory()
	if err := guide.Init(task); err != nil {
		return nil, err
	}
	return guide, nil
}
