package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TaskStatus represents the lifecycle status of a VAS task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusExecuting TaskStatus = "EXECUTING"
	TaskStatusDone      TaskStatus = "DONE"
)

// allowedTransitions lists every status change the backend may apply to a task
var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:   {TaskStatusExecuting, TaskStatusDone},
	TaskStatusExecuting: {TaskStatusDone, TaskStatusPending},
	TaskStatusDone:      {TaskStatusExecuting, TaskStatusPending},
}

// IsValid reports whether s is a known status
func (s TaskStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ParseUndoTarget validates the configured status an undone task returns to
func ParseUndoTarget(s string) (TaskStatus, error) {
	if s == "" {
		return TaskStatusExecuting, nil
	}
	status := TaskStatus(strings.ToUpper(s))
	if status != TaskStatusPending && status != TaskStatusExecuting {
		return "", fmt.Errorf("%w: %q", ErrInvalidUndoTarget, s)
	}
	return status, nil
}

// TargetType identifies what the tasks of a set operate on
type TargetType string

const (
	TargetTypeBatch           TargetType = "BATCH"
	TargetTypeProduct         TargetType = "PRODUCT"
	TargetTypeBatchAndProduct TargetType = "BATCH_AND_PRODUCT"
	TargetTypeOther           TargetType = "OTHER"
)

// Target is the thing a set's tasks are performed on
type Target struct {
	Type    TargetType `json:"targetType"`
	BatchID string     `json:"targetBatchId,omitempty"`
	Product string     `json:"targetProduct,omitempty"`
	Other   string     `json:"otherTarget,omitempty"`
}

// Display renders the target the way operators read it
func (t Target) Display() string {
	switch t.Type {
	case TargetTypeBatch:
		return t.BatchID
	case TargetTypeProduct:
		return t.Product
	case TargetTypeBatchAndProduct:
		return t.BatchID + " / " + t.Product
	default:
		return t.Other
	}
}

// VASRef describes the value-added service a task performs
type VASRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	GuideType   string `json:"operationGuideType,omitempty"`
}

// Task is one executable unit of VAS work within a set
type Task struct {
	Name              string          `json:"name"`
	Set               int             `json:"set"`
	Target            Target          `json:"target"`
	PackingType       string          `json:"packingType"`
	Qty               int             `json:"qty"`
	UOMValue          decimal.Decimal `json:"uomValue"`
	UOM               string          `json:"uom,omitempty"`
	Status            TaskStatus      `json:"status"`
	Issue             string          `json:"issue,omitempty"`
	Remark            string          `json:"remark,omitempty"`
	VAS               VASRef          `json:"vas"`
	OperationGuide    json.RawMessage `json:"operationGuide,omitempty"`
	RequiresInventory bool            `json:"requiresInventory"`
	Allocation        *Allocation     `json:"allocation,omitempty"`
}

// IsDone reports whether the task reached its terminal status
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

// NeedsAllocation reports whether execution is blocked on an inventory allocation
func (t *Task) NeedsAllocation() bool {
	return t.RequiresInventory && t.Allocation == nil
}

// CanTransitionTo reports whether the backend may move the task to next
func (t *Task) CanTransitionTo(next TaskStatus) bool {
	for _, s := range allowedTransitions[t.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// CheckExecutable verifies the local preconditions of execute
func (t *Task) CheckExecutable() error {
	if t.IsDone() {
		return ErrTaskAlreadyDone
	}
	if !t.CanTransitionTo(TaskStatusDone) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, TaskStatusDone)
	}
	if t.NeedsAllocation() {
		return ErrAllocationRequired
	}
	return nil
}

// CheckUndoable verifies the local preconditions of undo towards target
func (t *Task) CheckUndoable(target TaskStatus) error {
	if !t.IsDone() {
		return ErrTaskNotDone
	}
	if !t.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, target)
	}
	return nil
}

// Ref returns the reference the backend needs to address the task
func (t *Task) Ref(orderNo string) TaskRef {
	return TaskRef{OrderNo: orderNo, Name: t.Name}
}

// TaskRef addresses one task of one order on the backend
type TaskRef struct {
	OrderNo string `json:"orderNo"`
	Name    string `json:"name"`
}
