package domain

import "time"

// JournalAction names a server-confirmed change recorded in the execution journal
type JournalAction string

const (
	JournalTaskExecuted      JournalAction = "task-executed"
	JournalTaskUndone        JournalAction = "task-undone"
	JournalInventoryAssigned JournalAction = "inventory-assigned"
	JournalOrderCompleted    JournalAction = "order-completed"
)

// JournalEntry records one successful mutation against the backend
type JournalEntry struct {
	ID           string           `bson:"_id" json:"id"`
	OrderNo      string           `bson:"orderNo" json:"orderNo"`
	Action       JournalAction    `bson:"action" json:"action"`
	TaskNames    []string         `bson:"taskNames,omitempty" json:"taskNames,omitempty"`
	Set          int              `bson:"set,omitempty" json:"set,omitempty"`
	Issue        string           `bson:"issue,omitempty" json:"issue,omitempty"`
	TargetStatus TaskStatus       `bson:"targetStatus,omitempty" json:"targetStatus,omitempty"`
	Lines        []AllocationLine `bson:"lines,omitempty" json:"lines,omitempty"`
	Trigger      string           `bson:"trigger,omitempty" json:"trigger,omitempty"`
	SetCount     int              `bson:"setCount,omitempty" json:"setCount,omitempty"`
	TaskCount    int              `bson:"taskCount,omitempty" json:"taskCount,omitempty"`
	RecordedAt   time.Time        `bson:"recordedAt" json:"recordedAt"`
}

// EventType maps the entry onto its CloudEvents type
func (e *JournalEntry) EventType() string {
	return "wms.vas." + string(e.Action)
}
