package cloudevents

import (
	"time"
)

// VAS event types
const (
	VASTaskExecuted      = "wms.vas.task-executed"
	VASTaskUndone        = "wms.vas.task-undone"
	VASInventoryAssigned = "wms.vas.inventory-assigned"
	VASOrderCompleted    = "wms.vas.order-completed"
)

// SourceVAS is the event source of the VAS service
const SourceVAS = "/wms/vas-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}

// TaskExecutedData is the payload of wms.vas.task-executed
type TaskExecutedData struct {
	OrderNo  string `json:"orderNo"`
	TaskName string `json:"taskName"`
	Set      int    `json:"set"`
	Issue    string `json:"issue,omitempty"`
}

// TaskUndoneData is the payload of wms.vas.task-undone
type TaskUndoneData struct {
	OrderNo      string `json:"orderNo"`
	TaskName     string `json:"taskName"`
	Set          int    `json:"set"`
	TargetStatus string `json:"targetStatus"`
}

// InventoryAssignedData is the payload of wms.vas.inventory-assigned
type InventoryAssignedData struct {
	OrderNo   string              `json:"orderNo"`
	TaskNames []string            `json:"taskNames"`
	Lines     []AssignedInventory `json:"lines"`
	Total     int                 `json:"total"`
}

// AssignedInventory is one allocated lot
type AssignedInventory struct {
	CandidateID string `json:"candidateId"`
	Qty         int    `json:"qty"`
}

// OrderCompletedData is the payload of wms.vas.order-completed
type OrderCompletedData struct {
	OrderNo     string    `json:"orderNo"`
	SetCount    int       `json:"setCount"`
	TaskCount   int       `json:"taskCount"`
	CompletedAt time.Time `json:"completedAt"`
}
