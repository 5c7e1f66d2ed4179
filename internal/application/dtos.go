package application

import (
	"time"

	"github.com/wms-platform/vas-service/internal/domain"
)

// SessionView is the read model of an execution session
type SessionView struct {
	OrderNo    string                 `json:"orderNo"`
	OrderType  string                 `json:"orderType"`
	Status     string                 `json:"status"`
	Completed  bool                   `json:"completed"`
	TaskCount  int                    `json:"taskCount"`
	Sets       []SetView              `json:"sets"`
	Selection  *SelectionView         `json:"selection,omitempty"`
	Allocating bool                   `json:"allocating"`
	Stale      bool                   `json:"stale"`
	Actions    []domain.ContextAction `json:"actions"`
}

// SetView represents one set of tasks
type SetView struct {
	Set       int        `json:"set"`
	Target    string     `json:"target"`
	Completed bool       `json:"completed"`
	TaskCount int        `json:"taskCount"`
	Tasks     []TaskView `json:"tasks"`
}

// TaskView represents one task
type TaskView struct {
	Name              string `json:"name"`
	Set               int    `json:"set"`
	VAS               string `json:"vas"`
	GuideType         string `json:"guideType,omitempty"`
	Target            string `json:"target"`
	PackingType       string `json:"packingType"`
	Qty               int    `json:"qty"`
	UOMValue          string `json:"uomValue"`
	UOM               string `json:"uom,omitempty"`
	Status            string `json:"status"`
	Issue             string `json:"issue,omitempty"`
	Remark            string `json:"remark,omitempty"`
	RequiresInventory bool   `json:"requiresInventory"`
	Allocated         bool   `json:"allocated"`
}

// SelectionView is the selected task plus its local edits
type SelectionView struct {
	Task           TaskView `json:"task"`
	Issue          string   `json:"issue"`
	GuideExecuting bool     `json:"guideExecuting"`
	GuideProgress  string   `json:"guideProgress,omitempty"`
	GuideError     string   `json:"guideError,omitempty"`
}

// AllocationView is the read model of an allocation draft
type AllocationView struct {
	OrderNo       string          `json:"orderNo"`
	Set           int             `json:"set"`
	Target        string          `json:"target"`
	PackingType   string          `json:"packingType"`
	TaskNames     []string        `json:"taskNames"`
	RequiredQty   int             `json:"requiredQty"`
	TotalSelected int             `json:"totalSelected"`
	Remaining     int             `json:"remaining"`
	ShowLocation  bool            `json:"showLocation"`
	Candidates    []CandidateView `json:"candidates"`
}

// CandidateView represents an inventory candidate and its selected quantity
type CandidateView struct {
	ID           string    `json:"id"`
	PalletID     string    `json:"palletId"`
	BatchID      string    `json:"batchId"`
	Product      string    `json:"product"`
	PackingType  string    `json:"packingType"`
	AvailableQty int       `json:"availableQty"`
	SelectedQty  int       `json:"selectedQty"`
	Location     string    `json:"location,omitempty"`
	StoredAt     time.Time `json:"storedAt"`
}
