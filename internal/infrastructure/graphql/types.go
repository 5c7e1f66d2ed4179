package graphql

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/vas-service/internal/domain"
)

const taskFields = `
	name
	set
	targetType
	targetBatchId
	targetProduct
	otherTarget
	packingType
	qty
	uomValue
	uom
	status
	issue
	remark
	requiresInventory
	operationGuide
	vas { name description operationGuideType }
	allocation { taskNames totalSelected lines { candidateId qty } }
`

const worksheetQuery = `
query VasWorksheet($orderNo: String!) {
	vasWorksheet(orderNo: $orderNo) {
		orderNo
		orderType
		status
		tasks {` + taskFields + `}
	}
}`

const candidatesQuery = `
query VasInventoryCandidates($group: VasTaskGroupInput!) {
	vasInventoryCandidates(group: $group) {
		id
		palletId
		batchId
		product
		packingType
		availableQty
		location
		storedAt
	}
}`

const assignMutation = `
mutation AssignVasInventories($orderNo: String!, $taskNames: [String!]!, $inventories: [VasInventoryInput!]!) {
	assignVasInventories(orderNo: $orderNo, taskNames: $taskNames, inventories: $inventories) {
		tasks {` + taskFields + `}
	}
}`

const executeMutation = `
mutation ExecuteVas($task: VasTaskRefInput!, $issue: String) {
	executeVas(task: $task, issue: $issue) {
		tasks {` + taskFields + `}
	}
}`

const undoMutation = `
mutation UndoVas($task: VasTaskRefInput!, $toStatus: VasTaskStatus!) {
	undoVas(task: $task, toStatus: $toStatus) {
		tasks {` + taskFields + `}
	}
}`

const completeMutation = `
mutation CompleteVas($orderNo: String!) {
	completeVas(orderNo: $orderNo) {
		orderNo
		status
	}
}`

type wireVAS struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	GuideType   string `json:"operationGuideType"`
}

type wireAllocation struct {
	TaskNames     []string                `json:"taskNames"`
	TotalSelected int                     `json:"totalSelected"`
	Lines         []domain.AllocationLine `json:"lines"`
}

type wireTask struct {
	Name              string          `json:"name"`
	Set               int             `json:"set"`
	TargetType        string          `json:"targetType"`
	TargetBatchID     string          `json:"targetBatchId"`
	TargetProduct     string          `json:"targetProduct"`
	OtherTarget       string          `json:"otherTarget"`
	PackingType       string          `json:"packingType"`
	Qty               int             `json:"qty"`
	UOMValue          decimal.Decimal `json:"uomValue"`
	UOM               string          `json:"uom"`
	Status            string          `json:"status"`
	Issue             string          `json:"issue"`
	Remark            string          `json:"remark"`
	RequiresInventory bool            `json:"requiresInventory"`
	OperationGuide    json.RawMessage `json:"operationGuide"`
	VAS               wireVAS         `json:"vas"`
	Allocation        *wireAllocation `json:"allocation"`
}

func (w wireTask) toDomain() domain.Task {
	task := domain.Task{
		Name: w.Name,
		Set:  w.Set,
		Target: domain.Target{
			Type:    domain.TargetType(w.TargetType),
			BatchID: w.TargetBatchID,
			Product: w.TargetProduct,
			Other:   w.OtherTarget,
		},
		PackingType:       w.PackingType,
		Qty:               w.Qty,
		UOMValue:          w.UOMValue,
		UOM:               w.UOM,
		Status:            domain.TaskStatus(w.Status),
		Issue:             w.Issue,
		Remark:            w.Remark,
		RequiresInventory: w.RequiresInventory,
		VAS: domain.VASRef{
			Name:        w.VAS.Name,
			Description: w.VAS.Description,
			GuideType:   w.VAS.GuideType,
		},
	}
	if len(w.OperationGuide) > 0 && string(w.OperationGuide) != "null" {
		task.OperationGuide = w.OperationGuide
	}
	if w.Allocation != nil {
		task.Allocation = &domain.Allocation{
			TaskNames:     w.Allocation.TaskNames,
			Lines:         w.Allocation.Lines,
			TotalSelected: w.Allocation.TotalSelected,
		}
	}
	return task
}

func toDomainTasks(wire []wireTask) []domain.Task {
	tasks := make([]domain.Task, len(wire))
	for i := range wire {
		tasks[i] = wire[i].toDomain()
	}
	return tasks
}

type worksheetResponse struct {
	VASWorksheet *struct {
		OrderNo   string     `json:"orderNo"`
		OrderType string     `json:"orderType"`
		Status    string     `json:"status"`
		Tasks     []wireTask `json:"tasks"`
	} `json:"vasWorksheet"`
}

type wireCandidate struct {
	ID           string    `json:"id"`
	PalletID     string    `json:"palletId"`
	BatchID      string    `json:"batchId"`
	Product      string    `json:"product"`
	PackingType  string    `json:"packingType"`
	AvailableQty int       `json:"availableQty"`
	Location     string    `json:"location"`
	StoredAt     time.Time `json:"storedAt"`
}

type candidatesResponse struct {
	Candidates []wireCandidate `json:"vasInventoryCandidates"`
}

type mutationPayload struct {
	Tasks []wireTask `json:"tasks"`
}

func (p *mutationPayload) result() *domain.MutationResult {
	if p == nil {
		return &domain.MutationResult{}
	}
	return &domain.MutationResult{Tasks: toDomainTasks(p.Tasks)}
}

type assignResponse struct {
	Payload *mutationPayload `json:"assignVasInventories"`
}

type executeResponse struct {
	Payload *mutationPayload `json:"executeVas"`
}

type undoResponse struct {
	Payload *mutationPayload `json:"undoVas"`
}

type completeResponse struct {
	CompleteVAS *struct {
		OrderNo string `json:"orderNo"`
		Status  string `json:"status"`
	} `json:"completeVas"`
}

type taskGroupInput struct {
	OrderNo       string   `json:"orderNo"`
	Set           int      `json:"set"`
	TargetType    string   `json:"targetType"`
	TargetBatchID string   `json:"targetBatchId,omitempty"`
	TargetProduct string   `json:"targetProduct,omitempty"`
	OtherTarget   string   `json:"otherTarget,omitempty"`
	PackingType   string   `json:"packingType"`
	TaskNames     []string `json:"taskNames"`
	RequiredQty   int      `json:"requiredQty"`
}

func newTaskGroupInput(group domain.TaskGroupRef) taskGroupInput {
	return taskGroupInput{
		OrderNo:       group.OrderNo,
		Set:           group.Set,
		TargetType:    string(group.Target.Type),
		TargetBatchID: group.Target.BatchID,
		TargetProduct: group.Target.Product,
		OtherTarget:   group.Target.Other,
		PackingType:   group.PackingType,
		TaskNames:     group.TaskNames,
		RequiredQty:   group.RequiredQty,
	}
}

type taskRefInput struct {
	OrderNo string `json:"orderNo"`
	Name    string `json:"name"`
}

type inventoryInput struct {
	InventoryID string `json:"inventoryId"`
	Qty         int    `json:"qty"`
}
