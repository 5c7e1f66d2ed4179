package domain

// OrderType distinguishes VAS orders from release orders, whose candidates carry no location
type OrderType string

const (
	OrderTypeVAS     OrderType = "VAS_ORDER"
	OrderTypeRelease OrderType = "RELEASE_ORDER"
	OrderTypeArrival OrderType = "ARRIVAL_NOTICE"
)

// Worksheet is the backend's view of an order: header plus tasks in server order
type Worksheet struct {
	OrderNo   string    `json:"orderNo"`
	OrderType OrderType `json:"orderType"`
	Status    string    `json:"status"`
	Tasks     []Task    `json:"tasks"`
}

// Order is the in-memory model of one VAS order being executed
type Order struct {
	OrderNo   string
	Type      OrderType
	Status    string
	tasks     []Task
	Sets      []Set
	Completed bool
}

// NewOrder builds the order model from a fetched worksheet
func NewOrder(ws *Worksheet) *Order {
	o := &Order{
		OrderNo: ws.OrderNo,
		Type:    ws.OrderType,
		Status:  ws.Status,
	}
	o.replaceTasks(ws.Tasks)
	return o
}

func (o *Order) replaceTasks(tasks []Task) {
	o.tasks = append([]Task(nil), tasks...)
	o.Sets = AggregateSets(o.tasks)
}

// Reload replaces the whole task list from a fresh worksheet
func (o *Order) Reload(ws *Worksheet) {
	o.Type = ws.OrderType
	o.Status = ws.Status
	o.replaceTasks(ws.Tasks)
}

// Merge applies a mutation delta by task name and re-aggregates.
// It returns false, leaving the order untouched, when the delta is empty
// or names a task this order does not know; the caller then re-fetches.
func (o *Order) Merge(delta []Task) bool {
	if len(delta) == 0 {
		return false
	}

	position := make(map[string]int, len(o.tasks))
	for i := range o.tasks {
		position[o.tasks[i].Name] = i
	}
	for i := range delta {
		if _, ok := position[delta[i].Name]; !ok {
			return false
		}
	}

	merged := append([]Task(nil), o.tasks...)
	for _, task := range delta {
		merged[position[task.Name]] = task
	}
	o.replaceTasks(merged)
	return true
}

// Tasks returns the tasks in server order
func (o *Order) Tasks() []Task {
	return o.tasks
}

// FindTask looks a task up by name
func (o *Order) FindTask(name string) (*Task, bool) {
	for i := range o.tasks {
		if o.tasks[i].Name == name {
			return &o.tasks[i], true
		}
	}
	return nil, false
}

// AllSetsComplete is true iff every set is completed
func (o *Order) AllSetsComplete() bool {
	for i := range o.Sets {
		if !o.Sets[i].Completed() {
			return false
		}
	}
	return true
}

// CheckCompletable verifies the local preconditions of complete
func (o *Order) CheckCompletable() error {
	if o.Completed {
		return ErrOrderAlreadyCompleted
	}
	if !o.AllSetsComplete() {
		return ErrIncompleteOrder
	}
	return nil
}

// MarkCompleted clears the local sets and tasks after the backend closed the order
func (o *Order) MarkCompleted() {
	o.Completed = true
	o.tasks = nil
	o.Sets = nil
}

// TaskCount returns the total number of tasks
func (o *Order) TaskCount() int {
	return len(o.tasks)
}
