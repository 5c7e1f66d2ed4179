package application

import "github.com/wms-platform/vas-service/internal/domain"

// ToTaskView converts a domain task to its view
func ToTaskView(task *domain.Task) TaskView {
	return TaskView{
		Name:              task.Name,
		Set:               task.Set,
		VAS:               task.VAS.Name,
		GuideType:         task.VAS.GuideType,
		Target:            task.Target.Display(),
		PackingType:       task.PackingType,
		Qty:               task.Qty,
		UOMValue:          task.UOMValue.String(),
		UOM:               task.UOM,
		Status:            string(task.Status),
		Issue:             task.Issue,
		Remark:            task.Remark,
		RequiresInventory: task.RequiresInventory,
		Allocated:         task.Allocation != nil,
	}
}

// ToSetViews converts derived sets to their views
func ToSetViews(sets []domain.Set) []SetView {
	views := make([]SetView, len(sets))
	for i := range sets {
		set := &sets[i]
		tasks := make([]TaskView, len(set.Tasks))
		for j := range set.Tasks {
			tasks[j] = ToTaskView(&set.Tasks[j])
		}
		views[i] = SetView{
			Set:       set.Ordinal,
			Target:    set.DisplayTarget(),
			Completed: set.Completed(),
			TaskCount: set.TaskCount(),
			Tasks:     tasks,
		}
	}
	return views
}

// ToAllocationView converts a draft to its view
func ToAllocationView(draft *domain.AllocationDraft) *AllocationView {
	group := draft.Group()
	selections := draft.Candidates()

	candidates := make([]CandidateView, len(selections))
	for i, c := range selections {
		candidates[i] = CandidateView{
			ID:           c.ID,
			PalletID:     c.PalletID,
			BatchID:      c.BatchID,
			Product:      c.Product,
			PackingType:  c.PackingType,
			AvailableQty: c.AvailableQty,
			SelectedQty:  c.SelectedQty,
			Location:     c.Location,
			StoredAt:     c.StoredAt,
		}
	}

	total := draft.TotalSelected()
	return &AllocationView{
		OrderNo:       group.OrderNo,
		Set:           group.Set,
		Target:        group.Target.Display(),
		PackingType:   group.PackingType,
		TaskNames:     append([]string(nil), group.TaskNames...),
		RequiredQty:   draft.RequiredQty(),
		TotalSelected: total,
		Remaining:     draft.RequiredQty() - total,
		ShowLocation:  group.OrderType != domain.OrderTypeRelease,
		Candidates:    candidates,
	}
}
