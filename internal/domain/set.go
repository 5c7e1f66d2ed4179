package domain

import "sort"

// Set is a group of tasks sharing one target. It is always derived.
type Set struct {
	Ordinal int    `json:"set"`
	Target  Target `json:"target"`
	Tasks   []Task `json:"tasks"`
}

// Completed is true iff every task of the set is done
func (s *Set) Completed() bool {
	for i := range s.Tasks {
		if !s.Tasks[i].IsDone() {
			return false
		}
	}
	return true
}

// TaskCount returns the number of tasks in the set
func (s *Set) TaskCount() int {
	return len(s.Tasks)
}

// DisplayTarget returns the representative target of the set
func (s *Set) DisplayTarget() string {
	return s.Target.Display()
}

// AggregateSets partitions tasks by set ordinal ascending, keeping the
// given order within a set. The target is taken from the first task of
// each group; the backend guarantees every task of a set shares it.
func AggregateSets(tasks []Task) []Set {
	index := make(map[int]int)
	var sets []Set

	for _, task := range tasks {
		i, ok := index[task.Set]
		if !ok {
			i = len(sets)
			index[task.Set] = i
			sets = append(sets, Set{Ordinal: task.Set, Target: task.Target})
		}
		sets[i].Tasks = append(sets[i].Tasks, task)
	}

	sort.SliceStable(sets, func(a, b int) bool {
		return sets[a].Ordinal < sets[b].Ordinal
	})
	return sets
}
