package grading

import (
	"sort"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

// SortTasks orders tasks by number, basic before reflexive.
func SortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Num != tasks[j].Num {
			return tasks[i].Num < tasks[j].Num
		}
		return tasks[i].Level.Rank() < tasks[j].Level.Rank()
	})
}

// HasReflexiveLevel is true when any task is reflexive.
func HasReflexiveLevel(tasks []models.Task) bool {
	for _, t := range tasks {
		if t.Level == models.LevelReflexive {
			return true
		}
	}
	return false
}

// MaxPoints sums max points of the tasks at level.
func MaxPoints(tasks []models.Task, level models.TaskLevel) int {
	total := 0
	for _, t := range tasks {
		if t.Level == level {
			total += t.MaxPoints
		}
	}
	return total
}

// Levels returns the levels present in the tasks, basic first.
func Levels(tasks []models.Task) []models.TaskLevel {
	levels := []models.TaskLevel{models.LevelBasic}
	if HasReflexiveLevel(tasks) {
		levels = append(levels, models.LevelReflexive)
	}
	return levels
}
