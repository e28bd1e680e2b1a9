package grading

import "github.com/noah-isme/sma-tests-api/internal/models"

// Percent returns points/possible*100, or ErrUndefinedPercent when possible is not positive.
func Percent(points, possible int) (float64, error) {
	if possible <= 0 {
		return 0, ErrUndefinedPercent
	}
	return float64(points) / float64(possible) * 100, nil
}

// OptionalPercent is Percent with the undefined case mapped to nil.
func OptionalPercent(points, possible int) *float64 {
	p, err := Percent(points, possible)
	if err != nil {
		return nil
	}
	return &p
}

// LevelTotal sums the non-null results of tasks at level. It returns nil when
// the student has no graded result at that level.
func LevelTotal(tasks []models.Task, results map[string]*int, level models.TaskLevel) *int {
	var total *int
	for _, t := range tasks {
		if t.Level != level {
			continue
		}
		v := results[t.ID]
		if v == nil {
			continue
		}
		if total == nil {
			total = new(int)
		}
		*total += *v
	}
	return total
}

// SummarizeLevel computes the total and percent of one level. The percent is
// nil when the student has no results or the level has no max points.
func SummarizeLevel(tasks []models.Task, results map[string]*int, level models.TaskLevel) models.LevelStat {
	stat := models.LevelStat{Level: level, MaxPoints: MaxPoints(tasks, level)}
	stat.Total = LevelTotal(tasks, results, level)
	if stat.Total != nil {
		stat.Percent = OptionalPercent(*stat.Total, stat.MaxPoints)
	}
	return stat
}

// SummarizeLevels returns a LevelStat per level present in tasks.
func SummarizeLevels(tasks []models.Task, results map[string]*int) []models.LevelStat {
	levels := Levels(tasks)
	stats := make([]models.LevelStat, 0, len(levels))
	for _, level := range levels {
		stats = append(stats, SummarizeLevel(tasks, results, level))
	}
	return stats
}

// ParticipationOf classifies a student against a test. results holds one entry
// per existing row; a missing key means no row exists for that task.
func ParticipationOf(tasks []models.Task, results map[string]*int) models.Participation {
	rows := 0
	graded := 0
	for _, t := range tasks {
		v, ok := results[t.ID]
		if !ok {
			continue
		}
		rows++
		if v != nil {
			graded++
		}
	}
	switch {
	case rows == 0:
		return models.ParticipationNotAssigned
	case graded == len(tasks):
		return models.ParticipationGraded
	default:
		return models.ParticipationPending
	}
}

// HasTakenTest is true only when every task of the test carries a result.
func HasTakenTest(tasks []models.Task, results map[string]*int) bool {
	return ParticipationOf(tasks, results) == models.ParticipationGraded
}

// Predicate selects results counted by CohortTaskCounts.
type Predicate func(result int) bool

// Solved matches results above zero.
func Solved(result int) bool { return result > 0 }

// Zero matches attempted tasks that scored nothing.
func Zero(result int) bool { return result == 0 }

// CohortTaskCounts counts, per task ID, the rows whose non-null result matches pred.
// Every task appears in the output, including those with no matches.
func CohortTaskCounts(tasks []models.Task, rows []models.ResultRow, pred Predicate) map[string]int {
	counts := make(map[string]int, len(tasks))
	for _, t := range tasks {
		counts[t.ID] = 0
	}
	for _, row := range rows {
		if row.Result == nil {
			continue
		}
		if _, ok := counts[row.TaskID]; !ok {
			continue
		}
		if pred(*row.Result) {
			counts[row.TaskID]++
		}
	}
	return counts
}

// TaskCounts builds the solved/zero table of a test in task order.
func TaskCounts(tasks []models.Task, rows []models.ResultRow) []models.TaskCount {
	solved := CohortTaskCounts(tasks, rows, Solved)
	zero := CohortTaskCounts(tasks, rows, Zero)
	out := make([]models.TaskCount, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.TaskCount{
			TaskID:    t.ID,
			Num:       t.Num,
			Level:     t.Level,
			MaxPoints: t.MaxPoints,
			Solved:    solved[t.ID],
			Zero:      zero[t.ID],
		})
	}
	return out
}

// Weighted sums results and max points across graded rows. Ungraded rows count
// toward neither side.
func Weighted(rows []models.ResultRow) (points, possible int) {
	for _, row := range rows {
		if row.Result == nil {
			continue
		}
		points += *row.Result
		possible += row.MaxPoints
	}
	return points, possible
}

// GroupLevelAverage is the weighted percent of rows at level.
func GroupLevelAverage(groupID string, level models.TaskLevel, rows []models.ResultRow) models.GroupLevelAverage {
	filtered := make([]models.ResultRow, 0, len(rows))
	for _, row := range rows {
		if row.Level == level {
			filtered = append(filtered, row)
		}
	}
	points, possible := Weighted(filtered)
	return models.GroupLevelAverage{
		GroupID:   groupID,
		Level:     level,
		Points:    points,
		MaxPoints: possible,
		Percent:   OptionalPercent(points, possible),
	}
}

// ResultsByStudent indexes rows as student -> task -> result.
func ResultsByStudent(rows []models.ResultRow) map[string]map[string]*int {
	out := make(map[string]map[string]*int)
	for _, row := range rows {
		m, ok := out[row.StudentID]
		if !ok {
			m = make(map[string]*int)
			out[row.StudentID] = m
		}
		m[row.TaskID] = row.Result
	}
	return out
}
