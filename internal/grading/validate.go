package grading

import "github.com/noah-isme/sma-tests-api/internal/models"

// Policy toggles the optional batch rules.
type Policy struct {
	StrictLevels bool
}

// StrictPolicy enforces every rule.
var StrictPolicy = Policy{StrictLevels: true}

// ValidateBatch checks one student's submission for one test. existing holds the
// stored results keyed by task ID; proposed overrides them, an explicit nil
// clearing a score. On success the merged results for every task are returned.
//
// Rules run in order: per-task range (in num/level order, first failure wins),
// then all-or-nothing, then level consistency for fully filled batches of tests
// that have a reflexive level.
func ValidateBatch(studentID string, tasks []models.Task, existing, proposed map[string]*int, policy Policy) (map[string]*int, error) {
	ordered := make([]models.Task, len(tasks))
	copy(ordered, tasks)
	SortTasks(ordered)

	byID := make(map[string]models.Task, len(ordered))
	for _, t := range ordered {
		byID[t.ID] = t
	}
	for taskID := range proposed {
		if _, ok := byID[taskID]; !ok {
			return nil, unknownTask(studentID, taskID)
		}
	}

	merged := make(map[string]*int, len(ordered))
	for _, t := range ordered {
		var value *int
		if v, ok := existing[t.ID]; ok && v != nil {
			copied := *v
			value = &copied
		}
		if v, ok := proposed[t.ID]; ok {
			value = nil
			if v != nil {
				copied := *v
				value = &copied
			}
		}
		merged[t.ID] = value
	}

	for _, t := range ordered {
		if v := merged[t.ID]; v != nil && (*v < 0 || *v > t.MaxPoints) {
			return nil, outOfRange(studentID, t, *v)
		}
	}

	filled := 0
	for _, t := range ordered {
		if merged[t.ID] != nil {
			filled++
		}
	}
	if filled > 0 && filled < len(ordered) {
		return nil, partial(studentID)
	}

	if policy.StrictLevels && filled == len(ordered) && HasReflexiveLevel(ordered) {
		if err := checkLevels(studentID, ordered, merged); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

func checkLevels(studentID string, ordered []models.Task, merged map[string]*int) error {
	basics := make(map[int]models.Task)
	for _, t := range ordered {
		if t.Level == models.LevelBasic {
			basics[t.Num] = t
		}
	}
	for _, t := range ordered {
		if t.Level != models.LevelReflexive {
			continue
		}
		basic, paired := basics[t.Num]
		if !paired {
			continue
		}
		if *merged[t.ID] > 0 && *merged[basic.ID] != basic.MaxPoints {
			return levelMismatch(studentID, basic)
		}
	}
	return nil
}
