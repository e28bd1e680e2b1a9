package grading

import (
	"errors"
	"fmt"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

// ErrUndefinedPercent marks a percent whose denominator is zero.
var ErrUndefinedPercent = errors.New("percent undefined: zero max points")

// Kind classifies a rejected batch.
type Kind string

const (
	KindUnknownTask       Kind = "unknown_task"
	KindScoreOutOfRange   Kind = "score_out_of_range"
	KindPartialSubmission Kind = "partial_submission"
	KindLevelConsistency  Kind = "level_consistency"
)

// ValidationError describes why a student's batch was rejected, with enough
// detail for a client to highlight the offending field.
type ValidationError struct {
	Kind      Kind             `json:"kind"`
	StudentID string           `json:"student_id"`
	TaskID    string           `json:"task_id,omitempty"`
	Num       int              `json:"num,omitempty"`
	Level     models.TaskLevel `json:"level,omitempty"`
	Min       *int             `json:"min,omitempty"`
	Max       *int             `json:"max,omitempty"`
	Message   string           `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func bound(v int) *int { return &v }

func unknownTask(studentID, taskID string) *ValidationError {
	return &ValidationError{
		Kind:      KindUnknownTask,
		StudentID: studentID,
		TaskID:    taskID,
		Message:   fmt.Sprintf("task %s does not belong to this test", taskID),
	}
}

func outOfRange(studentID string, task models.Task, score int) *ValidationError {
	return &ValidationError{
		Kind:      KindScoreOutOfRange,
		StudentID: studentID,
		TaskID:    task.ID,
		Num:       task.Num,
		Level:     task.Level,
		Min:       bound(0),
		Max:       bound(task.MaxPoints),
		Message:   fmt.Sprintf("task %d (%s): score %d is outside 0..%d", task.Num, task.Level, score, task.MaxPoints),
	}
}

func partial(studentID string) *ValidationError {
	return &ValidationError{
		Kind:      KindPartialSubmission,
		StudentID: studentID,
		Message:   fmt.Sprintf("student %s: fill every task or leave all tasks empty", studentID),
	}
}

func levelMismatch(studentID string, basic models.Task) *ValidationError {
	return &ValidationError{
		Kind:      KindLevelConsistency,
		StudentID: studentID,
		TaskID:    basic.ID,
		Num:       basic.Num,
		Level:     models.LevelBasic,
		Min:       bound(basic.MaxPoints),
		Max:       bound(basic.MaxPoints),
		Message:   fmt.Sprintf("task %d: reflexive points require the full basic score of %d", basic.Num, basic.MaxPoints),
	}
}
