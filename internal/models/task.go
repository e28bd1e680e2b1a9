package models

// TaskLevel distinguishes basic tasks from their reflexive variants.
type TaskLevel string

const (
	LevelBasic     TaskLevel = "basic"
	LevelReflexive TaskLevel = "reflexive"
)

// Valid reports whether the level is known.
func (l TaskLevel) Valid() bool {
	return l == LevelBasic || l == LevelReflexive
}

// Rank orders basic before reflexive.
func (l TaskLevel) Rank() int {
	if l == LevelReflexive {
		return 1
	}
	return 0
}

// Task is one scored problem of a test.
type Task struct {
	ID           string    `db:"id" json:"id"`
	TestID       string    `db:"test_id" json:"test_id"`
	Num          int       `db:"num" json:"num"`
	Level        TaskLevel `db:"level" json:"level"`
	CheckedSkill string    `db:"checked_skill" json:"checked_skill"`
	MaxPoints    int       `db:"max_points" json:"max_points"`
}

// CreateTaskRequest is the payload for adding a task to a test.
type CreateTaskRequest struct {
	Num          int       `json:"num" validate:"required,min=1"`
	Level        TaskLevel `json:"level" validate:"required,oneof=basic reflexive"`
	CheckedSkill string    `json:"checked_skill" validate:"max=255"`
	MaxPoints    int       `json:"max_points" validate:"required,min=1"`
}

// UpdateTaskRequest carries the mutable task fields.
type UpdateTaskRequest struct {
	Num          *int       `json:"num" validate:"omitempty,min=1"`
	Level        *TaskLevel `json:"level" validate:"omitempty,oneof=basic reflexive"`
	CheckedSkill *string    `json:"checked_skill" validate:"omitempty,max=255"`
	MaxPoints    *int       `json:"max_points" validate:"omitempty,min=1"`
}
