package models

import "time"

// TaskSolution stores one student's score for one task. A nil Result means ungraded.
type TaskSolution struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	Result    *int      `db:"result" json:"result"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Participation is the three-state relationship between a student and a test.
type Participation string

const (
	ParticipationNotAssigned Participation = "NOT_ASSIGNED"
	ParticipationPending     Participation = "PENDING"
	ParticipationGraded      Participation = "GRADED"
)

// SheetCell is one task score inside a grading sheet row.
type SheetCell struct {
	TaskID string `json:"task_id"`
	Result *int   `json:"result"`
}

// SheetRow is one student's line on the grading sheet.
type SheetRow struct {
	Student       Student       `json:"student"`
	Participation Participation `json:"participation"`
	Cells         []SheetCell   `json:"cells"`
}

// GradingSheet is the editable matrix of students × tasks for one test and group.
type GradingSheet struct {
	Test    Test       `json:"test"`
	Group   Group      `json:"group"`
	Tasks   []Task     `json:"tasks"`
	Graded  []SheetRow `json:"graded"`
	Pending []SheetRow `json:"pending"`
}

// StudentResultsRequest maps task IDs to a score or null for one student.
// Tasks omitted from Results keep their stored value.
type StudentResultsRequest struct {
	Results map[string]*int `json:"results" validate:"required"`
}

// StudentResults is one student's entry inside a group submission.
type StudentResults struct {
	StudentID string          `json:"student_id" validate:"required,uuid4"`
	Results   map[string]*int `json:"results" validate:"required"`
}

// GroupResultsRequest submits every student's batch of a group in one call.
type GroupResultsRequest struct {
	Students []StudentResults `json:"students" validate:"required,min=1,dive"`
}

// SolutionUpdate is a single row write inside a batch commit.
type SolutionUpdate struct {
	StudentID string
	TaskID    string
	Result    *int
}

// SyncReport summarises a reconciliation of result rows.
type SyncReport struct {
	Created int64 `json:"created"`
	Deleted int64 `json:"deleted"`
}
