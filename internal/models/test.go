package models

import "time"

// Test is an assessment for one subject and studying year, composed of tasks.
type Test struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	SubjectID         string    `db:"subject_id" json:"subject_id"`
	StudyingYear      int       `db:"studying_year" json:"studying_year"`
	Month             int       `db:"month" json:"month"`
	HasReflexiveLevel bool      `db:"has_reflexive_level" json:"has_reflexive_level"`
	IsPublished       bool      `db:"is_published" json:"is_published"`
	CreatorID         string    `db:"creator_id" json:"creator_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// TestFilter captures supported filters for listing tests.
type TestFilter struct {
	SubjectID    string
	StudyingYear int
	Published    *bool
	GroupID      string
	Page         int
	PageSize     int
}

// TestAssign is the administration of a test to a group.
type TestAssign struct {
	ID          string     `db:"id" json:"id"`
	TestID      string     `db:"test_id" json:"test_id"`
	GroupID     string     `db:"group_id" json:"group_id"`
	WritingDate *time.Time `db:"writing_date" json:"writing_date,omitempty"`
}

// TestDetail bundles a test with its ordered tasks and assignments.
type TestDetail struct {
	Test
	Tasks       []Task       `json:"tasks"`
	Assignments []TestAssign `json:"assignments"`
}

// CreateTestRequest is the payload for creating a test.
type CreateTestRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	SubjectID    string `json:"subject_id" validate:"required,uuid4"`
	StudyingYear int    `json:"studying_year" validate:"required,min=1,max=11"`
	Month        int    `json:"month" validate:"required,min=1,max=12"`
	CreatorID    string `json:"-"`
}

// UpdateTestRequest carries the mutable test fields.
type UpdateTestRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=255"`
	StudyingYear *int    `json:"studying_year" validate:"omitempty,min=1,max=11"`
	Month        *int    `json:"month" validate:"omitempty,min=1,max=12"`
	IsPublished  *bool   `json:"is_published"`
}

// AssignGroupsRequest assigns one or more groups to a test.
type AssignGroupsRequest struct {
	GroupIDs []string `json:"group_ids" validate:"required,min=1,dive,uuid4"`
}

// SetWritingDateRequest records (or clears) when a group wrote the test.
type SetWritingDateRequest struct {
	WritingDate *time.Time `json:"writing_date"`
}
