package models

import (
	"fmt"
	"time"
)

// Group is a class of students, e.g. campus "North", year 3, letter "B".
type Group struct {
	ID           string    `db:"id" json:"id"`
	Campus       string    `db:"campus" json:"campus"`
	StudyingYear int       `db:"studying_year" json:"studying_year"`
	Letter       string    `db:"letter" json:"letter"`
	YearCreated  int       `db:"year_created" json:"year_created"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Label renders the conventional group name such as "3B".
func (g Group) Label() string {
	return fmt.Sprintf("%d%s", g.StudyingYear, g.Letter)
}

// GroupFilter captures supported filters for listing groups.
type GroupFilter struct {
	Campus       string
	StudyingYear int
	Active       *bool
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Campus       string `json:"campus" validate:"required,max=64"`
	StudyingYear int    `json:"studying_year" validate:"required,min=1,max=11"`
	Letter       string `json:"letter" validate:"required,max=4"`
	YearCreated  int    `json:"year_created" validate:"required,min=2000,max=2100"`
}
