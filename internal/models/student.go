package models

import (
	"strings"
	"time"
)

// Student is a learner belonging to exactly one group.
type Student struct {
	ID         string    `db:"id" json:"id"`
	Surname    string    `db:"surname" json:"surname"`
	Name       string    `db:"name" json:"name"`
	Patronymic string    `db:"patronymic" json:"patronymic"`
	GroupID    string    `db:"group_id" json:"group_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FullName joins the name parts in roster order.
func (s Student) FullName() string {
	return strings.TrimSpace(strings.Join([]string{s.Surname, s.Name, s.Patronymic}, " "))
}

// CreateStudentRequest is the payload for enrolling a student into a group.
type CreateStudentRequest struct {
	Surname    string `json:"surname" validate:"required,max=128"`
	Name       string `json:"name" validate:"required,max=128"`
	Patronymic string `json:"patronymic" validate:"max=128"`
	GroupID    string `json:"group_id" validate:"required,uuid4"`
}
