package models

import "time"

// SkillMark is a teacher's four-step judgement of a soft skill.
type SkillMark string

const (
	SkillMarkNo        SkillMark = "no"
	SkillMarkRatherNo  SkillMark = "rather_no"
	SkillMarkRatherYes SkillMark = "rather_yes"
	SkillMarkYes       SkillMark = "yes"
)

var skillMarkLabels = map[SkillMark]string{
	SkillMarkNo:        "No",
	SkillMarkRatherNo:  "Rather no",
	SkillMarkRatherYes: "Rather yes",
	SkillMarkYes:       "Yes",
}

// Valid reports whether the mark is one of the four steps.
func (m SkillMark) Valid() bool {
	_, ok := skillMarkLabels[m]
	return ok
}

// Label is the human readable form used in exports.
func (m SkillMark) Label() string {
	return skillMarkLabels[m]
}

// NoteKind separates the two free-text notes a card holds per subject.
type NoteKind string

const (
	NoteRecommendation NoteKind = "recommendation"
	NoteStrength       NoteKind = "strength"
)

// SoftSkill is a cross-subject skill marked on personal cards.
type SoftSkill struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CardNote is a recommendation or strength written for one subject.
type CardNote struct {
	SubjectID   string   `db:"subject_id" json:"subject_id"`
	SubjectName string   `db:"subject_name" json:"subject_name,omitempty"`
	Kind        NoteKind `db:"kind" json:"kind"`
	Text        string   `db:"text" json:"text"`
}

// SoftSkillMark is the mark of one soft skill on a card; a nil mark is unset.
type SoftSkillMark struct {
	SkillID   string     `db:"skill_id" json:"skill_id"`
	SkillName string     `db:"skill_name" json:"skill_name,omitempty"`
	Mark      *SkillMark `db:"mark" json:"mark"`
}

// PersonalCard is a student's teacher-written card for a reporting period.
type PersonalCard struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	StartDate  time.Time       `db:"start_date" json:"start_date"`
	EndDate    time.Time       `db:"end_date" json:"end_date"`
	IsArchived bool            `db:"is_archived" json:"is_archived"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	Notes      []CardNote      `db:"-" json:"notes"`
	SkillMarks []SoftSkillMark `db:"-" json:"skill_marks"`
}

// NotesFor returns the card's notes of kind for a subject, or "".
func (c PersonalCard) NotesFor(subjectID string, kind NoteKind) string {
	for _, note := range c.Notes {
		if note.SubjectID == subjectID && note.Kind == kind {
			return note.Text
		}
	}
	return ""
}

// CreatePersonalCardRequest opens a card for a reporting period.
type CreatePersonalCardRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

// CardNoteInput writes one subject note; an empty text clears it.
type CardNoteInput struct {
	SubjectID string   `json:"subject_id" validate:"required,uuid4"`
	Kind      NoteKind `json:"kind" validate:"required,oneof=recommendation strength"`
	Text      string   `json:"text" validate:"max=4000"`
}

// SkillMarkInput sets or clears one soft skill mark.
type SkillMarkInput struct {
	SkillID string     `json:"skill_id" validate:"required,uuid4"`
	Mark    *SkillMark `json:"mark" validate:"omitempty,oneof=no rather_no rather_yes yes"`
}

// UpdatePersonalCardRequest edits the card's notes, marks and archive flag.
// Notes and marks not listed are left as they are.
type UpdatePersonalCardRequest struct {
	IsArchived *bool            `json:"is_archived"`
	Notes      []CardNoteInput  `json:"notes" validate:"omitempty,dive"`
	SkillMarks []SkillMarkInput `json:"skill_marks" validate:"omitempty,dive"`
}

// CreateSoftSkillRequest registers a soft skill.
type CreateSoftSkillRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}
