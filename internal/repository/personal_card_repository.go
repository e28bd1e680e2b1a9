package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

const personalCardColumns = "id, student_id, start_date, end_date, is_archived, created_at, updated_at"

// PersonalCardRepository persists personal cards with their subject notes and
// soft skill marks.
type PersonalCardRepository struct {
	db *sqlx.DB
}

// NewPersonalCardRepository constructs a PersonalCardRepository.
func NewPersonalCardRepository(db *sqlx.DB) *PersonalCardRepository {
	return &PersonalCardRepository{db: db}
}

// ListByStudent returns the student's cards, newest period first, without
// their notes and marks.
func (r *PersonalCardRepository) ListByStudent(ctx context.Context, studentID string, includeArchived bool) ([]models.PersonalCard, error) {
	query := fmt.Sprintf("SELECT %s FROM personal_cards WHERE student_id = $1", personalCardColumns)
	if !includeArchived {
		query += " AND is_archived = FALSE"
	}
	query += " ORDER BY start_date DESC"
	var cards []models.PersonalCard
	if err := r.db.SelectContext(ctx, &cards, query, studentID); err != nil {
		return nil, fmt.Errorf("list personal cards: %w", err)
	}
	return cards, nil
}

// FindByID loads a card with its notes and marks.
func (r *PersonalCardRepository) FindByID(ctx context.Context, id string) (*models.PersonalCard, error) {
	var card models.PersonalCard
	query := fmt.Sprintf("SELECT %s FROM personal_cards WHERE id = $1", personalCardColumns)
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		return nil, fmt.Errorf("get personal card: %w", err)
	}
	if err := r.loadDetails(ctx, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// FindForPeriod returns the latest active card of the student overlapping
// [from, to], or nil when there is none.
func (r *PersonalCardRepository) FindForPeriod(ctx context.Context, studentID string, from, to time.Time) (*models.PersonalCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM personal_cards
WHERE student_id = $1 AND is_archived = FALSE AND start_date <= $3 AND end_date >= $2
ORDER BY start_date DESC LIMIT 1`, personalCardColumns)
	var card models.PersonalCard
	if err := r.db.GetContext(ctx, &card, query, studentID, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find personal card: %w", err)
	}
	if err := r.loadDetails(ctx, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *PersonalCardRepository) loadDetails(ctx context.Context, card *models.PersonalCard) error {
	const notesQuery = `SELECT n.subject_id, s.name AS subject_name, n.kind, n.text
FROM personal_card_notes n JOIN subjects s ON s.id = n.subject_id
WHERE n.card_id = $1 ORDER BY s.name, n.kind`
	card.Notes = []models.CardNote{}
	if err := r.db.SelectContext(ctx, &card.Notes, notesQuery, card.ID); err != nil {
		return fmt.Errorf("load card notes: %w", err)
	}
	const marksQuery = `SELECT k.id AS skill_id, k.name AS skill_name, m.mark
FROM soft_skills k LEFT JOIN soft_skill_marks m ON m.skill_id = k.id AND m.card_id = $1
ORDER BY k.name`
	card.SkillMarks = []models.SoftSkillMark{}
	if err := r.db.SelectContext(ctx, &card.SkillMarks, marksQuery, card.ID); err != nil {
		return fmt.Errorf("load soft skill marks: %w", err)
	}
	return nil
}

// Create inserts an empty card.
func (r *PersonalCardRepository) Create(ctx context.Context, card *models.PersonalCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	card.CreatedAt, card.UpdatedAt = now, now
	const query = `INSERT INTO personal_cards (id, student_id, start_date, end_date, is_archived, created_at, updated_at)
VALUES (:id, :student_id, :start_date, :end_date, :is_archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("create personal card: %w", mapPQError(err))
	}
	return nil
}

// Save writes the archive flag and upserts the given notes and marks in one
// transaction. A note with empty text and a nil mark are removed.
func (r *PersonalCardRepository) Save(ctx context.Context, card *models.PersonalCard, notes []models.CardNote, marks []models.SoftSkillMark) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		card.UpdatedAt = time.Now().UTC()
		res, err := tx.ExecContext(ctx, "UPDATE personal_cards SET is_archived = $2, updated_at = $3 WHERE id = $1",
			card.ID, card.IsArchived, card.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update personal card: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update personal card: %w", sql.ErrNoRows)
		}
		for _, note := range notes {
			if note.Text == "" {
				if _, err := tx.ExecContext(ctx, "DELETE FROM personal_card_notes WHERE card_id = $1 AND subject_id = $2 AND kind = $3",
					card.ID, note.SubjectID, note.Kind); err != nil {
					return fmt.Errorf("clear card note: %w", err)
				}
				continue
			}
			const upsert = `INSERT INTO personal_card_notes (card_id, subject_id, kind, text) VALUES ($1, $2, $3, $4)
ON CONFLICT (card_id, subject_id, kind) DO UPDATE SET text = EXCLUDED.text`
			if _, err := tx.ExecContext(ctx, upsert, card.ID, note.SubjectID, note.Kind, note.Text); err != nil {
				return fmt.Errorf("save card note: %w", mapPQError(err))
			}
		}
		for _, mark := range marks {
			if mark.Mark == nil {
				if _, err := tx.ExecContext(ctx, "DELETE FROM soft_skill_marks WHERE card_id = $1 AND skill_id = $2",
					card.ID, mark.SkillID); err != nil {
					return fmt.Errorf("clear soft skill mark: %w", err)
				}
				continue
			}
			const upsert = `INSERT INTO soft_skill_marks (card_id, skill_id, mark) VALUES ($1, $2, $3)
ON CONFLICT (card_id, skill_id) DO UPDATE SET mark = EXCLUDED.mark`
			if _, err := tx.ExecContext(ctx, upsert, card.ID, mark.SkillID, string(*mark.Mark)); err != nil {
				return fmt.Errorf("save soft skill mark: %w", mapPQError(err))
			}
		}
		return nil
	})
}

// Delete removes a card with its notes and marks.
func (r *PersonalCardRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM personal_cards WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete personal card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete personal card: %w", sql.ErrNoRows)
	}
	return nil
}

// ListSoftSkills returns the soft skills ordered by name.
func (r *PersonalCardRepository) ListSoftSkills(ctx context.Context) ([]models.SoftSkill, error) {
	var skills []models.SoftSkill
	if err := r.db.SelectContext(ctx, &skills, "SELECT id, name FROM soft_skills ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list soft skills: %w", err)
	}
	return skills, nil
}

// CreateSoftSkill inserts a soft skill; duplicate names yield ErrDuplicateKey.
func (r *PersonalCardRepository) CreateSoftSkill(ctx context.Context, skill *models.SoftSkill) error {
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	if _, err := r.db.NamedExecContext(ctx, "INSERT INTO soft_skills (id, name) VALUES (:id, :name)", skill); err != nil {
		return fmt.Errorf("create soft skill: %w", mapPQError(err))
	}
	return nil
}
