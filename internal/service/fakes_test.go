package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fakeTestStore struct {
	tests        map[string]*models.Test
	assigns      map[string][]models.TestAssign
	assignReport models.SyncReport
	assignErr    error
	unassignErr  error
	deleteErr    error
	reconciled   []string
	assigned     [][]string
	unassigned   [][]string
}

func newFakeTestStore(tests ...models.Test) *fakeTestStore {
	store := &fakeTestStore{tests: map[string]*models.Test{}, assigns: map[string][]models.TestAssign{}}
	for i := range tests {
		test := tests[i]
		store.tests[test.ID] = &test
	}
	return store
}

func (f *fakeTestStore) List(_ context.Context, filter models.TestFilter) ([]models.Test, int, error) {
	var out []models.Test
	for _, t := range f.tests {
		if filter.SubjectID != "" && t.SubjectID != filter.SubjectID {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeTestStore) FindByID(_ context.Context, id string) (*models.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTestStore) Create(_ context.Context, test *models.Test) error {
	if test.ID == "" {
		test.ID = "test-" + test.Name
	}
	clone := *test
	f.tests[test.ID] = &clone
	return nil
}

func (f *fakeTestStore) Update(_ context.Context, test *models.Test) error {
	if _, ok := f.tests[test.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *test
	f.tests[test.ID] = &clone
	return nil
}

func (f *fakeTestStore) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.tests, id)
	return nil
}

func (f *fakeTestStore) ListAssignments(_ context.Context, testID string) ([]models.TestAssign, error) {
	return f.assigns[testID], nil
}

func (f *fakeTestStore) FindAssignment(_ context.Context, testID, groupID string) (*models.TestAssign, error) {
	for _, a := range f.assigns[testID] {
		if a.GroupID == groupID {
			clone := a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTestStore) AssignGroups(_ context.Context, testID string, groupIDs []string) (models.SyncReport, error) {
	if f.assignErr != nil {
		return models.SyncReport{}, f.assignErr
	}
	f.assigned = append(f.assigned, groupIDs)
	for _, id := range groupIDs {
		f.assigns[testID] = append(f.assigns[testID], models.TestAssign{ID: "assign-" + id, TestID: testID, GroupID: id})
	}
	return f.assignReport, nil
}

func (f *fakeTestStore) UnassignGroups(_ context.Context, testID string, groupIDs []string) (models.SyncReport, error) {
	if f.unassignErr != nil {
		return models.SyncReport{}, f.unassignErr
	}
	f.unassigned = append(f.unassigned, groupIDs)
	return models.SyncReport{Deleted: int64(len(groupIDs))}, nil
}

func (f *fakeTestStore) SetWritingDate(_ context.Context, testID, groupID string, date *time.Time) error {
	for i, a := range f.assigns[testID] {
		if a.GroupID == groupID {
			f.assigns[testID][i].WritingDate = date
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeTestStore) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.tests))
	for id := range f.tests {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeTestStore) Reconcile(_ context.Context, testID string) (models.SyncReport, error) {
	f.reconciled = append(f.reconciled, testID)
	return models.SyncReport{Created: 1}, nil
}

type fakeTaskStore struct {
	tasks     map[string][]models.Task
	createErr error
	updateErr error
	deleteErr error
	listCalls int
}

func newFakeTaskStore(tasks ...models.Task) *fakeTaskStore {
	store := &fakeTaskStore{tasks: map[string][]models.Task{}}
	for _, t := range tasks {
		store.tasks[t.TestID] = append(store.tasks[t.TestID], t)
	}
	return store
}

func (f *fakeTaskStore) ListByTest(_ context.Context, testID string) ([]models.Task, error) {
	f.listCalls++
	return append([]models.Task(nil), f.tasks[testID]...), nil
}

func (f *fakeTaskStore) FindByID(_ context.Context, id string) (*models.Task, error) {
	for _, list := range f.tasks {
		for _, t := range list {
			if t.ID == id {
				clone := t
				return &clone, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTaskStore) Create(_ context.Context, task *models.Task) (models.SyncReport, error) {
	if f.createErr != nil {
		return models.SyncReport{}, f.createErr
	}
	if task.ID == "" {
		task.ID = "task-new"
	}
	f.tasks[task.TestID] = append(f.tasks[task.TestID], *task)
	return models.SyncReport{Created: 2}, nil
}

func (f *fakeTaskStore) Update(_ context.Context, task *models.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	list := f.tasks[task.TestID]
	for i := range list {
		if list[i].ID == task.ID {
			list[i] = *task
		}
	}
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, task *models.Task) (models.SyncReport, error) {
	if f.deleteErr != nil {
		return models.SyncReport{}, f.deleteErr
	}
	list := f.tasks[task.TestID]
	for i := range list {
		if list[i].ID == task.ID {
			f.tasks[task.TestID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return models.SyncReport{Deleted: 3}, nil
}

type fakeStudentStore struct {
	students  []models.Student
	deleted   []string
	createErr error
}

func (f *fakeStudentStore) ListByGroup(_ context.Context, groupID string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.students {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStudentStore) FindByID(_ context.Context, id string) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			clone := s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentStore) Create(_ context.Context, student *models.Student) (models.SyncReport, error) {
	if f.createErr != nil {
		return models.SyncReport{}, f.createErr
	}
	if student.ID == "" {
		student.ID = "student-" + student.Surname
	}
	f.students = append(f.students, *student)
	return models.SyncReport{Created: 4}, nil
}

func (f *fakeStudentStore) Delete(_ context.Context, id string) error {
	for i, s := range f.students {
		if s.ID == id {
			f.students = append(f.students[:i], f.students[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeGroupStore struct {
	groups    map[string]models.Group
	deleteErr error
}

func newFakeGroupStore(groups ...models.Group) *fakeGroupStore {
	store := &fakeGroupStore{groups: map[string]models.Group{}}
	for _, g := range groups {
		store.groups[g.ID] = g
	}
	return store
}

func (f *fakeGroupStore) List(_ context.Context, filter models.GroupFilter) ([]models.Group, error) {
	var out []models.Group
	for _, g := range f.groups {
		if filter.Campus != "" && g.Campus != filter.Campus {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGroupStore) FindByID(_ context.Context, id string) (*models.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

func (f *fakeGroupStore) Create(_ context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = "group-" + group.Label()
	}
	f.groups[group.ID] = *group
	return nil
}

func (f *fakeGroupStore) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.groups[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.groups, id)
	return nil
}

type fakeSubjectStore struct {
	subjects  map[string]models.Subject
	createErr error
}

func newFakeSubjectStore(subjects ...models.Subject) *fakeSubjectStore {
	store := &fakeSubjectStore{subjects: map[string]models.Subject{}}
	for _, s := range subjects {
		store.subjects[s.ID] = s
	}
	return store
}

func (f *fakeSubjectStore) List(_ context.Context) ([]models.Subject, error) {
	var out []models.Subject
	for _, s := range f.subjects {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSubjectStore) FindByID(_ context.Context, id string) (*models.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeSubjectStore) Create(_ context.Context, subject *models.Subject) error {
	if f.createErr != nil {
		return f.createErr
	}
	if subject.ID == "" {
		subject.ID = "subject-" + strings.ToLower(subject.Name)
	}
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjectStore) Delete(_ context.Context, id string) error {
	if _, ok := f.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.subjects, id)
	return nil
}

// fakeResultRows filters an in-memory row set the way the SQL builder does.
type fakeResultRows struct {
	rows      []models.ResultRow
	subjectOf map[string]string
	sources   map[string][]models.ReportCardSource
	calls     int
	err       error
}

func (f *fakeResultRows) ResultRows(_ context.Context, filter repository.ResultFilter) ([]models.ResultRow, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	nums := map[int]bool{}
	for _, n := range filter.Nums {
		nums[n] = true
	}
	var out []models.ResultRow
	for _, row := range f.rows {
		switch {
		case filter.TestID != "" && row.TestID != filter.TestID,
			filter.GroupID != "" && row.GroupID != filter.GroupID,
			filter.StudentID != "" && row.StudentID != filter.StudentID,
			filter.SubjectID != "" && f.subjectOf[row.TestID] != filter.SubjectID,
			len(nums) > 0 && !nums[row.Num],
			filter.WrittenOnly && row.WritingDate == nil:
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeResultRows) ReportSources(_ context.Context, groupID string) ([]models.ReportCardSource, error) {
	return f.sources[groupID], nil
}

type stubCacheRepo struct {
	store       map[string][]byte
	generations map[string]int64
	invalidated []string
	incrErr     error
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if generation, ok := s.generations[key]; ok {
		return json.Unmarshal([]byte(strconv.FormatInt(generation, 10)), dest)
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) Incr(_ context.Context, key string) (int64, error) {
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	if s.generations == nil {
		s.generations = make(map[string]int64)
	}
	s.generations[key]++
	return s.generations[key], nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

type fakePersonalCardStore struct {
	cards      map[string]*models.PersonalCard
	skills     []models.SoftSkill
	saved      []models.CardNote
	savedMarks []models.SoftSkillMark
	saveErr    error
	periodFrom time.Time
	periodTo   time.Time
}

func newFakePersonalCardStore(cards ...models.PersonalCard) *fakePersonalCardStore {
	f := &fakePersonalCardStore{cards: make(map[string]*models.PersonalCard)}
	for i := range cards {
		card := cards[i]
		f.cards[card.ID] = &card
	}
	return f
}

func (f *fakePersonalCardStore) ListByStudent(_ context.Context, studentID string, includeArchived bool) ([]models.PersonalCard, error) {
	var out []models.PersonalCard
	for _, card := range f.cards {
		if card.StudentID == studentID && (includeArchived || !card.IsArchived) {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (f *fakePersonalCardStore) FindByID(_ context.Context, id string) (*models.PersonalCard, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *card
	return &clone, nil
}

func (f *fakePersonalCardStore) FindForPeriod(_ context.Context, studentID string, from, to time.Time) (*models.PersonalCard, error) {
	f.periodFrom, f.periodTo = from, to
	for _, card := range f.cards {
		if card.StudentID == studentID && !card.IsArchived && !card.StartDate.After(to) && !card.EndDate.Before(from) {
			clone := *card
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePersonalCardStore) Create(_ context.Context, card *models.PersonalCard) error {
	if card.ID == "" {
		card.ID = "card-" + card.StudentID
	}
	clone := *card
	f.cards[card.ID] = &clone
	return nil
}

func (f *fakePersonalCardStore) Save(_ context.Context, card *models.PersonalCard, notes []models.CardNote, marks []models.SoftSkillMark) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	stored, ok := f.cards[card.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.IsArchived = card.IsArchived
	stored.Notes = append(stored.Notes, notes...)
	stored.SkillMarks = append(stored.SkillMarks, marks...)
	f.saved = append(f.saved, notes...)
	f.savedMarks = append(f.savedMarks, marks...)
	return nil
}

func (f *fakePersonalCardStore) Delete(_ context.Context, id string) error {
	if _, ok := f.cards[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.cards, id)
	return nil
}

func (f *fakePersonalCardStore) ListSoftSkills(context.Context) ([]models.SoftSkill, error) {
	return f.skills, nil
}

func (f *fakePersonalCardStore) CreateSoftSkill(_ context.Context, skill *models.SoftSkill) error {
	if skill.ID == "" {
		skill.ID = "skill-" + skill.Name
	}
	f.skills = append(f.skills, *skill)
	return nil
}
