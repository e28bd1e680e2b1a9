package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/pkg/storage"
)

type reportSourceStub struct {
	err error
}

func (s reportSourceStub) ReportCard(_ context.Context, query models.ReportCardQuery) (*models.ReportCard, error) {
	if s.err != nil {
		return nil, s.err
	}
	pct := 62.5
	return &models.ReportCard{
		Student:      models.Student{ID: query.StudentID, Surname: "Abel", Name: "Anna"},
		Group:        models.Group{StudyingYear: 3, Letter: "B"},
		AcademicYear: query.AcademicYear,
		FromMonth:    query.FromMonth,
		ToMonth:      query.ToMonth,
		Subjects: []models.ReportCardSubject{{
			Subject: models.Subject{ID: "math", Name: "Mathematics"},
			Months:  []models.TimeSeriesPoint{{Month: 10, Year: 2025, Points: 5, MaxPoints: 8, Percent: &pct}},
			Tests: []models.ReportCardTest{{
				TestID: "t1", Name: "Fractions", WritingDate: datePtr(2025, time.October, 14),
				Levels: []models.LevelStat{{Level: models.LevelBasic, Percent: &pct}, {Level: models.LevelReflexive}},
			}},
		}},
	}, nil
}

func (s reportSourceStub) TestSummary(_ context.Context, testID, groupID string) (*models.TestSummary, error) {
	return &models.TestSummary{
		Test:    models.Test{ID: testID, Name: "Fractions"},
		GroupID: groupID,
		Tasks:   []models.Task{{ID: "k1", Num: 1, Level: models.LevelBasic, MaxPoints: 2}},
		Rows: []models.MatrixRow{{
			Student: models.Student{Surname: "Abel"},
			Points:  []models.SheetCell{{TaskID: "k1", Result: intPtr(2)}},
		}},
		TaskCounts: []models.TaskCount{{TaskID: "k1", Num: 1, Level: models.LevelBasic, MaxPoints: 2, Solved: 1}},
	}, nil
}

func (s reportSourceStub) TimeSeries(_ context.Context, query models.TimeSeriesQuery) (*models.TimeSeries, error) {
	return &models.TimeSeries{Scope: query.Scope, Points: []models.TimeSeriesPoint{{Month: 9, Year: 2025}}}, nil
}

func (s reportSourceStub) GroupAverages(_ context.Context, groupID string, _ models.TaskFilter) ([]models.GroupLevelAverage, error) {
	return []models.GroupLevelAverage{{GroupID: groupID, Level: models.LevelBasic, Points: 3, MaxPoints: 4}}, nil
}

func newExportServiceForTest(t *testing.T, source reportSource) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(source, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	return svc, store
}

func TestExportServiceGenerateReportCardCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t, reportSourceStub{})
	job := &models.ReportJob{
		ID:   "job-1",
		Type: models.ReportTypeReportCard,
		Params: models.ReportJobParams{
			Format: models.ReportFormatCSV, StudentID: "s1", AcademicYear: 2025, FromMonth: 9, ToMonth: 12,
		},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/reports/download/"))
	assert.True(t, strings.HasPrefix(result.RelativePath, "report_card/s1_"))

	file, err := store.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Mathematics\nTest,Written,Basic %,Reflexive %\n"))
	assert.Contains(t, string(body), "Fractions,2025-10-14,62.5,n/a")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestReportCardDocumentIncludesPersonalCard(t *testing.T) {
	card, err := reportSourceStub{}.ReportCard(context.Background(), models.ReportCardQuery{StudentID: "s1", AcademicYear: 2025, FromMonth: 9, ToMonth: 12})
	require.NoError(t, err)
	mark := models.SkillMarkRatherNo
	card.PersonalCard = &models.PersonalCard{
		StartDate: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
		Notes: []models.CardNote{
			{SubjectID: "math", SubjectName: "Mathematics", Kind: models.NoteRecommendation, Text: "Practise fractions"},
			{SubjectID: "math", SubjectName: "Mathematics", Kind: models.NoteStrength, Text: "Neat proofs"},
		},
		SkillMarks: []models.SoftSkillMark{
			{SkillID: "k1", SkillName: "Teamwork", Mark: &mark},
			{SkillID: "k2", SkillName: "Focus"},
		},
	}

	doc := ReportCardDocument(card)
	require.NoError(t, doc.Validate())
	require.Len(t, doc.Sections, 4)
	notes := doc.Sections[2]
	assert.Equal(t, "Teacher notes, 2025-10-01 to 2025-10-31", notes.Heading)
	assert.Equal(t, [][]string{{"Mathematics", "Neat proofs", "Practise fractions"}}, notes.Rows)
	assert.Equal(t, [][]string{{"Teamwork", "Rather no"}, {"Focus", ""}}, doc.Sections[3].Rows)
}

func TestExportServiceGenerateTestResultsPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t, reportSourceStub{})
	job := &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypeTestResults,
		Params: models.ReportJobParams{Format: models.ReportFormatPDF, TestID: "t1", GroupID: "g1"},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
}

func TestExportServiceGroupProgressDocument(t *testing.T) {
	svc, _ := newExportServiceForTest(t, reportSourceStub{})

	doc, err := svc.Document(context.Background(), models.ReportTypeGroupProgress, models.ReportJobParams{
		GroupID: "g1", SubjectID: "math", AcademicYear: 2025, FromMonth: 9, ToMonth: 9,
	})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 4)
	assert.Equal(t, "All levels", doc.Sections[0].Heading)
	assert.Equal(t, []string{"basic", "3", "4", "n/a"}, doc.Sections[3].Rows[0])
}

func TestExportServicePropagatesSourceErrors(t *testing.T) {
	svc, _ := newExportServiceForTest(t, reportSourceStub{err: assert.AnError})

	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID: "job-3", Type: models.ReportTypeReportCard, Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, reportSourceStub{})

	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID: "job-4", Type: models.ReportTypeTestResults, Params: models.ReportJobParams{Format: "xlsx", TestID: "t1"},
	})
	assert.Error(t, err)
}
