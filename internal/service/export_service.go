package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/pkg/export"
	"github.com/noah-isme/sma-tests-api/pkg/storage"
)

type reportSource interface {
	ReportCard(ctx context.Context, query models.ReportCardQuery) (*models.ReportCard, error)
	TestSummary(ctx context.Context, testID, groupID string) (*models.TestSummary, error)
	TimeSeries(ctx context.Context, query models.TimeSeriesQuery) (*models.TimeSeries, error)
	GroupAverages(ctx context.Context, groupID string, filter models.TaskFilter) ([]models.GroupLevelAverage, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService turns aggregates into CSV or PDF documents and stores them
// behind signed download tokens.
type ExportService struct {
	source    reportSource
	storage   fileStorage
	renderers map[models.ReportFormat]documentRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source reportSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		source:  source,
		storage: files,
		renderers: map[models.ReportFormat]documentRenderer{
			models.ReportFormatCSV: export.NewCSVExporter(),
			models.ReportFormatPDF: export.NewPDFExporter(),
		},
		signer: signer,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Generate builds the document described by job, renders and stores it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	doc, err := s.Document(ctx, job.Type, job.Params)
	if err != nil {
		return nil, err
	}
	payload, err := s.Render(doc, job.Params.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("export stored", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Render encodes doc in the requested format.
func (s *ExportService) Render(doc export.Document, format models.ReportFormat) ([]byte, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	return renderer.Render(doc)
}

// Document builds the export document of a report type.
func (s *ExportService) Document(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (export.Document, error) {
	switch reportType {
	case models.ReportTypeReportCard:
		card, err := s.source.ReportCard(ctx, models.ReportCardQuery{
			StudentID:    params.StudentID,
			AcademicYear: params.AcademicYear,
			FromMonth:    params.FromMonth,
			ToMonth:      params.ToMonth,
		})
		if err != nil {
			return export.Document{}, err
		}
		return ReportCardDocument(card), nil
	case models.ReportTypeTestResults:
		summary, err := s.source.TestSummary(ctx, params.TestID, params.GroupID)
		if err != nil {
			return export.Document{}, err
		}
		return testResultsDocument(summary), nil
	case models.ReportTypeGroupProgress:
		return s.groupProgressDocument(ctx, params)
	default:
		return export.Document{}, fmt.Errorf("unsupported report type %s", reportType)
	}
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s.%s", job.Type, sanitizeFilename(job.Params.Target(job.Type)), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// ReportCardDocument lays out a report card as one tests table and one
// monthly table per subject.
func ReportCardDocument(card *models.ReportCard) export.Document {
	doc := export.Document{
		Title: "Report card: " + card.Student.FullName(),
		Subtitle: fmt.Sprintf("Group %s, academic year %d/%d, months %s to %s",
			card.Group.Label(), card.AcademicYear, card.AcademicYear+1,
			time.Month(card.FromMonth), time.Month(card.ToMonth)),
	}
	for _, subject := range card.Subjects {
		tests := export.Section{
			Heading: subject.Subject.Name,
			Headers: []string{"Test", "Written", "Basic %", "Reflexive %"},
		}
		for _, test := range subject.Tests {
			written := ""
			if test.WritingDate != nil {
				written = test.WritingDate.Format("2006-01-02")
			}
			tests.Rows = append(tests.Rows, []string{
				test.Name,
				written,
				formatPercent(levelPercent(test.Levels, models.LevelBasic)),
				formatPercent(levelPercent(test.Levels, models.LevelReflexive)),
			})
		}
		doc.Sections = append(doc.Sections, tests, seriesSection(subject.Subject.Name+" by month", subject.Months))
	}
	if len(doc.Sections) == 0 {
		doc.Sections = []export.Section{{Heading: "No tests written in this period", Headers: []string{"Subject"}}}
	}
	if card.PersonalCard != nil {
		doc.Sections = append(doc.Sections, personalCardSections(card)...)
	}
	return doc
}

func personalCardSections(card *models.ReportCard) []export.Section {
	personal := card.PersonalCard
	period := personal.StartDate.Format("2006-01-02") + " to " + personal.EndDate.Format("2006-01-02")

	notes := export.Section{
		Heading: "Teacher notes, " + period,
		Headers: []string{"Subject", "Strengths", "Recommendations"},
	}
	seen := make(map[string]bool)
	for _, note := range personal.Notes {
		if seen[note.SubjectID] {
			continue
		}
		seen[note.SubjectID] = true
		notes.Rows = append(notes.Rows, []string{
			note.SubjectName,
			personal.NotesFor(note.SubjectID, models.NoteStrength),
			personal.NotesFor(note.SubjectID, models.NoteRecommendation),
		})
	}

	skills := export.Section{Heading: "Soft skills", Headers: []string{"Skill", "Mark"}}
	for _, mark := range personal.SkillMarks {
		label := ""
		if mark.Mark != nil {
			label = mark.Mark.Label()
		}
		skills.Rows = append(skills.Rows, []string{mark.SkillName, label})
	}
	return []export.Section{notes, skills}
}

func testResultsDocument(summary *models.TestSummary) export.Document {
	doc := export.Document{Title: "Test results: " + summary.Test.Name}
	if summary.GroupID != "" {
		doc.Subtitle = "Group " + summary.GroupID
	}

	matrix := export.Section{Heading: "Graded students", Headers: []string{"Student"}}
	for _, task := range summary.Tasks {
		matrix.Headers = append(matrix.Headers, fmt.Sprintf("%d %s", task.Num, task.Level))
	}
	matrix.Headers = append(matrix.Headers, "Basic %", "Reflexive %")
	for _, row := range summary.Rows {
		line := []string{row.Student.FullName()}
		for _, cell := range row.Points {
			line = append(line, formatResult(cell.Result))
		}
		line = append(line,
			formatPercent(levelPercent(row.Levels, models.LevelBasic)),
			formatPercent(levelPercent(row.Levels, models.LevelReflexive)))
		matrix.Rows = append(matrix.Rows, line)
	}

	counts := export.Section{Heading: "Task statistics", Headers: []string{"Task", "Level", "Max points", "Solved", "Zero"}}
	for _, c := range summary.TaskCounts {
		counts.Rows = append(counts.Rows, []string{
			strconv.Itoa(c.Num), string(c.Level), strconv.Itoa(c.MaxPoints), strconv.Itoa(c.Solved), strconv.Itoa(c.Zero),
		})
	}
	doc.Sections = []export.Section{matrix, counts}
	return doc
}

func (s *ExportService) groupProgressDocument(ctx context.Context, params models.ReportJobParams) (export.Document, error) {
	doc := export.Document{
		Title:    "Group progress",
		Subtitle: fmt.Sprintf("Group %s, subject %s, academic year %d/%d", params.GroupID, params.SubjectID, params.AcademicYear, params.AcademicYear+1),
	}
	for _, level := range []models.TaskLevel{"", models.LevelBasic, models.LevelReflexive} {
		series, err := s.source.TimeSeries(ctx, models.TimeSeriesQuery{
			Scope:        models.ScopeGroup,
			ScopeID:      params.GroupID,
			SubjectID:    params.SubjectID,
			AcademicYear: params.AcademicYear,
			FromMonth:    params.FromMonth,
			ToMonth:      params.ToMonth,
			Level:        level,
		})
		if err != nil {
			return export.Document{}, err
		}
		heading := "All levels"
		if level != "" {
			heading = string(level) + " level"
		}
		doc.Sections = append(doc.Sections, seriesSection(heading, series.Points))
	}

	averages, err := s.source.GroupAverages(ctx, params.GroupID, models.TaskFilter{SubjectID: params.SubjectID})
	if err != nil {
		return export.Document{}, err
	}
	totals := export.Section{Heading: "Subject totals", Headers: []string{"Level", "Points", "Max points", "Percent"}}
	for _, avg := range averages {
		totals.Rows = append(totals.Rows, []string{string(avg.Level), strconv.Itoa(avg.Points), strconv.Itoa(avg.MaxPoints), formatPercent(avg.Percent)})
	}
	doc.Sections = append(doc.Sections, totals)
	return doc, nil
}

func seriesSection(heading string, points []models.TimeSeriesPoint) export.Section {
	section := export.Section{Heading: heading, Headers: []string{"Month", "Points", "Max points", "Percent"}}
	for _, p := range points {
		section.Rows = append(section.Rows, []string{
			fmt.Sprintf("%s %d", time.Month(p.Month), p.Year),
			strconv.Itoa(p.Points),
			strconv.Itoa(p.MaxPoints),
			formatPercent(p.Percent),
		})
	}
	return section
}

func levelPercent(stats []models.LevelStat, level models.TaskLevel) *float64 {
	for _, stat := range stats {
		if stat.Level == level {
			return stat.Percent
		}
	}
	return nil
}

func formatPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}

func formatResult(r *int) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(*r)
}
