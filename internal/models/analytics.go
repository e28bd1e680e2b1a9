package models

import "time"

// ResultRow is a flattened task_solutions record joined with its task and test.
type ResultRow struct {
	StudentID   string     `db:"student_id"`
	GroupID     string     `db:"group_id"`
	TestID      string     `db:"test_id"`
	TaskID      string     `db:"task_id"`
	Num         int        `db:"num"`
	Level       TaskLevel  `db:"level"`
	MaxPoints   int        `db:"max_points"`
	Result      *int       `db:"result"`
	WritingDate *time.Time `db:"writing_date"`
}

// TaskFilter narrows the tasks taken into a group aggregate.
type TaskFilter struct {
	TestID    string
	SubjectID string
	Nums      []int
}

// LevelStat aggregates one level of one test. Nil Total/Percent mean undefined.
type LevelStat struct {
	Level     TaskLevel `json:"level"`
	Total     *int      `json:"total"`
	MaxPoints int       `json:"max_points"`
	Percent   *float64  `json:"percent"`
}

// StudentTestSummary is a student's standing on one test.
type StudentTestSummary struct {
	StudentID     string        `json:"student_id"`
	TestID        string        `json:"test_id"`
	Participation Participation `json:"participation"`
	Levels        []LevelStat   `json:"levels"`
}

// TaskCount holds the cohort counts for one task.
type TaskCount struct {
	TaskID    string    `json:"task_id"`
	Num       int       `json:"num"`
	Level     TaskLevel `json:"level"`
	MaxPoints int       `json:"max_points"`
	Solved    int       `json:"solved"`
	Zero      int       `json:"zero"`
}

// MatrixRow is one graded student's line in a test summary.
type MatrixRow struct {
	Student Student     `json:"student"`
	Points  []SheetCell `json:"points"`
	Levels  []LevelStat `json:"levels"`
}

// TestSummary is the results matrix of a test, optionally restricted to one group.
type TestSummary struct {
	Test       Test        `json:"test"`
	GroupID    string      `json:"group_id,omitempty"`
	Tasks      []Task      `json:"tasks"`
	Rows       []MatrixRow `json:"rows"`
	TaskCounts []TaskCount `json:"task_counts"`
}

// GroupLevelAverage is a weighted percent across a group's students and tasks.
type GroupLevelAverage struct {
	GroupID   string    `json:"group_id"`
	Level     TaskLevel `json:"level"`
	Points    int       `json:"points"`
	MaxPoints int       `json:"max_points"`
	Percent   *float64  `json:"percent"`
}

// SeriesScope selects whose results a time series aggregates.
type SeriesScope string

const (
	ScopeStudent SeriesScope = "student"
	ScopeGroup   SeriesScope = "group"
)

// TimeSeriesQuery selects a subject series for a student or a group.
type TimeSeriesQuery struct {
	Scope        SeriesScope `validate:"required,oneof=student group"`
	ScopeID      string      `validate:"required"`
	SubjectID    string      `validate:"required"`
	AcademicYear int         `validate:"required,min=2000,max=2100"`
	FromMonth    int         `validate:"required,min=1,max=12"`
	ToMonth      int         `validate:"required,min=1,max=12"`
	Level        TaskLevel   `validate:"omitempty,oneof=basic reflexive"`
}

// TimeSeriesPoint is the weighted percent for one month.
type TimeSeriesPoint struct {
	Month     int      `json:"month"`
	Year      int      `json:"year"`
	Points    int      `json:"points"`
	MaxPoints int      `json:"max_points"`
	Percent   *float64 `json:"percent"`
}

// TimeSeries is a month-ordered subject series, September first.
type TimeSeries struct {
	Scope        SeriesScope       `json:"scope"`
	ScopeID      string            `json:"scope_id"`
	SubjectID    string            `json:"subject_id"`
	AcademicYear int               `json:"academic_year"`
	Level        TaskLevel         `json:"level,omitempty"`
	Points       []TimeSeriesPoint `json:"points"`
}

// ReportCardQuery selects a personal report card.
type ReportCardQuery struct {
	StudentID    string `json:"student_id" validate:"required"`
	AcademicYear int    `json:"academic_year" validate:"required,min=2000,max=2100"`
	FromMonth    int    `json:"from_month" validate:"required,min=1,max=12"`
	ToMonth      int    `json:"to_month" validate:"required,min=1,max=12"`
}

// ReportCardTest is a student's result on one test inside a report card.
type ReportCardTest struct {
	TestID      string      `json:"test_id"`
	Name        string      `json:"name"`
	WritingDate *time.Time  `json:"writing_date,omitempty"`
	Levels      []LevelStat `json:"levels"`
}

// ReportCardSubject groups a subject's monthly series and tests.
type ReportCardSubject struct {
	Subject Subject           `json:"subject"`
	Months  []TimeSeriesPoint `json:"months"`
	Tests   []ReportCardTest  `json:"tests"`
}

// ReportCard is a student's personal progress card over an academic period.
type ReportCard struct {
	Student      Student             `json:"student"`
	Group        Group               `json:"group"`
	AcademicYear int                 `json:"academic_year"`
	FromMonth    int                 `json:"from_month"`
	ToMonth      int                 `json:"to_month"`
	Subjects     []ReportCardSubject `json:"subjects"`
	PersonalCard *PersonalCard       `json:"personal_card,omitempty"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// ReportCardSource is a test assignment row used to build report cards and series.
type ReportCardSource struct {
	TestID      string     `db:"test_id"`
	TestName    string     `db:"test_name"`
	SubjectID   string     `db:"subject_id"`
	SubjectName string     `db:"subject_name"`
	WritingDate *time.Time `db:"writing_date"`
}

// GradingMetrics is the instrumentation snapshot served by the metrics endpoint.
type GradingMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SubmissionsAccepted      uint64    `json:"submissions_accepted"`
	SubmissionsRejected      uint64    `json:"submissions_rejected"`
	AggregateQueries         uint64    `json:"aggregate_queries"`
	AverageAggregateMs       float64   `json:"average_aggregate_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
