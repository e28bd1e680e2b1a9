package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAcademicIndex(t *testing.T) {
	assert.Equal(t, 1, AcademicIndex(9))
	assert.Equal(t, 4, AcademicIndex(12))
	assert.Equal(t, 5, AcademicIndex(1))
	assert.Equal(t, 12, AcademicIndex(8))
	assert.Less(t, AcademicIndex(9), AcademicIndex(8))
}

func TestAcademicYearOf(t *testing.T) {
	assert.Equal(t, 2024, AcademicYearOf(*date(2024, time.September, 1)))
	assert.Equal(t, 2024, AcademicYearOf(*date(2025, time.May, 20)))
	assert.Equal(t, 2025, CalendarYear(2024, 3))
	assert.Equal(t, 2024, CalendarYear(2024, 11))
}

func TestMonthRange(t *testing.T) {
	months, err := MonthRange(11, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12, 1, 2}, months)

	all, err := MonthRange(9, 8)
	require.NoError(t, err)
	assert.Len(t, all, 12)
	assert.Equal(t, 9, all[0])
	assert.Equal(t, 8, all[11])

	_, err = MonthRange(2, 11)
	assert.Error(t, err)
	_, err = MonthRange(0, 5)
	assert.Error(t, err)
}

func TestMonthlySeriesOrdersSeptemberBeforeAugust(t *testing.T) {
	rows := []models.ResultRow{
		{TaskID: "a", Level: models.LevelBasic, MaxPoints: 10, Result: intPtr(5), WritingDate: date(2025, time.August, 20)},
		{TaskID: "b", Level: models.LevelBasic, MaxPoints: 10, Result: intPtr(10), WritingDate: date(2024, time.September, 10)},
		{TaskID: "c", Level: models.LevelBasic, MaxPoints: 10, Result: intPtr(2), WritingDate: date(2024, time.September, 20)},
		{TaskID: "d", Level: models.LevelReflexive, MaxPoints: 5, Result: intPtr(5), WritingDate: date(2024, time.September, 20)},
		{TaskID: "e", Level: models.LevelBasic, MaxPoints: 10, Result: nil, WritingDate: date(2024, time.October, 1)},
		{TaskID: "f", Level: models.LevelBasic, MaxPoints: 10, Result: intPtr(10), WritingDate: nil},
		{TaskID: "g", Level: models.LevelBasic, MaxPoints: 10, Result: intPtr(10), WritingDate: date(2023, time.September, 10)},
	}

	points, err := MonthlySeries(rows, 2024, 9, 8, models.LevelBasic)
	require.NoError(t, err)
	require.Len(t, points, 12)

	assert.Equal(t, 9, points[0].Month)
	assert.Equal(t, 2024, points[0].Year)
	require.NotNil(t, points[0].Percent)
	assert.InDelta(t, 60.0, *points[0].Percent, 0.0001)

	assert.Equal(t, 10, points[1].Month)
	assert.Nil(t, points[1].Percent, "ungraded rows leave the month undefined")

	last := points[11]
	assert.Equal(t, 8, last.Month)
	assert.Equal(t, 2025, last.Year)
	require.NotNil(t, last.Percent)
	assert.InDelta(t, 50.0, *last.Percent, 0.0001)

	allLevels, err := MonthlySeries(rows, 2024, 9, 9, "")
	require.NoError(t, err)
	require.Len(t, allLevels, 1)
	assert.Equal(t, 17, allLevels[0].Points)
	assert.Equal(t, 25, allLevels[0].MaxPoints)
}
