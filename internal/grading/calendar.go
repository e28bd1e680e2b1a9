package grading

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

// The academic year opens in September and closes in August.
const firstAcademicMonth = time.September

// AcademicIndex maps a calendar month to its 1-based position in the academic
// year: September is 1, August is 12.
func AcademicIndex(month int) int {
	return (month-int(firstAcademicMonth)+12)%12 + 1
}

// AcademicYearOf returns the year in which t's academic year began.
func AcademicYearOf(t time.Time) int {
	if t.Month() >= firstAcademicMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// CalendarYear returns the calendar year month falls in for the academic year
// that began in academicYear.
func CalendarYear(academicYear, month int) int {
	if month >= int(firstAcademicMonth) {
		return academicYear
	}
	return academicYear + 1
}

// ValidMonth reports whether month is a calendar month number.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// MonthRange lists the calendar months from..to inclusive in academic order.
// It fails when from comes after to in the academic year.
func MonthRange(from, to int) ([]int, error) {
	if !ValidMonth(from) || !ValidMonth(to) {
		return nil, fmt.Errorf("months must be within 1..12, got %d..%d", from, to)
	}
	start, end := AcademicIndex(from), AcademicIndex(to)
	if start > end {
		return nil, fmt.Errorf("start month %d is after end month %d in the academic year", from, to)
	}
	months := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		months = append(months, (int(firstAcademicMonth)+i-2)%12+1)
	}
	return months, nil
}

// InRange reports whether date falls within the academic year and month range.
func InRange(date time.Time, academicYear, from, to int) bool {
	if AcademicYearOf(date) != academicYear {
		return false
	}
	idx := AcademicIndex(int(date.Month()))
	return idx >= AcademicIndex(from) && idx <= AcademicIndex(to)
}

// MonthlySeries buckets rows by the month of their writing date and returns one
// weighted point per month of the range, September first. Rows without a
// writing date, outside the range, or at another level (when level is set) are
// skipped. Months without graded rows carry a nil percent.
func MonthlySeries(rows []models.ResultRow, academicYear, from, to int, level models.TaskLevel) ([]models.TimeSeriesPoint, error) {
	months, err := MonthRange(from, to)
	if err != nil {
		return nil, err
	}
	buckets := make(map[int][]models.ResultRow, len(months))
	for _, row := range rows {
		if row.WritingDate == nil || (level != "" && row.Level != level) {
			continue
		}
		if !InRange(*row.WritingDate, academicYear, from, to) {
			continue
		}
		m := int(row.WritingDate.Month())
		buckets[m] = append(buckets[m], row)
	}

	points := make([]models.TimeSeriesPoint, 0, len(months))
	for _, m := range months {
		earned, possible := Weighted(buckets[m])
		points = append(points, models.TimeSeriesPoint{
			Month:     m,
			Year:      CalendarYear(academicYear, m),
			Points:    earned,
			MaxPoints: possible,
			Percent:   OptionalPercent(earned, possible),
		})
	}
	return points, nil
}
