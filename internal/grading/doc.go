// Package grading holds the pure rules behind result submissions and
// aggregates: batch validation, level totals and weighted percents, cohort
// task counts and academic-calendar month ordering. Nothing here touches
// storage; repositories feed it rows and services persist what it accepts.
package grading
