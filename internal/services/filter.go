package services

import (
	"fmt"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

// Accepted date layouts, all year-first so a value never reads two ways.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate parses s with the accepted layouts and truncates it to a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Filter keeps the records whose date lies in [start, end], both ends
// inclusive, preserving input order.
func Filter(records []models.Transaction, start, end time.Time) ([]models.Transaction, error) {
	start, end = truncateDay(start), truncateDay(end)
	if start.After(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	filtered := make([]models.Transaction, 0, len(records))
	for _, tx := range records {
		d := truncateDay(tx.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered, nil
}

// DateBounds returns the earliest and latest record dates. ok is false for an empty set.
func DateBounds(records []models.Transaction) (minDate, maxDate time.Time, ok bool) {
	for i, tx := range records {
		d := truncateDay(tx.Date)
		if i == 0 || d.Before(minDate) {
			minDate = d
		}
		if i == 0 || d.After(maxDate) {
			maxDate = d
		}
	}
	return minDate, maxDate, len(records) > 0
}

// ParseDateRange parses request input, substituting fallback for blank ends.
func ParseDateRange(startStr, endStr string, fallback models.DateRange) (models.DateRange, error) {
	r := fallback
	if strings.TrimSpace(startStr) != "" {
		start, err := ParseDate(startStr)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("start: %w", err)
		}
		r.Start = start
	}
	if strings.TrimSpace(endStr) != "" {
		end, err := ParseDate(endStr)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("end: %w", err)
		}
		r.End = end
	}
	if r.Start.After(r.End) {
		return models.DateRange{}, &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return r, nil
}
