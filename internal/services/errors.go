package services

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("invalid date range")
	ErrInvalidDate  = errors.New("unrecognised date")
)

// DataLoadError means the source could not be fetched or parsed. Line is the
// 1-based CSV line of the offending row, or 0 when the failure is not row specific.
type DataLoadError struct {
	Source string
	Line   int
	Cause  error
}

func (e *DataLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: line %d: %v", e.Source, e.Line, e.Cause)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Cause)
}

func (e *DataLoadError) Unwrap() error {
	return e.Cause
}

type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%v: start %s is after end %s", ErrInvalidRange, e.Start.Format(dateLayout), e.End.Format(dateLayout))
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}
