package services

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"sales-dashboard/internal/models"
)

func TestFilter_InclusiveBounds(t *testing.T) {
	records := sampleRecords()

	got, err := Filter(records, day(2024, 1, 2), day(2024, 1, 3))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	// input order preserved
	want := []time.Time{day(2024, 1, 3), day(2024, 1, 2), day(2024, 1, 3)}
	for i, r := range got {
		if !r.Date.Equal(want[i]) {
			t.Errorf("record %d date = %v, want %v", i, r.Date, want[i])
		}
	}
}

func TestFilter_SingleDay(t *testing.T) {
	records := sampleRecords()

	got, err := Filter(records, day(2024, 1, 1), day(2024, 1, 1))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for _, r := range got {
		if !r.Date.Equal(day(2024, 1, 1)) {
			t.Errorf("unexpected date %v in single-day filter", r.Date)
		}
	}
}

func TestFilter_IgnoresTimeOfDay(t *testing.T) {
	records := sampleRecords()
	records[0].Date = time.Date(2024, 1, 3, 18, 30, 0, 0, time.UTC)

	got, err := Filter(records, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), day(2024, 1, 3))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records on 2024-01-03, got %d", len(got))
	}
}

func TestFilter_Idempotent(t *testing.T) {
	records := sampleRecords()
	start, end := day(2024, 1, 1), day(2024, 1, 3)

	once, err := Filter(records, start, end)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Filter(once, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("filtering twice should equal filtering once")
	}
}

func TestFilter_InvalidRange(t *testing.T) {
	got, err := Filter(sampleRecords(), day(2024, 1, 5), day(2024, 1, 1))
	if got != nil {
		t.Errorf("expected nil result, got %d records", len(got))
	}
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	var rangeErr *InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected *InvalidRangeError, got %T", err)
	}
	if !rangeErr.Start.Equal(day(2024, 1, 5)) || !rangeErr.End.Equal(day(2024, 1, 1)) {
		t.Errorf("unexpected range in error: %v", rangeErr)
	}
}

func TestFilter_OutOfRangeIsEmpty(t *testing.T) {
	got, err := Filter(sampleRecords(), day(2023, 6, 1), day(2023, 6, 30))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-02", want: day(2024, 1, 2)},
		{in: " 2024-01-02 ", want: day(2024, 1, 2)},
		{in: "2024-01-02 13:45:00", want: day(2024, 1, 2)},
		{in: "2024-01-02T23:59:59+07:00", want: day(2024, 1, 2)},
		{in: "2024/01/02", want: day(2024, 1, 2)},
		{in: "02/01/2024", wantErr: true},
		{in: "2024-02-30", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidDate) {
				t.Errorf("error %v should wrap ErrInvalidDate", err)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDateBounds(t *testing.T) {
	minDate, maxDate, ok := DateBounds(sampleRecords())
	if !ok {
		t.Fatal("expected bounds for non-empty set")
	}
	if !minDate.Equal(day(2024, 1, 1)) || !maxDate.Equal(day(2024, 1, 5)) {
		t.Errorf("bounds = %v..%v, want 2024-01-01..2024-01-05", minDate, maxDate)
	}

	if _, _, ok := DateBounds(nil); ok {
		t.Error("expected ok=false for empty set")
	}
}

func TestParseDateRange(t *testing.T) {
	fallback := models.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	tests := []struct {
		name      string
		start     string
		end       string
		want      models.DateRange
		wantRange bool
		wantErr   bool
	}{
		{name: "blank uses fallback", want: fallback},
		{name: "start only", start: "2024-01-10", want: models.DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 31)}},
		{name: "both", start: "2024-01-10", end: "2024-01-12", want: models.DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 12)}},
		{name: "reversed", start: "2024-01-12", end: "2024-01-10", wantErr: true, wantRange: true},
		{name: "garbage", start: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateRange(tt.start, tt.end, fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if errors.Is(err, ErrInvalidRange) != tt.wantRange {
					t.Errorf("errors.Is(err, ErrInvalidRange) = %v, want %v", !tt.wantRange, tt.wantRange)
				}
				return
			}
			if !got.Start.Equal(tt.want.Start) || !got.End.Equal(tt.want.End) {
				t.Errorf("ParseDateRange() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
