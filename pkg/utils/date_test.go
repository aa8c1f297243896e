package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthWindowStart(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	at := time.Date(2026, time.August, 31, 16, 45, 12, 0, loc)

	start := MonthWindowStart(at)

	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, loc), start)
}

func TestWeekWindowStart(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			name: "monday maps to itself",
			at:   time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday maps to previous monday",
			at:   time.Date(2026, time.August, 30, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday crossing a month boundary",
			at:   time.Date(2026, time.July, 1, 8, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.June, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekWindowStart(tt.at))
		})
	}
}

func TestAccountingKeys(t *testing.T) {
	at := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-08", MonthKey(at))
	assert.Equal(t, "2026-W36", ISOWeekKey(at))
}
