package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		name   string
		anchor time.Time
		months int
		want   time.Time
	}{
		{"mid month", day(2024, time.January, 15), 1, day(2024, time.February, 14)},
		{"clamped to leap february", day(2024, time.January, 31), 1, day(2024, time.February, 29)},
		{"clamped to non-leap february", day(2023, time.January, 31), 1, day(2023, time.February, 28)},
		{"first of month ends on last day", day(2024, time.January, 1), 1, day(2024, time.January, 31)},
		{"first of leap february", day(2024, time.February, 1), 1, day(2024, time.February, 29)},
		{"first of month quarterly", day(2024, time.October, 1), 3, day(2024, time.December, 31)},
		{"year rollover", day(2024, time.November, 15), 3, day(2025, time.February, 14)},
		{"twelve months", day(2024, time.March, 10), 12, day(2025, time.March, 9)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonths(tc.anchor, tc.months))
		})
	}
}

func TestSubtractMonths(t *testing.T) {
	cases := []struct {
		name   string
		anchor time.Time
		months int
		want   time.Time
	}{
		{"simple", day(2024, time.April, 15), 1, day(2024, time.March, 15)},
		{"clamped", day(2024, time.March, 31), 1, day(2024, time.February, 29)},
		{"year underflow", day(2024, time.January, 10), 2, day(2023, time.November, 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SubtractMonths(tc.anchor, tc.months))
		})
	}
}

func TestCalculatePrepaid(t *testing.T) {
	p, newEnd := Calculate(Prepaid, day(2024, time.January, 15), 1, nil)

	assert.Equal(t, day(2024, time.January, 15), p.Start)
	assert.Equal(t, day(2024, time.February, 14), p.End)
	assert.Equal(t, day(2024, time.February, 14), newEnd)
}

func TestCalculatePrepaidLeapClamp(t *testing.T) {
	p, newEnd := Calculate(Prepaid, day(2024, time.January, 31), 1, nil)

	assert.Equal(t, day(2024, time.February, 29), p.End)
	assert.Equal(t, day(2024, time.February, 29), newEnd)
}

func TestCalculatePostpaidRenewal(t *testing.T) {
	prevEnd := day(2024, time.March, 31)

	// Reference is the day after the previous end date.
	p, newEnd := Calculate(Postpaid, day(2024, time.April, 1), 1, &prevEnd)

	assert.Equal(t, day(2024, time.March, 1), p.Start)
	assert.Equal(t, day(2024, time.March, 31), p.End)
	// Next due date covers April, first-of-month convention.
	assert.Equal(t, day(2024, time.April, 30), newEnd)
}

func TestCalculatePostpaidFirstTime(t *testing.T) {
	p, newEnd := Calculate(Postpaid, day(2024, time.June, 10), 1, nil)

	assert.Equal(t, day(2024, time.June, 10), p.Start)
	assert.Equal(t, day(2024, time.July, 9), p.End)
	assert.Equal(t, day(2024, time.July, 9), newEnd)
}

func TestCalculateNormalizesTimeOfDay(t *testing.T) {
	anchor := time.Date(2024, time.January, 15, 18, 30, 12, 0, time.UTC)

	p, _ := Calculate(Prepaid, anchor, 1, nil)

	assert.Equal(t, day(2024, time.January, 15), p.Start)
	assert.Equal(t, day(2024, time.February, 14), p.End)
}
