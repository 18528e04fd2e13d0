// Package period computes billing periods and subscription end dates for
// prepaid and postpaid customers. All functions are pure; dates are
// treated as calendar days in UTC.
package period

import "time"

// BillingType selects future-looking (prepaid) or past-looking (postpaid)
// billing periods.
type BillingType string

const (
	Prepaid  BillingType = "PREPAID"
	Postpaid BillingType = "POSTPAID"
)

// Period is an inclusive billing period.
type Period struct {
	Start time.Time
	End   time.Time
}

// AddMonths returns the subscription end date for an anchor date and a
// duration in calendar months. Every anchor yields exactly months of
// service.
//
// An anchor on the 1st covers whole calendar months, so it ends on the
// last day of the final covered month (1 Feb + 1 month ends 29 Feb in a
// leap year). Any other anchor ends on anchor day minus one in the
// target month, clamped to that month's last day when it is shorter
// (31 Jan + 1 month ends 29 Feb, not 2 Mar).
func AddMonths(anchor time.Time, months int) time.Time {
	anchor = truncate(anchor)
	year, month, day := anchor.Date()

	if day == 1 {
		targetYear, targetMonth := normalize(year, int(month)+months-1)
		return date(targetYear, targetMonth, daysIn(targetYear, targetMonth))
	}

	targetYear, targetMonth := normalize(year, int(month)+months)
	targetDay := day - 1
	if last := daysIn(targetYear, targetMonth); targetDay > last {
		targetDay = last
	}
	return date(targetYear, targetMonth, targetDay)
}

// SubtractMonths walks a date back by whole calendar months, clamping the
// day when the target month is shorter (31 Mar - 1 month is 29 Feb in a
// leap year).
func SubtractMonths(anchor time.Time, months int) time.Time {
	anchor = truncate(anchor)
	year, month, day := anchor.Date()

	targetYear, targetMonth := normalize(year, int(month)-months)

	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}
	return date(targetYear, targetMonth, day)
}

// Calculate returns the billing period to show on the invoice and the
// customer's new end date.
//
// referenceDate is the renewal anchor: the requested start date, or the
// day after the previous end date. prevEndDate is required for postpaid
// renewals; a nil prevEndDate makes a postpaid customer bill like a
// prepaid one, since there is no elapsed period yet.
func Calculate(billingType BillingType, referenceDate time.Time, periodMonths int, prevEndDate *time.Time) (Period, time.Time) {
	referenceDate = truncate(referenceDate)
	newEndDate := AddMonths(referenceDate, periodMonths)

	if billingType == Postpaid && prevEndDate != nil {
		end := truncate(*prevEndDate)
		start := SubtractMonths(end, periodMonths).AddDate(0, 0, 1)
		return Period{Start: start, End: end}, newEndDate
	}

	return Period{Start: referenceDate, End: newEndDate}, newEndDate
}

// normalize carries month overflow/underflow into the year.
func normalize(year, month int) (int, time.Month) {
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}
	return year, time.Month(month)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func truncate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return date(year, month, day)
}
