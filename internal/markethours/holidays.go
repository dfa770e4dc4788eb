package markethours

import (
	"sync"
	"time"
)

// NYSE full-day holidays are computed by rule for any year rather than kept
// in a static table. Observance shifts: a holiday on Saturday is observed
// the Friday before, on Sunday the Monday after. New Year's Day on a
// Saturday is the exception: the exchange does not close on the preceding
// December 31 (e.g. 2022).

var (
	holidayMu  sync.Mutex
	holidaySet = map[string]bool{}
	yearsBuilt = map[int]bool{}
)

// IsHoliday returns true if the date (in ET) is an NYSE holiday.
func IsHoliday(t time.Time) bool {
	et := t.In(ET)

	holidayMu.Lock()
	defer holidayMu.Unlock()
	if !yearsBuilt[et.Year()] {
		for _, h := range holidaysForYear(et.Year()) {
			holidaySet[h.Format("2006-01-02")] = true
		}
		yearsBuilt[et.Year()] = true
	}
	return holidaySet[et.Format("2006-01-02")]
}

func holidaysForYear(year int) []time.Time {
	days := []time.Time{
		newYears(year),
		nthWeekday(year, time.January, time.Monday, 3),   // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),  // Washington's Birthday
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday),         // Memorial Day
		observed(etDate(year, time.June, 19)),            // Juneteenth
		observed(etDate(year, time.July, 4)),             // Independence Day
		nthWeekday(year, time.September, time.Monday, 1), // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(etDate(year, time.December, 25)),        // Christmas
	}
	return days
}

func etDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, ET)
}

// observed shifts weekend holidays to the adjacent weekday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// newYears handles the exchange's rule that January 1 on a Saturday is not
// observed at all; the returned Sunday date matches no session day.
func newYears(year int) time.Time {
	d := etDate(year, time.January, 1)
	if d.Weekday() == time.Saturday {
		return d
	}
	return observed(d)
}

// nthWeekday returns the nth given weekday of the month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := etDate(year, month, 1)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of the month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := etDate(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday is two days before Easter Sunday (Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := time.Month((h + l - 7*m + 114) / 31)
	day := (h+l-7*m+114)%31 + 1
	return etDate(year, month, day).AddDate(0, 0, -2)
}
