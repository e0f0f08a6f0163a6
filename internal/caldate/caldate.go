// Package caldate implements zone-naive calendar days and the whole-unit
// arithmetic the recurrence engine is built on.
//
// A Date carries no time of day and no location. Internally every
// conversion goes through midnight UTC, which has no DST transitions, so
// day differences are always exact multiples of 24h.
package caldate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the day token format used at the HTTP and content boundaries.
const Layout = "2006-01-02"

// ErrInvalidToken is returned when a day token is not a valid YYYY-MM-DD date.
var ErrInvalidToken = errors.New("caldate: invalid day token")

// Date is a calendar day. The zero value is not a valid day; use New,
// FromTime or Parse. Dates are comparable with ==.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for year/month/day, so New(2024, 1, 32)
// is 2024-02-01.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar day of the wall-clock instant t, read in
// t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse parses a YYYY-MM-DD token.
func Parse(token string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(token))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q", ErrInvalidToken, token)
	}
	return FromTime(t), nil
}

// Time returns midnight of d in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Format renders d as a YYYY-MM-DD token.
func (d Date) Format() string {
	return d.Time().Format(Layout)
}

func (d Date) String() string {
	return d.Format()
}

// MarshalText implements encoding.TextMarshaler; JSON and YAML use the
// day token form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// ISOWeekday numbers the week Monday=1 through Sunday=7.
func (d Date) ISOWeekday() int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekOfMonth is the 1-based ordinal of d's weekday within its month: the
// first Tuesday of a month is week 1, the third is week 3.
func (d Date) WeekOfMonth() int {
	return (d.Day-1)/7 + 1
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) DaysInMonth() int {
	return DaysIn(d.Year, d.Month)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

func (d Date) AddWeeks(n int) Date {
	return d.AddDays(7 * n)
}

// AddMonths moves d by n calendar months. A day that does not exist in the
// target month is clamped to that month's last day: 2024-01-31 + 1 month is
// 2024-02-29.
func (d Date) AddMonths(n int) Date {
	total := int(d.Month) - 1 + n
	year := d.Year + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	return Date{Year: year, Month: month, Day: min(d.Day, DaysIn(year, month))}
}

// AddYears moves d by n years with the same clamping as AddMonths, so
// 2024-02-29 + 1 year is 2025-02-28.
func (d Date) AddYears(n int) Date {
	year := d.Year + n
	return Date{Year: year, Month: d.Month, Day: min(d.Day, DaysIn(year, d.Month))}
}

// StartOfWeek returns the Monday of d's ISO week.
func (d Date) StartOfWeek() Date {
	return d.AddDays(1 - d.ISOWeekday())
}

// EndOfWeek returns the Sunday of d's ISO week.
func (d Date) EndOfWeek() Date {
	return d.StartOfWeek().AddDays(6)
}

// StartOfWeekOn returns the latest day on or before d that falls on first.
// Views use it for locale-dependent week layouts; recurrence math always
// uses ISO weeks.
func (d Date) StartOfWeekOn(first time.Weekday) Date {
	back := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-back)
}

func (d Date) StartOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

func (d Date) EndOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: d.DaysInMonth()}
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the signed number of days from from to to. It counts
// in Unix seconds, which stay exact over any span time.Time can hold.
func DaysBetween(from, to Date) int {
	return int((to.Time().Unix() - from.Time().Unix()) / secondsPerDay)
}

// WeeksBetween returns the number of whole weeks from from to to, rounded
// toward negative infinity.
func WeeksBetween(from, to Date) int {
	return floorDiv(DaysBetween(from, to), 7)
}

// MonthsBetween returns the number of calendar months between the months
// containing from and to. Days within the month are ignored.
func MonthsBetween(from, to Date) int {
	return (to.Year-from.Year)*12 + int(to.Month) - int(from.Month)
}

// YearsBetween returns the number of completed years from from to to,
// rounded toward negative infinity. An anniversary that does not exist
// (Feb 29 in a common year) is reached on Feb 28.
func YearsBetween(from, to Date) int {
	n := to.Year - from.Year
	if to.Before(from.AddYears(n)) {
		n--
	}
	return n
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
