package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"eventcal/internal/caldate"
)

// ErrUnsupportedRule is returned when a schedule cannot be expressed as an
// RRULE, or an RRULE cannot be expressed as a Pattern.
var ErrUnsupportedRule = errors.New("recurrence: unsupported rule")

// rruleWeekdays is indexed by time.Weekday.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ToROption describes s as RFC 5545 recurrence options. Exception dates are
// not part of the rule.
func ToROption(s Schedule) (rrule.ROption, error) {
	if s.Series == nil {
		return rrule.ROption{}, fmt.Errorf("%w: event does not repeat", ErrUnsupportedRule)
	}
	anchor := s.AnchorDay()
	opt := rrule.ROption{Dtstart: s.Start}

	switch p := s.Series.Pattern.(type) {
	case Daily:
		opt.Freq = rrule.DAILY
		opt.Interval = normalizeInterval(p.Interval)
	case Weekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = normalizeInterval(p.Interval)
		opt.Wkst = rrule.MO
		days := p.Days
		if len(days) == 0 {
			days = []time.Weekday{anchor.Weekday()}
		}
		for _, wd := range days {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}
	case MonthlyByDay:
		opt.Freq = rrule.MONTHLY
		opt.Interval = normalizeInterval(p.Interval)
		opt.Bymonthday = p.Days
		if len(opt.Bymonthday) == 0 {
			opt.Bymonthday = []int{anchor.Day}
		}
	case MonthlyByWeekday:
		opt.Freq = rrule.MONTHLY
		opt.Interval = normalizeInterval(p.Interval)
		selections := p.Selections
		if len(selections) == 0 {
			selections = []WeekdaySelection{{}}
		}
		for _, sel := range selections {
			wd := rruleWeekdays[sel.Weekday.OrElse(anchor.Weekday())]
			opt.Byweekday = append(opt.Byweekday, wd.Nth(sel.Week.OrElse(anchor.WeekOfMonth())))
		}
	case Yearly:
		opt.Freq = rrule.YEARLY
		opt.Interval = normalizeInterval(p.Interval)
	case nil:
		return rrule.ROption{}, fmt.Errorf("%w: series has no pattern", ErrInvalidPattern)
	default:
		return rrule.ROption{}, fmt.Errorf("%w: unsupported pattern type %T", ErrInvalidPattern, p)
	}

	if count, ok := s.Series.Count.Get(); ok {
		if count < 1 {
			return rrule.ROption{}, fmt.Errorf("%w: count %d", ErrUnsupportedRule, count)
		}
		opt.Count = count
	}
	if end, ok := s.Series.End.Get(); ok {
		opt.Until = end.In(s.Start.Location()).Add(24*time.Hour - time.Second)
	}
	return opt, nil
}

// ToRRule builds an rrule-go rule for s.
func ToRRule(s Schedule) (*rrule.RRule, error) {
	opt, err := ToROption(s)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedRule, err)
	}
	return r, nil
}

// RRuleText renders the RRULE value (without DTSTART) for s.
func RRuleText(s Schedule) (string, error) {
	opt, err := ToROption(s)
	if err != nil {
		return "", err
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedRule, err)
	}
	return opt.RRuleString(), nil
}

// FromRRule translates an imported RRULE value into a Series. Only the
// subset this engine can evaluate is accepted: DAILY, WEEKLY, MONTHLY and
// YEARLY with INTERVAL, COUNT, UNTIL, plain BYDAY for weekly rules, ordinal
// BYDAY or positive BYMONTHDAY for monthly rules, and BYMONTH/BYMONTHDAY on
// yearly rules only when they restate the anchor.
func FromRRule(raw string, anchor caldate.Date) (*Series, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "RRULE:")
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedRule, err)
	}
	if len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
	}

	interval := normalizeInterval(opt.Interval)
	series := &Series{}
	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		series.Pattern = Daily{Interval: interval}
	case rrule.WEEKLY:
		if len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		// Weekly intervals count ISO weeks. Another week start shifts
		// which weeks are on for INTERVAL above one.
		if interval > 1 && opt.Wkst != rrule.MO {
			return nil, fmt.Errorf("%w: WKST=%v with INTERVAL=%d in %s", ErrUnsupportedRule, opt.Wkst, interval, raw)
		}
		weekly := Weekly{Interval: interval}
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				return nil, fmt.Errorf("%w: ordinal weekday in weekly rule %s", ErrUnsupportedRule, raw)
			}
			weekly.Days = append(weekly.Days, fromRRuleWeekday(wd))
		}
		series.Pattern = weekly
	case rrule.MONTHLY:
		if len(opt.Bymonth) > 0 || (len(opt.Byweekday) > 0 && len(opt.Bymonthday) > 0) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		if len(opt.Byweekday) > 0 {
			monthly := MonthlyByWeekday{Interval: interval}
			for _, wd := range opt.Byweekday {
				n := wd.N()
				if n == 0 || n > 5 || n < LastWeek {
					return nil, fmt.Errorf("%w: weekday ordinal %d in %s", ErrUnsupportedRule, n, raw)
				}
				monthly.Selections = append(monthly.Selections, WeekdaySelection{
					Weekday: mo.Some(fromRRuleWeekday(wd)),
					Week:    mo.Some(n),
				})
			}
			series.Pattern = monthly
			break
		}
		for _, d := range opt.Bymonthday {
			if d < 1 {
				return nil, fmt.Errorf("%w: month day %d in %s", ErrUnsupportedRule, d, raw)
			}
		}
		series.Pattern = MonthlyByDay{Interval: interval, Days: opt.Bymonthday}
	case rrule.YEARLY:
		if len(opt.Byweekday) > 0 ||
			!restates(opt.Bymonth, int(anchor.Month)) || !restates(opt.Bymonthday, anchor.Day) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		series.Pattern = Yearly{Interval: interval}
	default:
		return nil, fmt.Errorf("%w: frequency %s", ErrUnsupportedRule, opt.Freq)
	}

	if opt.Count > 0 {
		series.Count = mo.Some(opt.Count)
	}
	if !opt.Until.IsZero() {
		series.End = mo.Some(caldate.FromTime(opt.Until))
	}
	return series, nil
}

func fromRRuleWeekday(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}

func restates(values []int, want int) bool {
	for _, v := range values {
		if v != want {
			return false
		}
	}
	return true
}
