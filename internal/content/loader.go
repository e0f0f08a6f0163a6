// Package content loads event definitions from Markdown files with YAML
// front matter.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/samber/mo"
	"gopkg.in/yaml.v3"

	"eventcal/internal/caldate"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// ErrInvalidEvent wraps every per-file validation failure.
var ErrInvalidEvent = errors.New("invalid event")

const fileExt = ".md"

type document struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	HeaderImage string    `yaml:"headerImage"`
	Location    *location `yaml:"location"`
	Start       string    `yaml:"start"`
	End         string    `yaml:"end"`
	Series      *series   `yaml:"series"`

	// Flat location keys of older files.
	LocationName    string `yaml:"locationName"`
	LocationAddress string `yaml:"locationAddress"`
	LocationMap     string `yaml:"locationMap"`
	LocationLink    string `yaml:"locationLink"`
	LocationWebsite string `yaml:"locationWebsite"`
}

type location struct {
	Name      string   `yaml:"name"`
	Address   string   `yaml:"address"`
	Map       string   `yaml:"map"`
	Link      string   `yaml:"link"`
	Website   string   `yaml:"website"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
}

type series struct {
	Frequency     *frequency `yaml:"frequency"`
	Count         *int       `yaml:"count"`
	End           string     `yaml:"end"`
	CanceledDates []string   `yaml:"canceledDates"`
	MissedDates   []string   `yaml:"missedDates"`
}

type frequency struct {
	Days    *int     `yaml:"days"`
	Weekly  *weekly  `yaml:"weekly"`
	Monthly *monthly `yaml:"monthly"`
	Years   *int     `yaml:"years"`
}

type weekly struct {
	Days  []string `yaml:"days"`
	Weeks *int     `yaml:"weeks"`
}

type monthly struct {
	Months   *int              `yaml:"months"`
	Days     []int             `yaml:"days"`
	Weekdays []weekdaySelector `yaml:"weekdays"`
}

type weekdaySelector struct {
	Weekday string `yaml:"weekday"`
	Week    *int   `yaml:"week"`
}

// LoadDir loads every *.md file in dir. See LoadFS.
func LoadDir(dir string) ([]model.Event, error) {
	return LoadFS(os.DirFS(dir))
}

// LoadFS parses every *.md file at the root of fsys, ordered by file name.
// Files that fail to parse or validate are left out of the result and each
// contributes one entry to the returned (joined) error, so a caller can tell
// that the set is incomplete.
func LoadFS(fsys fs.FS) ([]model.Event, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		events []model.Event
		errs   []error
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != fileExt {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("content: %s: %w", name, err))
			continue
		}
		ev, err := Parse(strings.TrimSuffix(name, fileExt), data)
		if err != nil {
			appLog.Error("content: skipping event file", err, "file", name)
			errs = append(errs, fmt.Errorf("content: %s: %w", name, err))
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("content: loaded events", "count", len(events), "failed", len(errs))
	return events, errors.Join(errs...)
}

// Parse builds an event from one file's contents.
func Parse(slug string, data []byte) (model.Event, error) {
	meta, body, err := splitFrontMatter(data)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var doc document
	if err := yaml.Unmarshal(meta, &doc); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	ev, err := doc.event(slug)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev.Body = string(body)
	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return ev, nil
}

func (d document) event(slug string) (model.Event, error) {
	ev := model.Event{
		Slug:        slug,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		HeaderImage: d.HeaderImage,
		Place:       d.place(),
	}

	var err error
	if d.Start == "" || d.End == "" {
		return ev, errors.New("start and end are required")
	}
	if ev.Start, err = ParseInstant(d.Start); err != nil {
		return ev, fmt.Errorf("start: %w", err)
	}
	if ev.End, err = ParseInstant(d.End); err != nil {
		return ev, fmt.Errorf("end: %w", err)
	}

	if d.Series != nil {
		if ev.Series, err = d.Series.build(); err != nil {
			return ev, fmt.Errorf("series: %w", err)
		}
	}
	return ev, nil
}

func (d document) place() model.Place {
	p := model.Place{
		Name:    d.LocationName,
		Address: d.LocationAddress,
		Map:     d.LocationMap,
		Link:    d.LocationLink,
		Website: d.LocationWebsite,
	}
	if l := d.Location; l != nil {
		p = model.Place{
			Name:      firstNonEmpty(l.Name, p.Name),
			Address:   firstNonEmpty(l.Address, p.Address),
			Map:       firstNonEmpty(l.Map, p.Map),
			Link:      firstNonEmpty(l.Link, p.Link),
			Website:   firstNonEmpty(l.Website, p.Website),
			Latitude:  mo.PointerToOption(l.Latitude),
			Longitude: mo.PointerToOption(l.Longitude),
		}
	}
	return p
}

func (s series) build() (*recurrence.Series, error) {
	if s.Frequency == nil {
		return nil, errors.New("frequency is required")
	}
	pattern, err := s.Frequency.pattern()
	if err != nil {
		return nil, err
	}

	out := &recurrence.Series{Pattern: pattern}
	if s.Count != nil {
		if *s.Count < 0 {
			return nil, fmt.Errorf("count %d is negative", *s.Count)
		}
		out.Count = mo.Some(*s.Count)
	}
	if s.End != "" {
		end, err := ParseDay(s.End)
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		out.End = mo.Some(end)
	}
	if out.Canceled, err = parseDays(s.CanceledDates); err != nil {
		return nil, fmt.Errorf("canceledDates: %w", err)
	}
	if out.Missed, err = parseDays(s.MissedDates); err != nil {
		return nil, fmt.Errorf("missedDates: %w", err)
	}
	return out, nil
}

func (f frequency) pattern() (recurrence.Pattern, error) {
	var set []string
	if f.Days != nil {
		set = append(set, "days")
	}
	if f.Weekly != nil {
		set = append(set, "weekly")
	}
	if f.Monthly != nil {
		set = append(set, "monthly")
	}
	if f.Years != nil {
		set = append(set, "years")
	}
	if len(set) != 1 {
		return nil, fmt.Errorf("frequency needs exactly one of days, weekly, monthly, years; got %v", set)
	}

	switch {
	case f.Days != nil:
		n, err := interval("days", f.Days)
		return recurrence.Daily{Interval: n}, err
	case f.Years != nil:
		n, err := interval("years", f.Years)
		return recurrence.Yearly{Interval: n}, err
	case f.Weekly != nil:
		return f.Weekly.pattern()
	default:
		return f.Monthly.pattern()
	}
}

func (w weekly) pattern() (recurrence.Pattern, error) {
	n, err := interval("weekly.weeks", w.Weeks)
	if err != nil {
		return nil, err
	}
	p := recurrence.Weekly{Interval: n}
	for _, name := range w.Days {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("weekly.days: %w", err)
		}
		p.Days = append(p.Days, wd)
	}
	return p, nil
}

func (m monthly) pattern() (recurrence.Pattern, error) {
	n, err := interval("monthly.months", m.Months)
	if err != nil {
		return nil, err
	}
	if len(m.Days) > 0 && len(m.Weekdays) > 0 {
		return nil, errors.New("monthly takes either days or weekdays, not both")
	}

	if len(m.Weekdays) > 0 {
		p := recurrence.MonthlyByWeekday{Interval: n}
		for i, sel := range m.Weekdays {
			var out recurrence.WeekdaySelection
			if sel.Weekday != "" {
				wd, err := ParseWeekday(sel.Weekday)
				if err != nil {
					return nil, fmt.Errorf("monthly.weekdays[%d]: %w", i, err)
				}
				out.Weekday = mo.Some(wd)
			}
			if sel.Week != nil {
				week := *sel.Week
				if week != recurrence.LastWeek && (week < 1 || week > 5) {
					return nil, fmt.Errorf("monthly.weekdays[%d]: week %d outside 1..5 (or -1 for last)", i, week)
				}
				out.Week = mo.Some(week)
			}
			p.Selections = append(p.Selections, out)
		}
		return p, nil
	}

	for _, d := range m.Days {
		if d < 1 || d > 31 {
			return nil, fmt.Errorf("monthly.days: %d outside 1..31", d)
		}
	}
	return recurrence.MonthlyByDay{Interval: n, Days: m.Days}, nil
}

// interval reads an optional interval; absent means 1.
func interval(field string, v *int) (int, error) {
	if v == nil {
		return 1, nil
	}
	if *v < 1 {
		return 0, fmt.Errorf("%s must be positive, got %d", field, *v)
	}
	return *v, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts English weekday names in any case.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

var instantLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	caldate.Layout,
}

// ParseInstant reads a wall-clock instant. Any zone offset is dropped; the
// result carries the written date and time in UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", s)
}

// ParseDay reads a calendar day, also accepting a full instant.
func ParseDay(s string) (caldate.Date, error) {
	t, err := ParseInstant(s)
	if err != nil {
		return caldate.Date{}, err
	}
	return caldate.FromTime(t), nil
}

func parseDays(values []string) (caldate.Set, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(caldate.Set, len(values))
	for _, v := range values {
		d, err := ParseDay(v)
		if err != nil {
			return nil, err
		}
		out[d] = struct{}{}
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
