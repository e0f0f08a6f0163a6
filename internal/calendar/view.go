package calendar

import (
	"eventcal/internal/caldate"
	"eventcal/internal/model"
)

// TileView is the JSON shape of a Tile.
type TileView struct {
	Day         caldate.Date           `json:"date"`
	InMonth     bool                   `json:"in_month"`
	Today       bool                   `json:"today,omitempty"`
	Occurrences []model.OccurrenceView `json:"occurrences"`
}

// MonthView is the JSON shape of a Month.
type MonthView struct {
	Month    string       `json:"month"`
	Previous caldate.Date `json:"previous"`
	Next     caldate.Date `json:"next"`
	Weeks    [][]TileView `json:"weeks"`
}

func (mon Month) View() MonthView {
	out := MonthView{
		Month:    mon.Month.Time().Format("2006-01"),
		Previous: mon.Previous,
		Next:     mon.Next,
		Weeks:    make([][]TileView, len(mon.Weeks)),
	}
	for i, week := range mon.Weeks {
		out.Weeks[i] = make([]TileView, len(week))
		for j, t := range week {
			views := make([]model.OccurrenceView, len(t.Occurrences))
			for k, o := range t.Occurrences {
				views[k] = model.NewOccurrenceView(o)
			}
			out.Weeks[i][j] = TileView{Day: t.Day, InMonth: t.InMonth, Today: t.Today, Occurrences: views}
		}
	}
	return out
}
