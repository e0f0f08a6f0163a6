package ics

import (
	"context"
	"errors"

	"eventcal/internal/model"
)

// LoadEvents fetches, parses and translates every source. Sources that fail
// are reported in the joined error while the others still contribute.
func LoadEvents(ctx context.Context, f *Fetcher, sources []Source) ([]model.Event, error) {
	results, fetchErr := f.FetchAll(ctx, sources)
	errs := []error{fetchErr}

	var events []model.Event
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ToEvents(parsed)...)
	}
	return events, errors.Join(errs...)
}
