package catalog

import (
	"context"
	"errors"

	"eventcal/internal/content"
	"eventcal/internal/ics"
	"eventcal/internal/model"
)

// LoadFunc produces the events of the next catalog generation. A non-nil
// error means the result may be incomplete.
type LoadFunc func(ctx context.Context) ([]model.Event, error)

// Loader gathers events from the content directory and the ICS
// subscriptions.
type Loader struct {
	ContentDir string
	Fetcher    *ics.Fetcher
	Sources    []ics.Source
}

func (l *Loader) Load(ctx context.Context) ([]model.Event, error) {
	var errs []error

	events, err := content.LoadDir(l.ContentDir)
	errs = append(errs, err)

	if l.Fetcher != nil && len(l.Sources) > 0 {
		imported, err := ics.LoadEvents(ctx, l.Fetcher, l.Sources)
		errs = append(errs, err)
		events = append(events, imported...)
	}

	return events, errors.Join(errs...)
}
