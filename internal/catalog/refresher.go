package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"eventcal/internal/clock"
	appLog "eventcal/internal/log"
)

// Refresher reloads the catalog on a cron schedule.
type Refresher struct {
	store *Store
	load  LoadFunc
	clock clock.Clock
	cron  *cron.Cron

	mu sync.Mutex
}

func NewRefresher(store *Store, load LoadFunc, clk clock.Clock, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{
		store: store,
		load:  load,
		clock: clk,
		cron:  cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Refresh loads once and installs the result. When loading reports an
// error the current snapshot is kept, unless there is none yet, in which
// case whatever did load is installed so the site is not empty. The error
// is returned either way.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, loadErr := r.load(ctx)
	current := r.store.Current()
	if loadErr != nil && current.Version > 0 {
		appLog.Error("catalog: reload failed, keeping previous snapshot", loadErr, "version", current.Version)
		return loadErr
	}

	snap, err := r.store.Replace(events, r.clock.Now())
	if err != nil {
		appLog.Error("catalog: rejected", err, "events", len(events))
		return err
	}
	if loadErr != nil {
		appLog.Error("catalog: installed incomplete catalog", loadErr, "version", snap.Version, "events", len(snap.Events))
		return loadErr
	}
	appLog.Info("catalog: loaded", "version", snap.Version, "events", len(snap.Events))
	return nil
}

// Start schedules Refresh with a standard five-field cron spec and stops
// the schedule when ctx is done.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("catalog: refresh schedule %q: %w", spec, err)
	}
	if _, err := r.cron.AddFunc(spec, func() { _ = r.Refresh(ctx) }); err != nil {
		return fmt.Errorf("catalog: refresh schedule %q: %w", spec, err)
	}
	r.cron.Start()
	appLog.Info("catalog: refresh scheduled", "spec", spec)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running refresh.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
