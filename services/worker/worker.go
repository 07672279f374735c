package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/helpers"
	"sjsage522/retroconsolas/internal/crawler"
	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
	"sjsage522/retroconsolas/services/publisher"
	"sjsage522/retroconsolas/services/store"
)

// stage is a step of the per-console retrieval
type stage int

const (
	stagePrimary stage = iota
	stageFallback
	stageFilter
	stageDone
)

func (s stage) String() string {
	switch s {
	case stagePrimary:
		return "primary"
	case stageFallback:
		return "fallback"
	case stageFilter:
		return "filter"
	default:
		return "done"
	}
}

// Worker runs the daily collection over every console profile
type Worker struct {
	ctx       context.Context
	consoles  []config.ConsoleProfile
	primary   crawler.Strategy
	fallback  crawler.Strategy
	stores    []store.SnapshotStore
	publisher publisher.Publisher
	logger    helpers.LoggerInterface
	now       func() time.Time
}

// NewWorker creates a new worker. fallback and pub may be nil.
func NewWorker(
	ctx context.Context,
	consoles []config.ConsoleProfile,
	primary crawler.Strategy,
	fallback crawler.Strategy,
	stores []store.SnapshotStore,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
) *Worker {
	return &Worker{
		ctx:       ctx,
		consoles:  consoles,
		primary:   primary,
		fallback:  fallback,
		stores:    stores,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the collection on every tick of schedule until the worker's
// context is done. A tick is skipped while the previous run is still going.
func (w *Worker) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(schedule, func() {
		start := time.Now()
		if _, err := w.RunOnce(w.ctx); err != nil {
			w.logger.LogError("run", err)
			return
		}
		w.logger.LogInfo("Run finished in %s", time.Since(start).Round(time.Second))
	})
	if err != nil {
		return errors.NewConfiguration("invalid schedule "+schedule, err)
	}

	c.Start()
	w.logger.LogInfo("Scheduled runs: %s", schedule)

	<-w.ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RunOnce collects every console in order, persists the snapshot through all
// stores and publishes it. Store failures abort the run; publish failures
// are only logged.
func (w *Worker) RunOnce(ctx context.Context) (market.DailySnapshot, error) {
	snap := market.NewDailySnapshot(w.now())
	log := logger.ForWorker().WithFields(logger.Fields{
		"run_id": uuid.NewString(),
		"date":   snap.Date,
	})
	log.Info().Int("consoles", len(w.consoles)).Msg("Run started")

	for i, profile := range w.consoles {
		if err := ctx.Err(); err != nil {
			return snap, err
		}

		log.Info().Msgf("[%d/%d] %s", i+1, len(w.consoles), profile.DisplayName)

		stats := w.processConsole(ctx, profile)
		snap.Consoles[profile.Key] = stats

		if stats.AvgOfferPrice != nil {
			log.Info().
				Str("console", profile.Key).
				Int("available", stats.AvailableCount).
				Int("sold", stats.SoldCount).
				Float64("avg_offer", *stats.AvgOfferPrice).
				Float64("median_offer", *stats.MedianOfferPrice).
				Msg("Stats")
		}
	}

	if err := ctx.Err(); err != nil {
		return snap, err
	}

	for _, s := range w.stores {
		if err := s.Save(ctx, snap); err != nil {
			return snap, err
		}
	}

	w.publish(snap)

	log.Info().Msg("Run done")
	return snap, nil
}

// processConsole walks one console through primary retrieval, the fallback
// when the primary is blocked, and filtering. The fallback runs at most once.
func (w *Worker) processConsole(ctx context.Context, profile config.ConsoleProfile) market.ConsoleStats {
	log := logger.ForConsole(profile.Key)

	var raw []market.Listing
	var stats market.ConsoleStats

	for current := stagePrimary; current != stageDone; {
		log.Debug().Stringer("stage", current).Msg("Stage")

		switch current {
		case stagePrimary:
			listings, err := w.primary.Search(ctx, profile)
			current = stageFilter
			raw = listings
			if err == nil {
				break
			}

			w.logger.LogError(profile.Key+"/"+w.primary.GetName(), err)
			if errors.IsDefinitive(err) && w.fallback != nil {
				log.Warn().Str("from", w.primary.GetName()).Str("to", w.fallback.GetName()).Msg("Primary blocked, switching")
				raw = nil
				current = stageFallback
			} else if errors.IsDefinitive(err) {
				raw = nil
			}

		case stageFallback:
			listings, err := w.fallback.Search(ctx, profile)
			if err != nil {
				w.logger.LogError(profile.Key+"/"+w.fallback.GetName(), err)
			}
			raw = listings
			current = stageFilter

		case stageFilter:
			if logger.IsDebugEnabled() {
				logRejected(log, raw, profile)
			}
			filtered := market.Filter(raw, profile)
			stats = market.Aggregate(filtered)
			log.Info().Int("raw", len(raw)).Int("filtered", len(filtered)).Msg("Listings")
			current = stageDone
		}
	}

	return stats
}

// logRejected lists the listings the profile filters out
func logRejected(log *logger.Logger, listings []market.Listing, profile config.ConsoleProfile) {
	for _, l := range listings {
		if !market.Passes(l, profile) {
			log.Debug().Str("id", l.ID).Str("title", l.Title).Float64("price", l.Price).Msg("Filtered out")
		}
	}
}

func (w *Worker) publish(snap market.DailySnapshot) {
	if w.publisher == nil {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		w.logger.LogError("publisher", err)
		return
	}

	if err := w.publisher.Publish(snap.Date, data); err != nil {
		w.logger.LogError("publisher", err)
		return
	}

	if err := w.publisher.TrimStreams(); err != nil {
		w.logger.LogError("StreamTrimming", err)
	}
}
