// Package dispatch sends work units to the translation model and collects
// the resulting records.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/store"
)

const MaxConcurrency = 4

// Materializer fills in a unit's payload just before it is sent.
type Materializer interface {
	Materialize(ctx context.Context, u domain.WorkUnit) (domain.WorkUnit, error)
}

// Sink receives every unit completion, translated or skipped.
type Sink interface {
	UnitCompleted(source string, rec *domain.TranslationRecord, warn *domain.Warning)
}

// Cache is a translation memory consulted before each remote call.
type Cache interface {
	Lookup(ctx context.Context, u domain.WorkUnit, sc store.Scope) (store.Entry, bool, error)
	Remember(ctx context.Context, u domain.WorkUnit, sc store.Scope, e store.Entry) error
}

type Dispatcher struct {
	Translator  ai.Translator
	Quality     domain.Quality
	Concurrency int
	Cache       Cache
	Logger      zerolog.Logger
}

// Result holds records in unit order and the warnings of skipped units.
type Result struct {
	Records  []domain.TranslationRecord
	Warnings []domain.Warning
	Cached   int
}

// Run translates units one remote call each. A failing unit is skipped with
// a warning and the run continues. Cancellation stops new units from
// starting; the records finished so far are returned with ctx's error.
func (d *Dispatcher) Run(ctx context.Context, units []domain.WorkUnit, m Materializer, sink Sink) (Result, error) {
	if d.Translator == nil {
		return Result{}, domain.ConfigError("dispatcher has no translator", nil)
	}
	workers := d.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > MaxConcurrency {
		workers = MaxConcurrency
	}

	var (
		mu  sync.Mutex
		res Result
	)
	complete := func(u domain.WorkUnit, rec *domain.TranslationRecord, warn *domain.Warning, cached bool) {
		mu.Lock()
		if rec != nil {
			res.Records = append(res.Records, *rec)
		}
		if warn != nil {
			res.Warnings = append(res.Warnings, *warn)
		}
		if cached {
			res.Cached++
		}
		mu.Unlock()
		if sink != nil {
			sink.UnitCompleted(u.SourceLabel, rec, warn)
		}
	}

	start := time.Now()
	var runErr error
	if workers == 1 {
		for _, u := range units {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			if err := d.process(ctx, u, m, complete); err != nil {
				runErr = err
				break
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, u := range units {
			if err := ctx.Err(); err != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return d.process(ctx, u, m, complete)
			})
		}
		runErr = g.Wait()
		if runErr == nil {
			runErr = ctx.Err()
		}
	}

	sort.SliceStable(res.Records, func(i, j int) bool { return res.Records[i].Index < res.Records[j].Index })

	d.Logger.Info().
		Int("units", len(units)).
		Int("records", len(res.Records)).
		Int("skipped", len(res.Warnings)).
		Int("cached", res.Cached).
		Int("workers", workers).
		Dur("elapsed", time.Since(start)).
		Msg("dispatch finished")
	return res, runErr
}

type completeFunc func(u domain.WorkUnit, rec *domain.TranslationRecord, warn *domain.Warning, cached bool)

// process handles one unit. It only returns an error for cancellation;
// every other failure becomes a warning.
func (d *Dispatcher) process(ctx context.Context, u domain.WorkUnit, m Materializer, complete completeFunc) error {
	log := d.Logger.With().Int("unit", u.Index).Str("source", u.SourceLabel).Logger()

	if m != nil {
		full, err := m.Materialize(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Msg("could not prepare unit, skipping")
			w := domain.WarningFrom(u.SourceLabel, err)
			complete(u, nil, &w, false)
			return nil
		}
		u = full
	}

	if d.Cache != nil {
		e, ok, err := d.Cache.Lookup(ctx, u, d.scope())
		if err != nil {
			log.Warn().Err(err).Msg("translation memory lookup failed")
		} else if ok {
			rec := domain.NewRecord(u, e.Original, e.Translated)
			log.Debug().Msg("translation memory hit")
			complete(u, &rec, nil, true)
			return nil
		}
	}

	t, err := d.translate(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("translation failed, skipping unit")
		w := domain.WarningFrom(u.SourceLabel, err)
		complete(u, nil, &w, false)
		return nil
	}

	rec := domain.NewRecord(u, t.Original, t.Translated)
	var warn *domain.Warning
	if t.Malformed {
		w := domain.Warning{
			Source:  u.SourceLabel,
			Kind:    domain.ErrorTypeMalformedResponse,
			Message: "model returned no usable translation; a placeholder was inserted",
		}
		warn = &w
	} else if d.Cache != nil {
		if err := d.Cache.Remember(ctx, u, d.scope(), store.Entry{Original: t.Original, Translated: t.Translated}); err != nil {
			log.Warn().Err(err).Msg("could not store translation memory")
		}
	}
	complete(u, &rec, warn, false)
	return nil
}

// scope keys the translation memory by tier and, when the translator can
// name it, by backend model.
func (d *Dispatcher) scope() store.Scope {
	sc := store.Scope{Quality: d.Quality}
	if n, ok := d.Translator.(ai.ModelNamer); ok {
		sc.Model = n.ModelFor(d.Quality)
	}
	return sc
}

func (d *Dispatcher) translate(ctx context.Context, u domain.WorkUnit) (ai.Translation, error) {
	switch u.Kind {
	case domain.RawText:
		return d.Translator.TranslateText(ctx, u.Text, d.Quality)
	case domain.RasterImage:
		return d.Translator.TranslatePage(ctx, u.Payload, u.MIMEType, d.Quality)
	}
	return ai.Translation{}, domain.ValidationError(fmt.Sprintf("unknown payload kind %s", u.Kind), nil)
}

// Canceled reports whether a Run error came from cancellation.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
