// Package worker polls feeds on an interval and scores every new post.
package worker

import (
	"context"
	"time"

	"vibecope/internal/classifier"
	"vibecope/internal/domain"
	"vibecope/internal/logging"
	"vibecope/internal/scraper"
)

// ReportFunc receives every newly seen post with its classification.
type ReportFunc func(post domain.Post, res *classifier.Result)

type Watcher struct {
	scraper    scraper.Scraper
	classifier classifier.Classifier
	sources    []scraper.Source
	interval   time.Duration
	maxAge     time.Duration
	now        func() time.Time
	seen       map[string]bool
	log        *logging.Logger
	report     ReportFunc
}

func NewWatcher(s scraper.Scraper, c classifier.Classifier, sources []scraper.Source, interval time.Duration, log *logging.Logger, report ReportFunc) *Watcher {
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{
		scraper:    s,
		classifier: c,
		sources:    sources,
		interval:   interval,
		now:        time.Now,
		seen:       make(map[string]bool),
		log:        log,
		report:     report,
	}
}

// SkipOlderThan makes the watcher ignore posts created more than d before
// each poll. Zero disables the cutoff.
func (w *Watcher) SkipOlderThan(d time.Duration) *Watcher {
	w.maxAge = d
	return w
}

// Start polls all sources immediately and then once per interval until ctx
// is done.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.pollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll(ctx)
		}
	}
}

// Stats counts the posts of one poll of one source.
type Stats struct {
	New        int
	Duplicates int
	Stale      int
	Hustle     int
}

func (w *Watcher) pollAll(ctx context.Context) {
	for _, src := range w.sources {
		if ctx.Err() != nil {
			return
		}
		w.poll(ctx, src)
	}
}

func (w *Watcher) poll(ctx context.Context, src scraper.Source) Stats {
	var st Stats

	posts, err := scraper.Fetch(ctx, w.scraper, src)
	if err != nil {
		w.log.Warnf("%s: %v", src, err)
		return st
	}

	var cutoff time.Time
	if w.maxAge > 0 {
		cutoff = w.now().Add(-w.maxAge)
	}

	for _, post := range posts {
		if w.seen[post.ID] {
			st.Duplicates++
			continue
		}
		if !cutoff.IsZero() && post.Before(cutoff) {
			st.Stale++
			continue
		}

		res, err := w.classifier.Classify(ctx, post)
		if err != nil {
			w.log.Warnf("classify %s: %v", post.ID, err)
			continue
		}
		w.seen[post.ID] = true
		st.New++
		if res.Label == domain.LabelHustle {
			st.Hustle++
		}
		if w.report != nil {
			w.report(post, res)
		}
	}

	w.log.Infof("%s: new=%d, hustle=%d, duplicates=%d, stale=%d, seen_total=%d",
		src, st.New, st.Hustle, st.Duplicates, st.Stale, len(w.seen))
	return st
}
