package domain

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by store lookups for unknown ids.
	ErrNotFound = errors.New("entry not found")
	// ErrNotRepository marks a path that carries no repository index.
	ErrNotRepository = errors.New("not a thumbnail repository")
)

// Ref is one extracted video reference.
type Ref struct {
	ID   string
	Form Form
}

// LinkExtractor is the driven port for turning pasted text into references.
type LinkExtractor interface {
	Extract(text string) []Ref
}

// Service drives entries through the indexed -> downloaded -> scraped
// lifecycle. All passes are re-entrant: work already done is skipped by the
// store queries, and per-item failures never abort a batch.
type Service struct {
	store       IndexStore
	fetcher     ThumbnailFetcher
	scraper     MetadataScraper
	extractor   LinkExtractor
	layout      StoreLayout
	maxAttempts int
	log         zerolog.Logger
}

// NewService creates a lifecycle service.
func NewService(store IndexStore, fetcher ThumbnailFetcher, scraper MetadataScraper, extractor LinkExtractor, layout StoreLayout, maxAttempts int, log zerolog.Logger) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Service{
		store:       store,
		fetcher:     fetcher,
		scraper:     scraper,
		extractor:   extractor,
		layout:      layout,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// IndexReport summarizes one indexing pass.
type IndexReport struct {
	Found    int
	Inserted int
}

// PassReport summarizes one download or scrape pass.
type PassReport struct {
	Total     int
	Succeeded int
	Failed    int
}

// GetReport summarizes a compound index+download+scrape run.
type GetReport struct {
	Index    IndexReport
	Download PassReport
	Scrape   PassReport
}

// Index extracts references from text and inserts the new ones.
// Re-indexing already-known ids is a no-op.
func (s *Service) Index(ctx context.Context, text string) (IndexReport, error) {
	var rep IndexReport
	for _, ref := range s.extractor.Extract(text) {
		rep.Found++
		inserted, err := s.store.InsertIfAbsent(ctx, ref.ID, ref.Form)
		if err != nil {
			return rep, err
		}
		if inserted {
			rep.Inserted++
			s.log.Debug().Str("id", ref.ID).Str("form", string(ref.Form)).Msg("indexed")
		}
	}
	return rep, nil
}

// Download fetches the best available thumbnail for every eligible entry.
// The attempt is recorded before the fetch it accounts for, so an interrupt
// can never leave quality set without the attempt counted.
func (s *Service) Download(ctx context.Context, sink ProgressSink) (PassReport, error) {
	if sink == nil {
		sink = NoopSink{}
	}
	entries, err := s.store.Undownloaded(ctx, s.maxAttempts)
	if err != nil {
		return PassReport{}, err
	}
	rep := PassReport{Total: len(entries)}
	sink.Progress(0, rep.Total)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := s.store.RecordAttempt(ctx, e.ID); err != nil {
			return rep, err
		}
		dest := s.layout.ImagePath(e.ID, e.Form)
		q, n, err := s.fetcher.Fetch(ctx, e.ID, dest)
		if err != nil {
			s.log.Warn().Str("id", e.ID).Err(err).Msg("download failed")
			rep.Failed++
			sink.Progress(i+1, rep.Total)
			continue
		}
		if err := s.store.RecordQuality(ctx, e.ID, q); err != nil {
			return rep, err
		}
		s.log.Debug().Str("id", e.ID).Str("quality", string(q)).Int64("bytes", n).Msg("downloaded")
		rep.Succeeded++
		sink.Progress(i+1, rep.Total)
	}
	return rep, nil
}

// Scrape fills in title and channel for downloaded, unscraped entries.
// Metadata is committed only when both fields were extracted; a failed
// scrape leaves the entry eligible for the next pass.
func (s *Service) Scrape(ctx context.Context, sink ProgressSink) (PassReport, error) {
	if sink == nil {
		sink = NoopSink{}
	}
	entries, err := s.store.ScrapeCandidates(ctx)
	if err != nil {
		return PassReport{}, err
	}
	rep := PassReport{Total: len(entries)}
	sink.Progress(0, rep.Total)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		meta, err := s.scraper.Scrape(ctx, e.ID)
		if err != nil {
			s.log.Warn().Str("id", e.ID).Err(err).Msg("scrape failed")
			rep.Failed++
			sink.Progress(i+1, rep.Total)
			continue
		}
		if err := s.store.RecordMetadata(ctx, e.ID, meta.Title, meta.Channel); err != nil {
			return rep, err
		}
		s.log.Debug().Str("id", e.ID).Str("channel", meta.Channel).Msg("scraped")
		rep.Succeeded++
		sink.Progress(i+1, rep.Total)
	}
	return rep, nil
}

// Get composes Index, Download and Scrape, in that order. Indexing runs
// first so a video that disappears mid-run has at least been recorded.
func (s *Service) Get(ctx context.Context, text string, sink ProgressSink) (GetReport, error) {
	var rep GetReport
	var err error
	if rep.Index, err = s.Index(ctx, text); err != nil {
		return rep, err
	}
	if rep.Download, err = s.Download(ctx, sink); err != nil {
		return rep, err
	}
	if rep.Scrape, err = s.Scrape(ctx, sink); err != nil {
		return rep, err
	}
	return rep, nil
}
