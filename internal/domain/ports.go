package domain

import "context"

// Filter restricts a repository query. Zero fields mean "no restriction".
type Filter struct {
	Form     Form
	Channels []string
}

// FormStats aggregates one form's index counts.
type FormStats struct {
	Indexed    int
	Downloaded int
}

// ChannelCount is one channel's entry count, for the search pre-step.
type ChannelCount struct {
	Channel string
	Count   int
}

// IndexStore is the driven port for entry persistence.
type IndexStore interface {
	InsertIfAbsent(ctx context.Context, id string, form Form) (bool, error)
	Get(ctx context.Context, id string) (*Entry, error)
	Undownloaded(ctx context.Context, maxAttempts int) ([]Entry, error)
	RecordAttempt(ctx context.Context, id string) error
	RecordQuality(ctx context.Context, id string, q Quality) error
	ScrapeCandidates(ctx context.Context) ([]Entry, error)
	RecordMetadata(ctx context.Context, id, title, channel string) error
	Filtered(ctx context.Context, f Filter) ([]Entry, error)
	ChannelCounts(ctx context.Context, form Form) ([]ChannelCount, error)
	FormCounts(ctx context.Context) (map[Form]FormStats, error)
	Delete(ctx context.Context, id string) error
}

// ThumbnailFetcher is the driven port for pulling one thumbnail image.
// Fetch writes the best available quality to dest and reports the level
// that actually returned content.
type ThumbnailFetcher interface {
	Fetch(ctx context.Context, id, dest string) (Quality, int64, error)
}

// Metadata is one successful scrape's yield. Both fields are always set.
type Metadata struct {
	Title   string
	Channel string
}

// MetadataScraper is the driven port for page title/channel extraction.
type MetadataScraper interface {
	Scrape(ctx context.Context, id string) (Metadata, error)
}

// StoreLayout maps forms to the directories their image files live in.
type StoreLayout interface {
	StoreDir(form Form) string
	ImagePath(id string, form Form) string
}

// ProgressSink receives monotonic batch progress updates.
type ProgressSink interface {
	Progress(done, total int)
}

// NoopSink discards progress updates.
type NoopSink struct{}

func (NoopSink) Progress(int, int) {}
