package domain

import "time"

// Form classifies a video's content type, assigned at indexing time.
type Form string

const (
	FormLong  Form = "long"
	FormShort Form = "short"
)

// Quality names one rung of the thumbnail quality ladder.
type Quality string

const (
	QualityDefault  Quality = "default"
	QualityMedium   Quality = "mqdefault"
	QualityHigh     Quality = "hqdefault"
	QualityStandard Quality = "sddefault"
	QualityMax      Quality = "maxresdefault"
)

// Ladder lists the quality levels worst to best. Best-available fetching
// probes it in reverse.
var Ladder = []Quality{QualityDefault, QualityMedium, QualityHigh, QualityStandard, QualityMax}

// IDLength is the fixed length of a video id.
const IDLength = 11

// Entry is one tracked video's thumbnail record.
type Entry struct {
	ID        string
	Form      Form
	Quality   Quality // empty until downloaded
	Attempts  int
	Title     string // empty until scraped
	Channel   string // empty until scraped
	IndexedAt time.Time
}

// Downloaded reports whether a thumbnail image has been stored for this entry.
func (e *Entry) Downloaded() bool {
	return e.Quality != ""
}

// Scraped reports whether title and channel have both been recorded.
func (e *Entry) Scraped() bool {
	return e.Title != "" && e.Channel != ""
}

// Eligible returns true if the entry may still be handed to the fetcher.
func (e *Entry) Eligible(maxAttempts int) bool {
	return !e.Downloaded() && e.Attempts < maxAttempts
}

// ValidForm reports whether f is a recognized content form.
func ValidForm(f Form) bool {
	return f == FormLong || f == FormShort
}

// ValidQuality reports whether q names a ladder level.
func ValidQuality(q Quality) bool {
	for _, l := range Ladder {
		if q == l {
			return true
		}
	}
	return false
}
