// Package extract recognizes YouTube video references in free-form text.
// Matching is purely lexical; no network lookup verifies that a link
// resolves.
package extract

import (
	"regexp"
	"strings"

	"github.com/cwygoda/thumbcap/internal/domain"
)

const idPattern = `[A-Za-z0-9_-]{11}`

var (
	// The v parameter must start the query or follow &, so a parameter
	// merely ending in v (abv=) never matches.
	watchRe  = regexp.MustCompile(`youtube\.com/watch\?(?:[^\s"'<>]*&)?v=(` + idPattern + `)`)
	shortRe  = regexp.MustCompile(`youtube\.com/shorts/(` + idPattern + `)`)
	shareRe  = regexp.MustCompile(`youtu\.be/(` + idPattern + `)`)
	bareIDRe = regexp.MustCompile(`^` + idPattern + `$`)
)

// Extractor implements domain.LinkExtractor.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the deduplicated references found in text. A second
// occurrence of an id collapses to one reference, the first classification
// winning. A shorts link rewritten into watch?v= shape classifies
// as long form; that false positive is documented behavior, since the form
// decides which physical store the image lands in.
//
// If text contains no recognizable link but every non-blank line is a bare
// 11-character id, each line is taken as a long-form reference. That keeps
// files of raw ids usable as input.
func (x *Extractor) Extract(text string) []domain.Ref {
	seen := make(map[string]bool)
	var refs []domain.Ref
	add := func(id string, form domain.Form) {
		if seen[id] {
			return
		}
		seen[id] = true
		refs = append(refs, domain.Ref{ID: id, Form: form})
	}

	// Shorts first: a link matching both shapes is still a short.
	for _, m := range shortRe.FindAllStringSubmatch(text, -1) {
		add(m[1], domain.FormShort)
	}
	for _, m := range watchRe.FindAllStringSubmatch(text, -1) {
		add(m[1], domain.FormLong)
	}
	for _, m := range shareRe.FindAllStringSubmatch(text, -1) {
		add(m[1], domain.FormLong)
	}
	if len(refs) > 0 {
		return refs
	}

	return bareIDs(text, add, &refs)
}

func bareIDs(text string, add func(string, domain.Form), refs *[]domain.Ref) []domain.Ref {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !bareIDRe.MatchString(line) {
			return nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		add(line, domain.FormLong)
	}
	return *refs
}
