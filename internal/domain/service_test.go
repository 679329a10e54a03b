package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	entries map[string]*Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*Entry)}
}

func (s *fakeStore) InsertIfAbsent(_ context.Context, id string, form Form) (bool, error) {
	if _, ok := s.entries[id]; ok {
		return false, nil
	}
	s.entries[id] = &Entry{ID: id, Form: form, IndexedAt: time.Now()}
	return true, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (s *fakeStore) Undownloaded(_ context.Context, maxAttempts int) ([]Entry, error) {
	var out []Entry
	for _, e := range s.entries {
		if e.Eligible(maxAttempts) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) RecordAttempt(_ context.Context, id string) error {
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Attempts++
	return nil
}

func (s *fakeStore) RecordQuality(_ context.Context, id string, q Quality) error {
	if e, ok := s.entries[id]; ok {
		e.Quality = q
	}
	return nil
}

func (s *fakeStore) ScrapeCandidates(_ context.Context) ([]Entry, error) {
	var out []Entry
	for _, e := range s.entries {
		if e.Downloaded() && !e.Scraped() {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) RecordMetadata(_ context.Context, id, title, channel string) error {
	if e, ok := s.entries[id]; ok {
		e.Title = title
		e.Channel = channel
	}
	return nil
}

func (s *fakeStore) Filtered(_ context.Context, f Filter) ([]Entry, error) {
	var out []Entry
	for _, e := range s.entries {
		if e.Downloaded() && e.Scraped() {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) ChannelCounts(_ context.Context, form Form) ([]ChannelCount, error) {
	return nil, nil
}

func (s *fakeStore) FormCounts(_ context.Context) (map[Form]FormStats, error) {
	return nil, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	delete(s.entries, id)
	return nil
}

// fakeFetcher succeeds per its quality map; missing ids fail.
type fakeFetcher struct {
	qualities map[string]Quality
	calls     []string
}

func (f *fakeFetcher) Fetch(_ context.Context, id, dest string) (Quality, int64, error) {
	f.calls = append(f.calls, id)
	q, ok := f.qualities[id]
	if !ok {
		return "", 0, errors.New("no thumbnail")
	}
	return q, 1024, nil
}

type fakeScraper struct {
	meta map[string]Metadata
}

func (f *fakeScraper) Scrape(_ context.Context, id string) (Metadata, error) {
	m, ok := f.meta[id]
	if !ok {
		return Metadata{}, errors.New("pattern not found")
	}
	return m, nil
}

type fakeLayout struct{}

func (fakeLayout) StoreDir(form Form) string { return "/tmp/" + string(form) }

func (fakeLayout) ImagePath(id string, form Form) string {
	return "/tmp/" + string(form) + "/" + id + ".jpg"
}

type fakeExtractor struct {
	refs []Ref
}

func (f *fakeExtractor) Extract(string) []Ref { return f.refs }

type recordingSink struct {
	updates [][2]int
}

func (s *recordingSink) Progress(done, total int) {
	s.updates = append(s.updates, [2]int{done, total})
}

func newTestService(store *fakeStore, fetcher *fakeFetcher, scraper *fakeScraper, extractor *fakeExtractor) *Service {
	return NewService(store, fetcher, scraper, extractor, fakeLayout{}, 1, zerolog.Nop())
}

func TestService_Index(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeFetcher{}, &fakeScraper{}, &fakeExtractor{refs: []Ref{
		{ID: "AAAAAAAAAAA", Form: FormLong},
		{ID: "BBBBBBBBBBB", Form: FormShort},
	}})

	rep, err := svc.Index(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if rep.Found != 2 || rep.Inserted != 2 {
		t.Errorf("Index() = %+v, want Found=2 Inserted=2", rep)
	}
}

func TestService_Index_Rerun(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeFetcher{}, &fakeScraper{}, &fakeExtractor{refs: []Ref{
		{ID: "AAAAAAAAAAA", Form: FormLong},
	}})
	ctx := context.Background()

	if _, err := svc.Index(ctx, ""); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	before := *store.entries["AAAAAAAAAAA"]

	rep, err := svc.Index(ctx, "")
	if err != nil {
		t.Fatalf("Index() rerun error = %v", err)
	}
	if rep.Inserted != 0 {
		t.Errorf("Index() rerun Inserted = %d, want 0", rep.Inserted)
	}
	if after := *store.entries["AAAAAAAAAAA"]; after != before {
		t.Errorf("Index() rerun mutated entry: %+v != %+v", after, before)
	}
}

func TestService_Download(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.InsertIfAbsent(ctx, "AAAAAAAAAAA", FormLong)
	store.InsertIfAbsent(ctx, "BBBBBBBBBBB", FormShort)

	fetcher := &fakeFetcher{qualities: map[string]Quality{
		"AAAAAAAAAAA": QualityDefault, // only the lowest level exists
	}}
	svc := newTestService(store, fetcher, &fakeScraper{}, &fakeExtractor{})

	rep, err := svc.Download(ctx, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if rep.Total != 2 || rep.Succeeded != 1 || rep.Failed != 1 {
		t.Errorf("Download() = %+v, want Total=2 Succeeded=1 Failed=1", rep)
	}

	a := store.entries["AAAAAAAAAAA"]
	if a.Quality != QualityDefault || a.Attempts != 1 {
		t.Errorf("entry A = quality %q attempts %d, want default/1", a.Quality, a.Attempts)
	}
	b := store.entries["BBBBBBBBBBB"]
	if b.Quality != "" || b.Attempts != 1 {
		t.Errorf("entry B = quality %q attempts %d, want \"\"/1", b.Quality, b.Attempts)
	}
}

func TestService_Download_SkipsExhaustedAndDownloaded(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.InsertIfAbsent(ctx, "AAAAAAAAAAA", FormLong)
	store.entries["AAAAAAAAAAA"].Attempts = 1 // maxAttempts reached
	store.InsertIfAbsent(ctx, "BBBBBBBBBBB", FormLong)
	store.entries["BBBBBBBBBBB"].Quality = QualityHigh

	fetcher := &fakeFetcher{qualities: map[string]Quality{}}
	svc := newTestService(store, fetcher, &fakeScraper{}, &fakeExtractor{})

	rep, err := svc.Download(ctx, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if rep.Total != 0 {
		t.Errorf("Download() Total = %d, want 0", rep.Total)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("Download() fetched %v, want no fetches", fetcher.calls)
	}
	if store.entries["AAAAAAAAAAA"].Attempts != 1 {
		t.Errorf("attempts changed for exhausted entry")
	}
}

func TestService_Download_Progress(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.InsertIfAbsent(ctx, "AAAAAAAAAAA", FormLong)
	store.InsertIfAbsent(ctx, "BBBBBBBBBBB", FormLong)

	fetcher := &fakeFetcher{qualities: map[string]Quality{
		"AAAAAAAAAAA": QualityMax,
		"BBBBBBBBBBB": QualityMax,
	}}
	svc := newTestService(store, fetcher, &fakeScraper{}, &fakeExtractor{})
	sink := &recordingSink{}

	if _, err := svc.Download(ctx, sink); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	want := [][2]int{{0, 2}, {1, 2}, {2, 2}}
	if fmt.Sprint(sink.updates) != fmt.Sprint(want) {
		t.Errorf("progress = %v, want %v", sink.updates, want)
	}
}

func TestService_Scrape(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.InsertIfAbsent(ctx, "AAAAAAAAAAA", FormLong)
	store.entries["AAAAAAAAAAA"].Quality = QualityHigh
	store.InsertIfAbsent(ctx, "BBBBBBBBBBB", FormLong)
	store.entries["BBBBBBBBBBB"].Quality = QualityHigh
	store.InsertIfAbsent(ctx, "CCCCCCCCCCC", FormLong) // not downloaded

	scraper := &fakeScraper{meta: map[string]Metadata{
		"AAAAAAAAAAA": {Title: "a title", Channel: "a channel"},
	}}
	svc := newTestService(store, &fakeFetcher{}, scraper, &fakeExtractor{})

	rep, err := svc.Scrape(ctx, nil)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if rep.Total != 2 || rep.Succeeded != 1 || rep.Failed != 1 {
		t.Errorf("Scrape() = %+v, want Total=2 Succeeded=1 Failed=1", rep)
	}

	a := store.entries["AAAAAAAAAAA"]
	if !a.Scraped() {
		t.Error("entry A not scraped after successful pass")
	}
	b := store.entries["BBBBBBBBBBB"]
	if b.Title != "" || b.Channel != "" {
		t.Errorf("failed scrape left partial metadata: %+v", b)
	}
}

func TestService_Get_ComposesInOrder(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{qualities: map[string]Quality{"AAAAAAAAAAA": QualityStandard}}
	scraper := &fakeScraper{meta: map[string]Metadata{
		"AAAAAAAAAAA": {Title: "t", Channel: "c"},
	}}
	svc := newTestService(store, fetcher, scraper, &fakeExtractor{refs: []Ref{
		{ID: "AAAAAAAAAAA", Form: FormLong},
	}})

	rep, err := svc.Get(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rep.Index.Inserted != 1 || rep.Download.Succeeded != 1 || rep.Scrape.Succeeded != 1 {
		t.Errorf("Get() = %+v, want one success per phase", rep)
	}
	e := store.entries["AAAAAAAAAAA"]
	if e.Quality != QualityStandard || !e.Scraped() {
		t.Errorf("Get() final entry = %+v", e)
	}
}

func TestService_Download_Cancelled(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	store.InsertIfAbsent(ctx, "AAAAAAAAAAA", FormLong)
	cancel()

	svc := newTestService(store, &fakeFetcher{}, &fakeScraper{}, &fakeExtractor{})
	_, err := svc.Download(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Download() error = %v, want context.Canceled", err)
	}
	if store.entries["AAAAAAAAAAA"].Attempts != 0 {
		t.Error("cancelled pass recorded an attempt")
	}
}
