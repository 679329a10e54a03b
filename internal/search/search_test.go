package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwygoda/thumbcap/internal/adapter/sqlite"
	"github.com/cwygoda/thumbcap/internal/domain"
	"github.com/cwygoda/thumbcap/internal/repository"
)

// fakePicker scripts the interactive steps.
type fakePicker struct {
	channels     []string
	pick         string // id to select; "" selects nothing
	deleteID     string // id to delete before picking
	sawChannels  []domain.ChannelCount
	sawItems     []Item
	entryInvoked bool
}

func (p *fakePicker) PickChannels(ctx context.Context, counts []domain.ChannelCount) ([]string, error) {
	p.sawChannels = counts
	return p.channels, nil
}

func (p *fakePicker) PickEntry(ctx context.Context, items []Item, deleteFn func(id string) error) (*Item, error) {
	p.entryInvoked = true
	p.sawItems = items
	if p.deleteID != "" {
		if err := deleteFn(p.deleteID); err != nil {
			return nil, err
		}
	}
	for i := range items {
		if items[i].ID == p.pick && items[i].ID != p.deleteID {
			return &items[i], nil
		}
	}
	return nil, nil
}

type seed struct {
	id      string
	form    domain.Form
	title   string
	channel string
}

// newEngine builds an engine over a real index seeded with downloaded,
// scraped entries.
func newEngine(t *testing.T, seeds []seed) (*Engine, *repository.Repository) {
	t.Helper()
	root := t.TempDir()
	if _, err := repository.Init(root); err != nil {
		t.Fatal(err)
	}
	repo := repository.At(root)
	store, err := sqlite.New(repo.IndexPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, s := range seeds {
		if _, err := store.InsertIfAbsent(ctx, s.id, s.form); err != nil {
			t.Fatal(err)
		}
		if err := store.RecordQuality(ctx, s.id, domain.QualityHigh); err != nil {
			t.Fatal(err)
		}
		if err := store.RecordMetadata(ctx, s.id, s.title, s.channel); err != nil {
			t.Fatal(err)
		}
	}
	return NewEngine(store, repo), repo
}

func TestEngine_Run(t *testing.T) {
	engine, _ := newEngine(t, []seed{
		{"AAAAAAAAAAA", domain.FormLong, "First", "alpha"},
		{"BBBBBBBBBBB", domain.FormLong, "Second", "beta"},
	})
	picker := &fakePicker{pick: "BBBBBBBBBBB"}

	got, err := engine.Run(context.Background(), picker, domain.FormLong, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got == nil || got.ID != "BBBBBBBBBBB" || got.Title != "Second" {
		t.Errorf("Run() = %+v, want entry BBBBBBBBBBB", got)
	}
	if len(picker.sawItems) != 2 {
		t.Errorf("picker saw %d items, want 2", len(picker.sawItems))
	}
	if len(picker.sawChannels) != 0 {
		t.Error("channel pre-step ran without --by-channel")
	}
}

func TestEngine_Run_ByChannel(t *testing.T) {
	engine, _ := newEngine(t, []seed{
		{"AAAAAAAAAAA", domain.FormLong, "First", "alpha"},
		{"BBBBBBBBBBB", domain.FormLong, "Second", "alpha"},
		{"CCCCCCCCCCC", domain.FormLong, "Third", "beta"},
	})
	picker := &fakePicker{channels: []string{"alpha"}, pick: "AAAAAAAAAAA"}

	got, err := engine.Run(context.Background(), picker, domain.FormLong, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got == nil || got.ID != "AAAAAAAAAAA" {
		t.Errorf("Run() = %+v, want entry AAAAAAAAAAA", got)
	}

	// Pre-step got counts in count-descending order.
	if len(picker.sawChannels) != 2 || picker.sawChannels[0].Channel != "alpha" || picker.sawChannels[0].Count != 2 {
		t.Errorf("channel counts = %+v", picker.sawChannels)
	}
	// Candidates were narrowed to the picked channel.
	for _, it := range picker.sawItems {
		if it.Channel != "alpha" {
			t.Errorf("candidate %s from channel %q leaked past filter", it.ID, it.Channel)
		}
	}
}

func TestEngine_Run_NoChannelsSelected(t *testing.T) {
	engine, _ := newEngine(t, []seed{
		{"AAAAAAAAAAA", domain.FormLong, "First", "alpha"},
	})
	picker := &fakePicker{channels: nil}

	got, err := engine.Run(context.Background(), picker, domain.FormLong, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != nil {
		t.Errorf("Run() = %+v, want nil after empty channel selection", got)
	}
	if picker.entryInvoked {
		t.Error("entry picker ran with no channels selected")
	}
}

func TestEngine_Run_NoCandidates(t *testing.T) {
	engine, _ := newEngine(t, nil)
	picker := &fakePicker{}

	got, err := engine.Run(context.Background(), picker, domain.FormShort, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != nil || picker.entryInvoked {
		t.Error("empty index still reached the picker")
	}
}

func TestEngine_Resolve(t *testing.T) {
	engine, repo := newEngine(t, nil)
	it := Item{ID: "AAAAAAAAAAA", Form: domain.FormLong}

	if got := engine.Resolve(it, true); got != "https://www.youtube.com/watch?v=AAAAAAAAAAA" {
		t.Errorf("Resolve(urls) = %q", got)
	}
	short := Item{ID: "BBBBBBBBBBB", Form: domain.FormShort}
	if got := engine.Resolve(short, true); got != "https://www.youtube.com/shorts/BBBBBBBBBBB" {
		t.Errorf("Resolve(urls, short) = %q, want shorts URL", got)
	}

	// Without a file on disk the canonical path is reported.
	if got := engine.Resolve(it, false); got != repo.ImagePath(it.ID, it.Form) {
		t.Errorf("Resolve() = %q, want canonical path", got)
	}

	// A webp on disk wins over the canonical jpg path.
	webp := filepath.Join(repo.StoreDir(domain.FormLong), "AAAAAAAAAAA.webp")
	if err := os.WriteFile(webp, []byte("img"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := engine.Resolve(it, false); got != webp {
		t.Errorf("Resolve() = %q, want %q", got, webp)
	}
}

func TestEngine_Delete(t *testing.T) {
	engine, repo := newEngine(t, []seed{
		{"AAAAAAAAAAA", domain.FormLong, "First", "alpha"},
		{"BBBBBBBBBBB", domain.FormLong, "Second", "alpha"},
	})
	ctx := context.Background()
	img := repo.ImagePath("AAAAAAAAAAA", domain.FormLong)
	if err := os.WriteFile(img, []byte("img"), 0644); err != nil {
		t.Fatal(err)
	}

	// In-place delete from the picker, then pick the survivor.
	picker := &fakePicker{deleteID: "AAAAAAAAAAA", pick: "BBBBBBBBBBB"}
	got, err := engine.Run(ctx, picker, domain.FormLong, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got == nil || got.ID != "BBBBBBBBBBB" {
		t.Errorf("Run() = %+v, want surviving entry", got)
	}

	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Error("deleted entry's image file still on disk")
	}
	items, err := engine.Candidates(ctx, domain.FormLong, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "BBBBBBBBBBB" {
		t.Errorf("Candidates() after delete = %+v", items)
	}
}

func TestEngine_Delete_Unknown(t *testing.T) {
	engine, _ := newEngine(t, nil)

	err := engine.Delete(context.Background(), "AAAAAAAAAAA")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, domain.ErrNotFound)
	}
}
