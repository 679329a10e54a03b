// Package search builds filtered candidate lists over the index and feeds
// them to an interactive picker.
package search

import (
	"context"

	"github.com/cwygoda/thumbcap/internal/domain"
	"github.com/cwygoda/thumbcap/internal/repository"
)

// Item is one pickable search result.
type Item struct {
	ID      string
	Form    domain.Form
	Title   string
	Channel string
}

// Picker is the interactive selection surface. The TUI implements it;
// tests substitute fakes.
type Picker interface {
	// PickChannels presents channel counts for multi-select.
	PickChannels(ctx context.Context, counts []domain.ChannelCount) ([]string, error)
	// PickEntry presents items for fuzzy selection. deleteFn removes an
	// entry in place; the picker refreshes its list without restarting.
	PickEntry(ctx context.Context, items []Item, deleteFn func(id string) error) (*Item, error)
}

// Engine queries the index and resolves selections.
type Engine struct {
	store domain.IndexStore
	repo  *repository.Repository
}

// NewEngine creates a search engine over one repository.
func NewEngine(store domain.IndexStore, repo *repository.Repository) *Engine {
	return &Engine{store: store, repo: repo}
}

// Channels aggregates candidates by channel, count descending then name
// ascending.
func (e *Engine) Channels(ctx context.Context, form domain.Form) ([]domain.ChannelCount, error) {
	return e.store.ChannelCounts(ctx, form)
}

// Candidates returns the downloaded, scraped entries matching the filter.
func (e *Engine) Candidates(ctx context.Context, form domain.Form, channels []string) ([]Item, error) {
	entries, err := e.store.Filtered(ctx, domain.Filter{Form: form, Channels: channels})
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, en := range entries {
		items = append(items, Item{ID: en.ID, Form: en.Form, Title: en.Title, Channel: en.Channel})
	}
	return items, nil
}

// Resolve maps a selected item to its absolute image path, or to the
// canonical URL for its form when urls is set.
func (e *Engine) Resolve(it Item, urls bool) string {
	if urls {
		if it.Form == domain.FormShort {
			return "https://www.youtube.com/shorts/" + it.ID
		}
		return "https://www.youtube.com/watch?v=" + it.ID
	}
	if p := e.repo.FindImage(it.ID, it.Form); p != "" {
		return p
	}
	return e.repo.ImagePath(it.ID, it.Form)
}

// Delete removes an entry and its image files.
func (e *Engine) Delete(ctx context.Context, id string) error {
	entry, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}
	return e.repo.RemoveImages(id, entry.Form)
}

// Run drives the full interactive flow: optional channel pre-step, then
// entry selection.
func (e *Engine) Run(ctx context.Context, picker Picker, form domain.Form, byChannel bool) (*Item, error) {
	var channels []string
	if byChannel {
		counts, err := e.Channels(ctx, form)
		if err != nil {
			return nil, err
		}
		if channels, err = picker.PickChannels(ctx, counts); err != nil {
			return nil, err
		}
		if len(channels) == 0 {
			return nil, nil
		}
	}
	items, err := e.Candidates(ctx, form, channels)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return picker.PickEntry(ctx, items, func(id string) error {
		return e.Delete(ctx, id)
	})
}
