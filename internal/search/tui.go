package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cwygoda/thumbcap/internal/domain"
)

var (
	tuiTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tuiMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	tuiErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// TUI is the bubbletea-backed Picker.
type TUI struct{}

// NewTUI creates the interactive picker.
func NewTUI() *TUI {
	return &TUI{}
}

// --- channel multi-select ---

type channelModel struct {
	counts   []domain.ChannelCount
	selected map[int]bool
	cursor   int
	done     bool
	aborted  bool
}

func (m channelModel) Init() tea.Cmd {
	return nil
}

func (m channelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.counts)-1 {
			m.cursor++
		}
	case " ":
		m.selected[m.cursor] = !m.selected[m.cursor]
	case "a":
		for i := range m.counts {
			m.selected[i] = true
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m channelModel) View() string {
	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("Select channels"))
	b.WriteString("\n")
	b.WriteString(tuiMutedStyle.Render("space toggle · a all · enter confirm · q cancel"))
	b.WriteString("\n\n")
	for i, c := range m.counts {
		mark := "[ ]"
		if m.selected[i] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s (%d)", mark, c.Channel, c.Count)
		if i == m.cursor {
			line = tuiCursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// PickChannels presents channels for multi-select; returns nil on cancel.
func (t *TUI) PickChannels(ctx context.Context, counts []domain.ChannelCount) ([]string, error) {
	if len(counts) == 0 {
		return nil, nil
	}
	m := channelModel{counts: counts, selected: make(map[int]bool)}
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	fm := final.(channelModel)
	if fm.aborted {
		return nil, nil
	}
	var channels []string
	for i, c := range fm.counts {
		if fm.selected[i] {
			channels = append(channels, c.Channel)
		}
	}
	return channels, nil
}

// --- entry picker ---

type entryItem struct {
	item Item
}

func (e entryItem) Title() string { return e.item.Title }

func (e entryItem) Description() string {
	return fmt.Sprintf("%s · %s · %s", e.item.Channel, e.item.ID, e.item.Form)
}

func (e entryItem) FilterValue() string {
	return e.item.Title + " " + e.item.Channel
}

type entryModel struct {
	list     list.Model
	deleteFn func(id string) error
	picked   *Item
	errMsg   string
}

func (m entryModel) Init() tea.Cmd {
	return nil
}

func (m entryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if sel, ok := m.list.SelectedItem().(entryItem); ok {
				picked := sel.item
				m.picked = &picked
			}
			return m, tea.Quit
		case "x":
			// Delete in place and refresh the list without restarting
			// the search.
			sel, ok := m.list.SelectedItem().(entryItem)
			if !ok {
				break
			}
			if err := m.deleteFn(sel.item.ID); err != nil {
				m.errMsg = err.Error()
				break
			}
			m.errMsg = ""
			m.list.RemoveItem(m.list.Index())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m entryModel) View() string {
	view := m.list.View()
	if m.errMsg != "" {
		view += "\n" + tuiErrorStyle.Render(m.errMsg)
	}
	return view
}

// PickEntry presents items for fuzzy selection; returns nil if the user
// quits without choosing.
func (t *TUI) PickEntry(ctx context.Context, items []Item, deleteFn func(id string) error) (*Item, error) {
	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = entryItem{item: it}
	}

	l := list.New(listItems, list.NewDefaultDelegate(), 80, 24)
	l.Title = "Thumbnails"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		}
	}

	m := entryModel{list: l, deleteFn: deleteFn}
	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return final.(entryModel).picked, nil
}
