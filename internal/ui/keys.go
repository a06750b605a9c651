package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yourusername/kuco/internal/model"
)

// KeyMap defines key bindings
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Right   key.Binding
	Left    key.Binding
	Search  key.Binding
	Copy    key.Binding

	// Active while typing a search; letters are search input there
	SearchQuit   key.Binding
	SearchLeave  key.Binding
	SearchUp     key.Binding
	SearchDown   key.Binding
	SearchRight  key.Binding
	SearchLeft   key.Binding
	SearchDelete key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Right: key.NewBinding(
			key.WithKeys("enter", "right", "l"),
			key.WithHelp("enter", "open"),
		),
		Left: key.NewBinding(
			key.WithKeys("esc", "left", "h", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy"),
		),

		SearchQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
		SearchLeave:  key.NewBinding(key.WithKeys("esc")),
		SearchUp:     key.NewBinding(key.WithKeys("up")),
		SearchDown:   key.NewBinding(key.WithKeys("down")),
		SearchRight:  key.NewBinding(key.WithKeys("enter", "right")),
		SearchLeft:   key.NewBinding(key.WithKeys("left")),
		SearchDelete: key.NewBinding(key.WithKeys("backspace", "delete")),
	}
}

// events translates a key press into navigation events.
// Pasted text arrives as one KeyMsg with several runes and yields one event per rune.
func (k KeyMap) events(msg tea.KeyMsg, mode model.Mode) []model.Event {
	if mode == model.ModeSearch {
		switch {
		case key.Matches(msg, k.SearchQuit):
			return []model.Event{{Kind: model.EventQuit}}
		case key.Matches(msg, k.SearchLeave):
			return []model.Event{{Kind: model.EventToggleSearch}}
		case key.Matches(msg, k.SearchUp):
			return []model.Event{{Kind: model.EventUp}}
		case key.Matches(msg, k.SearchDown):
			return []model.Event{{Kind: model.EventDown}}
		case key.Matches(msg, k.SearchRight):
			return []model.Event{{Kind: model.EventNavRight}}
		case key.Matches(msg, k.SearchLeft):
			return []model.Event{{Kind: model.EventNavLeft}}
		case key.Matches(msg, k.SearchDelete):
			return []model.Event{{Kind: model.EventBackspace}}
		}

		switch msg.Type {
		case tea.KeyRunes:
			events := make([]model.Event, 0, len(msg.Runes))
			for _, r := range msg.Runes {
				events = append(events, model.Event{Kind: model.EventRune, Rune: r})
			}
			return events
		case tea.KeySpace:
			return []model.Event{{Kind: model.EventRune, Rune: ' '}}
		}
		return nil
	}

	switch {
	case key.Matches(msg, k.Quit):
		return []model.Event{{Kind: model.EventQuit}}
	case key.Matches(msg, k.Refresh):
		return []model.Event{{Kind: model.EventRefresh}}
	case key.Matches(msg, k.Up):
		return []model.Event{{Kind: model.EventUp}}
	case key.Matches(msg, k.Down):
		return []model.Event{{Kind: model.EventDown}}
	case key.Matches(msg, k.Right):
		return []model.Event{{Kind: model.EventNavRight}}
	case key.Matches(msg, k.Left):
		return []model.Event{{Kind: model.EventNavLeft}}
	case key.Matches(msg, k.Search):
		return []model.Event{{Kind: model.EventToggleSearch}}
	}
	return nil
}
