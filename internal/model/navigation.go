package model

import "unicode/utf8"

// Level is a drill-down level of the console
type Level int

const (
	LevelNamespace Level = iota
	LevelPod
	LevelContainer
	LevelLogs
)

// levelCount is the number of drill-down levels
const levelCount = int(LevelLogs) + 1

// String returns the display name of the level
func (l Level) String() string {
	switch l {
	case LevelNamespace:
		return "Namespace"
	case LevelPod:
		return "Pod"
	case LevelContainer:
		return "Container"
	case LevelLogs:
		return "Logs"
	default:
		return "Unknown"
	}
}

// Mode is the interaction mode of the console
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// String returns the label shown in the input line
func (m Mode) String() string {
	if m == ModeSearch {
		return "SEARCH"
	}
	return "NORMAL"
}

// Placeholders used when NavRight is pressed on an empty list
const (
	DefaultNamespace = "default"
	NoSelection      = "none"
)

// EventKind identifies an input event
type EventKind int

const (
	EventNone EventKind = iota
	EventUp
	EventDown
	EventNavRight
	EventNavLeft
	EventToggleSearch
	EventRune
	EventBackspace
	EventRefresh
	EventQuit
)

// Event is a single input event. Rune is only set for EventRune.
type Event struct {
	Kind EventKind
	Rune rune
}

// Effect tells the caller what has to happen after an event was applied
type Effect int

const (
	EffectNone            Effect = iota
	EffectReload                 // Re-read the current level from the store
	EffectCaptureSnapshot        // Search started: freeze the displayed list as filter domain
	EffectRefilter               // Search buffer changed: re-apply the filter to the domain
	EffectRefresh                // Ask the synchronizer for fresh data, then reload
	EffectQuit
)

// LevelState holds the per-level list cursor and search buffer
type LevelState struct {
	Cursor int
	Search string
}

// NavigationState is the in-memory session state of the console.
// It contains no reference types, so a plain copy is a safe snapshot.
type NavigationState struct {
	Level     Level
	Mode      Mode
	Namespace string // Selected namespace, "" when none
	Pod       string // Selected pod, "" when none
	Container string // Selected container, "" when none
	LogLine   string // Selected log line, "" when none

	levels [levelCount]LevelState
}

// NewNavigationState returns the state the console starts in
func NewNavigationState() *NavigationState {
	return &NavigationState{
		Level: LevelNamespace,
		Mode:  ModeNormal,
	}
}

// Cursor returns the cursor of the current level
func (s NavigationState) Cursor() int {
	return s.levels[s.Level].Cursor
}

// SearchBuffer returns the search buffer of the current level
func (s NavigationState) SearchBuffer() string {
	return s.levels[s.Level].Search
}

// LevelState returns the cursor and search buffer of the given level
func (s NavigationState) LevelState(level Level) LevelState {
	return s.levels[level]
}

// Selection returns the selection made at the given level
func (s NavigationState) Selection(level Level) (string, bool) {
	var v string
	switch level {
	case LevelNamespace:
		v = s.Namespace
	case LevelPod:
		v = s.Pod
	case LevelContainer:
		v = s.Container
	case LevelLogs:
		v = s.LogLine
	}
	return v, v != ""
}

// ClampCursor keeps the current cursor inside a list of length n.
// Called when the displayed list shrinks underneath the cursor.
func (s *NavigationState) ClampCursor(n int) {
	ls := &s.levels[s.Level]
	if ls.Cursor >= n {
		ls.Cursor = n - 1
	}
	if ls.Cursor < 0 {
		ls.Cursor = 0
	}
}

// Update applies one event. display is the list currently on screen,
// possibly filtered; cursor bounds and selections are taken from it.
func (s *NavigationState) Update(ev Event, display []string) Effect {
	switch ev.Kind {
	case EventUp:
		if s.levels[s.Level].Cursor > 0 {
			s.levels[s.Level].Cursor--
		}
		return EffectNone

	case EventDown:
		if s.levels[s.Level].Cursor < len(display)-1 {
			s.levels[s.Level].Cursor++
		}
		return EffectNone

	case EventNavRight:
		return s.navRight(display)

	case EventNavLeft:
		return s.navLeft()

	case EventToggleSearch:
		if s.Mode == ModeNormal {
			s.Mode = ModeSearch
			s.levels[s.Level].Search = ""
			return EffectCaptureSnapshot
		}
		s.leaveSearch()
		return EffectReload

	case EventRune:
		if s.Mode != ModeSearch {
			return EffectNone
		}
		s.levels[s.Level].Search += string(ev.Rune)
		s.levels[s.Level].Cursor = 0
		return EffectRefilter

	case EventBackspace:
		if s.Mode != ModeSearch {
			return EffectNone
		}
		buf := s.levels[s.Level].Search
		if buf == "" {
			return EffectNone
		}
		_, size := utf8.DecodeLastRuneInString(buf)
		s.levels[s.Level].Search = buf[:len(buf)-size]
		s.levels[s.Level].Cursor = 0
		return EffectRefilter

	case EventRefresh:
		return EffectRefresh

	case EventQuit:
		return EffectQuit
	}

	return EffectNone
}

// navRight records the selection of the current level and descends one level
func (s *NavigationState) navRight(display []string) Effect {
	selected := s.selectFrom(display)

	switch s.Level {
	case LevelNamespace:
		s.Namespace = selected
	case LevelPod:
		s.Pod = selected
	case LevelContainer:
		s.Container = selected
	case LevelLogs:
		// Deepest level: pick the line, stay put
		s.LogLine = selected
		return EffectNone
	}

	if s.Mode == ModeSearch {
		s.leaveSearch()
	}

	s.Level++
	s.resetFrom(s.Level)
	return EffectReload
}

// navLeft goes up one level and forgets everything at or below the level left
func (s *NavigationState) navLeft() Effect {
	searching := s.Mode == ModeSearch
	if searching {
		s.leaveSearch()
	}
	if s.Level == LevelNamespace {
		if searching {
			return EffectReload
		}
		return EffectNone
	}

	left := s.Level
	s.Level--
	s.resetFrom(left)
	return EffectReload
}

// selectFrom returns the displayed item under the cursor or a placeholder
func (s *NavigationState) selectFrom(display []string) string {
	cursor := s.levels[s.Level].Cursor
	if cursor >= 0 && cursor < len(display) {
		return display[cursor]
	}
	if s.Level == LevelNamespace {
		return DefaultNamespace
	}
	return NoSelection
}

// resetFrom clears selection, cursor and search buffer of level and every deeper level
func (s *NavigationState) resetFrom(level Level) {
	for l := level; l <= LevelLogs; l++ {
		s.levels[l] = LevelState{}
		switch l {
		case LevelPod:
			s.Pod = ""
		case LevelContainer:
			s.Container = ""
		case LevelLogs:
			s.LogLine = ""
		}
	}
}

func (s *NavigationState) leaveSearch() {
	s.Mode = ModeNormal
	s.levels[s.Level].Search = ""
	s.levels[s.Level].Cursor = 0
}
