package ui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yourusername/kuco/internal/display"
	"github.com/yourusername/kuco/internal/i18n"
	"github.com/yourusername/kuco/internal/model"
	"go.uber.org/zap"
)

// Synchronizer is the part of the cache refresher the console can trigger
type Synchronizer interface {
	RefreshNow(ctx context.Context) error
	RefreshLogs(ctx context.Context, namespace, pod, container string) error
}

// Options configures the console
type Options struct {
	Locale         string
	Version        string
	ReloadInterval time.Duration // Store re-read period, 0 disables
	LogsInterval   time.Duration // Log re-fetch period while the Logs level is open, 0 disables
}

// Model is the main UI model
type Model struct {
	ctx       context.Context
	projector *display.Projector
	sync      Synchronizer
	logger    *zap.Logger
	localizer *i18n.Localizer
	opts      Options
	keys      KeyMap
	copy      func(string) error

	state    *model.NavigationState
	snapshot display.Snapshot

	lastRefreshed time.Time
	synced        bool
	err           error // Last store read failure for the current level
	status        string
	statusIsError bool

	width        int
	height       int
	scrollOffset int
	quitting     bool

	// Generation of the log auto-refresh chain, bumped on every entry into Logs
	logsGen int
}

// NewModel creates a new UI model
func NewModel(ctx context.Context, projector *display.Projector, sync Synchronizer, logger *zap.Logger, opts Options) *Model {
	return &Model{
		ctx:       ctx,
		projector: projector,
		sync:      sync,
		logger:    logger,
		localizer: i18n.NewLocalizer(opts.Locale),
		opts:      opts,
		keys:      DefaultKeyMap(),
		copy:      clipboard.WriteAll,
		state:     model.NewNavigationState(),
	}
}

// T translates a message by its ID
func (m *Model) T(messageID string) string {
	return m.localizer.T(messageID)
}

// TF translates a message with template data
func (m *Model) TF(messageID string, templateData map[string]interface{}) string {
	return m.localizer.TF(messageID, templateData)
}

// State returns a copy of the navigation state
func (m *Model) State() model.NavigationState {
	return *m.state
}

// Items returns the list currently on screen
func (m *Model) Items() []string {
	return m.snapshot.Items
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.load(),
		m.scheduleReload(),
	)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.followCursor()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case displayMsg:
		if msg.key != m.projector.Key(m.state) {
			// The user moved on while the read was in flight
			return m, nil
		}
		if msg.synced {
			m.lastRefreshed = msg.lastRefreshed
			m.synced = true
		}
		m.err = msg.err
		if msg.err != nil {
			m.logger.Warn("Failed to read cache", zap.String("key", msg.key), zap.Error(msg.err))
			m.snapshot.Replace([]string{})
		} else {
			m.snapshot.Replace(msg.items)
		}
		m.state.ClampCursor(len(m.snapshot.Items))
		m.followCursor()
		return m, nil

	case reloadTickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tea.Batch(m.load(), m.scheduleReload())

	case refreshDoneMsg:
		if msg.err != nil {
			m.setStatus(m.T("status.refresh_failed")+": "+msg.err.Error(), true)
		} else {
			m.status = ""
		}
		return m, m.load()

	case logsFetchedMsg:
		if msg.key != m.projector.Key(m.state) {
			return m, nil
		}
		if msg.err != nil {
			m.setStatus(m.T("status.refresh_failed")+": "+msg.err.Error(), true)
		} else if !msg.chain {
			m.status = ""
		}
		if !msg.chain || msg.gen != m.logsGen {
			return m, m.load()
		}
		return m, tea.Batch(m.load(), m.scheduleLogsRefresh(msg.key, msg.gen))

	case logsRefreshTickMsg:
		if m.quitting || msg.gen != m.logsGen || msg.key != m.projector.Key(m.state) {
			return m, nil
		}
		return m, m.fetchLogs(true)

	case clearStatusMsg:
		m.status = ""
		m.statusIsError = false
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.state.Mode == model.ModeNormal && key.Matches(msg, m.keys.Copy) {
		return m.copySelection()
	}

	var cmds []tea.Cmd
	for _, ev := range m.keys.events(msg, m.state.Mode) {
		if cmd := m.apply(ev); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.quitting {
			break
		}
	}
	m.followCursor()
	return tea.Batch(cmds...)
}

// apply runs one event through the state machine and carries out its effect
func (m *Model) apply(ev model.Event) tea.Cmd {
	prevLevel := m.state.Level
	effect := m.state.Update(ev, m.snapshot.Items)
	if m.state.Mode == model.ModeNormal {
		m.snapshot.Release()
	}

	switch effect {
	case model.EffectCaptureSnapshot:
		m.snapshot.Capture()
		return nil

	case model.EffectRefilter:
		m.snapshot.Apply(m.state.SearchBuffer())
		m.scrollOffset = 0
		return nil

	case model.EffectReload:
		if m.state.Level != prevLevel {
			m.snapshot.Replace([]string{})
			m.err = nil
			m.scrollOffset = 0
			if m.state.Level == model.LevelLogs {
				m.logsGen++
				return tea.Batch(m.load(), m.fetchLogs(true))
			}
		}
		return m.load()

	case model.EffectRefresh:
		m.setStatus(m.T("status.refreshing"), false)
		if m.state.Level == model.LevelLogs {
			return m.fetchLogs(false)
		}
		return m.refreshNow()

	case model.EffectQuit:
		m.quitting = true
		return tea.Quit
	}

	return nil
}

// followCursor scrolls the list window so the cursor stays visible
func (m *Model) followCursor() {
	rows := m.listRows()
	cursor := m.state.Cursor()
	if cursor < m.scrollOffset {
		m.scrollOffset = cursor
	}
	if cursor >= m.scrollOffset+rows {
		m.scrollOffset = cursor - rows + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) copySelection() tea.Cmd {
	item, ok := m.snapshot.Selected(m.state.Cursor())
	if !ok {
		return nil
	}
	if err := m.copy(item); err != nil {
		m.logger.Warn("Clipboard write failed", zap.Error(err))
		m.setStatus(m.T("status.copy_failed")+": "+err.Error(), true)
	} else {
		m.setStatus(m.TF("status.copied", map[string]interface{}{"Item": truncate(item, 40)}), false)
	}
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m *Model) setStatus(text string, isError bool) {
	m.status = text
	m.statusIsError = isError
}

// load reads the current level from the store
func (m *Model) load() tea.Cmd {
	ctx := m.ctx
	state := *m.state
	key := m.projector.Key(&state)
	projector := m.projector

	return func() tea.Msg {
		items, err := projector.Project(ctx, &state)
		msg := displayMsg{key: key, items: items, err: err}
		if ts, ok, tsErr := projector.LastRefreshed(ctx); tsErr == nil && ok {
			msg.lastRefreshed = ts
			msg.synced = true
		}
		return msg
	}
}

func (m *Model) scheduleReload() tea.Cmd {
	if m.opts.ReloadInterval <= 0 {
		return nil
	}
	return tea.Tick(m.opts.ReloadInterval, func(time.Time) tea.Msg {
		return reloadTickMsg{}
	})
}

func (m *Model) refreshNow() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return refreshDoneMsg{err: m.sync.RefreshNow(ctx)}
	}
}

// fetchLogs re-fetches the log tail of the selected container into the store.
// Only chain fetches schedule the next tick; a manual refresh never forks the chain.
func (m *Model) fetchLogs(chain bool) tea.Cmd {
	ctx := m.ctx
	state := *m.state
	key := m.projector.Key(&state)
	gen := m.logsGen

	return func() tea.Msg {
		err := m.sync.RefreshLogs(ctx, state.Namespace, state.Pod, state.Container)
		return logsFetchedMsg{key: key, gen: gen, chain: chain, err: err}
	}
}

func (m *Model) scheduleLogsRefresh(key string, gen int) tea.Cmd {
	if m.opts.LogsInterval <= 0 {
		return nil
	}
	return tea.Tick(m.opts.LogsInterval, func(time.Time) tea.Msg {
		return logsRefreshTickMsg{key: key, gen: gen}
	})
}
