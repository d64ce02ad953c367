// Package tui is the interactive view over a syncer.
//
// The model never edits items itself. Every intent goes to the syncer,
// and the list is redrawn from the store when a result message arrives.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada-sync/internal/model"
	"github.com/Makepad-fr/tada-sync/internal/syncer"
	"github.com/Makepad-fr/tada-sync/internal/ui"
)

type mode int

const (
	browsing mode = iota
	adding
	editing
)

// Result messages, one per remote intent.
type (
	loadedMsg  struct{ err error }
	addedMsg   struct {
		item model.Item
		err  error
	}
	toggledMsg struct {
		item model.Item
		err  error
	}
	renamedMsg struct {
		id   string
		item model.Item
		err  error
	}
)

// Model implements tea.Model.
type Model struct {
	ctx  context.Context
	sync *syncer.Syncer

	list    list.Model
	ti      textinput.Model
	spin    spinner.Model
	help    help.Model
	keys    keyMap
	mode    mode
	editID  string
	pending int // requests in flight

	status    string
	statusErr bool

	width, height int
}

// New builds a model over s. Nothing is loaded until Init runs.
func New(ctx context.Context, s *syncer.Syncer) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0 // unlimited; titles are only trimmed

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle))

	m := Model{
		ctx:  ctx,
		sync: s,
		list: l,
		ti:   ti,
		spin: sp,
		help: help.New(),
		keys: defaultKeys(),
	}
	m.help.Styles.ShortKey = helpStyle
	m.help.Styles.ShortDesc = helpStyle
	m.width, m.height = ui.TermSize()
	m.resize()
	m.refresh()
	m.pending = 1 // the load issued by Init
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, s *syncer.Syncer) error {
	p := tea.NewProgram(New(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loadedMsg:
		m.finish()
		if msg.err != nil {
			m.setError("load failed: " + describe(msg.err))
		} else {
			m.setStatus(fmt.Sprintf("loaded %d items", m.sync.Store().Len()))
		}
		cmd := m.refresh()
		return m, cmd

	case addedMsg:
		m.finish()
		if msg.err != nil {
			m.setError("add failed: " + describe(msg.err))
			cmd := m.refresh()
			return m, cmd
		}
		m.ti.SetValue("")
		if m.mode == adding {
			m.closeInput()
		}
		m.setStatus("added " + msg.item.Title)
		cmd := m.refresh()
		m.list.Select(len(m.list.Items()) - 1)
		return m, cmd

	case toggledMsg:
		m.finish()
		if msg.err != nil {
			m.setError("toggle failed: " + describe(msg.err))
		} else if msg.item.Completed {
			m.setStatus("done: " + msg.item.Title)
		} else {
			m.setStatus("pending: " + msg.item.Title)
		}
		cmd := m.refresh()
		return m, cmd

	case renamedMsg:
		m.finish()
		if msg.err != nil {
			m.setError("rename failed: " + describe(msg.err))
			cmd := m.refresh()
			return m, cmd
		}
		if m.mode == editing && m.editID == msg.id {
			m.closeInput()
		}
		m.setStatus("renamed to " + msg.item.Title)
		cmd := m.refresh()
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case adding:
			return m.updateAdding(msg)
		case editing:
			return m.updateEditing(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		return m.updateBrowsing(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.list.FilterState() == list.FilterApplied && msg.String() == "esc" {
			m.list.ResetFilter()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Add):
		m.openInput(adding, "", "New item title...")
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Edit):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editID = it.ID
		m.openInput(editing, it.Title, "Edit item title...")
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Toggle):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		cmd := m.start(m.toggleCmd(it.ID))
		return m, cmd

	case key.Matches(msg, m.keys.Delete):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.sync.Delete(it.ID); err != nil {
			m.setError("delete failed: " + describe(err))
		} else {
			m.setStatus("deleted " + it.Title + " (local only)")
		}
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.DeleteAll):
		if err := m.sync.DeleteAll(); err != nil {
			m.setError("delete all failed: " + describe(err))
		} else {
			m.setStatus("cleared list (local only)")
		}
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.Reload):
		cmd := m.start(m.loadCmd())
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		raw := m.ti.Value()
		if _, err := model.NormalizeTitle(raw); err != nil {
			m.setError("Title cannot be empty")
			m.ti.SetValue("")
			return m, nil
		}
		cmd := m.start(m.addCmd(raw))
		return m, cmd
	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		raw := m.ti.Value()
		if _, err := model.NormalizeTitle(raw); err != nil {
			m.setError("Title cannot be empty")
			if it, _, ok := model.Find(m.sync.Items(), m.editID); ok {
				m.ti.SetValue(it.Title)
				m.ti.CursorEnd()
			}
			return m, nil
		}
		cmd := m.start(m.renameCmd(m.editID, raw))
		return m, cmd
	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	content := m.list.View()
	if m.mode != browsing {
		title := "Add new item"
		if m.mode == editing {
			title = "Edit item"
		}
		content += "\n" + frameStyle.Render(title+"\n"+m.ti.View())
	}

	var footer []string
	if m.pending > 0 {
		footer = append(footer, m.spin.View()+" syncing")
	}
	if m.status != "" {
		if m.statusErr {
			footer = append(footer, errorStyle.Render(m.status))
		} else {
			footer = append(footer, mutedStyle.Render(m.status))
		}
	}
	statusLine := strings.Join(footer, "  ")

	var legend string
	if m.mode == browsing {
		legend = m.help.View(m.keys)
	} else {
		legend = m.help.View(inputKeys{m.keys})
	}
	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, content, statusLine, legend))
}

func (m *Model) finish() {
	if m.pending > 0 {
		m.pending--
	}
}

// start counts a request in flight and kicks the spinner if it was idle.
func (m *Model) start(cmd tea.Cmd) tea.Cmd {
	m.pending++
	if m.pending == 1 {
		return tea.Batch(cmd, m.spin.Tick)
	}
	return cmd
}

func (m Model) loadCmd() tea.Cmd {
	ctx, s := m.ctx, m.sync
	return func() tea.Msg { return loadedMsg{err: s.Load(ctx)} }
}

func (m Model) addCmd(raw string) tea.Cmd {
	ctx, s := m.ctx, m.sync
	return func() tea.Msg {
		it, err := s.Add(ctx, raw)
		return addedMsg{item: it, err: err}
	}
}

func (m Model) toggleCmd(id string) tea.Cmd {
	ctx, s := m.ctx, m.sync
	return func() tea.Msg {
		it, err := s.Toggle(ctx, id)
		return toggledMsg{item: it, err: err}
	}
}

func (m Model) renameCmd(id, raw string) tea.Cmd {
	ctx, s := m.ctx, m.sync
	return func() tea.Msg {
		it, err := s.Rename(ctx, id, raw)
		return renamedMsg{id: id, item: it, err: err}
	}
}

// refresh redraws the list from the store, keeping the cursor in range.
func (m *Model) refresh() tea.Cmd {
	items := m.sync.Items()
	idx := m.list.Index()
	cmd := m.list.SetItems(toListItems(items))
	if n := len(m.list.Items()); n > 0 {
		if idx >= n {
			idx = n - 1
		}
		m.list.Select(idx)
	}
	done, pending := model.Stats(items)
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(items),
	)
	return cmd
}

func (m *Model) resize() {
	listHeight := m.height - 6
	if m.mode != browsing {
		listHeight -= 4
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width-4, listHeight)
	m.help.Width = m.width - 4
}

func (m *Model) openInput(md mode, value, placeholder string) {
	m.mode = md
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.ti.Focus()
	m.resize()
}

func (m *Model) closeInput() {
	m.mode = browsing
	m.editID = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m Model) selected() (model.Item, bool) {
	li, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return li.Item, true
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(s string)  { m.status, m.statusErr = s, true }

// describe shortens errors for the status line.
func describe(err error) string {
	switch {
	case errors.Is(err, syncer.ErrStale):
		return "list changed, response ignored"
	case errors.Is(err, syncer.ErrNotFound):
		return "item no longer exists"
	case errors.Is(err, syncer.ErrBusy):
		return "item is still syncing, try again"
	case errors.Is(err, model.ErrEmptyTitle):
		return "Title cannot be empty"
	}
	return err.Error()
}
