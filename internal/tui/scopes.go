package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

type scopesModel struct {
	api           API
	scopes        []*domain.Scope
	cursor        int
	seq           int // sequence number of the latest list request
	loading       bool
	err           error
	target        *domain.Scope // list entry under edit
	draft         *domain.Scope // copy under edit, nil when not editing
	confirmDelete bool
	statusMsg     string
	width         int
	height        int
}

type scopesLoadedMsg struct {
	seq    int
	scopes []*domain.Scope
	err    error
}

// scopeSavedMsg and friends carry the entity the request started from
// (target) and the updated copy.
type scopeSavedMsg struct {
	target *domain.Scope
	scope  *domain.Scope
	err    error
}

type scopeDeletedMsg struct {
	target *domain.Scope
	err    error
}

type scopeResetMsg struct {
	target *domain.Scope
	scope  *domain.Scope
	err    error
}

func newScopesModel(api API) scopesModel {
	return scopesModel{api: api, loading: true}
}

func (m scopesModel) Init() tea.Cmd {
	return m.load()
}

// reload starts a new list request; responses to older ones are dropped.
func (m scopesModel) reload() (scopesModel, tea.Cmd) {
	m.seq++
	m.loading = true
	return m, m.load()
}

func (m scopesModel) load() tea.Cmd {
	api, seq := m.api, m.seq
	return func() tea.Msg {
		scopes, err := api.ListScopes(context.Background())
		return scopesLoadedMsg{seq: seq, scopes: scopes, err: err}
	}
}

func (m scopesModel) save(target *domain.Scope) tea.Cmd {
	api, cp := m.api, cloneScope(m.draft)
	return func() tea.Msg {
		err := api.SaveScope(context.Background(), cp)
		return scopeSavedMsg{target: target, scope: cp, err: err}
	}
}

func (m scopesModel) delete(target *domain.Scope) tea.Cmd {
	api, cp := m.api, cloneScope(target)
	return func() tea.Msg {
		return scopeDeletedMsg{target: target, err: api.DeleteScope(context.Background(), cp)}
	}
}

func (m scopesModel) reset(target *domain.Scope) tea.Cmd {
	api, cp := m.api, cloneScope(target)
	return func() tea.Msg {
		err := api.ResetScope(context.Background(), cp)
		return scopeResetMsg{target: target, scope: cp, err: err}
	}
}

func (m scopesModel) Update(msg tea.Msg) (scopesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case scopesLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.scopes = msg.scopes
			m.target, m.draft = nil, nil
		}
		if m.cursor >= len(m.scopes) {
			m.cursor = max(len(m.scopes)-1, 0)
		}
		return m, nil

	case scopeSavedMsg:
		editing := m.draft != nil && m.target == msg.target
		if msg.err != nil {
			m.statusMsg = statusText("save", msg.err)
			if editing {
				m.draft.Errors = msg.scope.Errors
			}
			return m, nil
		}
		m.statusMsg = "saved " + msg.scope.Name
		msg.scope.Edit = false
		if i := m.indexOf(msg.target); i >= 0 {
			m.scopes[i] = msg.scope
		}
		if editing {
			m.target, m.draft = nil, nil
		}
		return m, nil

	case scopeDeletedMsg:
		if msg.err != nil {
			m.statusMsg = statusText("delete", msg.err)
			return m, nil
		}
		var current *domain.Scope
		if m.cursor < len(m.scopes) {
			current = m.scopes[m.cursor]
		}
		if i := m.indexOf(msg.target); i >= 0 {
			m.scopes = slices.Delete(m.scopes, i, i+1)
		}
		if m.target == msg.target {
			m.target, m.draft = nil, nil
		}
		if i := m.indexOf(current); i >= 0 {
			m.cursor = i
		} else if m.cursor >= len(m.scopes) {
			m.cursor = max(len(m.scopes)-1, 0)
		}
		m.statusMsg = "deleted " + msg.target.Name
		return m, nil

	case scopeResetMsg:
		if msg.err != nil {
			m.statusMsg = statusText("reset", msg.err)
			return m, nil
		}
		if i := m.indexOf(msg.target); i >= 0 {
			m.scopes[i] = msg.scope
		}
		m.statusMsg = "reset " + msg.scope.Name
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.draft != nil {
			return m.updateEdit(msg)
		}
		m.statusMsg = ""
		if m.confirmDelete {
			m.confirmDelete = false
			if msg.String() == "y" && m.cursor < len(m.scopes) {
				return m, m.delete(m.scopes[m.cursor])
			}
			return m, nil
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m scopesModel) updateList(msg tea.KeyMsg) (scopesModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.scopes)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n":
		s := domain.NewScope(domain.ScopeAttributes{})
		m.scopes = append(m.scopes, s)
		m.cursor = len(m.scopes) - 1
		m.startEdit()
	case "e", "enter":
		if m.cursor < len(m.scopes) {
			m.startEdit()
		}
	case "d":
		if m.cursor < len(m.scopes) && m.scopes[m.cursor].Persisted() {
			m.confirmDelete = true
		}
	case "x":
		if m.cursor < len(m.scopes) && m.scopes[m.cursor].Persisted() {
			return m, m.reset(m.scopes[m.cursor])
		}
	case "r":
		return m.reload()
	}
	return m, nil
}

func (m *scopesModel) startEdit() {
	s := m.scopes[m.cursor]
	s.Edit = true
	m.target = s
	m.draft = cloneScope(s)
	m.draft.Errors = nil
}

func (m scopesModel) updateEdit(msg tea.KeyMsg) (scopesModel, tea.Cmd) {
	target := m.target
	switch msg.String() {
	case "enter":
		return m, m.save(target)
	case "esc":
		target.Edit = false
		m.target, m.draft = nil, nil
		if i := m.indexOf(target); i >= 0 && !target.Persisted() {
			m.scopes = slices.Delete(m.scopes, i, i+1)
			m.cursor = max(m.cursor-1, 0)
		}
	case "tab":
		m.draft.Public = !m.draft.Public
	default:
		m.draft.Name = editRune(m.draft.Name, msg.String())
	}
	return m, nil
}

func (m scopesModel) editing() bool {
	return m.draft != nil
}

func (m scopesModel) indexOf(s *domain.Scope) int {
	return slices.Index(m.scopes, s)
}

func (m scopesModel) helpKeys() string {
	switch {
	case m.draft != nil:
		return helpEntry("enter", "save") + "  " + helpEntry("tab", "public") + "  " + helpEntry("esc", "cancel")
	case m.confirmDelete:
		return helpEntry("y", "confirm") + "  " + helpEntry("any", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("n", "new") + "  " + helpEntry("e", "edit") + "  " +
		helpEntry("d", "delete") + "  " + helpEntry("x", "reset") + "  " + helpEntry("r", "reload")
}

func (m scopesModel) View() string {
	var b strings.Builder
	b.WriteString(" " + labelStyle.Render("SCOPES") + "\n\n")

	switch {
	case m.loading && len(m.scopes) == 0:
		b.WriteString(" " + dimStyle.Render("loading scopes...") + "\n")
		return b.String()
	case m.err != nil && len(m.scopes) == 0:
		b.WriteString(" " + errorStyle.Render(statusText("load", m.err)) + "\n")
		return b.String()
	case len(m.scopes) == 0:
		b.WriteString(" " + dimStyle.Render("No scopes found. Press n to create one.") + "\n")
		return b.String()
	}

	nameWidth := 32
	if m.width > 0 {
		nameWidth = min(max(m.width-30, 12), 48)
	}
	for i, s := range m.scopes {
		prefix := "  "
		if i == m.cursor {
			prefix = accentStyle.Render("> ")
		}
		if m.draft != nil && s == m.target {
			b.WriteString(prefix + m.renderDraft() + "\n")
			for _, line := range errorLines(m.draft.Errors) {
				b.WriteString("    " + errorStyle.Render(line) + "\n")
			}
			continue
		}
		name := fmt.Sprintf("%-*s", nameWidth, truncStr(s.Name, nameWidth))
		if i == m.cursor {
			name = selectedStyle.Render(name)
		} else {
			name = normalStyle.Render(name)
		}
		b.WriteString(prefix + name + " " + publicBadge(s.Public) + "  " + metaStyle.Render(truncStr(s.ID.String(), 12)) + "\n")
	}

	if m.confirmDelete && m.cursor < len(m.scopes) {
		b.WriteString("\n " + warnStyle.Render(fmt.Sprintf("delete %s? y to confirm", m.scopes[m.cursor].Name)) + "\n")
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + dimStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m scopesModel) renderDraft() string {
	name := m.draft.Name
	if name == "" {
		name = inputPlaceholderStyle.Render("scope name")
	} else {
		name = editStyle.Render(name)
	}
	return name + accentStyle.Render("█") + "  " + publicBadge(m.draft.Public)
}

func publicBadge(public bool) string {
	if public {
		return accentStyle.Render("[public]")
	}
	return dimStyle.Render("[private]")
}
