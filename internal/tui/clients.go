package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

type rowKind int

const (
	rowID rowKind = iota
	rowSecret
	rowRedirectURI
	rowAddRedirectURI
	rowGrantType
	rowPKCE
	rowAuthorizeScope
	rowScope
	rowAddScope
	rowAccessTokenTTL
	rowAuthorizationCodeTTL
)

// detailRow is one selectable line of the client form. index points into
// the redirect uris, grant types or scopes depending on kind.
type detailRow struct {
	kind  rowKind
	index int
}

type clientsModel struct {
	api           API
	clients       []*domain.Client
	cursor        int
	seq           int
	loading       bool
	err           error
	confirmDelete bool
	statusMsg     string
	width         int
	height        int

	// Detail form. draft is an editable copy of target; target is nil for
	// a client that was never saved.
	detail     bool
	target     *domain.Client
	draft      *domain.Client
	row        int
	inputting  bool
	input      string
	picking    bool
	pickCursor int
	options    []*domain.Scope
}

type clientsLoadedMsg struct {
	seq     int
	clients []*domain.Client
	err     error
}

type scopeOptionsMsg struct {
	scopes []*domain.Scope
	err    error
}

type clientSavedMsg struct {
	target *domain.Client
	client *domain.Client
	err    error
}

type clientDeletedMsg struct {
	target *domain.Client
	err    error
}

type copyResultMsg struct {
	what string
	err  error
}

func newClientsModel(api API) clientsModel {
	return clientsModel{api: api, loading: true}
}

func (m clientsModel) Init() tea.Cmd {
	return m.load()
}

func (m clientsModel) reload() (clientsModel, tea.Cmd) {
	m.seq++
	m.loading = true
	return m, m.load()
}

func (m clientsModel) load() tea.Cmd {
	api, seq := m.api, m.seq
	return func() tea.Msg {
		clients, err := api.ListClients(context.Background())
		return clientsLoadedMsg{seq: seq, clients: clients, err: err}
	}
}

func (m clientsModel) loadOptions() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		scopes, err := api.ListScopes(context.Background())
		return scopeOptionsMsg{scopes: scopes, err: err}
	}
}

func (m clientsModel) save() tea.Cmd {
	api, target, cp := m.api, m.target, cloneClient(m.draft)
	return func() tea.Msg {
		err := api.SaveClient(context.Background(), cp)
		return clientSavedMsg{target: target, client: cp, err: err}
	}
}

func (m clientsModel) delete(target *domain.Client) tea.Cmd {
	api, cp := m.api, cloneClient(target)
	return func() tea.Msg {
		return clientDeletedMsg{target: target, err: api.DeleteClient(context.Background(), cp)}
	}
}

// sameClient reports whether a and b stand for the same client. Clients that
// were never saved only match themselves.
func sameClient(a, b *domain.Client) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil && a.Persisted() && a.ID == b.ID
}

// indexClient finds c in clients by identity, or by id once a reload has
// replaced the entries.
func indexClient(clients []*domain.Client, c *domain.Client) int {
	if c == nil {
		return -1
	}
	return slices.IndexFunc(clients, func(x *domain.Client) bool { return sameClient(x, c) })
}

func copyToClipboard(what, value string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{what: what, err: clipboard.WriteAll(value)}
	}
}

func (m clientsModel) Update(msg tea.Msg) (clientsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case clientsLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.clients = msg.clients
			if m.detail {
				if i := indexClient(m.clients, m.target); i >= 0 {
					m.target = m.clients[i]
				}
			}
		}
		if m.cursor >= len(m.clients) {
			m.cursor = max(len(m.clients)-1, 0)
		}
		return m, nil

	case scopeOptionsMsg:
		if msg.err != nil {
			m.statusMsg = statusText("load scopes", msg.err)
			return m, nil
		}
		m.options = msg.scopes
		return m, nil

	case clientSavedMsg:
		if msg.err != nil {
			m.statusMsg = statusText("save", msg.err)
			if m.detail && sameClient(m.target, msg.target) {
				m.draft.Errors = msg.client.Errors
			}
			return m, nil
		}
		i := indexClient(m.clients, msg.target)
		if i < 0 {
			i = indexClient(m.clients, msg.client)
		}
		if i >= 0 {
			m.clients[i] = msg.client
		} else {
			m.clients = append(m.clients, msg.client)
		}
		if m.detail && sameClient(m.target, msg.target) {
			m.target = msg.client
			m.draft = cloneClient(msg.client)
		}
		m.statusMsg = "saved " + msg.client.ID.String()
		return m, nil

	case clientDeletedMsg:
		if msg.err != nil {
			m.statusMsg = statusText("delete", msg.err)
			return m, nil
		}
		if i := indexClient(m.clients, msg.target); i >= 0 {
			m.clients = slices.Delete(m.clients, i, i+1)
		}
		if m.cursor >= len(m.clients) {
			m.cursor = max(len(m.clients)-1, 0)
		}
		m.statusMsg = "deleted " + msg.target.ID.String()
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.statusMsg = msg.what + " copied!"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.inputting:
			return m.updateInput(msg)
		case m.picking:
			return m.updatePicker(msg)
		}
		m.statusMsg = ""
		if m.detail {
			return m.updateDetail(msg)
		}
		if m.confirmDelete {
			m.confirmDelete = false
			if msg.String() == "y" && m.cursor < len(m.clients) {
				return m, m.delete(m.clients[m.cursor])
			}
			return m, nil
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m clientsModel) updateList(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.clients)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.cursor < len(m.clients) {
			return m.open(m.clients[m.cursor])
		}
	case "n":
		return m.open(nil)
	case "d":
		if m.cursor < len(m.clients) {
			m.confirmDelete = true
		}
	case "c":
		if m.cursor < len(m.clients) {
			return m, copyToClipboard("client id", m.clients[m.cursor].ID.String())
		}
	case "r":
		return m.reload()
	}
	return m, nil
}

// open shows the form for target, or for a new client when target is nil.
func (m clientsModel) open(target *domain.Client) (clientsModel, tea.Cmd) {
	m.detail = true
	m.target = target
	if target == nil {
		m.draft = domain.NewClient(domain.ClientAttributes{})
	} else {
		m.draft = cloneClient(target)
	}
	m.draft.Errors = nil
	m.row = 0
	return m, m.loadOptions()
}

func (m clientsModel) rows() []detailRow {
	c := m.draft
	rows := []detailRow{{kind: rowID}, {kind: rowSecret}}
	for i := range c.RedirectURIs {
		rows = append(rows, detailRow{kind: rowRedirectURI, index: i})
	}
	rows = append(rows, detailRow{kind: rowAddRedirectURI})
	for i := range c.GrantTypes {
		rows = append(rows, detailRow{kind: rowGrantType, index: i})
	}
	rows = append(rows, detailRow{kind: rowPKCE}, detailRow{kind: rowAuthorizeScope})
	for i := range c.AuthorizedScopes {
		rows = append(rows, detailRow{kind: rowScope, index: i})
	}
	return append(rows,
		detailRow{kind: rowAddScope},
		detailRow{kind: rowAccessTokenTTL},
		detailRow{kind: rowAuthorizationCodeTTL},
	)
}

func (m clientsModel) currentRow() detailRow {
	rows := m.rows()
	if m.row >= len(rows) {
		return rows[len(rows)-1]
	}
	return rows[m.row]
}

func (m clientsModel) updateDetail(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	row := m.currentRow()
	switch msg.String() {
	case "esc":
		m.detail = false
		m.target = nil
		m.draft = nil
	case "j", "down":
		if m.row < len(m.rows())-1 {
			m.row++
		}
	case "k", "up":
		if m.row > 0 {
			m.row--
		}
	case "ctrl+s":
		return m, m.save()
	case "c":
		switch row.kind {
		case rowID:
			if m.draft.Persisted() {
				return m, copyToClipboard("client id", m.draft.ID.String())
			}
		case rowSecret:
			if m.draft.Secret != "" {
				return m, copyToClipboard("client secret", m.draft.Secret)
			}
		}
	case "x":
		switch row.kind {
		case rowRedirectURI:
			m.draft.RedirectURIs = slices.Delete(m.draft.RedirectURIs, row.index, row.index+1)
		case rowScope:
			m.draft.RemoveScope(row.index)
		}
	case " ", "enter":
		return m.activate(row)
	}
	return m, nil
}

func (m clientsModel) activate(row detailRow) (clientsModel, tea.Cmd) {
	c := m.draft
	switch row.kind {
	case rowGrantType:
		g := c.GrantTypes[row.index]
		c.SetGrantType(g.Label, !g.Enabled)
	case rowPKCE:
		c.PKCE = !c.PKCE
	case rowAuthorizeScope:
		c.AuthorizeScope = !c.AuthorizeScope
	case rowSecret:
		m.inputting, m.input = true, c.Secret
	case rowRedirectURI:
		m.inputting, m.input = true, c.RedirectURIs[row.index]
	case rowAddRedirectURI:
		m.inputting, m.input = true, ""
	case rowAccessTokenTTL:
		m.inputting, m.input = true, strconv.Itoa(c.AccessTokenTTL)
	case rowAuthorizationCodeTTL:
		m.inputting, m.input = true, strconv.Itoa(c.AuthorizationCodeTTL)
	case rowAddScope:
		m.picking, m.pickCursor = true, 0
	}
	return m, nil
}

func (m clientsModel) updateInput(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputting = false
	case "enter":
		if err := m.commitInput(); err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		m.inputting = false
	default:
		m.input = editRune(m.input, msg.String())
	}
	return m, nil
}

func (m *clientsModel) commitInput() error {
	c, row, value := m.draft, m.currentRow(), strings.TrimSpace(m.input)
	switch row.kind {
	case rowSecret:
		c.Secret = value
	case rowRedirectURI:
		if value == "" {
			c.RedirectURIs = slices.Delete(c.RedirectURIs, row.index, row.index+1)
		} else {
			c.RedirectURIs[row.index] = value
		}
	case rowAddRedirectURI:
		if value != "" {
			c.RedirectURIs = append(c.RedirectURIs, value)
		}
	case rowAccessTokenTTL, rowAuthorizationCodeTTL:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("ttl must be a positive number of seconds")
		}
		if row.kind == rowAccessTokenTTL {
			c.AccessTokenTTL = n
		} else {
			c.AuthorizationCodeTTL = n
		}
	}
	return nil
}

func (m clientsModel) updatePicker(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.picking = false
	case "j", "down":
		if m.pickCursor < len(m.options)-1 {
			m.pickCursor++
		}
	case "k", "up":
		if m.pickCursor > 0 {
			m.pickCursor--
		}
	case "enter":
		if m.pickCursor < len(m.options) {
			m.draft.AddScope(m.options[m.pickCursor])
		}
		m.picking = false
	}
	return m, nil
}

func (m clientsModel) editing() bool {
	return m.inputting || m.picking
}

func (m clientsModel) helpKeys() string {
	switch {
	case m.inputting:
		return helpEntry("enter", "apply") + "  " + helpEntry("esc", "cancel")
	case m.picking:
		return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "add") + "  " + helpEntry("esc", "cancel")
	case m.detail:
		return helpEntry("j/k", "nav") + "  " + helpEntry("space", "toggle/edit") + "  " + helpEntry("x", "remove") + "  " +
			helpEntry("c", "copy") + "  " + helpEntry("ctrl+s", "save") + "  " + helpEntry("esc", "back")
	case m.confirmDelete:
		return helpEntry("y", "confirm") + "  " + helpEntry("any", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("n", "new") + "  " +
		helpEntry("c", "copy id") + "  " + helpEntry("d", "delete") + "  " + helpEntry("r", "reload")
}

func (m clientsModel) View() string {
	if m.detail {
		return m.viewDetail()
	}

	var b strings.Builder
	b.WriteString(" " + labelStyle.Render("CLIENTS") + "\n\n")

	switch {
	case m.loading && len(m.clients) == 0:
		b.WriteString(" " + dimStyle.Render("loading clients...") + "\n")
		return b.String()
	case m.err != nil && len(m.clients) == 0:
		b.WriteString(" " + errorStyle.Render(statusText("load", m.err)) + "\n")
		return b.String()
	case len(m.clients) == 0:
		b.WriteString(" " + dimStyle.Render("No clients found. Press n to create one.") + "\n")
		return b.String()
	}

	for i, c := range m.clients {
		prefix := "  "
		id := normalStyle.Render(c.ID.String())
		if i == m.cursor {
			prefix = accentStyle.Render("> ")
			id = selectedStyle.Render(c.ID.String())
		}
		uri := ""
		if len(c.RedirectURIs) > 0 {
			uri = c.RedirectURIs[0]
			if len(c.RedirectURIs) > 1 {
				uri += fmt.Sprintf(" +%d", len(c.RedirectURIs)-1)
			}
		}
		grants := strings.Join(c.EnabledGrantTypes(), ",")
		b.WriteString(prefix + id + "  " + dimStyle.Render(truncStr(uri, 40)) + "  " + metaStyle.Render(truncStr(grants, 40)) + "\n")
	}

	if m.confirmDelete && m.cursor < len(m.clients) {
		b.WriteString("\n " + warnStyle.Render(fmt.Sprintf("delete client %s? y to confirm", m.clients[m.cursor].ID)) + "\n")
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + dimStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m clientsModel) viewDetail() string {
	c := m.draft
	var b strings.Builder
	title := "NEW CLIENT"
	if c.Persisted() {
		title = "CLIENT " + c.ID.String()
	}
	b.WriteString(" " + labelStyle.Render(title) + "\n\n")

	lastKind := rowKind(-1)
	for i, row := range m.rows() {
		if row.kind != lastKind {
			if section := sectionTitle(row.kind); section != "" {
				b.WriteString(" " + sectionHeaderStyle.Render(section) + "\n")
			}
			lastKind = row.kind
		}
		prefix := "   "
		if i == m.row {
			prefix = accentStyle.Render(" > ")
		}
		b.WriteString(prefix + m.renderRow(row, i == m.row) + "\n")
	}

	if m.picking {
		b.WriteString("\n " + sectionHeaderStyle.Render("Add scope") + "\n")
		if len(m.options) == 0 {
			b.WriteString("   " + dimStyle.Render("no scopes available") + "\n")
		}
		for i, s := range m.options {
			prefix := "   "
			if i == m.pickCursor {
				prefix = accentStyle.Render(" > ")
			}
			b.WriteString(prefix + normalStyle.Render(s.Name) + " " + metaStyle.Render(s.ID.String()) + "\n")
		}
	}

	for _, line := range errorLines(c.Errors) {
		b.WriteString(" " + errorStyle.Render(line) + "\n")
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + dimStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func sectionTitle(kind rowKind) string {
	switch kind {
	case rowRedirectURI:
		return "Redirect URIs"
	case rowGrantType:
		return "Grant types"
	case rowScope:
		return "Authorized scopes"
	}
	return ""
}

func (m clientsModel) renderRow(row detailRow, selected bool) string {
	c := m.draft
	editing := selected && m.inputting
	field := func(label, value string) string {
		if editing {
			value = editStyle.Render(m.input) + accentStyle.Render("█")
		} else if value == "" {
			value = dimStyle.Render("-")
		} else {
			value = normalStyle.Render(value)
		}
		return metaStyle.Render(fmt.Sprintf("%-24s", label)) + value
	}

	switch row.kind {
	case rowID:
		return field("id", c.ID.String())
	case rowSecret:
		return field("secret", c.Secret)
	case rowRedirectURI:
		return field("", c.RedirectURIs[row.index])
	case rowAddRedirectURI:
		if editing {
			return field("new redirect uri", "")
		}
		return dimStyle.Render("+ add redirect uri")
	case rowGrantType:
		g := c.GrantTypes[row.index]
		return checkbox(g.Enabled) + " " + normalStyle.Render(g.Label)
	case rowPKCE:
		return checkbox(c.PKCE) + " " + normalStyle.Render("pkce")
	case rowAuthorizeScope:
		return checkbox(c.AuthorizeScope) + " " + normalStyle.Render("authorize scope")
	case rowScope:
		s := c.AuthorizedScopes[row.index].Scope
		if s == nil || !s.Persisted() {
			return errorStyle.Render("(empty)")
		}
		return normalStyle.Render(s.Name) + " " + metaStyle.Render(s.ID.String())
	case rowAddScope:
		return dimStyle.Render("+ add scope")
	case rowAccessTokenTTL:
		return field("access token ttl", strconv.Itoa(c.AccessTokenTTL))
	case rowAuthorizationCodeTTL:
		return field("authorization code ttl", strconv.Itoa(c.AuthorizationCodeTTL))
	}
	return ""
}

func checkbox(checked bool) string {
	if checked {
		return accentStyle.Render("[x]")
	}
	return dimStyle.Render("[ ]")
}
