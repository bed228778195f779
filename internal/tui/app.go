// Package tui is the interactive admin console: a scopes tab and a clients
// tab over the admin API.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type view int

const (
	viewScopes view = iota
	viewClients
)

// Location names remembered between runs.
const (
	LocationScopes  = "scopes"
	LocationClients = "clients"
)

func (v view) location() string {
	if v == viewClients {
		return LocationClients
	}
	return LocationScopes
}

func viewFor(location string) view {
	if location == LocationClients {
		return viewClients
	}
	return viewScopes
}

// App is the root Bubbletea model.
type App struct {
	api       API
	locations Locations
	version   string
	view      view
	scopes    scopesModel
	clients   clientsModel
	helpOpen  bool
	statusMsg string
	width     int
	height    int
	frame     int // logo shimmer animation frame
}

// NewApp creates the console. It opens on the tab stored in locations, if
// any.
func NewApp(api API, locations Locations, version string) App {
	a := App{
		api:       api,
		locations: locations,
		version:   version,
		scopes:    newScopesModel(api),
		clients:   newClientsModel(api),
	}
	if locations != nil {
		a.view = viewFor(locations.StoredLocation())
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.current().Init())
}

type initer interface{ Init() tea.Cmd }

func (a App) current() initer {
	if a.view == viewClients {
		return a.clients
	}
	return a.scopes
}

func (a App) switchTo(v view) (App, tea.Cmd) {
	if a.view == v {
		return a, nil
	}
	a.view = v
	a.statusMsg = ""
	if a.locations != nil {
		if err := a.locations.StoreLocationName(v.location()); err != nil {
			a.statusMsg = fmt.Sprintf("could not remember tab: %v", err)
		}
	}
	var cmd tea.Cmd
	if v == viewClients {
		a.clients, cmd = a.clients.reload()
	} else {
		a.scopes, cmd = a.scopes.reload()
	}
	return a, cmd
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + help(1) = 4 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		a.scopes, _ = a.scopes.Update(bodyMsg)
		a.clients, _ = a.clients.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case APIChangedMsg:
		a.api = msg.API
		a.scopes.api = msg.API
		a.clients.api = msg.API
		return a, nil

	case scopesLoadedMsg, scopeSavedMsg, scopeDeletedMsg, scopeResetMsg:
		var cmd tea.Cmd
		a.scopes, cmd = a.scopes.Update(msg)
		return a, cmd

	case clientsLoadedMsg, scopeOptionsMsg, clientSavedMsg, clientDeletedMsg, copyResultMsg:
		var cmd tea.Cmd
		a.clients, cmd = a.clients.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}

		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.isEditing() {
			switch msg.String() {
			case "h", "?":
				a.helpOpen = true
				return a, nil
			case "q":
				return a, tea.Quit
			case "1":
				return a.switchTo(viewScopes)
			case "2":
				return a.switchTo(viewClients)
			}
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewScopes:
		a.scopes, cmd = a.scopes.Update(msg)
	case viewClients:
		a.clients, cmd = a.clients.Update(msg)
	}
	return a, cmd
}

func (a App) isEditing() bool {
	switch a.view {
	case viewScopes:
		return a.scopes.editing()
	case viewClients:
		return a.clients.editing()
	}
	return false
}

func (a App) View() string {
	logo := renderShimmerLogo(logoText, a.frame)
	header := center(logo, a.width) + "\n" + center(metaStyle.Render("admin "+a.version), a.width)

	tabs := []struct {
		key  string
		name string
		v    view
	}{
		{"1", "Scopes", viewScopes},
		{"2", "Clients", viewClients},
	}
	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	body := a.scopes.View()
	if a.view == viewClients {
		body = a.clients.View()
	}
	help := " " + a.currentHelp()
	if !a.isEditing() {
		help = " " + helpEntry("1-2", "tabs") + "  " + a.currentHelp() + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
	}
	if a.statusMsg != "" {
		body += "\n " + warnStyle.Render(a.statusMsg) + "\n"
	}

	if a.helpOpen {
		body = helpView(a.version)
		help = " " + helpEntry("esc", "close")
	}

	// Chrome budget: header(2) + tabs(1) + help(1) = 4 lines + body
	body = strings.TrimRight(truncateToHeight(body, a.height-4), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabBar.String(), body, help)
}

func (a App) currentHelp() string {
	if a.view == viewClients {
		return a.clients.helpKeys()
	}
	return a.scopes.helpKeys()
}

func center(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}
