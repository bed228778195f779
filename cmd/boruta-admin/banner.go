package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	bannerDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bannerCmd   = lipgloss.NewStyle().Bold(true)
)

var helpCommands = []struct{ cmd, desc string }{
	{"boruta-admin", "Open the admin console (interactive TUI)"},
	{"boruta-admin login", "Sign in through the browser"},
	{"boruta-admin logout", "Forget the stored token"},
	{"boruta-admin status", "Show the session status"},
	{"boruta-admin scopes", "List, create, update and delete scopes"},
	{"boruta-admin clients", "List, create, update and delete clients"},
	{"boruta-admin --version", "Show version"},
}

func printOverview(w io.Writer) {
	fmt.Fprintf(w, "\n  %s\n\n  Commands:\n", bannerTitle.Render("B O R U T A   A D M I N")) //nolint:errcheck
	for _, c := range helpCommands {
		fmt.Fprintf(w, "    %s  %s\n", bannerCmd.Render(fmt.Sprintf("%-24s", c.cmd)), bannerDim.Render(c.desc)) //nolint:errcheck
	}
	fmt.Fprintln(w) //nolint:errcheck
}

func printSignInHint(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", bannerDim.Render("To sign in: boruta-admin login")) //nolint:errcheck
}
