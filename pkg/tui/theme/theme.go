package theme

import "github.com/charmbracelet/lipgloss/v2"

// Theme centralizes Lip Gloss styles for the Bubble Tea UI.
type Theme struct {
	Header HeaderTheme
	Row    RowTheme
	Footer FooterTheme
}

// HeaderTheme styles the title bar above the account list.
type HeaderTheme struct {
	Title lipgloss.Style
	Count lipgloss.Style
}

// RowTheme styles the account list body.
type RowTheme struct {
	Waiting lipgloss.Style
}

// FooterTheme groups styles used by the bottom status bar.
type FooterTheme struct {
	Help   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Hint   lipgloss.Style
}

// Default returns the built-in theme used across the UI.
func Default() Theme {
	return Theme{
		Header: HeaderTheme{
			Title: lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true),
			Count: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		},
		Row: RowTheme{
			Waiting: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true).Padding(1, 2),
		},
		Footer: FooterTheme{
			Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			Hint:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		},
	}
}
