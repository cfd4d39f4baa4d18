package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors for the viewer.
type Theme struct {
	Name string

	// Base colors
	Background string
	Surface    string
	Border     string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),

		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		FaintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Faint)),

		AccentText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),

		WarningText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),

		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),

		InfoText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Width(12),
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	// Text
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	// Components
	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style
	Panel  lipgloss.Style
	Label  lipgloss.Style
}

// Theme definitions

var themes = map[string]Theme{
	"Newsprint": newsprintTheme(),
	"Nord":      nordTheme(),
	"Dracula":   draculaTheme(),
}

var themeOrder = []string{"Newsprint", "Nord", "Dracula"}

// GetTheme returns a theme by name, falling back to Newsprint.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return newsprintTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func newsprintTheme() Theme {
	// Warm paper tones with ink-dark text.
	return Theme{
		Name: "Newsprint",

		Background: "#f4efe1",
		Surface:    "#e6dcc3",
		Border:     "#a89f86",

		Text:    "#2b2a27",
		Muted:   "#6b6555",
		Faint:   "#8f8873",
		Accent:  "#1f4e79",
		Success: "#3d7a3d",
		Warning: "#a36a00",
		Danger:  "#a12b2b",
		Info:    "#2f6f7a",
	}
}

func nordTheme() Theme {
	// Nord palette: https://www.nordtheme.com
	return Theme{
		Name: "Nord",

		Background: "#2e3440", // nord0
		Surface:    "#3b4252", // nord1
		Border:     "#4c566a", // nord3

		Text:    "#eceff4", // nord6
		Muted:   "#a3abba",
		Faint:   "#7b88a1",
		Accent:  "#88c0d0", // nord8
		Success: "#a3be8c", // nord14
		Warning: "#ebcb8b", // nord13
		Danger:  "#bf616a", // nord11
		Info:    "#81a1c1", // nord9
	}
}

func draculaTheme() Theme {
	// Dracula palette: https://draculatheme.com
	return Theme{
		Name: "Dracula",

		Background: "#282a36",
		Surface:    "#343746",
		Border:     "#44475a",

		Text:    "#f8f8f2",
		Muted:   "#9aa0c0",
		Faint:   "#6272a4", // comment
		Accent:  "#bd93f9", // purple
		Success: "#50fa7b", // green
		Warning: "#f1fa8c", // yellow
		Danger:  "#ff5555", // red
		Info:    "#8be9fd", // cyan
	}
}
