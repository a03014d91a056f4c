package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the heatmap and the progress view.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	// Negative and Positive color the two signs of ΔP_CO2, strongest last.
	Negative []lipgloss.Color
	Positive []lipgloss.Color
	Missing  lipgloss.Color
	Error    lipgloss.Color
}

var (
	ThemeOcean = Theme{
		Name:     "ocean",
		Primary:  lipgloss.Color("#0077be"),
		Accent:   lipgloss.Color("#ffd700"),
		Text:     lipgloss.Color("#e0f0ff"),
		Muted:    lipgloss.Color("#4488aa"),
		Negative: []lipgloss.Color{"#9ecae1", "#4292c6", "#08519c", "#08306b"},
		Positive: []lipgloss.Color{"#fcbba1", "#fb6a4a", "#cb181d", "#67000d"},
		Missing:  lipgloss.Color("#333333"),
		Error:    lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Accent:   lipgloss.Color("#88ff88"),
		Text:     lipgloss.Color("#00ff00"),
		Muted:    lipgloss.Color("#005500"),
		Negative: []lipgloss.Color{"#003300", "#006600", "#009900", "#00cc00"},
		Positive: []lipgloss.Color{"#333300", "#666600", "#999900", "#cccc00"},
		Missing:  lipgloss.Color("#001100"),
		Error:    lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Primary:  lipgloss.Color("#ffffff"),
		Accent:   lipgloss.Color("#0088ff"),
		Text:     lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#888888"),
		Negative: []lipgloss.Color{"#bbbbbb", "#999999", "#777777", "#555555"},
		Positive: []lipgloss.Color{"#ffffff", "#eeeeee", "#dddddd", "#cccccc"},
		Missing:  lipgloss.Color("#000000"),
		Error:    lipgloss.Color("#ff0000"),
	}

	CurrentTheme = ThemeOcean

	Themes = []Theme{
		ThemeOcean,
		ThemeRetroGreen,
		ThemeMinimal,
	}
)

// GetTheme returns a theme by name, falling back to ocean.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeOcean
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme returns the theme after t in Themes.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
